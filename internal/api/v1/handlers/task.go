package handlers

import (
	"time"

	"taskflow/internal/apperr"
	"taskflow/internal/config"
	"taskflow/internal/middleware"
	"taskflow/internal/models"
	"taskflow/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type TaskHandler struct {
	tasks    *service.TaskService
	validate *validator.Validate
}

func NewTaskHandler(deps *config.Dependencies) *TaskHandler {
	return &TaskHandler{tasks: deps.Tasks, validate: deps.Validate}
}

// ownerID mengambil id user yang sedang login; route task selalu di belakang UseToken.
func ownerID(c *fiber.Ctx) (string, error) {
	user := middleware.CurrentUser(c)
	if user == nil {
		return "", apperr.Unauthorized("No token provided")
	}
	return user.ID, nil
}

type CreateTaskRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Priority *int   `json:"priority" validate:"omitempty,min=0,max=2"`
	Deadline string `json:"deadline"`
}

func (h *TaskHandler) CreateTask(c *fiber.Ctx) error {
	owner, err := ownerID(c)
	if err != nil {
		return err
	}

	var req CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Bad request")
	}
	if err := h.validate.Struct(req); err != nil {
		return validationError(c, err)
	}

	in := service.CreateTaskInput{Name: req.Name, Priority: models.PriorityLow}
	if req.Priority != nil {
		in.Priority = models.Priority(*req.Priority)
	}
	if req.Deadline != "" {
		deadline, _, err := parseDate(req.Deadline)
		if err != nil {
			return badRequest(c, "Invalid deadline, use YYYY-MM-DD")
		}
		in.Deadline = &deadline
	}

	task, err := h.tasks.Create(c.UserContext(), owner, in)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusCreated, "Task created successfully", task)
}

// GetUserTasks mendukung filter ?from=&to= pada deadline.
func (h *TaskHandler) GetUserTasks(c *fiber.Ctx) error {
	owner, err := ownerID(c)
	if err != nil {
		return err
	}

	var filter models.TaskFilter
	if from := c.Query("from"); from != "" {
		t, _, err := parseDate(from)
		if err != nil {
			return badRequest(c, "Invalid 'from' date")
		}
		filter.DeadlineFrom = &t
	}
	if to := c.Query("to"); to != "" {
		t, dateOnly, err := parseDate(to)
		if err != nil {
			return badRequest(c, "Invalid 'to' date")
		}
		if dateOnly {
			// "to" inklusif sampai akhir hari tersebut.
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		filter.DeadlineTo = &t
	}

	tasks, err := h.tasks.List(c.UserContext(), owner, filter)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "Tasks fetched successfully", tasks)
}

func (h *TaskHandler) GetTask(c *fiber.Ctx) error {
	owner, err := ownerID(c)
	if err != nil {
		return err
	}
	task, err := h.tasks.Get(c.UserContext(), owner, c.Params("id"))
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "Task found", task)
}

func (h *TaskHandler) TaskStats(c *fiber.Ctx) error {
	owner, err := ownerID(c)
	if err != nil {
		return err
	}
	stats, err := h.tasks.Stats(c.UserContext(), owner)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "Task stats fetched successfully", stats)
}

// UpdateTaskRequest memakai pointer supaya field yang tidak dikirim tidak diubah.
type UpdateTaskRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=100"`
	Priority *int    `json:"priority" validate:"omitempty,min=0,max=2"`
	Deadline *string `json:"deadline"`
}

func (h *TaskHandler) UpdateTask(c *fiber.Ctx) error {
	owner, err := ownerID(c)
	if err != nil {
		return err
	}

	var req UpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Bad request")
	}
	if err := h.validate.Struct(req); err != nil {
		return validationError(c, err)
	}

	patch := models.TaskPatch{Name: req.Name}
	if req.Priority != nil {
		p := models.Priority(*req.Priority)
		patch.Priority = &p
	}
	if req.Deadline != nil {
		deadline, _, err := parseDate(*req.Deadline)
		if err != nil {
			return badRequest(c, "Invalid deadline, use YYYY-MM-DD")
		}
		patch.Deadline = &deadline
	}

	task, err := h.tasks.Update(c.UserContext(), owner, c.Params("id"), patch)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "Task updated successfully", task)
}

func (h *TaskHandler) MoveTask(c *fiber.Ctx) error {
	owner, err := ownerID(c)
	if err != nil {
		return err
	}
	task, err := h.tasks.Move(c.UserContext(), owner, c.Params("id"), c.Params("direction"))
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "Task moved successfully", task)
}

func (h *TaskHandler) CompleteTask(c *fiber.Ctx) error {
	owner, err := ownerID(c)
	if err != nil {
		return err
	}
	task, err := h.tasks.Complete(c.UserContext(), owner, c.Params("id"))
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "Task completed", task)
}

func (h *TaskHandler) DeleteTask(c *fiber.Ctx) error {
	owner, err := ownerID(c)
	if err != nil {
		return err
	}
	if err := h.tasks.Delete(c.UserContext(), owner, c.Params("id")); err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "Task deleted successfully", nil)
}
