package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"taskflow/internal/apperr"
	"taskflow/internal/models"
	"taskflow/internal/repository"
	"taskflow/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	errTaskNotFound      = apperr.NotFound("Task not found")
	errDuplicateTask     = apperr.Conflict("Task with this name already exists")
	errInvalidTransition = apperr.InvalidTransition("Invalid stage movement")
)

type CreateTaskInput struct {
	Name     string
	Priority models.Priority
	Deadline *time.Time
}

// TaskService menjalankan workflow task. Semua operasi di-scope ke ownerID.
type TaskService struct {
	tasks     repository.TaskStore
	publisher Publisher
	now       func() time.Time
}

func NewTaskService(tasks repository.TaskStore, publisher Publisher) *TaskService {
	return &TaskService{tasks: tasks, publisher: publisher, now: time.Now}
}

func (s *TaskService) publish(ownerID, eventType string, task *models.Task, taskID string) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ownerID, models.TaskEvent{Type: eventType, TaskID: taskID, Task: task})
}

// storeError maps repository errors to the taxonomy.
func storeError(err error, action string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return errTaskNotFound
	case errors.Is(err, repository.ErrDuplicate):
		return errDuplicateTask
	case errors.Is(err, repository.ErrStageOutOfRange):
		return errInvalidTransition
	default:
		return apperr.Internal("Error "+action+" task", err)
	}
}

func (s *TaskService) Create(ctx context.Context, ownerID string, in CreateTaskInput) (*models.Task, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("Task name is required")
	}
	if !in.Priority.Valid() {
		return nil, apperr.Validation("Priority must be 0, 1, or 2")
	}

	task := &models.Task{
		ID:       uuid.NewString(),
		Name:     name,
		Stage:    models.StageBacklog,
		Priority: in.Priority,
		Deadline: in.Deadline,
		UserID:   ownerID,
	}
	if err := s.tasks.CreateTask(ctx, task); err != nil {
		return nil, storeError(err, "creating")
	}

	logger.AuditLogger.Info("Task created", zap.String("task_id", task.ID), zap.String("user_id", ownerID))
	s.publish(ownerID, models.EventTaskCreated, task, task.ID)
	return task, nil
}

func (s *TaskService) Get(ctx context.Context, ownerID, id string) (*models.Task, error) {
	if !validID(id) {
		return nil, errTaskNotFound
	}
	task, err := s.tasks.FindTask(ctx, id, ownerID)
	if err != nil {
		return nil, storeError(err, "loading")
	}
	return task, nil
}

// List returns the owner's tasks; an empty slice is not an error.
func (s *TaskService) List(ctx context.Context, ownerID string, filter models.TaskFilter) ([]models.Task, error) {
	if filter.DeadlineFrom != nil && filter.DeadlineTo != nil && filter.DeadlineTo.Before(*filter.DeadlineFrom) {
		return nil, apperr.Validation("'from' must not be after 'to'")
	}
	tasks, err := s.tasks.ListTasks(ctx, ownerID, filter)
	if err != nil {
		return nil, storeError(err, "listing")
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

// Update hanya mengubah field yang dikirim.
func (s *TaskService) Update(ctx context.Context, ownerID, id string, patch models.TaskPatch) (*models.Task, error) {
	if !validID(id) {
		return nil, errTaskNotFound
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperr.Validation("Task name must not be empty")
		}
		patch.Name = &name
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return nil, apperr.Validation("Priority must be 0, 1, or 2")
	}
	if patch.Empty() {
		return s.Get(ctx, ownerID, id)
	}

	task, err := s.tasks.UpdateTask(ctx, id, ownerID, patch)
	if err != nil {
		return nil, storeError(err, "updating")
	}
	logger.AuditLogger.Info("Task updated", zap.String("task_id", id), zap.String("user_id", ownerID))
	s.publish(ownerID, models.EventTaskUpdated, task, task.ID)
	return task, nil
}

// Move shifts the task one stage. The bounds check and the write happen in a
// single store operation.
func (s *TaskService) Move(ctx context.Context, ownerID, id, direction string) (*models.Task, error) {
	dir, ok := models.ParseDirection(direction)
	if !ok {
		return nil, apperr.Validation("Direction must be 'forward' or 'backward'")
	}
	if !validID(id) {
		return nil, errTaskNotFound
	}

	task, err := s.tasks.ShiftStage(ctx, id, ownerID, dir.Delta())
	if err != nil {
		if errors.Is(err, repository.ErrStageOutOfRange) {
			logger.AuditLogger.Info("Stage move rejected", zap.String("task_id", id), zap.String("direction", string(dir)))
		}
		return nil, storeError(err, "moving")
	}
	logger.AuditLogger.Info("Task moved", zap.String("task_id", id), zap.Stringer("stage", task.Stage))
	s.publish(ownerID, models.EventTaskMoved, task, task.ID)
	return task, nil
}

// Complete forces stage Done. Calling it on a finished task is a no-op success.
func (s *TaskService) Complete(ctx context.Context, ownerID, id string) (*models.Task, error) {
	if !validID(id) {
		return nil, errTaskNotFound
	}
	task, err := s.tasks.SetStage(ctx, id, ownerID, models.StageDone)
	if err != nil {
		return nil, storeError(err, "completing")
	}
	logger.AuditLogger.Info("Task completed", zap.String("task_id", id), zap.String("user_id", ownerID))
	s.publish(ownerID, models.EventTaskCompleted, task, task.ID)
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, ownerID, id string) error {
	if !validID(id) {
		return errTaskNotFound
	}
	if err := s.tasks.DeleteTask(ctx, id, ownerID); err != nil {
		return storeError(err, "deleting")
	}
	logger.AuditLogger.Info("Task deleted", zap.String("task_id", id), zap.String("user_id", ownerID))
	s.publish(ownerID, models.EventTaskDeleted, nil, id)
	return nil
}

// Stats menghitung ringkasan task untuk dashboard.
func (s *TaskService) Stats(ctx context.Context, ownerID string) (models.TaskStats, error) {
	tasks, err := s.tasks.ListTasks(ctx, ownerID, models.TaskFilter{})
	if err != nil {
		return models.TaskStats{}, storeError(err, "listing")
	}
	return models.NewTaskStats(tasks, s.now()), nil
}
