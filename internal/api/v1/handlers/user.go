package handlers

import (
	"taskflow/internal/config"
	"taskflow/internal/middleware"
	"taskflow/internal/models"
	"taskflow/internal/service"
	"taskflow/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type UserHandler struct {
	users    *service.UserService
	validate *validator.Validate
	cookies  *AuthHandler
}

func NewUserHandler(deps *config.Dependencies) *UserHandler {
	return &UserHandler{users: deps.Users, validate: deps.Validate, cookies: NewAuthHandler(deps)}
}

// GetAllUsers hanya untuk admin.
func (h *UserHandler) GetAllUsers(c *fiber.Ctx) error {
	users, err := h.users.List(c.UserContext(), middleware.CurrentUser(c))
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "Users fetched successfully", users)
}

// GetUser bisa diakses oleh admin dan user itu sendiri.
func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	user, err := h.users.Get(c.UserContext(), middleware.CurrentUser(c), c.Params("id"))
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "User found", user)
}

type UpdateUserRequest struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=50"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Contact  *string `json:"contact" validate:"omitempty,max=20"`
	Password *string `json:"password" validate:"omitempty,min=6"`
}

func (h *UserHandler) UpdateUser(c *fiber.Ctx) error {
	var req UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in update user", zap.Error(err))
		return badRequest(c, "Bad request")
	}
	if err := h.validate.Struct(req); err != nil {
		return validationError(c, err)
	}

	patch := models.UserPatch{
		Username: req.Username,
		Email:    req.Email,
		Contact:  req.Contact,
		Password: req.Password,
	}
	user, err := h.users.Update(c.UserContext(), middleware.CurrentUser(c), c.Params("id"), patch)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "User updated successfully", user)
}

func (h *UserHandler) DeleteUser(c *fiber.Ctx) error {
	actor := middleware.CurrentUser(c)
	id := c.Params("id")
	if err := h.users.Delete(c.UserContext(), actor, id); err != nil {
		return err
	}
	// Akun sendiri dihapus: token lama tidak berguna lagi.
	if actor != nil && actor.ID == id {
		h.cookies.clearTokenCookies(c)
	}
	return success(c, fiber.StatusOK, "User deleted successfully", nil)
}
