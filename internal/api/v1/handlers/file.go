package handlers

import (
	"taskflow/internal/middleware"
	"taskflow/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// UploadProfilePicture mengganti foto profil user dari field multipart profilePic.
// File disimpan oleh media store dan disajikan lewat /uploads.
func (h *UserHandler) UploadProfilePicture(c *fiber.Ctx) error {
	file, err := c.FormFile(profilePicField)
	if err != nil {
		logger.ErrorLogger.Error("Error uploading file", zap.Error(err))
		return badRequest(c, "Profile picture is required")
	}

	user, err := h.users.ChangeAvatar(c.UserContext(), middleware.CurrentUser(c), c.Params("id"), file)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "Profile picture uploaded successfully", fiber.Map{
		"profile_picture": user.ProfilePicture,
	})
}
