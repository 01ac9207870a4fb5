package handlers

import (
	"errors"
	"strings"
	"time"

	"taskflow/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func success(c *fiber.Ctx, status int, message string, data interface{}) error {
	body := fiber.Map{
		"message": message,
		"success": true,
		"status":  status,
	}
	if data != nil {
		body["data"] = data
	}
	return c.Status(status).JSON(body)
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": message,
		"success": false,
		"status":  fiber.StatusBadRequest,
	})
}

// validationError merender error validator dalam bentuk "Field: rule".
func validationError(c *fiber.Ctx, err error) error {
	logger.AuditLogger.Warn("Validation error", zap.String("path", c.Path()), zap.Error(err))

	var fields []string
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			fields = append(fields, fe.Field()+": "+fe.Tag())
		}
	} else {
		fields = append(fields, err.Error())
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation error",
		"errors":  strings.Join(fields, ", "),
		"success": false,
		"status":  fiber.StatusBadRequest,
	})
}

const dateLayout = "2006-01-02"

// parseDate menerima "YYYY-MM-DD" atau RFC3339. Tanggal tanpa jam dianggap UTC.
// dateOnly bernilai true jika input tidak menyertakan jam.
func parseDate(s string) (t time.Time, dateOnly bool, err error) {
	s = strings.TrimSpace(s)
	if t, err = time.Parse(dateLayout, s); err == nil {
		return t, true, nil
	}
	t, err = time.Parse(time.RFC3339, s)
	return t, false, err
}
