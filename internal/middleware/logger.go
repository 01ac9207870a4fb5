package middleware

import (
	"fmt"
	"runtime/debug"
	"time"

	"taskflow/internal/apperr"
	"taskflow/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ErrorHandler me-recover panic dan mencatat setiap request yang masuk.
func ErrorHandler() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				logger.ErrorLogger.Error(fmt.Sprintf("Recovered from panic: %v", r),
					zap.String("method", c.Method()),
					zap.String("url", c.OriginalURL()),
					zap.String("stack", string(debug.Stack())),
				)
				err = WriteError(c, apperr.Internal("Internal server error", fmt.Errorf("panic: %v", r)))
			}
		}()

		err = c.Next()
		if err != nil {
			// Render di sini supaya status yang dicatat sama dengan yang dikirim.
			err = WriteError(c, err)
		}

		logger.RequestLogger.Info("Incoming request",
			zap.String("method", c.Method()),
			zap.String("url", c.OriginalURL()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.IP()),
		)
		return err
	}
}

// WriteError renders err in the standard response envelope. Internal causes
// are logged, never sent.
func WriteError(c *fiber.Ctx, err error) error {
	status := apperr.Status(err)
	if status >= fiber.StatusInternalServerError {
		logger.ErrorLogger.Error(apperr.PublicMessage(err),
			zap.String("method", c.Method()),
			zap.String("url", c.OriginalURL()),
			zap.Error(err),
		)
	}
	return c.Status(status).JSON(fiber.Map{
		"message": apperr.PublicMessage(err),
		"success": false,
		"status":  status,
	})
}

// HandleError dipasang sebagai fiber.Config.ErrorHandler untuk error yang
// lolos dari middleware, mis. 404 route atau body terlalu besar.
func HandleError(c *fiber.Ctx, err error) error {
	return WriteError(c, err)
}
