package middleware

import (
	"context"
	"strings"

	"taskflow/internal/apperr"
	"taskflow/internal/models"
	"taskflow/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"

	userKey = "user"
)

// Authenticator resolves an access token to the user it belongs to.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
}

// UseToken mengambil token dari cookie accessToken, atau dari header
// Authorization: Bearer jika cookie tidak ada, lalu menyimpan user ke Locals.
func UseToken(auth Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, err := bearerToken(c)
		if err != nil {
			return err
		}

		user, err := auth.Authenticate(c.UserContext(), raw)
		if err != nil {
			logger.SecurityLogger.Warn("Rejected access token",
				zap.String("ip", c.IP()),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
			return err
		}

		c.Locals(userKey, user)
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) (string, error) {
	if cookie := c.Cookies(AccessTokenCookie); cookie != "" {
		return cookie, nil
	}

	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return "", apperr.Unauthorized("No token provided")
	}
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", apperr.Unauthorized("Invalid token format")
	}
	return parts[1], nil
}

// CurrentUser returns the user stored by UseToken, or nil on public routes.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(userKey).(*models.User)
	return user
}
