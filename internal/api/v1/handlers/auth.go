package handlers

import (
	"mime/multipart"
	"strings"
	"time"

	"taskflow/internal/apperr"
	"taskflow/internal/config"
	"taskflow/internal/middleware"
	"taskflow/internal/service"
	"taskflow/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const profilePicField = "profilePic"

type AuthHandler struct {
	auth         *service.AuthService
	validate     *validator.Validate
	cookieSecure bool
}

func NewAuthHandler(deps *config.Dependencies) *AuthHandler {
	return &AuthHandler{auth: deps.Auth, validate: deps.Validate, cookieSecure: deps.CookieSecure}
}

type RegisterRequest struct {
	Username string `json:"username" form:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" form:"email" validate:"required,email"`
	Contact  string `json:"contact" form:"contact" validate:"required,max=20"`
	Password string `json:"password" form:"password" validate:"required,min=6"`
}

// Register menerima multipart form (dengan file profilePic opsional) atau JSON.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in register", zap.Error(err))
		return badRequest(c, "Bad request")
	}
	if err := h.validate.Struct(req); err != nil {
		return validationError(c, err)
	}

	avatar, err := formFile(c, profilePicField)
	if err != nil {
		return badRequest(c, "Invalid profile picture upload")
	}

	user, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Contact:  req.Contact,
		Password: req.Password,
		Avatar:   avatar,
	})
	if err != nil {
		return err
	}
	return success(c, fiber.StatusCreated, "User registered successfully", fiber.Map{"user": user})
}

// formFile returns nil when the request carries no file under field.
func formFile(c *fiber.Ctx, field string) (*multipart.FileHeader, error) {
	if !strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}
	if files := form.File[field]; len(files) > 0 {
		return files[0], nil
	}
	return nil, nil
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in login", zap.Error(err))
		return badRequest(c, "Bad request")
	}
	if err := h.validate.Struct(req); err != nil {
		return validationError(c, err)
	}

	session, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	h.setTokenCookies(c, session.AccessToken, session.RefreshToken)
	return success(c, fiber.StatusOK, "Login successful", fiber.Map{
		"user":         session.User,
		"accessToken":  session.AccessToken,
		"refreshToken": session.RefreshToken,
	})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return apperr.Unauthorized("No token provided")
	}
	if err := h.auth.Logout(c.UserContext(), user.ID); err != nil {
		return err
	}

	h.clearTokenCookies(c)
	return success(c, fiber.StatusOK, "Logout successful", nil)
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken membaca refresh token dari cookie, atau dari body jika cookie kosong.
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	incoming := c.Cookies(middleware.RefreshTokenCookie)
	if incoming == "" {
		var req RefreshRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return badRequest(c, "Bad request")
			}
		}
		incoming = req.RefreshToken
	}

	session, err := h.auth.Refresh(c.UserContext(), incoming)
	if err != nil {
		return err
	}

	h.setTokenCookies(c, session.AccessToken, session.RefreshToken)
	return success(c, fiber.StatusOK, "Access token refreshed", fiber.Map{
		"accessToken":  session.AccessToken,
		"refreshToken": session.RefreshToken,
	})
}

func (h *AuthHandler) tokenCookie(name, value string, ttl time.Duration) *fiber.Cookie {
	sameSite := fiber.CookieSameSiteLaxMode
	if h.cookieSecure {
		// Frontend dan API beda origin; browser hanya mengirim cookie lintas site jika Secure.
		sameSite = fiber.CookieSameSiteNoneMode
	}
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		HTTPOnly: true,
		Secure:   h.cookieSecure,
		SameSite: sameSite,
	}
}

func (h *AuthHandler) setTokenCookies(c *fiber.Ctx, access, refresh string) {
	c.Cookie(h.tokenCookie(middleware.AccessTokenCookie, access, h.auth.AccessTTL()))
	c.Cookie(h.tokenCookie(middleware.RefreshTokenCookie, refresh, h.auth.RefreshTTL()))
}

func (h *AuthHandler) clearTokenCookies(c *fiber.Ctx) {
	for _, name := range []string{middleware.AccessTokenCookie, middleware.RefreshTokenCookie} {
		cookie := h.tokenCookie(name, "", 0)
		cookie.Expires = time.Unix(0, 0)
		cookie.MaxAge = -1
		c.Cookie(cookie)
	}
}
