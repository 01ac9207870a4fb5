package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"taskflow/internal/apperr"
	"taskflow/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth map[string]*models.User

func (f fakeAuth) Authenticate(_ context.Context, tok string) (*models.User, error) {
	if u, ok := f[tok]; ok {
		return u, nil
	}
	return nil, apperr.Unauthorized("Invalid or expired token")
}

func newTestApp() *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: HandleError})
	app.Use(ErrorHandler())

	auth := fakeAuth{
		"cookie-token": {ID: "from-cookie"},
		"header-token": {ID: "from-header"},
	}
	app.Get("/me", UseToken(auth), func(c *fiber.Ctx) error {
		return c.SendString(CurrentUser(c).ID)
	})
	app.Get("/panic", func(c *fiber.Ctx) error {
		panic("boom")
	})
	app.Get("/internal", func(c *fiber.Ctx) error {
		return apperr.Internal("Error loading user", errors.New("pq: connection refused"))
	})
	return app
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestUseToken(t *testing.T) {
	app := newTestApp()

	tests := []struct {
		name   string
		cookie string
		header string
		status int
		body   string
	}{
		{name: "no token", status: http.StatusUnauthorized},
		{name: "bearer header", header: "Bearer header-token", status: http.StatusOK, body: "from-header"},
		{name: "lowercase scheme", header: "bearer header-token", status: http.StatusOK, body: "from-header"},
		{name: "cookie wins over header", cookie: "cookie-token", header: "Bearer header-token", status: http.StatusOK, body: "from-cookie"},
		{name: "bad scheme", header: "Token header-token", status: http.StatusUnauthorized},
		{name: "unknown token", header: "Bearer nope", status: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)

			if tt.status == http.StatusOK {
				raw, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.Equal(t, tt.body, string(raw))
				return
			}
			body := decode(t, resp)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, float64(http.StatusUnauthorized), body["status"])
		})
	}
}

func TestErrorHandlerRecoversPanic(t *testing.T) {
	resp, err := newTestApp().Test(httptest.NewRequest(http.MethodGet, "/panic", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, "Internal server error", body["message"])
}

func TestInternalCauseIsHidden(t *testing.T) {
	resp, err := newTestApp().Test(httptest.NewRequest(http.MethodGet, "/internal", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, "Error loading user", body["message"])
	assert.NotContains(t, body["message"], "pq")
}

func TestUnknownRoute(t *testing.T) {
	resp, err := newTestApp().Test(httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, false, body["success"])
}
