package config

import (
	"taskflow/internal/service"
	"taskflow/internal/websocket"

	"github.com/go-playground/validator/v10"
)

// Dependencies dibangun sekali di main (atau di test) lalu diteruskan ke
// routes dan handler. Tidak ada state global selain logger.
type Dependencies struct {
	Auth  *service.AuthService
	Tasks *service.TaskService
	Users *service.UserService
	Hub   *websocket.Hub

	Validate     *validator.Validate
	CookieSecure bool
	// UploadDir disajikan sebagai static file di /uploads.
	UploadDir string
}
