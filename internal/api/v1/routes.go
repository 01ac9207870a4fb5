package v1

import (
	"taskflow/internal/api/v1/handlers"
	"taskflow/internal/config"
	"taskflow/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const ownerLocal = "ws_owner_id"

func RegisterRoutes(app *fiber.App, deps *config.Dependencies) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if deps.UploadDir != "" {
		app.Static("/uploads", deps.UploadDir)
	}

	api := app.Group("/api/v1")
	requireToken := middleware.UseToken(deps.Auth)

	// Auth
	auth := handlers.NewAuthHandler(deps)
	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", auth.Register)
	authRoutes.Post("/login", auth.Login)
	authRoutes.Post("/logout", requireToken, auth.Logout)
	authRoutes.Post("/refresh-token", auth.RefreshToken)

	// User
	users := handlers.NewUserHandler(deps)
	userRoutes := api.Group("/user", requireToken)
	userRoutes.Get("/", users.GetAllUsers)
	userRoutes.Get("/:id", users.GetUser)
	userRoutes.Put("/:id", users.UpdateUser)
	userRoutes.Delete("/:id", users.DeleteUser)
	userRoutes.Post("/:id/avatar", users.UploadProfilePicture)

	// Task. Route statis didaftarkan sebelum /:id.
	tasks := handlers.NewTaskHandler(deps)
	taskRoutes := api.Group("/task", requireToken)
	taskRoutes.Post("/", tasks.CreateTask)
	taskRoutes.Get("/user", tasks.GetUserTasks)
	taskRoutes.Get("/stats", tasks.TaskStats)
	taskRoutes.Put("/move/:id/:direction", tasks.MoveTask)
	taskRoutes.Get("/:id", tasks.GetTask)
	taskRoutes.Put("/:id/complete", tasks.CompleteTask)
	taskRoutes.Put("/:id", tasks.UpdateTask)
	taskRoutes.Delete("/:id", tasks.DeleteTask)

	// WebSocket board: event task milik user yang login.
	if deps.Hub != nil {
		api.Get("/ws/board", requireToken, func(c *fiber.Ctx) error {
			if !websocket.IsWebSocketUpgrade(c) {
				return fiber.ErrUpgradeRequired
			}
			c.Locals(ownerLocal, middleware.CurrentUser(c).ID)
			return c.Next()
		}, websocket.New(func(conn *websocket.Conn) {
			owner, _ := conn.Locals(ownerLocal).(string)
			deps.Hub.ServeClient(owner, conn)
		}))
	}
}
