package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"taskflow/configs"
	v1 "taskflow/internal/api/v1"
	"taskflow/internal/config"
	"taskflow/internal/media"
	"taskflow/internal/middleware"
	"taskflow/internal/service"
	"taskflow/internal/token"
	"taskflow/internal/websocket"
	"taskflow/pkg/crypto"
	"taskflow/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"go.uber.org/zap"
)

func main() {
	// Load config
	cfg := configs.LoadConfig()

	// Inisialisasi logger
	logger.InitLoggers(cfg.LogDir)
	defer logger.SyncLoggers()

	if err := cfg.Validate(); err != nil {
		logger.ErrorLogger.Error("Invalid configuration", zap.Error(err))
		logger.SyncLoggers()
		os.Exit(1)
	}
	logger.SystemLogger.Info("Starting application", zap.String("time", time.Now().Format(time.RFC3339)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.ErrorLogger.Error("Application stopped with error", zap.Error(err))
		logger.SyncLoggers()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg configs.Config) error {
	stores, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer stores.close()

	avatars, err := media.NewLocalStore(cfg.UploadDir, strings.TrimRight(cfg.PublicBaseURL, "/")+"/uploads")
	if err != nil {
		return err
	}
	if cfg.ContactEncryptionKey == "" {
		logger.SystemLogger.Warn("CONTACT_ENCRYPTION_KEY is empty, contact numbers are stored in plain text")
	}

	tokens := token.NewService(token.Config{
		AccessSecret:  []byte(cfg.AccessTokenSecret),
		AccessTTL:     cfg.AccessTokenExpiry,
		RefreshSecret: []byte(cfg.RefreshTokenSecret),
		RefreshTTL:    cfg.RefreshTokenExpiry,
	})
	cipher := crypto.NewFieldCipher(cfg.ContactEncryptionKey)

	hub := websocket.NewHub()
	go hub.Run(ctx)

	deps := &config.Dependencies{
		Auth:         service.NewAuthService(stores.users, tokens, avatars, cipher),
		Tasks:        service.NewTaskService(stores.tasks, hub),
		Users:        service.NewUserService(stores.users, stores.tasks, avatars, cipher),
		Hub:          hub,
		Validate:     validator.New(),
		CookieSecure: cfg.CookieSecure,
		UploadDir:    avatars.Dir(),
	}

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := deps.Auth.SeedAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return err
		}
	}

	app := fiber.New(fiber.Config{
		AppName:      "taskflow",
		BodyLimit:    media.MaxAvatarSize + 1<<20,
		ErrorHandler: middleware.HandleError,
	})

	// Middleware
	app.Use(middleware.ErrorHandler())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        cfg.RateLimitMax,
		Expiration: 1 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			logger.SecurityLogger.Warn("Rate limit reached", zap.String("ip", c.IP()))
			return fiber.NewError(fiber.StatusTooManyRequests, "Too many requests")
		},
	}))

	// Daftarkan route API v1
	v1.RegisterRoutes(app, deps)

	go func() {
		<-ctx.Done()
		logger.SystemLogger.Info("Shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.ErrorLogger.Error("Error during shutdown", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.AppPort)
	logger.SystemLogger.Info("Application ready", zap.String("addr", addr), zap.String("db_driver", cfg.DBDriver))
	return app.Listen(addr)
}
