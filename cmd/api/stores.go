package main

import (
	"context"
	"fmt"

	"taskflow/configs"
	"taskflow/internal/repository"
	"taskflow/pkg/database"
	"taskflow/pkg/logger"

	"go.uber.org/zap"
)

type stores struct {
	users   repository.UserStore
	tasks   repository.TaskStore
	closers []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStores memilih backend berdasarkan DB_DRIVER, lalu membungkus user
// store dengan cache Redis jika REDIS_HOST diisi.
func openStores(ctx context.Context, cfg configs.Config) (*stores, error) {
	s := &stores{}

	switch cfg.DBDriver {
	case "postgres":
		db, err := database.ConnectDB(ctx, cfg)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() { db.Close() })
		// Buat tabel jika belum ada
		if err := repository.CreateTableIfNotExists(ctx, db); err != nil {
			s.close()
			return nil, err
		}
		s.users = repository.NewPostgresUserStore(db)
		s.tasks = repository.NewPostgresTaskStore(db)
		logger.SystemLogger.Info("Database Connected", zap.String("driver", "postgres"))

	case "mongo":
		client, err := database.ConnectMongo(ctx, cfg)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() { _ = client.Disconnect(context.Background()) })
		db := client.Database(cfg.MongoDatabase)
		if err := repository.EnsureMongoIndexes(ctx, db); err != nil {
			s.close()
			return nil, err
		}
		s.users = repository.NewMongoUserStore(db)
		s.tasks = repository.NewMongoTaskStore(db)
		logger.SystemLogger.Info("Database Connected", zap.String("driver", "mongo"))

	case "memory":
		mem := repository.NewMemoryStore()
		s.users, s.tasks = mem, mem
		logger.SystemLogger.Warn("Using in-memory store, data is lost on restart")

	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}

	if cfg.RedisHost != "" {
		rdb, err := database.ConnectRedis(ctx, cfg)
		if err != nil {
			s.close()
			return nil, err
		}
		s.closers = append(s.closers, func() { rdb.Close() })
		s.users = repository.NewCachedUserStore(s.users, rdb, cfg.CacheTTL)
		logger.SystemLogger.Info("Redis Connected")
	}
	return s, nil
}
