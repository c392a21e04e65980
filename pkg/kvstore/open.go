package kvstore

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/greenthumb-app/greenthumb/pkg/config"
	"github.com/greenthumb-app/greenthumb/pkg/logging"
	"github.com/greenthumb-app/greenthumb/pkg/retry"
)

// Open returns the store selected by cfg.Backend. Network backends are dialed
// with backoff so the server can start alongside its database.
func Open(ctx context.Context, cfg *config.StorageConfig, logger *zap.Logger) (Store, error) {
	logger = logger.Named("kvstore")

	switch cfg.Backend {
	case "memory":
		logger.Warn("Using in-memory storage; the garden will not survive a restart")
		return NewMemoryStore(), nil

	case "sqlite":
		store, err := NewSQLiteStore(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		logger.Info("Opened SQLite storage", zap.String("path", cfg.SQLite.Path))
		return store, nil

	case "postgres":
		logger.Info("Connecting to PostgreSQL",
			zap.String("dsn", logging.SanitizeConnectionString(cfg.Postgres.URL())))
		return retry.DoWithResult(ctx, dialConfig(cfg, logger), func() (Store, error) {
			store, err := NewPostgresStore(ctx, &cfg.Postgres, logger)
			if err != nil {
				return nil, err
			}
			return store, nil
		})

	case "redis":
		logger.Info("Connecting to Redis", zap.String("addr", cfg.Redis.Addr()))
		return retry.DoWithResult(ctx, dialConfig(cfg, logger), func() (Store, error) {
			store, err := NewRedisStore(ctx, &cfg.Redis)
			if err != nil {
				return nil, err
			}
			return store, nil
		})

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func dialConfig(cfg *config.StorageConfig, logger *zap.Logger) *retry.Config {
	rc := retry.DefaultConfig()
	rc.MaxRetries = cfg.ConnectRetries
	rc.OnRetry = func(attempt int, err error, delay time.Duration) {
		logger.Warn("Storage not reachable, retrying",
			zap.String("backend", cfg.Backend),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.String("error", logging.SanitizeError(err)))
	}
	return rc
}
