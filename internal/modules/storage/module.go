package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"coin_bot/internal/modules/config"
	"coin_bot/internal/modules/storage/service"
	"coin_bot/pkg/db"
)

// NewStore выбирает хранилище по storage.driver.
func NewStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (service.Store, error) {
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		pool, err := db.NewPool(ctx, db.PoolConfig{DSN: cfg.Storage.DSN})
		if err != nil {
			return nil, fmt.Errorf("failed to create pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		tm := db.NewPgTxManager(pool)
		st := service.NewPgStore(tm, tm.Close)
		if err := st.Migrate(ctx); err != nil {
			tm.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		log.Info("storage: postgres")
		return st, nil

	case config.StorageSQLite:
		path := cfg.Storage.DSN
		if path == "" {
			if err := os.MkdirAll(cfg.Storage.Dir, 0o755); err != nil {
				return nil, err
			}
			path = filepath.Join(cfg.Storage.Dir, "bot.db")
		}
		st, err := service.NewSQLiteStore(ctx, path)
		if err != nil {
			return nil, err
		}
		log.Info("storage: sqlite", zap.String("path", path))
		return st, nil

	default:
		st, err := service.NewFileStore(cfg.Storage.Dir)
		if err != nil {
			return nil, err
		}
		log.Info("storage: files", zap.String("dir", cfg.Storage.Dir))
		return st, nil
	}
}

func Module() fx.Option {
	return fx.Module("storage",
		fx.Provide(NewStore),
		fx.Invoke(func(lc fx.Lifecycle, st service.Store) {
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					return st.Close()
				},
			})
		}),
	)
}
