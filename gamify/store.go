package gamify

import (
	"context"
	"fmt"

	"hanzikit/adapters/jsonfile"
	"hanzikit/adapters/memory"
	redisstore "hanzikit/adapters/redis"
	sqlstore "hanzikit/adapters/sqlx"
	"hanzikit/config"
	"hanzikit/engine"
)

// OpenStore builds the store selected by cfg.Adapter. The returned close
// function releases connections and is never nil.
func OpenStore(ctx context.Context, cfg config.StorageConfig) (engine.Store, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Adapter {
	case "memory", "":
		return memory.New(), noop, nil
	case "file":
		s, err := jsonfile.New(cfg.File.Dir)
		if err != nil {
			return nil, noop, fmt.Errorf("open file store: %w", err)
		}
		return s, noop, nil
	case "redis":
		s, err := redisstore.New(redisstore.Config{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			KeyPrefix:    cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	case "sql":
		s, err := sqlstore.New(ctx, sqlstore.Config{
			Driver:          sqlstore.Driver(cfg.SQL.Driver),
			DSN:             cfg.SQL.DSN,
			MaxOpenConns:    cfg.SQL.MaxOpenConns,
			MaxIdleConns:    cfg.SQL.MaxIdleConns,
			ConnMaxLifetime: cfg.SQL.ConnMaxLifetime,
		})
		if err != nil {
			return nil, noop, err
		}
		if cfg.SQL.AutoMigrate {
			if err := s.Migrate(ctx); err != nil {
				_ = s.Close()
				return nil, noop, fmt.Errorf("migrate: %w", err)
			}
		}
		return s, s.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown storage adapter %q", cfg.Adapter)
	}
}
