package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/medstock/internal/config"
	"github.com/rl1809/medstock/internal/logging"
	"github.com/rl1809/medstock/internal/metrics"
	"github.com/rl1809/medstock/internal/port"
)

// Open connects the backend named by cfg.Backend and returns it wrapped with
// metrics. The returned close func releases backend connections.
func Open(ctx context.Context, cfg config.StorageConfig, logger logging.Logger, m *metrics.Metrics) (port.RecordStore, func() error, error) {
	logger = logger.With("backend", cfg.Backend)

	switch cfg.Backend {
	case config.BackendFile:
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create data dir: %w", err)
		}
		store := NewFileAdapter(cfg.DataDir, logger)
		logger.Info(ctx, "using file record store", "dir", cfg.DataDir)
		return Instrument(store, cfg.Backend, m), func() error { return nil }, nil

	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		logger.Info(ctx, "connected to redis", "addr", cfg.RedisAddr)
		store := NewRedisAdapter(rdb, cfg.RedisKeyPrefix, logger)
		return Instrument(store, cfg.Backend, m), rdb.Close, nil

	case config.BackendSQL:
		db, err := sql.Open(cfg.SQLDriver, cfg.SQLDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open %s: %w", cfg.SQLDriver, err)
		}
		db.SetMaxOpenConns(10)
		db.SetConnMaxLifetime(5 * time.Minute)
		if cfg.SQLDriver == "sqlite3" {
			db.SetMaxOpenConns(1)
		}

		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("ping %s: %w", cfg.SQLDriver, err)
		}

		store := NewSQLAdapter(db, logger)
		if err := store.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info(ctx, "connected to sql database", "driver", cfg.SQLDriver)
		return Instrument(store, cfg.Backend, m), db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
