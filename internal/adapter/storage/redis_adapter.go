package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/medstock/internal/core/domain"
	"github.com/rl1809/medstock/internal/logging"
)

// RedisAdapter keeps each collection as one JSON string under <prefix><name>.
type RedisAdapter struct {
	client    *redis.Client
	keyPrefix string
	logger    logging.Logger
}

func NewRedisAdapter(client *redis.Client, keyPrefix string, logger logging.Logger) *RedisAdapter {
	return &RedisAdapter{client: client, keyPrefix: keyPrefix, logger: logger}
}

func (r *RedisAdapter) Key(name string) string {
	return r.keyPrefix + name
}

func (r *RedisAdapter) Load(ctx context.Context, name string) ([]domain.Record, error) {
	data, err := r.client.Get(ctx, r.Key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return []domain.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", name, err)
	}
	if len(data) == 0 {
		return []domain.Record{}, nil
	}
	return decodeOrEmpty(ctx, r.logger, name, data), nil
}

func (r *RedisAdapter) Save(ctx context.Context, name string, records []domain.Record) error {
	data, err := encodeRecords(records)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.Key(name), data, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	return nil
}

func (r *RedisAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
