package kvstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jamesfry/footballgpt/internal/apperrors"
	"github.com/jamesfry/footballgpt/internal/config"
)

// RedisStore is a Redis-backed Store. Grounded on the teacher's
// internal/skills/redis_cache.go and internal/orchestrator/dedupe.go.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore connects to Redis and verifies connectivity with a ping.
func NewRedisStore(cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: redis ping: %v", apperrors.ErrStoreUnavailable, err)
	}
	return &RedisStore{client: client}, nil
}

func wrapErr(err error) error {
	if err == nil || err == redis.Nil {
		return nil
	}
	return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return wrapErr(s.client.Ping(ctx).Err())
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrapErr(err)
	}
	return v, true, nil
}

func (s *RedisStore) SetEX(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return wrapErr(s.client.Set(ctx, key, value, 0).Err())
	}
	return wrapErr(s.client.Set(ctx, key, value, ttl).Err())
}

func (s *RedisStore) Del(ctx context.Context, key string) error {
	return wrapErr(s.client.Del(ctx, key).Err())
}

func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return wrapErr(s.client.Expire(ctx, key, ttl).Err())
}

func (s *RedisStore) HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error) {
	v, err := s.client.HIncrBy(ctx, key, field, delta).Result()
	if err != nil {
		return 0, wrapErr(err)
	}
	return v, nil
}

func (s *RedisStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, wrapErr(err)
	}
	if m == nil {
		m = map[string]string{}
	}
	return m, nil
}

func (s *RedisStore) HDel(ctx context.Context, key string, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	return wrapErr(s.client.HDel(ctx, key, fields...).Err())
}

func (s *RedisStore) Scan(ctx context.Context, cursor uint64, pattern string, batchSize int64) ([]string, uint64, error) {
	keys, next, err := s.client.Scan(ctx, cursor, pattern, batchSize).Result()
	if err != nil {
		return nil, 0, wrapErr(err)
	}
	return keys, next, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
