package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	accessKey  = "console:token:access"
	refreshKey = "console:token:refresh"
)

// RedisConfig holds Redis connection configuration for the token store
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	MaxRetries    int
	RetryInterval time.Duration
}

// RedisStore persists the token pair in Redis so a console restart does not
// force a fresh login.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed store, verifying connectivity with
// bounded retry.
func NewRedisStore(ctx context.Context, cfg *RedisConfig) (*RedisStore, error) {
	if cfg == nil {
		return nil, errors.New("redis config is required")
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	retryInterval := cfg.RetryInterval
	if retryInterval <= 0 {
		retryInterval = time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryInterval):
			}
		}
		if lastErr = client.Ping(ctx).Err(); lastErr == nil {
			return &RedisStore{client: client}, nil
		}
	}
	_ = client.Close()
	return nil, fmt.Errorf("failed to connect to redis after %d attempts: %w", maxRetries, lastErr)
}

func (s *RedisStore) Save(ctx context.Context, access, refresh string) error {
	// Tokens carry their own expiry; slots live until cleared.
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, accessKey, access, 0)
	pipe.Set(ctx, refreshKey, refresh, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save tokens: %w", err)
	}
	return nil
}

func (s *RedisStore) Access(ctx context.Context) (string, error) {
	return s.get(ctx, accessKey)
}

func (s *RedisStore) Refresh(ctx context.Context) (string, error) {
	return s.get(ctx, refreshKey)
}

func (s *RedisStore) get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	if val == "" {
		return "", ErrNotFound
	}
	return val, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, accessKey, refreshKey).Err(); err != nil {
		return fmt.Errorf("failed to clear tokens: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
