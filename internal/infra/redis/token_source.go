// Package redis provides a Redis-backed token source for deployments where
// the bearer token is provisioned into a shared cache instead of being held
// by the process itself.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTokenKey = "httpkit:auth:token"

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	TokenKey string `yaml:"token_key"`
}

// TokenSource reads the current bearer token from Redis.
type TokenSource struct {
	rdb *redis.Client
	key string
}

// NewTokenSource connects to Redis and verifies the connection.
func NewTokenSource(cfg Config) (*TokenSource, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	key := cfg.TokenKey
	if key == "" {
		key = defaultTokenKey
	}
	return &TokenSource{rdb: rdb, key: key}, nil
}

// Token returns the stored token. A missing key is not an error: it means
// "not authenticated" and the request proceeds without a bearer token.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	val, err := s.rdb.Get(ctx, s.key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return val, nil
}

// Close closes the Redis connection.
func (s *TokenSource) Close() error {
	return s.rdb.Close()
}
