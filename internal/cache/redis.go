package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/autolink/autolink/internal/scanner"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

type RedisConfig struct {
	URL       string
	TTL       time.Duration
	KeyPrefix string
}

// RedisStore keeps results as JSON under KeyPrefix+key.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

func NewRedisStore(ctx context.Context, cfg RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	logger.Info("Result cache connected",
		zap.String("redis_url", maskURL(cfg.URL)),
		zap.Duration("ttl", cfg.TTL),
	)

	return newRedisStore(client, cfg, logger), nil
}

func newRedisStore(client *redis.Client, cfg RedisConfig, logger *zap.Logger) *RedisStore {
	return &RedisStore{client: client, ttl: cfg.TTL, prefix: cfg.KeyPrefix, logger: logger}
}

func (s *RedisStore) Get(ctx context.Context, key string) (scanner.Result, bool, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return scanner.Result{}, false, nil
	}
	if err != nil {
		return scanner.Result{}, false, fmt.Errorf("redis get: %w", err)
	}

	var result scanner.Result
	if err := json.Unmarshal(data, &result); err != nil {
		s.logger.Warn("Dropping corrupt cache entry", zap.String("key", key), zap.Error(err))
		s.client.Del(ctx, s.prefix+key)
		return scanner.Result{}, false, nil
	}
	if result.Items == nil {
		result.Items = []scanner.Item{}
	}
	return result, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, result scanner.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.prefix+key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func maskURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.User == nil {
		return raw
	}
	if _, ok := parsed.User.Password(); ok {
		parsed.User = url.UserPassword(parsed.User.Username(), "xxxxx")
	}
	return parsed.String()
}
