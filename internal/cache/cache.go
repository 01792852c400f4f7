// Package cache provides the local persistent mirror of the reference
// catalogs, used for instant bootstrap before the realtime feed catches up.
package cache

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/orderpad/internal/config"
)

// Store mirrors one keyed entity set per data domain (customers, products).
// ReplaceAll is clear-then-write and best-effort per entity: individual write
// failures are logged and skipped, never aborting or rolling back the rest.
type Store interface {
	GetAll(ctx context.Context, domain string) (map[string][]byte, error)
	ReplaceAll(ctx context.Context, domain string, entries map[string][]byte) error
}

// Module provides the cache store to the Fx graph.
var Module = fx.Provide(NewStore)

// NewStore initialises the configured cache store (redis or noop).
func NewStore(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (Store, error) {
	switch cfg.Cache.Driver {
	case "noop":
		if logger != nil {
			logger.Info("catalog cache disabled; using noop store")
		}
		return noopStore{}, nil
	case "redis":
		return newRedisStore(lc, cfg.Cache, logger)
	default:
		return nil, fmt.Errorf("unsupported cache driver: %s", cfg.Cache.Driver)
	}
}

// noopStore always reports an empty mirror; the loader then waits for the
// first live snapshot.
type noopStore struct{}

func (noopStore) GetAll(context.Context, string) (map[string][]byte, error) {
	return map[string][]byte{}, nil
}

func (noopStore) ReplaceAll(context.Context, string, map[string][]byte) error {
	return nil
}

type redisStore struct {
	client *goredis.Client
	prefix string
	logger *zap.Logger
}

func newRedisStore(lc fx.Lifecycle, cfg config.Cache, logger *zap.Logger) (Store, error) {
	opts := &goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	client := goredis.NewClient(opts)
	store := &redisStore{client: client, prefix: cfg.Prefix, logger: logger}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("ping redis: %w", err)
			}
			if logger != nil {
				logger.Info("redis catalog cache connected", zap.String("addr", cfg.Redis.Addr))
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if logger != nil {
				logger.Info("closing redis catalog cache")
			}
			return client.Close()
		},
	})

	return store, nil
}

func (s *redisStore) key(domain string) string {
	return fmt.Sprintf("%s:%s", s.prefix, domain)
}

// GetAll reads the whole mirrored domain in one hash fetch.
func (s *redisStore) GetAll(ctx context.Context, domain string) (map[string][]byte, error) {
	if domain == "" {
		return nil, errors.New("cache domain is required")
	}
	raw, err := s.client.HGetAll(ctx, s.key(domain)).Result()
	if err != nil {
		return nil, err
	}
	entries := make(map[string][]byte, len(raw))
	for k, v := range raw {
		entries[k] = []byte(v)
	}
	return entries, nil
}

// ReplaceAll clears the domain hash and writes each entity individually so a
// handful of failed writes cannot poison the rest of the snapshot.
func (s *redisStore) ReplaceAll(ctx context.Context, domain string, entries map[string][]byte) error {
	if domain == "" {
		return errors.New("cache domain is required")
	}
	key := s.key(domain)
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("clear %s: %w", key, err)
	}

	var failed int
	for field, value := range entries {
		if err := s.client.HSet(ctx, key, field, value).Err(); err != nil {
			failed++
			if s.logger != nil {
				s.logger.Warn("catalog cache entry write failed",
					zap.String("domain", domain),
					zap.String("entity", field),
					zap.Error(err),
				)
			}
		}
	}
	if failed > 0 && s.logger != nil {
		s.logger.Warn("catalog cache replace finished with skipped entries",
			zap.String("domain", domain),
			zap.Int("skipped", failed),
			zap.Int("total", len(entries)),
		)
	}
	return nil
}
