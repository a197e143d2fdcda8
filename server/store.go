package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nomis52/signup/activities"
	"github.com/nomis52/signup/config"
)

const (
	redisDialTimeout  = 5 * time.Second
	redisReadTimeout  = 3 * time.Second
	redisWriteTimeout = 3 * time.Second
	redisPoolSize     = 10
)

// newStore builds the roster store selected by cfg. The returned func closes
// any connection the store holds.
func newStore(ctx context.Context, cfg *config.ServerConfig, logger *slog.Logger) (activities.Store, func() error, error) {
	switch cfg.Store.Backend {
	case config.BackendRedis:
		return newRedisStore(ctx, cfg.Store.Redis, cfg.Activities, logger)
	case config.BackendMemory, "":
		logger.Info("using in-memory store", "activities", len(cfg.Activities))
		return activities.NewMemoryStore(cfg.Activities), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func newRedisStore(ctx context.Context, rc config.RedisConfig, catalog []activities.Definition, logger *slog.Logger) (activities.Store, func() error, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         rc.Addr,
		Password:     rc.Password,
		DB:           rc.DB,
		DialTimeout:  redisDialTimeout,
		ReadTimeout:  redisReadTimeout,
		WriteTimeout: redisWriteTimeout,
		PoolSize:     redisPoolSize,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connecting to redis at %s: %w", rc.Addr, err)
	}

	store, err := activities.NewRedisStore(ctx, client, rc.KeyPrefix, catalog)
	if err != nil {
		client.Close()
		return nil, nil, err
	}

	logger.Info("using redis store", "addr", rc.Addr, "db", rc.DB, "key_prefix", rc.KeyPrefix)
	return store, client.Close, nil
}
