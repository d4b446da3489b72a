package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goSentinel/credstore"
)

// openStore connects the configured backend. The returned close func releases
// the connection and is never nil.
func openStore(ctx context.Context, cfg daemonConfig) (credstore.Store, func() error, error) {
	noop := func() error { return nil }
	timeout := cfg.storeTimeout()

	switch cfg.Store.Backend {
	case "memory":
		return credstore.NewMemory(), noop, nil

	case "redis":
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.Store.RedisAddr},
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
		})
		store := credstore.NewRedis(client, credstore.RedisOptions{
			Prefix:  cfg.Store.RedisPrefix,
			Timeout: timeout,
		})
		if err := store.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, noop, fmt.Errorf("redis %s: %w", cfg.Store.RedisAddr, err)
		}
		return store, client.Close, nil

	case "postgres", "sqlite":
		store, err := credstore.OpenSQL(ctx, cfg.Store.DSN, credstore.SQLOptions{
			Dialect: credstore.Dialect(cfg.Store.Backend),
			Timeout: timeout,
		})
		if err != nil {
			return nil, noop, fmt.Errorf("%s: %w", cfg.Store.Backend, err)
		}
		return store, store.Close, nil
	}

	return nil, noop, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}
