package test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	goSentinel "github.com/MrEthical07/goSentinel"
	"github.com/MrEthical07/goSentinel/credstore"
)

// provisioningStore is what every bundled backend implements.
type provisioningStore interface {
	credstore.Store
	credstore.Writer
}

type backend struct {
	name string
	open func(t *testing.T) provisioningStore
}

func backends() []backend {
	return []backend{
		{name: "memory", open: func(t *testing.T) provisioningStore {
			return credstore.NewMemory()
		}},
		{name: "redis", open: func(t *testing.T) provisioningStore {
			mr := miniredis.RunT(t)
			rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = rdb.Close() })
			return credstore.NewRedis(rdb, credstore.RedisOptions{Prefix: "it"})
		}},
		{name: "sqlite", open: func(t *testing.T) provisioningStore {
			dsn := filepath.Join(t.TempDir(), "credentials.db") + "?_pragma=busy_timeout(5000)"
			store, err := credstore.OpenSQL(context.Background(), dsn, credstore.SQLOptions{Dialect: credstore.DialectSQLite})
			if err != nil {
				t.Fatalf("OpenSQL failed: %v", err)
			}
			t.Cleanup(func() { _ = store.Close() })
			return store
		}},
	}
}

func newEngine(t *testing.T, store credstore.Store, cfg goSentinel.Config) (*goSentinel.Engine, *clockwork.FakeClock) {
	t.Helper()

	clock := clockwork.NewFakeClockAt(time.Unix(1700000000, 0))
	engine, err := goSentinel.New().
		WithConfig(cfg).
		WithStore(store).
		WithClock(clock).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() { _ = engine.Close() })
	return engine, clock
}
