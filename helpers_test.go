package goSentinel

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/MrEthical07/goSentinel/credstore"
	"github.com/MrEthical07/goSentinel/password"
)

const testPassword = "correct-password-123"

var testEpoch = time.Unix(1700000000, 0)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Session.SweepInterval = 0
	return cfg
}

func digestOf(t testing.TB, secret string) string {
	t.Helper()

	h, err := password.New(password.Config{})
	if err != nil {
		t.Fatalf("password.New failed: %v", err)
	}
	d, err := h.Hash(secret)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	return d
}

func seedUser(t testing.TB, store *credstore.Memory, username string) {
	t.Helper()

	err := store.Put(context.Background(), credstore.Record{
		Username:       username,
		PasswordDigest: digestOf(t, testPassword),
		Role:           "member",
	})
	if err != nil {
		t.Fatalf("seed %s failed: %v", username, err)
	}
}

type testEngine struct {
	*Engine
	store *credstore.Memory
	clock *clockwork.FakeClock
}

func newTestEngine(t *testing.T, cfg Config, users ...string) testEngine {
	t.Helper()

	store := credstore.NewMemory()
	for _, u := range users {
		seedUser(t, store, u)
	}
	clock := clockwork.NewFakeClockAt(testEpoch)

	engine, err := New().
		WithConfig(cfg).
		WithStore(store).
		WithClock(clock).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() { _ = engine.Close() })

	return testEngine{Engine: engine, store: store, clock: clock}
}

func mustRecord(t *testing.T, store credstore.Store, username string) credstore.Record {
	t.Helper()

	rec, err := store.FindByUsername(context.Background(), username)
	if err != nil {
		t.Fatalf("FindByUsername(%s) failed: %v", username, err)
	}
	return rec
}

// flakyStore wraps a Memory store and fails lookups or updates on demand.
type flakyStore struct {
	*credstore.Memory
	failLookup  atomic.Bool
	failUpdate  atomic.Bool
	updateCalls atomic.Int64

	mu       sync.Mutex
	lastCtxs []context.Context
}

var errBackendDown = errors.New("backend down")

func (s *flakyStore) FindByUsername(ctx context.Context, username string) (credstore.Record, error) {
	if s.failLookup.Load() {
		return credstore.Record{}, errors.Join(credstore.ErrUnavailable, errBackendDown)
	}
	return s.Memory.FindByUsername(ctx, username)
}

func (s *flakyStore) ApplyUpdate(ctx context.Context, username string, changes credstore.Changes) error {
	s.updateCalls.Add(1)
	s.mu.Lock()
	s.lastCtxs = append(s.lastCtxs, ctx)
	s.mu.Unlock()

	if s.failUpdate.Load() {
		return errors.Join(credstore.ErrUnavailable, errBackendDown)
	}
	return s.Memory.ApplyUpdate(ctx, username, changes)
}

func (s *flakyStore) contexts() []context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]context.Context(nil), s.lastCtxs...)
}

type brokenHasher struct{}

func (brokenHasher) Hash(string) (string, error) {
	return "", errors.New("primitive exploded")
}

func (brokenHasher) Verify(string, string) bool { return false }
