package goSentinel

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/jonboulle/clockwork"

	"github.com/MrEthical07/goSentinel/credstore"
	"github.com/MrEthical07/goSentinel/password"
)

// countingHasher records how often the digest primitive runs.
type countingHasher struct {
	inner *password.Hasher
	calls atomic.Int64
}

func (h *countingHasher) Hash(secret string) (string, error) {
	h.calls.Add(1)
	return h.inner.Hash(secret)
}

func (h *countingHasher) Verify(candidate, stored string) bool {
	return h.inner.Verify(candidate, stored)
}

func TestSecurityInvariantRejectionsCarryNoSession(t *testing.T) {
	cfg := testConfig()
	cfg.Lockout.Threshold = 1
	store := &flakyStore{Memory: credstore.NewMemory()}
	seedUser(t, store.Memory, "alice")
	seedUser(t, store.Memory, "bob")

	engine, err := New().WithConfig(cfg).WithStore(store).WithClock(clockwork.NewFakeClockAt(testEpoch)).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()
	ctx := context.Background()

	var results []AuthResult
	res, _ := engine.Authenticate(ctx, "ghost", testPassword)
	results = append(results, res)
	res, _ = engine.Authenticate(ctx, "alice", "wrong")
	results = append(results, res)
	res, _ = engine.Authenticate(ctx, "alice", testPassword)
	results = append(results, res)
	store.failLookup.Store(true)
	res, _ = engine.Authenticate(ctx, "bob", testPassword)
	results = append(results, res)

	for i, r := range results {
		if r.OK || r.SessionID != "" || r.Token != "" {
			t.Fatalf("rejection %d leaked a session: %+v", i, r)
		}
	}
	if engine.ActiveSessions() != 0 {
		t.Fatalf("rejections must not mint sessions, got %d", engine.ActiveSessions())
	}
}

func TestSecurityInvariantLockedAccountNeverReachesHasher(t *testing.T) {
	ph, err := password.New(password.Config{})
	if err != nil {
		t.Fatalf("password.New failed: %v", err)
	}
	hasher := &countingHasher{inner: ph}

	cfg := testConfig()
	cfg.Lockout.Threshold = 2
	store := credstore.NewMemory()
	seedUser(t, store, "alice")
	engine, err := New().WithConfig(cfg).WithStore(store).WithHasher(hasher).WithClock(clockwork.NewFakeClockAt(testEpoch)).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()
	ctx := context.Background()

	_, _ = engine.Authenticate(ctx, "alice", "wrong")
	_, _ = engine.Authenticate(ctx, "alice", "wrong")
	before := hasher.calls.Load()

	for i := 0; i < 5; i++ {
		res, _ := engine.Authenticate(ctx, "alice", testPassword)
		if res.Reason != ReasonAccountLocked {
			t.Fatalf("expected AccountLocked, got %v", res.Reason)
		}
	}
	if got := hasher.calls.Load(); got != before {
		t.Fatalf("locked logins ran the hasher %d times", got-before)
	}
}

func TestSecurityInvariantUnknownUserNeverReachesHasher(t *testing.T) {
	ph, err := password.New(password.Config{})
	if err != nil {
		t.Fatalf("password.New failed: %v", err)
	}
	hasher := &countingHasher{inner: ph}

	engine, err := New().WithConfig(testConfig()).WithStore(credstore.NewMemory()).WithHasher(hasher).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	_, _ = engine.Authenticate(context.Background(), "ghost", testPassword)
	if hasher.calls.Load() != 0 {
		t.Fatal("unknown user must be rejected before hashing")
	}
}

func TestSecurityInvariantSessionSecretsAreUniqueAndFullLength(t *testing.T) {
	te := newTestEngine(t, testConfig(), "alice")
	ctx := context.Background()

	// base64url without padding of 32 random bytes.
	const wantTokenLen = 43
	ids := make(map[string]struct{})
	tokens := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		res, err := te.Authenticate(ctx, "alice", testPassword)
		if err != nil || !res.OK {
			t.Fatalf("login %d failed: %+v err=%v", i, res, err)
		}
		if len(res.Token) != wantTokenLen {
			t.Fatalf("expected %d-char token, got %d", wantTokenLen, len(res.Token))
		}
		if _, dup := ids[res.SessionID]; dup {
			t.Fatalf("duplicate session id %q", res.SessionID)
		}
		if _, dup := tokens[res.Token]; dup {
			t.Fatal("duplicate session token")
		}
		if res.Token == res.SessionID {
			t.Fatal("token must not equal the session id")
		}
		ids[res.SessionID] = struct{}{}
		tokens[res.Token] = struct{}{}
	}
}

func TestSecurityInvariantStoredRecordNeverHoldsPlaintext(t *testing.T) {
	te := newTestEngine(t, testConfig())
	ctx := context.Background()

	if err := te.SetCredentials(ctx, "carol", testPassword, ""); err != nil {
		t.Fatalf("SetCredentials failed: %v", err)
	}
	_, _ = te.Authenticate(ctx, "carol", "wrong")
	_, _ = te.Authenticate(ctx, "carol", testPassword)

	rec := mustRecord(t, te.store, "carol")
	if rec.PasswordDigest == testPassword || !password.Equal(rec.PasswordDigest, digestOf(t, testPassword)) {
		t.Fatalf("unexpected stored digest %q", rec.PasswordDigest)
	}
}
