package goSentinel

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func login(t *testing.T, te testEngine, username string) AuthResult {
	t.Helper()

	res, err := te.Authenticate(context.Background(), username, testPassword)
	if err != nil || !res.OK {
		t.Fatalf("login %s failed: %+v err=%v", username, res, err)
	}
	return res
}

func TestCheckSessionAfterLogin(t *testing.T) {
	te := newTestEngine(t, testConfig(), "alice")
	res := login(t, te, "alice")

	if !te.CheckSession(context.Background(), res.SessionID, res.Token) {
		t.Fatal("expected fresh session to validate")
	}

	info, err := te.ValidateSession(context.Background(), res.SessionID, res.Token)
	if err != nil {
		t.Fatalf("ValidateSession failed: %v", err)
	}
	if info.Username != "alice" || info.SessionID != res.SessionID {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestCheckSessionSlidingWindow(t *testing.T) {
	te := newTestEngine(t, testConfig(), "alice")
	ctx := context.Background()
	res := login(t, te, "alice")
	idle := te.Config().Session.IdleTimeout

	for i := 0; i < 10; i++ {
		te.clock.Advance(idle - time.Second)
		if !te.CheckSession(ctx, res.SessionID, res.Token) {
			t.Fatalf("session expired under continuous use at step %d", i)
		}
	}
}

func TestCheckSessionIdleExpiryIsPermanent(t *testing.T) {
	te := newTestEngine(t, testConfig(), "alice")
	ctx := context.Background()
	res := login(t, te, "alice")

	te.clock.Advance(te.Config().Session.IdleTimeout + time.Second)

	_, err := te.ValidateSession(ctx, res.SessionID, res.Token)
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	_, err = te.ValidateSession(ctx, res.SessionID, res.Token)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected expired session removed, got %v", err)
	}
	if te.ActiveSessions() != 0 {
		t.Fatalf("expected empty table, got %d", te.ActiveSessions())
	}
}

func TestCheckSessionWrongTokenBurnsSession(t *testing.T) {
	te := newTestEngine(t, testConfig(), "alice")
	ctx := context.Background()
	res := login(t, te, "alice")

	_, err := te.ValidateSession(ctx, res.SessionID, "guess")
	if !errors.Is(err, ErrSessionTokenMismatch) {
		t.Fatalf("expected ErrSessionTokenMismatch, got %v", err)
	}
	if te.CheckSession(ctx, res.SessionID, res.Token) {
		t.Fatal("session must stay dead after a wrong token, even with the right one")
	}
}

func TestCheckSessionUnknownID(t *testing.T) {
	te := newTestEngine(t, testConfig())

	if te.CheckSession(context.Background(), "no-such-session", "token") {
		t.Fatal("unknown session must not validate")
	}
}

func TestSessionIDAloneIsInsufficient(t *testing.T) {
	te := newTestEngine(t, testConfig(), "alice")
	res := login(t, te, "alice")

	if te.CheckSession(context.Background(), res.SessionID, "") {
		t.Fatal("empty token must not validate")
	}
}

func TestConcurrentLoginsYieldIndependentSessions(t *testing.T) {
	te := newTestEngine(t, testConfig(), "bob")
	ctx := context.Background()

	const n = 2
	results := make([]AuthResult, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = te.Authenticate(ctx, "bob", testPassword)
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil || !results[i].OK {
			t.Fatalf("login %d failed: %+v err=%v", i, results[i], errs[i])
		}
	}
	if results[0].SessionID == results[1].SessionID {
		t.Fatal("concurrent logins returned the same session id")
	}
	for i := 0; i < n; i++ {
		if !te.CheckSession(ctx, results[i].SessionID, results[i].Token) {
			t.Fatalf("session %d did not validate with its own token", i)
		}
	}
	// Tokens are not interchangeable; a crossed token burns the session.
	if te.CheckSession(ctx, results[0].SessionID, results[1].Token) {
		t.Fatal("session validated with another session's token")
	}
	if !te.CheckSession(ctx, results[1].SessionID, results[1].Token) {
		t.Fatal("sibling session must be unaffected")
	}
}

func TestConcurrentCheckSessionUnderLoad(t *testing.T) {
	te := newTestEngine(t, testConfig(), "alice")
	ctx := context.Background()
	res := login(t, te, "alice")

	var wg sync.WaitGroup
	for w := 0; w < 32; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				if !te.CheckSession(ctx, res.SessionID, res.Token) {
					t.Error("concurrent validation failed")
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestEndSessionIsIdempotent(t *testing.T) {
	te := newTestEngine(t, testConfig(), "alice")
	ctx := context.Background()
	res := login(t, te, "alice")

	if err := te.EndSession(ctx, res.SessionID); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}
	if te.CheckSession(ctx, res.SessionID, res.Token) {
		t.Fatal("ended session must not validate")
	}
	if err := te.EndSession(ctx, res.SessionID); err != nil {
		t.Fatalf("second EndSession must not fail: %v", err)
	}
	if err := te.EndSession(ctx, "never-existed"); err != nil {
		t.Fatalf("EndSession on unknown id must not fail: %v", err)
	}
	if got := te.MetricsSnapshot().Counters[MetricLogout]; got != 1 {
		t.Fatalf("expected 1 logout, got %d", got)
	}
}
