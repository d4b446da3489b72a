package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	goSentinel "github.com/MrEthical07/goSentinel"
	"github.com/MrEthical07/goSentinel/credstore"
)

func newEngine(t *testing.T) (*goSentinel.Engine, goSentinel.AuthResult) {
	t.Helper()

	engine, err := goSentinel.New().WithStore(credstore.NewMemory()).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() { _ = engine.Close() })

	ctx := context.Background()
	if err := engine.SetCredentials(ctx, "alice", "pw-alice", "user"); err != nil {
		t.Fatalf("SetCredentials failed: %v", err)
	}
	res, err := engine.Authenticate(ctx, "alice", "pw-alice")
	if err != nil || !res.OK {
		t.Fatalf("Authenticate failed: %+v err=%v", res, err)
	}
	return engine, res
}

func guarded(engine *goSentinel.Engine, seen *goSentinel.SessionInfo) http.Handler {
	return RequireSession(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info, ok := SessionInfoFromContext(r.Context())
		if !ok {
			http.Error(w, "missing session info", http.StatusInternalServerError)
			return
		}
		*seen = info
		w.WriteHeader(http.StatusNoContent)
	}))
}

func TestRequireSessionAcceptsHeaders(t *testing.T) {
	engine, res := newEngine(t)

	var seen goSentinel.SessionInfo
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderSessionID, res.SessionID)
	req.Header.Set(HeaderSessionToken, res.Token)
	rec := httptest.NewRecorder()
	guarded(engine, &seen).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if seen.Username != "alice" || seen.SessionID != res.SessionID {
		t.Fatalf("unexpected session info: %+v", seen)
	}
}

func TestRequireSessionAcceptsAuthorizationScheme(t *testing.T) {
	engine, res := newEngine(t)

	var seen goSentinel.SessionInfo
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Session "+res.SessionID+":"+res.Token)
	rec := httptest.NewRecorder()
	guarded(engine, &seen).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestRequireSessionRejects(t *testing.T) {
	engine, res := newEngine(t)

	tests := []struct {
		name   string
		header map[string]string
	}{
		{"no credentials", nil},
		{"id only", map[string]string{HeaderSessionID: res.SessionID}},
		{"bearer scheme", map[string]string{"Authorization": "Bearer " + res.Token}},
		{"missing token", map[string]string{"Authorization": "Session " + res.SessionID + ":"}},
		{"unknown id", map[string]string{HeaderSessionID: "nope", HeaderSessionToken: res.Token}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen goSentinel.SessionInfo
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			guarded(engine, &seen).ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}

	if !engine.CheckSession(context.Background(), res.SessionID, res.Token) {
		t.Fatal("rejected requests without a matching id must not burn the session")
	}
}

func TestRequireSessionNilEngine(t *testing.T) {
	var seen goSentinel.SessionInfo
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderSessionID, "a")
	req.Header.Set(HeaderSessionToken, "b")
	rec := httptest.NewRecorder()
	guarded(nil, &seen).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	tests := map[string]string{
		"198.51.100.4:5555": "198.51.100.4",
		"[2001:db8::1]:443": "2001:db8::1",
		"unix-socket":       "unix-socket",
	}
	for remote, want := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		if got := clientIP(req); got != want {
			t.Fatalf("clientIP(%q) = %q, want %q", remote, got, want)
		}
	}
}
