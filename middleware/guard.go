package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	goSentinel "github.com/MrEthical07/goSentinel"
)

const (
	// HeaderSessionID carries the session identifier.
	HeaderSessionID = "X-Session-ID"
	// HeaderSessionToken carries the session secret.
	HeaderSessionToken = "X-Session-Token"

	authScheme = "Session "
)

type sessionInfoContextKey struct{}

// SessionInfoFromContext returns the session validated by [RequireSession].
func SessionInfoFromContext(ctx context.Context) (goSentinel.SessionInfo, bool) {
	info, ok := ctx.Value(sessionInfoContextKey{}).(goSentinel.SessionInfo)
	return info, ok
}

// RequireSession rejects requests that do not present a live session pair.
// The client address is attached to the context before validation so audit
// events record it.
func RequireSession(engine *goSentinel.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			sessionID, token, ok := SessionCredentials(r)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := WithRequestMetadata(r)
			info, err := engine.ValidateSession(ctx, sessionID, token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx = context.WithValue(ctx, sessionInfoContextKey{}, info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionCredentials extracts the session pair from the dedicated headers,
// falling back to "Authorization: Session <id>:<token>".
func SessionCredentials(r *http.Request) (sessionID, token string, ok bool) {
	sessionID = r.Header.Get(HeaderSessionID)
	token = r.Header.Get(HeaderSessionToken)
	if sessionID != "" && token != "" {
		return sessionID, token, true
	}
	return parseAuthorization(r.Header.Get("Authorization"))
}

// WithRequestMetadata copies the client IP and user agent into the request
// context.
func WithRequestMetadata(r *http.Request) context.Context {
	ctx := r.Context()
	if ip := clientIP(r); ip != "" {
		ctx = goSentinel.WithClientIP(ctx, ip)
	}
	if ua := r.UserAgent(); ua != "" {
		ctx = goSentinel.WithUserAgent(ctx, ua)
	}
	return ctx
}

func parseAuthorization(value string) (string, string, bool) {
	if !strings.HasPrefix(value, authScheme) {
		return "", "", false
	}

	sessionID, token, found := strings.Cut(value[len(authScheme):], ":")
	if !found || sessionID == "" || token == "" {
		return "", "", false
	}

	return sessionID, token, true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
