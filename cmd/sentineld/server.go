package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	goSentinel "github.com/MrEthical07/goSentinel"
	"github.com/MrEthical07/goSentinel/metrics/export/prometheus"
	"github.com/MrEthical07/goSentinel/middleware"
)

const maxBodyBytes = 16 << 10

type server struct {
	engine *goSentinel.Engine
	logger *zap.Logger
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
}

type sessionResponse struct {
	SessionID  string    `json:"session_id"`
	Username   string    `json:"username"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
}

type healthResponse struct {
	Status         string `json:"status"`
	StoreLatencyMS int64  `json:"store_latency_ms"`
	ActiveSessions int    `json:"active_sessions"`
}

// newHandler mounts the daemon routes.
func newHandler(engine *goSentinel.Engine, logger *zap.Logger) http.Handler {
	s := &server{engine: engine, logger: logger}
	guard := middleware.RequireSession(engine)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", s.login)
	mux.Handle("POST /logout", guard(http.HandlerFunc(s.logout)))
	mux.Handle("GET /session", guard(http.HandlerFunc(s.session)))
	mux.HandleFunc("GET /healthz", s.health)
	mux.Handle("GET /metrics", prometheus.NewPrometheusExporter(engine).Handler())

	return loggingMiddleware(logger)(mux)
}

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	res, err := s.engine.Authenticate(middleware.WithRequestMetadata(r), req.Username, req.Password)
	if err != nil {
		s.logger.Warn("login failed on infrastructure error",
			zap.String("reason", res.Reason.String()), zap.Error(err))
		if errors.Is(err, goSentinel.ErrStoreUnavailable) {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "unavailable"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
		return
	}

	switch {
	case res.OK:
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, loginResponse{SessionID: res.SessionID, Token: res.Token})
	case res.Reason == goSentinel.ReasonAccountLocked:
		writeJSON(w, http.StatusLocked, map[string]string{"reason": res.Reason.String()})
	default:
		// Unknown user and wrong password look the same from outside.
		writeJSON(w, http.StatusUnauthorized, map[string]string{"reason": "invalid_credentials"})
	}
}

func (s *server) logout(w http.ResponseWriter, r *http.Request) {
	info, _ := middleware.SessionInfoFromContext(r.Context())
	if err := s.engine.EndSession(r.Context(), info.SessionID); err != nil {
		s.logger.Error("logout failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) session(w http.ResponseWriter, r *http.Request) {
	info, _ := middleware.SessionInfoFromContext(r.Context())
	writeJSON(w, http.StatusOK, sessionResponse{
		SessionID:  info.SessionID,
		Username:   info.Username,
		CreatedAt:  info.CreatedAt,
		LastActive: info.LastActive,
	})
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	status := s.engine.Health(r.Context())
	resp := healthResponse{
		Status:         "ok",
		StoreLatencyMS: status.StoreLatency.Milliseconds(),
		ActiveSessions: status.ActiveSessions,
	}
	code := http.StatusOK
	if !status.StoreAvailable {
		resp.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// loggingMiddleware logs every request at debug level.
func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)

			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote", r.RemoteAddr),
				zap.Int("status", status),
				zap.Duration("duration", time.Since(start)),
				zap.Int("size", lrw.size),
			)
		})
	}
}
