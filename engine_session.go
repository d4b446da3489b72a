package goSentinel

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/MrEthical07/goSentinel/session"
)

// CheckSession reports whether sessionID and token identify a live session.
// A successful check slides the session's expiry window forward. An expired
// session, or one presented with the wrong token, is destroyed.
func (e *Engine) CheckSession(ctx context.Context, sessionID, token string) bool {
	_, err := e.ValidateSession(ctx, sessionID, token)
	return err == nil
}

// ValidateSession is CheckSession with the owning identity and the reason for
// a rejection: [ErrSessionNotFound], [ErrSessionExpired] or
// [ErrSessionTokenMismatch]. The returned info never includes the token.
func (e *Engine) ValidateSession(ctx context.Context, sessionID, token string) (SessionInfo, error) {
	if err := e.ready(); err != nil {
		return SessionInfo{}, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	start := e.clock.Now()
	defer func() {
		if e.metrics.LatencyEnabled() {
			e.metrics.Observe(MetricCheckSessionLatency, e.clock.Since(start))
		}
	}()

	info, err := e.sessions.Validate(ctx, sessionID, token)
	if err != nil {
		err = mapSessionErr(err)
		e.metricInc(MetricSessionRejected)
		switch {
		case errors.Is(err, ErrSessionExpired):
			e.metricInc(MetricSessionExpired)
			e.emitAudit(ctx, auditEventSessionRejected, false, "", sessionID, ReasonNone, err, nil)
		case errors.Is(err, ErrSessionTokenMismatch):
			e.metricInc(MetricSessionTokenMismatch)
			e.emitAudit(ctx, auditEventSessionRejected, false, "", sessionID, ReasonNone, err, nil)
		}
		return SessionInfo{}, err
	}

	e.metricInc(MetricSessionValidated)
	return SessionInfo{
		SessionID:  info.SessionID,
		Username:   info.Username,
		CreatedAt:  info.CreatedAt,
		LastActive: info.LastActive,
	}, nil
}

// EndSession removes the session. Ending an unknown or already ended session
// is not an error; a non-nil error means the session table itself failed.
func (e *Engine) EndSession(ctx context.Context, sessionID string) error {
	if e == nil || e.sessions == nil {
		return ErrEngineNotReady
	}
	if ctx == nil {
		ctx = context.Background()
	}

	removed, err := e.sessions.Invalidate(ctx, sessionID)
	if err != nil {
		err = errors.Join(ErrSessionInvalidationFailed, err)
		e.logger.Error("session invalidation failed", zap.Error(err))
		e.emitAudit(ctx, auditEventLogoutSession, false, "", sessionID, ReasonNone, err, nil)
		return err
	}
	if removed {
		e.metricInc(MetricLogout)
		e.emitAudit(ctx, auditEventLogoutSession, true, "", sessionID, ReasonNone, nil, nil)
	}
	return nil
}

func mapSessionErr(err error) error {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return ErrSessionNotFound
	case errors.Is(err, session.ErrExpired):
		return ErrSessionExpired
	case errors.Is(err, session.ErrTokenMismatch):
		return ErrSessionTokenMismatch
	case errors.Is(err, session.ErrClosed):
		return ErrEngineNotReady
	default:
		return err
	}
}
