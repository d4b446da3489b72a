package goSentinel

import (
	"context"
	"errors"
)

const (
	auditEventLoginSuccess    = "login_success"
	auditEventLoginFailure    = "login_failure"
	auditEventAccountLocked   = "account_locked"
	auditEventLockExpired     = "account_lock_expired"
	auditEventAccountUnlocked = "account_unlocked"
	auditEventCredentialsSet  = "credentials_set"
	auditEventSessionRejected = "session_rejected"
	auditEventLogoutSession   = "logout_session"
	auditEventStoreUpdateLost = "store_update_failed"
)

// AuditErrorCode is the stable error label carried by audit events.
type AuditErrorCode string

const (
	auditErrUserNotFound          AuditErrorCode = "user_not_found"
	auditErrStoreUnavailable      AuditErrorCode = "store_unavailable"
	auditErrHashing               AuditErrorCode = "hashing_failed"
	auditErrSessionCreationFailed AuditErrorCode = "session_creation_failed"
	auditErrSessionInvalidation   AuditErrorCode = "session_invalidation_failed"
	auditErrSessionNotFound       AuditErrorCode = "session_not_found"
	auditErrSessionExpired        AuditErrorCode = "session_expired"
	auditErrSessionTokenMismatch  AuditErrorCode = "session_token_mismatch"
	auditErrInternal              AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	username string,
	sessionID string,
	reason Reason,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}
	if ua := userAgentFromContext(ctx); ua != "" {
		if metadata == nil {
			metadata = make(map[string]string, 1)
		}
		metadata["user_agent"] = ua
	}

	event := AuditEvent{
		Timestamp: e.clock.Now().UTC(),
		EventType: eventType,
		Username:  username,
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if reason != ReasonNone {
		event.Reason = reason.String()
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	// Audit delivery must not inherit the caller's cancellation either.
	e.audit.Emit(context.WithoutCancel(ctx), event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrStoreUnavailable
	case errors.Is(err, ErrHashing):
		return auditErrHashing
	case errors.Is(err, ErrSessionCreationFailed):
		return auditErrSessionCreationFailed
	case errors.Is(err, ErrSessionInvalidationFailed):
		return auditErrSessionInvalidation
	case errors.Is(err, ErrSessionNotFound):
		return auditErrSessionNotFound
	case errors.Is(err, ErrSessionExpired):
		return auditErrSessionExpired
	case errors.Is(err, ErrSessionTokenMismatch):
		return auditErrSessionTokenMismatch
	default:
		return auditErrInternal
	}
}
