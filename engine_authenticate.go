package goSentinel

import (
	"context"
	"errors"
	"strconv"

	"go.uber.org/zap"

	"github.com/MrEthical07/goSentinel/internal/lockout"
)

// Authenticate checks username and password and, on success, mints a session.
//
// Rejections are reported through AuthResult.Reason with a nil error:
// ReasonNoSuchUser for unknown usernames, ReasonAccountLocked while a lock
// holds (the failure counter is left untouched), ReasonBadCredentials for a
// wrong password (the counter is incremented and the account locked once it
// reaches the threshold).
//
// A non-nil error is returned only for infrastructure failures, always with a
// rejected result: a store lookup failure yields ReasonNoSuchUser and an error
// matching [ErrStoreUnavailable]; a hashing failure yields ReasonInternal and
// [ErrHashing]; a session table failure yields ReasonInternal and
// [ErrSessionCreationFailed]. The engine never fails open.
//
// Side effects run detached from ctx's cancellation: once issued, counter and
// lock updates complete (bounded by the store's own timeout) even if the
// caller goes away. Failed side-effect writes do not change the result.
func (e *Engine) Authenticate(ctx context.Context, username, password string) (AuthResult, error) {
	if err := e.ready(); err != nil {
		return AuthResult{Reason: ReasonInternal}, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithoutCancel(ctx)

	start := e.clock.Now()
	defer func() {
		if e.metrics.LatencyEnabled() {
			e.metrics.Observe(MetricAuthenticateLatency, e.clock.Since(start))
		}
	}()

	rec, err := e.store.FindByUsername(ctx, username)
	if err != nil {
		if isStoreMiss(err) {
			return e.rejectLogin(ctx, username, ReasonNoSuchUser, nil)
		}
		e.metricInc(MetricStoreLookupFailure)
		e.logger.Error("credential lookup failed", zap.String("username", username), zap.Error(err))
		return e.rejectLogin(ctx, username, ReasonNoSuchUser, storeErr(err))
	}

	now := e.clock.Now()
	decision := e.policy.Evaluate(rec, now)
	if decision.Locked {
		return e.rejectLogin(ctx, username, ReasonAccountLocked, nil)
	}
	if decision.Unlock {
		// Expiry forgives the lock, not the attempt history.
		e.applyUpdate(ctx, username, "lock_expired", lockout.UnlockChanges(now))
		rec.IsLocked = false
		rec.LastLoginAttempt = now
		e.metricInc(MetricAccountLockExpired)
		e.emitAudit(ctx, auditEventLockExpired, true, username, "", ReasonNone, nil, func() map[string]string {
			return map[string]string{"recent_failed_attempts": strconv.Itoa(rec.RecentFailedAttempts)}
		})
	}

	candidate, err := e.hasher.Hash(password)
	if err != nil {
		if !errors.Is(err, ErrHashing) {
			err = errors.Join(ErrHashing, err)
		}
		e.metricInc(MetricHashingFailure)
		e.logger.Error("credential hashing failed", zap.String("username", username), zap.Error(err))
		return e.rejectLogin(ctx, username, ReasonInternal, err)
	}

	if !e.hasher.Verify(candidate, rec.PasswordDigest) {
		changes, lock := e.policy.FailureChanges(rec, now)
		e.applyUpdate(ctx, username, "record_failure", changes)
		if lock {
			e.metricInc(MetricAccountLockTriggered)
			e.emitAudit(ctx, auditEventAccountLocked, true, username, "", ReasonNone, nil, func() map[string]string {
				return map[string]string{
					"recent_failed_attempts": strconv.Itoa(rec.RecentFailedAttempts + 1),
					"lock_duration":          e.config.Lockout.Duration.String(),
				}
			})
		}
		return e.rejectLogin(ctx, username, ReasonBadCredentials, nil)
	}

	e.applyUpdate(ctx, username, "reset_failures", lockout.SuccessChanges(now))

	issued, err := e.sessions.Create(ctx, username)
	if err != nil {
		err = errors.Join(ErrSessionCreationFailed, err)
		e.logger.Error("session creation failed", zap.String("username", username), zap.Error(err))
		return e.rejectLogin(ctx, username, ReasonInternal, err)
	}

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventLoginSuccess, true, username, issued.SessionID, ReasonNone, nil, nil)

	return AuthResult{
		OK:        true,
		SessionID: issued.SessionID,
		Token:     issued.Token,
		Reason:    ReasonNone,
	}, nil
}

func (e *Engine) rejectLogin(ctx context.Context, username string, reason Reason, err error) (AuthResult, error) {
	e.metricInc(MetricLoginFailure)
	switch reason {
	case ReasonNoSuchUser:
		e.metricInc(MetricLoginNoSuchUser)
	case ReasonAccountLocked:
		e.metricInc(MetricLoginAccountLocked)
	case ReasonBadCredentials:
		e.metricInc(MetricLoginBadCredentials)
	}
	e.emitAudit(ctx, auditEventLoginFailure, false, username, "", reason, err, nil)

	return AuthResult{Reason: reason}, err
}
