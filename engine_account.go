package goSentinel

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/goSentinel/credstore"
	"github.com/MrEthical07/goSentinel/internal/lockout"
)

// AccountState is the lockout view of one credential record.
type AccountState struct {
	Username             string
	Role                 string
	Locked               bool
	LockExpired          bool
	RecentFailedAttempts int
	LastLoginAttempt     time.Time
}

// AccountState reads the record for username and evaluates the lockout
// policy against it without persisting anything. LockExpired reports a lock
// that the next Authenticate call will clear.
func (e *Engine) AccountState(ctx context.Context, username string) (AccountState, error) {
	if err := e.ready(); err != nil {
		return AccountState{}, err
	}

	rec, err := e.store.FindByUsername(ctx, username)
	if err != nil {
		return AccountState{}, storeErr(err)
	}

	d := e.policy.Evaluate(rec, e.clock.Now())
	return AccountState{
		Username:             rec.Username,
		Role:                 rec.Role,
		Locked:               d.Locked,
		LockExpired:          d.Unlock,
		RecentFailedAttempts: rec.RecentFailedAttempts,
		LastLoginAttempt:     rec.LastLoginAttempt,
	}, nil
}

// UnlockAccount clears the lock and the failure counter for username. It is
// the operator override for the time-based expiry.
func (e *Engine) UnlockAccount(ctx context.Context, username string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithoutCancel(ctx)

	if err := e.store.ApplyUpdate(ctx, username, lockout.ResetChanges()); err != nil {
		err = storeErr(err)
		e.emitAudit(ctx, auditEventAccountUnlocked, false, username, "", ReasonNone, err, nil)
		return err
	}

	e.metricInc(MetricAccountUnlocked)
	e.emitAudit(ctx, auditEventAccountUnlocked, true, username, "", ReasonNone, nil, nil)
	return nil
}

// SetCredentials writes a fresh record for username with the digest of
// password, clearing any lock and failure history. The store must implement
// [credstore.Writer].
func (e *Engine) SetCredentials(ctx context.Context, username, password, role string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(username) == "" || password == "" {
		return ErrInvalidCredentialsInput
	}

	writer, ok := e.store.(credstore.Writer)
	if !ok {
		return ErrProvisioningUnsupported
	}

	digest, err := e.hasher.Hash(password)
	if err != nil {
		if !errors.Is(err, ErrHashing) {
			err = errors.Join(ErrHashing, err)
		}
		e.metricInc(MetricHashingFailure)
		return err
	}

	err = writer.Put(ctx, credstore.Record{
		Username:       username,
		PasswordDigest: digest,
		Role:           role,
	})
	if err != nil {
		e.logger.Error("credential provisioning failed", zap.String("username", username), zap.Error(err))
		return storeErr(err)
	}

	e.emitAudit(ctx, auditEventCredentialsSet, true, username, "", ReasonNone, nil, func() map[string]string {
		return map[string]string{"role": role}
	})
	return nil
}
