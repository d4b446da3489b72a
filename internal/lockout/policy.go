// Package lockout decides when an account is locked, when a lock has expired
// and what a failed attempt does to the counter. It performs no I/O; the
// Engine applies its decisions through the credential store.
package lockout

import (
	"errors"
	"time"

	"github.com/MrEthical07/goSentinel/credstore"
)

// Config holds the lockout threshold and lifespan.
type Config struct {
	// Threshold is the failed-attempt count at which the account locks.
	Threshold int
	// Duration is how long a lock holds, measured from the last login attempt.
	Duration time.Duration
}

// ErrInvalidConfig reports a non-positive threshold or duration.
var ErrInvalidConfig = errors.New("invalid lockout config")

// Validate checks cfg.
func (c Config) Validate() error {
	if c.Threshold <= 0 {
		return errors.Join(ErrInvalidConfig, errors.New("threshold must be > 0"))
	}
	if c.Duration <= 0 {
		return errors.Join(ErrInvalidConfig, errors.New("duration must be > 0"))
	}
	return nil
}

// Policy applies a validated [Config].
type Policy struct {
	cfg Config
}

// New validates cfg and returns a Policy.
func New(cfg Config) (*Policy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Policy{cfg: cfg}, nil
}

// Config returns the policy's configuration.
func (p *Policy) Config() Config {
	return p.cfg
}

// Decision is the lock state for one authentication attempt.
type Decision struct {
	// Locked rejects the attempt without evaluating credentials.
	Locked bool
	// Unlock asks the caller to clear the lock before evaluating credentials.
	Unlock bool
}

// Evaluate inspects rec at now. A lock expires only once strictly more than
// Duration has elapsed since the last login attempt. The failure counter is
// not touched on either path.
func (p *Policy) Evaluate(rec credstore.Record, now time.Time) Decision {
	if !rec.IsLocked {
		return Decision{}
	}
	if now.Sub(rec.LastLoginAttempt) > p.cfg.Duration {
		return Decision{Unlock: true}
	}
	return Decision{Locked: true}
}

// RecordFailure returns the next counter value and whether it reaches the
// threshold.
func (p *Policy) RecordFailure(rec credstore.Record) (next int, lock bool) {
	next = rec.RecentFailedAttempts + 1
	return next, next >= p.cfg.Threshold
}

// UnlockChanges clears the lock and stamps the attempt time.
func UnlockChanges(now time.Time) credstore.Changes {
	return credstore.Changes{}.Locked(false).LastAttempt(now)
}

// FailureChanges records one failed attempt.
func (p *Policy) FailureChanges(rec credstore.Record, now time.Time) (credstore.Changes, bool) {
	next, lock := p.RecordFailure(rec)
	changes := credstore.Changes{}.FailedAttempts(next).LastAttempt(now)
	if lock {
		changes.Locked(true)
	}
	return changes, lock
}

// SuccessChanges resets the counter after a successful login.
func SuccessChanges(now time.Time) credstore.Changes {
	return credstore.Changes{}.FailedAttempts(0).LastAttempt(now)
}

// ResetChanges clears the lock and the counter for administrative unlocks.
func ResetChanges() credstore.Changes {
	return credstore.Changes{}.Locked(false).FailedAttempts(0)
}
