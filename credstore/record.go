package credstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	// ErrNotFound reports that no record exists for the username.
	ErrNotFound = errors.New("credential record not found")
	// ErrUnavailable wraps transport and storage failures.
	ErrUnavailable = errors.New("credential store unavailable")
	// ErrInvalidChanges reports an update naming unknown fields or wrong value types.
	ErrInvalidChanges = errors.New("invalid credential changes")
)

// Record is one user's credential record. Username is case-sensitive.
type Record struct {
	Username             string
	PasswordDigest       string
	Role                 string
	IsLocked             bool
	RecentFailedAttempts int
	LastLoginAttempt     time.Time
}

// Field names a mutable column of a [Record].
type Field string

const (
	FieldIsLocked             Field = "is_locked"
	FieldRecentFailedAttempts Field = "recent_failed_attempts"
	FieldLastLoginAttempt     Field = "last_login_attempt"
)

// Changes is a partial update. Values must be bool for FieldIsLocked, int for
// FieldRecentFailedAttempts and time.Time for FieldLastLoginAttempt.
type Changes map[Field]any

// Locked sets FieldIsLocked.
func (c Changes) Locked(v bool) Changes {
	c[FieldIsLocked] = v
	return c
}

// FailedAttempts sets FieldRecentFailedAttempts.
func (c Changes) FailedAttempts(n int) Changes {
	c[FieldRecentFailedAttempts] = n
	return c
}

// LastAttempt sets FieldLastLoginAttempt.
func (c Changes) LastAttempt(t time.Time) Changes {
	c[FieldLastLoginAttempt] = t
	return c
}

// Validate rejects empty updates, unknown fields and mistyped values.
func (c Changes) Validate() error {
	if len(c) == 0 {
		return fmt.Errorf("%w: no fields", ErrInvalidChanges)
	}
	for field, value := range c {
		switch field {
		case FieldIsLocked:
			if _, ok := value.(bool); !ok {
				return fmt.Errorf("%w: %s expects bool, got %T", ErrInvalidChanges, field, value)
			}
		case FieldRecentFailedAttempts:
			n, ok := value.(int)
			if !ok {
				return fmt.Errorf("%w: %s expects int, got %T", ErrInvalidChanges, field, value)
			}
			if n < 0 {
				return fmt.Errorf("%w: %s must be non-negative", ErrInvalidChanges, field)
			}
		case FieldLastLoginAttempt:
			if _, ok := value.(time.Time); !ok {
				return fmt.Errorf("%w: %s expects time.Time, got %T", ErrInvalidChanges, field, value)
			}
		default:
			return fmt.Errorf("%w: unknown field %q", ErrInvalidChanges, field)
		}
	}
	return nil
}

// Fields returns the changed fields in a stable order.
func (c Changes) Fields() []Field {
	fields := make([]Field, 0, len(c))
	for f := range c {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields
}

// Apply writes the changes onto r. Callers validate first.
func (c Changes) Apply(r *Record) {
	for field, value := range c {
		switch field {
		case FieldIsLocked:
			r.IsLocked = value.(bool)
		case FieldRecentFailedAttempts:
			r.RecentFailedAttempts = value.(int)
		case FieldLastLoginAttempt:
			r.LastLoginAttempt = value.(time.Time)
		}
	}
}

// Store is the credential store adapter consumed by the Engine.
//
// Implementations must be safe for concurrent use and must bound every call
// with their own timeout.
type Store interface {
	FindByUsername(ctx context.Context, username string) (Record, error)
	ApplyUpdate(ctx context.Context, username string, changes Changes) error
}

// Writer is implemented by stores that can provision whole records.
type Writer interface {
	Put(ctx context.Context, record Record) error
}

// Pinger is implemented by stores that can report backend reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
