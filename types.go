package goSentinel

import (
	"io"
	"time"

	internalaudit "github.com/MrEthical07/goSentinel/internal/audit"
	"go.uber.org/zap"
)

// Reason classifies a rejected login. Callers branch on it; it is not an error.
type Reason uint8

const (
	// ReasonNone accompanies a successful login.
	ReasonNone Reason = iota
	// ReasonNoSuchUser means no credential record exists, or the store could
	// not be read.
	ReasonNoSuchUser
	// ReasonAccountLocked means the account is locked regardless of the password.
	ReasonAccountLocked
	// ReasonBadCredentials means the password did not match.
	ReasonBadCredentials
	// ReasonInternal means the engine could not complete the check (hashing or
	// session minting broke). The login is rejected.
	ReasonInternal
)

// String returns the snake_case wire name of r.
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonNoSuchUser:
		return "no_such_user"
	case ReasonAccountLocked:
		return "account_locked"
	case ReasonBadCredentials:
		return "bad_credentials"
	case ReasonInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// MarshalText encodes r with its wire name.
func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// AuthResult is returned by [Engine.Authenticate]. SessionID and Token are set
// only when OK is true. The token is never available from any other call.
type AuthResult struct {
	OK        bool
	SessionID string
	Token     string
	Reason    Reason
}

// SessionInfo describes a validated session. It never carries the token.
type SessionInfo struct {
	SessionID  string
	Username   string
	CreatedAt  time.Time
	LastActive time.Time
}

// Hasher produces and compares credential digests. [password.Hasher]
// satisfies it.
type Hasher interface {
	Hash(secret string) (string, error)
	Verify(candidate, stored string) bool
}

// HealthStatus reports backend reachability.
type HealthStatus struct {
	StoreAvailable bool
	StoreLatency   time.Duration
	ActiveSessions int
}

// AuditEvent is emitted for every authentication decision and session change.
type AuditEvent = internalaudit.Event

// AuditSink consumes audit events.
type AuditSink = internalaudit.Sink

// NoOpSink discards audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink delivers audit events to a buffered channel.
//
//	Performance: blocks if the channel is full and the context is live.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes audit events as newline-delimited JSON.
type JSONWriterSink = internalaudit.JSONWriterSink

// ZapSink logs audit events through a zap logger.
type ZapSink = internalaudit.ZapSink

// NewChannelSink creates a [ChannelSink] with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewZapSink creates a [ZapSink] logging under logger's "audit" name.
func NewZapSink(logger *zap.Logger) *ZapSink {
	return internalaudit.NewZapSink(logger)
}
