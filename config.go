package goSentinel

import (
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goSentinel/internal"
	"github.com/MrEthical07/goSentinel/password"
)

// Default values. The lockout duration and the session idle timeout share
// one value by default; they are configured independently.
const (
	DefaultLoginFailureThreshold = 5
	DefaultSessionLifespan       = 600 * time.Second
	DefaultTokenBytes            = 32
	DefaultSessionShards         = 16
)

// Config holds every engine setting. It is fixed once Build returns.
type Config struct {
	Lockout  LockoutConfig
	Session  SessionConfig
	Password PasswordConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig controls account lockout after repeated failed logins.
type LockoutConfig struct {
	// Threshold is the failed-attempt count that locks the account.
	Threshold int
	// Duration is how long a lock holds, measured from the last login attempt.
	Duration time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the in-memory session table.
type SessionConfig struct {
	// IdleTimeout is the sliding expiration window.
	IdleTimeout time.Duration
	// TokenBytes is the entropy of each session token.
	TokenBytes int
	// Shards partitions the table; each shard has its own lock.
	Shards int
	// SweepInterval runs a background sweep of idle sessions. 0 disables it.
	SweepInterval time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig selects the digest algorithm: "sha256" (default),
// "blake2b-256" or "sha3-256".
type PasswordConfig struct {
	Algorithm string
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls asynchronous audit dispatch.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters and latency histograms.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the production defaults: threshold 5, a 600s lockout
// duration and session idle timeout, 32-byte tokens and sha256 digests.
func DefaultConfig() Config {
	return Config{
		Lockout: LockoutConfig{
			Threshold: DefaultLoginFailureThreshold,
			Duration:  DefaultSessionLifespan,
		},
		Session: SessionConfig{
			IdleTimeout:   DefaultSessionLifespan,
			TokenBytes:    DefaultTokenBytes,
			Shards:        DefaultSessionShards,
			SweepInterval: DefaultSessionLifespan,
		},
		Password: PasswordConfig{
			Algorithm: password.AlgorithmSHA256,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

// WithSessionLifespan sets both the session idle timeout and the lockout
// duration, matching the single shared lifespan of earlier deployments.
func (c Config) WithSessionLifespan(d time.Duration) Config {
	c.Lockout.Duration = d
	c.Session.IdleTimeout = d
	return c
}

// Validate checks c and returns the first problem found.
func (c *Config) Validate() error {
	// Lockout
	if c.Lockout.Threshold <= 0 {
		return errors.New("Lockout Threshold must be > 0")
	}
	if c.Lockout.Duration <= 0 {
		return errors.New("Lockout Duration must be > 0")
	}

	// Session
	if c.Session.IdleTimeout <= 0 {
		return errors.New("Session IdleTimeout must be > 0")
	}
	if c.Session.TokenBytes < internal.MinTokenBytes {
		return errors.New("Session TokenBytes must be >= 16")
	}
	if c.Session.Shards <= 0 {
		return errors.New("Session Shards must be > 0")
	}
	if c.Session.SweepInterval < 0 {
		return errors.New("Session SweepInterval must be >= 0")
	}

	// Password
	switch strings.ToLower(strings.TrimSpace(c.Password.Algorithm)) {
	case "", password.AlgorithmSHA256, password.AlgorithmBLAKE2b256, password.AlgorithmSHA3256:
	default:
		return errors.New("Password Algorithm must be sha256, blake2b-256 or sha3-256")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
