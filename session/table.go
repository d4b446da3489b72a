package session

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound reports an unknown or already removed session.
	ErrNotFound = errors.New("session not found")
	// ErrExpired reports a session idle past its window. The session is removed.
	ErrExpired = errors.New("session expired")
	// ErrTokenMismatch reports a wrong token for a known session. The session is removed.
	ErrTokenMismatch = errors.New("session token mismatch")
	// ErrGenerate reports a failure drawing identifiers or tokens from crypto/rand.
	ErrGenerate = errors.New("session generation failed")
	// ErrClosed reports use of a closed table.
	ErrClosed = errors.New("session table closed")
)

// Issued is returned once, by Create. It is the only place the token appears.
type Issued struct {
	SessionID string
	Token     string
	CreatedAt time.Time
}

// Info describes a live session. It never carries the token.
type Info struct {
	SessionID  string
	Username   string
	CreatedAt  time.Time
	LastActive time.Time
}

// Table is the session table consumed by the Engine. Implementations must be
// safe for concurrent use.
type Table interface {
	Create(ctx context.Context, username string) (Issued, error)
	Validate(ctx context.Context, sessionID, token string) (Info, error)
	// Invalidate removes the session and reports whether it existed.
	Invalidate(ctx context.Context, sessionID string) (bool, error)
	Len() int
	Close() error
}
