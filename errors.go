package goSentinel

import (
	"errors"

	"github.com/MrEthical07/goSentinel/credstore"
	"github.com/MrEthical07/goSentinel/password"
)

// Infrastructure errors. Negative authentication outcomes (no such user,
// locked account, wrong password) are reported through [Reason], never as
// errors.
var (
	// ErrStoreUnavailable reports a credential store lookup or update failure.
	ErrStoreUnavailable = errors.New("credential store unavailable")
	// ErrHashing reports a broken hashing primitive. It wraps [password.ErrHashing].
	ErrHashing = password.ErrHashing
	// ErrSessionCreationFailed reports a failure minting a session after a
	// successful credential check.
	ErrSessionCreationFailed = errors.New("session creation failed")
	// ErrSessionInvalidationFailed reports a session table that could not remove a session.
	ErrSessionInvalidationFailed = errors.New("session invalidation failed")
	// ErrSessionNotFound is returned by ValidateSession for unknown sessions.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired is returned by ValidateSession for idle-expired sessions.
	ErrSessionExpired = errors.New("session expired")
	// ErrSessionTokenMismatch is returned by ValidateSession when the token is wrong.
	ErrSessionTokenMismatch = errors.New("session token mismatch")
	// ErrUserNotFound is returned by account administration calls for unknown usernames.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentialsInput rejects empty usernames or passwords on provisioning.
	ErrInvalidCredentialsInput = errors.New("invalid credentials input")
	// ErrProvisioningUnsupported reports a store that cannot write whole records.
	ErrProvisioningUnsupported = errors.New("credential store does not support provisioning")
	// ErrEngineNotReady is returned by methods called on a nil or closed Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// storeErr wraps a credstore failure so callers can match ErrStoreUnavailable
// while keeping the adapter's own error in the chain.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, credstore.ErrNotFound) {
		return ErrUserNotFound
	}
	return errors.Join(ErrStoreUnavailable, err)
}
