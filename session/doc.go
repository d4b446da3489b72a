// Package session provides the in-memory session table that binds an opaque
// session identifier and token to an authenticated username.
//
// # Expiry
//
// Sessions use sliding expiration: every successful [Table.Validate] moves
// LastActive forward, and a session idle for longer than the configured
// window is destroyed on its next validation or by the background sweeper.
// A single presentation with the wrong token also destroys the session.
//
// # Architecture boundaries
//
// This package owns session state only. It never persists sessions
// externally, never reads credential records and never logs tokens.
//
// # What this package must NOT do
//
//   - Import goSentinel or credstore (no upward imports).
//   - Return the stored token from any lookup.
package session
