// Package goSentinel is a credential-and-session authority: it verifies a
// username and password against stored credential records, enforces account
// lockout after repeated failures, and issues and validates time-bounded
// session tokens.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// goSentinel is the public surface. It exposes [Engine], [Builder], [Config]
// and value types (AuthResult, SessionInfo, MetricsSnapshot). Credential
// storage lives in credstore, digests in password, session state in session,
// and lockout decisions, audit dispatch and metric storage under internal/.
//
// # What this package must NOT do
//
//   - Expose stored digests or session tokens beyond the single AuthResult
//     returned by a successful Authenticate.
//   - Keep process-wide state; every Engine is explicitly constructed and
//     explicitly closed.
//   - Import any sub-package that re-imports goSentinel (no import cycles).
//
// # Failure model
//
// Wrong passwords, unknown users and locked accounts are results, not errors.
// Store and hashing failures are returned as errors alongside a rejected
// result, so the engine never fails open.
package goSentinel
