// Package credstore is the narrow boundary between the authentication engine
// and the persistent credential records it reads and updates.
//
// # Contract
//
// A [Store] resolves one [Record] per username and applies partial field
// updates described by [Changes]. Absence is reported as [ErrNotFound] and is
// a normal outcome; transport and storage failures wrap [ErrUnavailable] so
// callers can tell "no such user" from "store broken".
//
// # Implementations
//
//   - [Memory] — process-local map, for tests and single-node development.
//   - [Redis] — one hash per user, partial updates via an atomic Lua script.
//   - [SQL] — database/sql over PostgreSQL (pgx) or SQLite (modernc), schema
//     managed by goose migrations embedded in this package.
//
// # What this package must NOT do
//
//   - Import goSentinel or any policy package.
//   - Interpret lockout or session semantics — it stores what it is told.
//   - Provide read-modify-write atomicity beyond a single ApplyUpdate call.
package credstore
