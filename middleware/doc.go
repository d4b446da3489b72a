// Package middleware adapts goSentinel session checks to net/http.
//
// [RequireSession] reads the session pair from the X-Session-ID and
// X-Session-Token headers, or from "Authorization: Session <id>:<token>",
// calls Engine.ValidateSession and places the resulting [goSentinel.SessionInfo]
// in the request context. Every failure is a plain 401; the reason is not
// revealed to the client.
//
// This package translates HTTP semantics into Engine calls and makes no
// decisions of its own.
package middleware
