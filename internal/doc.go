// Package internal contains helper utilities that are intentionally private to
// goSentinel, chiefly secure random generation of session identifiers and
// tokens.
//
// # Sub-packages
//
//   - audit — async event dispatch (Dispatcher + Sink implementations)
//   - lockout — pure lockout decisions over credential records
//   - metrics — lock-free counters and latency histograms
//   - security — configuration posture report
//
// # What this package must NOT do
//
//   - Export types that appear in the public goSentinel API.
//   - Be imported by any package outside the goSentinel module.
package internal
