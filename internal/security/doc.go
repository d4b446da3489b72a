// Package security derives a posture report from engine settings: digest
// algorithm, lockout threshold and duration, token entropy and whether the
// idle-session sweeper runs.
//
// # What this package must NOT do
//
//   - Import goSentinel or read live engine state; it works on plain inputs.
package security
