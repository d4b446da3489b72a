// Package password implements deterministic credential digests and their
// constant-time comparison.
//
// # Output format
//
// Digests are the lowercase hex encoding of a 32-byte hash of the raw secret
// bytes:
//
//	sha256       (default) compatible with digests already held in credential stores
//	blake2b-256  golang.org/x/crypto/blake2b
//	sha3-256     golang.org/x/crypto/sha3
//
// The same secret always produces the same digest, so a stored digest can be
// compared with a freshly computed one.
//
// # Architecture boundaries
//
// This package owns hashing and comparison only. Lockout and session policy
// are enforced by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve credentials — callers supply plaintext and receive digests.
//   - Import any other goSentinel package.
//   - Log plaintext secrets or digests.
package password
