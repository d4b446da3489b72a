package password

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// Algorithm names accepted by [New].
const (
	AlgorithmSHA256     = "sha256"
	AlgorithmBLAKE2b256 = "blake2b-256"
	AlgorithmSHA3256    = "sha3-256"
)

const (
	digestBytes = 32
	// DigestLength is the length of every encoded digest produced by [Hasher].
	DigestLength = digestBytes * 2
)

var (
	// ErrHashing reports a hashing primitive that misbehaved. It is treated as
	// corruption, never as a normal outcome.
	ErrHashing = errors.New("credential hashing failed")
	// ErrUnknownAlgorithm is returned by [New] for unsupported algorithm names.
	ErrUnknownAlgorithm = errors.New("unknown digest algorithm")
)

// Config selects the digest algorithm. An empty Algorithm means sha256.
type Config struct {
	Algorithm string
}

// Hasher turns secrets into fixed-length digests.
//
// Hasher values are immutable and safe for concurrent use.
type Hasher struct {
	algorithm string
	sum       func([]byte) []byte
}

// New returns a Hasher for the configured algorithm.
func New(cfg Config) (*Hasher, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Algorithm))
	if name == "" {
		name = AlgorithmSHA256
	}

	var sum func([]byte) []byte
	switch name {
	case AlgorithmSHA256:
		sum = func(b []byte) []byte {
			d := sha256.Sum256(b)
			return d[:]
		}
	case AlgorithmBLAKE2b256:
		sum = func(b []byte) []byte {
			d := blake2b.Sum256(b)
			return d[:]
		}
	case AlgorithmSHA3256:
		sum = func(b []byte) []byte {
			d := sha3.Sum256(b)
			return d[:]
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, cfg.Algorithm)
	}

	return &Hasher{algorithm: name, sum: sum}, nil
}

// Algorithm returns the normalized algorithm name.
func (h *Hasher) Algorithm() string {
	return h.algorithm
}

// Hash returns the hex digest of secret.
//
// The raw string bytes are hashed exactly as provided (no Unicode normalization).
func (h *Hasher) Hash(secret string) (string, error) {
	if h == nil || h.sum == nil {
		return "", fmt.Errorf("%w: hasher not initialized", ErrHashing)
	}

	raw := h.sum([]byte(secret))
	if len(raw) != digestBytes {
		return "", fmt.Errorf("%w: %s produced %d bytes", ErrHashing, h.algorithm, len(raw))
	}

	digest := hex.EncodeToString(raw)
	if len(digest) != DigestLength {
		return "", fmt.Errorf("%w: encoded digest has length %d", ErrHashing, len(digest))
	}
	return digest, nil
}

// Verify reports whether candidate and stored are the same digest. The
// comparison time does not depend on how many leading bytes match.
func (h *Hasher) Verify(candidate, stored string) bool {
	return Equal(candidate, stored)
}

// Equal is the constant-time digest comparison used by [Hasher.Verify].
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
