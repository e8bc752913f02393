package core

import "crypto/sha1" //nolint:gosec // not used for security; kept for bit-exact fixture reproduction (see DESIGN.md)

// sha1ID is the 4-byte ASCII label "SHA1" stored in the file header.
var sha1ID = idFromASCII([4]byte{'S', 'H', 'A', '1'})

// SHA1Hasher wraps crypto/sha1 so fixtures and reference vectors
// written against plain SHA-1 digests stay reproducible byte-for-byte.
// It exists for that reason alone; prefer XXHasher or SipHasher for
// new stores.
type SHA1Hasher struct{}

// NewSHA1Hasher returns the fixture-compatible Hasher.
func NewSHA1Hasher() SHA1Hasher { return SHA1Hasher{} }

// Digest implements Hasher.
func (SHA1Hasher) Digest(data []byte) []byte {
	sum := sha1.Sum(data) //nolint:gosec // see type doc comment
	out := make([]byte, len(sum))
	copy(out, sum[:])
	return out
}

// DigestLength implements Hasher.
func (SHA1Hasher) DigestLength() int { return sha1.Size }

// ID implements Hasher.
func (SHA1Hasher) ID() uint32 { return sha1ID }
