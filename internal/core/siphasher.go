package core

import "github.com/dchest/siphash"

// siphashID is the 4-byte ASCII label "SIP2" stored in the file header.
var siphashID = idFromASCII([4]byte{'S', 'I', 'P', '2'})

// SipHasher is a keyed Hasher built on github.com/dchest/siphash,
// used where HashMap/HashSet keys may be adversarially chosen and a
// collision-resistant digest is wanted. The key is fixed per Hasher
// instance, so digests stay deterministic across opens of the same
// file as long as the same key is supplied.
type SipHasher struct {
	k0, k1 uint64
}

// NewSipHasher returns a SipHasher keyed by k0/k1. Callers must supply
// the same key on every Open of a given file; the key is not itself
// persisted in the file header (only DigestLength and ID are).
func NewSipHasher(k0, k1 uint64) SipHasher {
	return SipHasher{k0: k0, k1: k1}
}

// Digest implements Hasher.
func (h SipHasher) Digest(data []byte) []byte {
	sum := siphash.Hash(h.k0, h.k1, data)
	buf := make([]byte, 8)
	putUint64(buf, sum)
	return buf
}

// DigestLength implements Hasher.
func (SipHasher) DigestLength() int { return 8 }

// ID implements Hasher.
func (SipHasher) ID() uint32 { return siphashID }
