package core

import "github.com/cespare/xxhash/v2"

// xxhashID is the 4-byte ASCII label "XXH3" stored in the file header.
var xxhashID = idFromASCII([4]byte{'X', 'X', 'H', '3'})

// XXHasher is the default Hasher: a fast, non-cryptographic 64-bit
// digest from github.com/cespare/xxhash/v2, suitable for internal or
// ephemeral stores where keys are not adversarially chosen.
type XXHasher struct{}

// NewXXHasher returns the default fast Hasher.
func NewXXHasher() XXHasher { return XXHasher{} }

// Digest implements Hasher.
func (XXHasher) Digest(data []byte) []byte {
	sum := xxhash.Sum64(data)
	buf := make([]byte, 8)
	putUint64(buf, sum)
	return buf
}

// DigestLength implements Hasher.
func (XXHasher) DigestLength() int { return 8 }

// ID implements Hasher.
func (XXHasher) ID() uint32 { return xxhashID }

func putUint64(buf []byte, v uint64) {
	buf[0] = byte(v >> 56)
	buf[1] = byte(v >> 48)
	buf[2] = byte(v >> 40)
	buf[3] = byte(v >> 32)
	buf[4] = byte(v >> 24)
	buf[5] = byte(v >> 16)
	buf[6] = byte(v >> 8)
	buf[7] = byte(v)
}
