package utils

import "encoding/binary"

// All on-disk multi-byte integers are big-endian.

// PutInt64 encodes a signed 64-bit value big-endian.
func PutInt64(buf []byte, v int64) {
	binary.BigEndian.PutUint64(buf, uint64(v))
}

// Int64 decodes a big-endian signed 64-bit value.
func Int64(buf []byte) int64 {
	return int64(binary.BigEndian.Uint64(buf))
}

// PutUint64 encodes an unsigned 64-bit value big-endian.
func PutUint64(buf []byte, v uint64) {
	binary.BigEndian.PutUint64(buf, v)
}

// Uint64 decodes a big-endian unsigned 64-bit value.
func Uint64(buf []byte) uint64 {
	return binary.BigEndian.Uint64(buf)
}

// PutUint16 encodes a 16-bit value big-endian.
func PutUint16(buf []byte, v uint16) {
	binary.BigEndian.PutUint16(buf, v)
}

// Uint16 decodes a big-endian 16-bit value.
func Uint16(buf []byte) uint16 {
	return binary.BigEndian.Uint16(buf)
}

// PutUint32 encodes a 32-bit value big-endian.
func PutUint32(buf []byte, v uint32) {
	binary.BigEndian.PutUint32(buf, v)
}

// Uint32 decodes a big-endian 32-bit value.
func Uint32(buf []byte) uint32 {
	return binary.BigEndian.Uint32(buf)
}
