package core

// Container is the byte-level storage contract the engine is built
// on: a sequential, monotonically growable byte sequence
// addressable by seek position. Three implementations are expected:
// an in-memory one (MemoryContainer, below), a direct-file one and a
// buffered-file one (both in internal/writer).
//
// Operations are sequential from the current position, exactly like
// a Go io.ReadWriteSeeker, except Length/SetLength are explicit
// rather than inferred from Seek(0, io.SeekEnd).
type Container interface {
	// ReadFully reads exactly len(buf) bytes starting at the current
	// position, advancing the position. Reads past Length fail with
	// ErrEndOfStream.
	ReadFully(buf []byte) error

	// Write writes buf at the current position, advancing the
	// position and extending Length if the write passes the current
	// end.
	Write(buf []byte) error

	// Seek moves the current position. Implementations do not
	// validate pos against Length; a subsequent Write there is a
	// valid way to extend the container, and a subsequent Read past
	// Length fails.
	Seek(pos int64) error

	// Position returns the current seek position.
	Position() int64

	// Length returns the size of the largest byte ever written.
	Length() int64

	// SetLength truncates (or, in principle, could extend) the
	// container to exactly n bytes. Used by crash-recovery truncation
	// on open; shrinking a collection's logical size does not require
	// calling this, since it is purely a container-level primitive.
	SetLength(n int64) error

	// Flush pushes any buffered bytes to the backing medium without
	// necessarily making them durable.
	Flush() error

	// Sync makes all flushed bytes durable. The engine calls Sync
	// only at the end of a successful write path or transaction
	// commit.
	Sync() error
}

// ReadByte reads a single byte at the container's current position.
func ReadByte(c Container) (byte, error) {
	var buf [1]byte
	if err := c.ReadFully(buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// WriteByte writes a single byte at the container's current position.
func WriteByte(c Container, b byte) error {
	return c.Write([]byte{b})
}

// ReadInt64 reads a big-endian signed 64-bit value.
func ReadInt64(c Container) (int64, error) {
	buf := make([]byte, 8)
	if err := c.ReadFully(buf); err != nil {
		return 0, err
	}
	return int64Of(buf), nil
}

// WriteInt64 writes a big-endian signed 64-bit value.
func WriteInt64(c Container, v int64) error {
	buf := make([]byte, 8)
	putInt64(buf, v)
	return c.Write(buf)
}

// ReadUint16 reads a big-endian unsigned 16-bit value.
func ReadUint16(c Container) (uint16, error) {
	buf := make([]byte, 2)
	if err := c.ReadFully(buf); err != nil {
		return 0, err
	}
	return uint16(buf[0])<<8 | uint16(buf[1]), nil
}

// WriteUint16 writes a big-endian unsigned 16-bit value.
func WriteUint16(c Container, v uint16) error {
	return c.Write([]byte{byte(v >> 8), byte(v)})
}

// ReadSlotAt reads and decodes a Slot at the given file position. It
// does not restore the container's prior position: callers manage
// seeking explicitly, matching the sequential contract above.
func ReadSlotAt(c Container, pos int64) (Slot, error) {
	if err := c.Seek(pos); err != nil {
		return Slot{}, err
	}
	buf := make([]byte, SlotSize)
	if err := c.ReadFully(buf); err != nil {
		return Slot{}, err
	}
	return DecodeSlot(buf)
}

// WriteSlotAt encodes and writes a Slot at the given file position.
func WriteSlotAt(c Container, pos int64, s Slot) error {
	if err := c.Seek(pos); err != nil {
		return err
	}
	buf := make([]byte, SlotSize)
	s.Encode(buf)
	return c.Write(buf)
}
