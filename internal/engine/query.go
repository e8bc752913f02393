package engine

import (
	"encoding/binary"

	"github.com/emberkv/edb/internal/core"
	"github.com/emberkv/edb/internal/structures"
)

// DecodeShortBytes recovers the inline payload (and, if present, the
// 2-byte format tag) of a SHORT_BYTES slot. Inline payloads are
// stored in a fixed 8 (or 6, with a format tag) byte buffer with no
// separate length field: the payload ends at the first zero byte or at
// that width, so an inline payload containing a zero byte reads back
// cut short at it.
func DecodeShortBytes(s core.Slot) ([]byte, *[2]byte) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(s.Value))
	width := 8
	var ft *[2]byte
	if s.Full {
		ft = &[2]byte{buf[6], buf[7]}
		width = 6
	}
	n := 0
	for n < width && buf[n] != 0 {
		n++
	}
	return append([]byte(nil), buf[:n]...), ft
}

// ReadBytesPayload reads the payload (and optional 2-byte format tag)
// addressed by a BYTES or SHORT_BYTES slot.
func (db *Database) ReadBytesPayload(s core.Slot) ([]byte, *[2]byte, error) {
	if s.Tag == core.TagShortBytes {
		payload, ft := DecodeShortBytes(s)
		return payload, ft, nil
	}
	if s.Tag != core.TagBytes {
		return nil, nil, core.ErrUnexpectedTag
	}
	n, err := db.readInt64At(s.Value)
	if err != nil {
		return nil, nil, err
	}
	payload, err := db.readBytesAt(s.Value+8, int(n))
	if err != nil {
		return nil, nil, err
	}
	if !s.Full {
		return payload, nil, nil
	}
	tagBuf, err := db.readBytesAt(s.Value+8+n, 2)
	if err != nil {
		return nil, nil, err
	}
	return payload, &[2]byte{tagBuf[0], tagBuf[1]}, nil
}

// Length returns the container's current size in bytes.
func (db *Database) Length() int64 { return db.container.Length() }

// AllocateBytes reserves n zero-filled bytes at end-of-file and
// returns their starting position, for callers (the streaming
// Writer) that need to stage a payload of not-yet-known length.
func (db *Database) AllocateBytes(n int64) (int64, error) {
	pos, err := db.allocate(n)
	if err != nil {
		return 0, err
	}
	if err := db.writeBytesAt(pos, make([]byte, n)); err != nil {
		return 0, err
	}
	return pos, nil
}

// ReadRawBytes reads n bytes at an absolute file position, for the
// streaming Reader.
func (db *Database) ReadRawBytes(pos int64, n int) ([]byte, error) { return db.readBytesAt(pos, n) }

// WriteRawBytes writes buf at an absolute file position, for the
// streaming Writer.
func (db *Database) WriteRawBytes(pos int64, buf []byte) error { return db.writeBytesAt(pos, buf) }

// WriteInt64At writes a big-endian signed 64-bit value at an absolute
// file position, used by the streaming Writer to backfill its length
// prefix once the payload's final size is known.
func (db *Database) WriteInt64At(pos int64, v int64) error { return db.writeInt64At(pos, v) }

// Verify walks every block reachable from the root, failing on the
// first unexpected tag, out-of-range pointer, or negative UINT value
// it finds. It is a read-only structural sanity check,
// grounded in the same descent logic as ReadPath/ForEachHashEntry
// rather than a from-scratch reimplementation.
func (db *Database) Verify() error {
	switch {
	case db.header.RootTag == core.TagNone:
		return nil
	case db.header.RootTag == core.TagArrayList:
		return db.verifyArrayList(db.RootSlotPointer())
	case db.header.RootTag.IsHashCollection():
		return db.ForEachHashEntry(db.RootSlotPointer(), func(kv core.KeyValuePair) error {
			return db.verifySlot(kv.KeySlot, db.verifySlot(kv.ValueSlot, nil))
		})
	default:
		return core.ErrUnexpectedTag
	}
}

func (db *Database) verifyArrayList(sp core.SlotPointer) error {
	size, err := db.ArrayListLen(sp)
	if err != nil {
		return err
	}
	for i := int64(0); i < size; i++ {
		leaf, err := db.ReadPath([]PathPart{ArrayListGet(i)}, sp)
		if err != nil {
			return err
		}
		if err := db.verifySlot(leaf.Slot, nil); err != nil {
			return err
		}
	}
	return nil
}

// verifySlot recurses into nested collections a slot addresses,
// ignoring the passed-through err argument when nil so it composes
// with ForEachHashEntry's two-call shape above.
func (db *Database) verifySlot(s core.Slot, err error) error {
	if err != nil {
		return err
	}
	length := db.container.Length()
	isPointer := s.Tag == core.TagIndex || s.Tag == core.TagKVPair || s.Tag == core.TagBytes ||
		s.Tag == core.TagArrayList || s.Tag == core.TagLinkedArrayList || s.Tag.IsHashCollection()
	if (isPointer || s.Tag == core.TagUint) && s.Value < 0 || isPointer && s.Value > length {
		return core.ErrUnexpectedTag
	}
	switch s.Tag {
	case core.TagArrayList:
		return db.verifyArrayList(core.NewSlotPointer(0, s))
	case core.TagLinkedArrayList:
		h, err := db.readLinkedHeaderAt(s.Value)
		if err != nil {
			return err
		}
		_, err = structures.LinkedCollectRange(db.opctx(), h, 0, h.Size)
		return err
	case core.TagHashMap, core.TagHashSet, core.TagCountedHashMap, core.TagCountedHashSet:
		return db.ForEachHashEntry(core.NewSlotPointer(0, s), func(kv core.KeyValuePair) error {
			return db.verifySlot(kv.KeySlot, db.verifySlot(kv.ValueSlot, nil))
		})
	default:
		return nil
	}
}

// ArrayListLen returns the current Size of the ArrayList sp addresses.
func (db *Database) ArrayListLen(sp core.SlotPointer) (int64, error) {
	headerPos, err := db.arrayListHeaderPos(sp)
	if err != nil {
		return 0, err
	}
	h, err := db.readArrayListHeaderAt(headerPos)
	if err != nil {
		return 0, err
	}
	return h.Size, nil
}

// LinkedArrayListLen returns the current Size of the LinkedArrayList
// sp addresses.
func (db *Database) LinkedArrayListLen(sp core.SlotPointer) (int64, error) {
	headerPos, err := db.linkedHeaderPos(sp)
	if err != nil {
		return 0, err
	}
	h, err := db.readLinkedHeaderAt(headerPos)
	if err != nil {
		return 0, err
	}
	return h.Size, nil
}

// HashCollectionCount reports the population counter of a counted
// HashMap/HashSet; ok is false when sp doesn't address a counted
// variant.
func (db *Database) HashCollectionCount(sp core.SlotPointer) (count uint64, ok bool, err error) {
	base, tag, valid := db.hashBase(sp)
	if !valid || !tag.IsCounted() {
		return 0, false, nil
	}
	v, err := db.readInt64At(base)
	if err != nil {
		return 0, false, err
	}
	return uint64(v), true, nil
}

// ForEachHashEntry walks every KeyValuePair reachable from the
// HashMap/HashSet sp addresses, in on-disk bucket order, stopping (and
// propagating) the first error fn returns.
func (db *Database) ForEachHashEntry(sp core.SlotPointer, fn func(core.KeyValuePair) error) error {
	base, tag, ok := db.hashBase(sp)
	if !ok {
		return core.ErrUnexpectedTag
	}
	rootBlockPos, _ := splitHashBase(base, tag.IsCounted())
	hashLen := db.hasher.DigestLength()
	return db.walkHashBlock(rootBlockPos, hashLen, fn)
}

func (db *Database) walkHashBlock(blockPos int64, hashLen int, fn func(core.KeyValuePair) error) error {
	for i := 0; i < core.SlotCount; i++ {
		slotPos := blockPos + int64(i)*core.SlotSize
		slot, err := db.readSlotAt(slotPos)
		if err != nil {
			return err
		}
		switch slot.Tag {
		case core.TagNone:
			continue
		case core.TagIndex:
			if err := db.walkHashBlock(slot.Value, hashLen, fn); err != nil {
				return err
			}
		case core.TagKVPair:
			buf, err := db.readBytesAt(slot.Value, core.KeyValuePairSize(hashLen))
			if err != nil {
				return err
			}
			kv, err := core.DecodeKeyValuePair(buf, hashLen)
			if err != nil {
				return err
			}
			if err := fn(kv); err != nil {
				return err
			}
		default:
			return core.ErrUnexpectedTag
		}
	}
	return nil
}
