// Package core provides the on-disk primitives of the storage engine:
// the tagged Slot word, file/collection headers, the byte container
// contract, and the hasher contract. Everything here is a pure data
// format concern; tree-walking logic lives in internal/structures and
// internal/engine.
package core

import "fmt"

// SlotSize is the fixed on-disk width of a Slot: one header byte plus
// an 8-byte big-endian value.
const SlotSize = 9

// Tag identifies what a Slot's value field means.
type Tag uint8

// Slot tags.
const (
	TagNone            Tag = 0
	TagIndex           Tag = 1
	TagArrayList       Tag = 2
	TagLinkedArrayList Tag = 3
	TagHashMap         Tag = 4
	TagKVPair          Tag = 5
	TagBytes           Tag = 6
	TagShortBytes      Tag = 7
	TagUint            Tag = 8
	TagInt             Tag = 9
	TagFloat           Tag = 10
	TagHashSet         Tag = 11
	TagCountedHashMap  Tag = 12
	TagCountedHashSet  Tag = 13

	maxTag = TagCountedHashSet
)

// fullFlagMask is bit 7 of the header byte.
const fullFlagMask = 0x80

// tagMask is bits 0-6 of the header byte.
const tagMask = 0x7F

func (t Tag) String() string {
	switch t {
	case TagNone:
		return "NONE"
	case TagIndex:
		return "INDEX"
	case TagArrayList:
		return "ARRAY_LIST"
	case TagLinkedArrayList:
		return "LINKED_ARRAY_LIST"
	case TagHashMap:
		return "HASH_MAP"
	case TagKVPair:
		return "KV_PAIR"
	case TagBytes:
		return "BYTES"
	case TagShortBytes:
		return "SHORT_BYTES"
	case TagUint:
		return "UINT"
	case TagInt:
		return "INT"
	case TagFloat:
		return "FLOAT"
	case TagHashSet:
		return "HASH_SET"
	case TagCountedHashMap:
		return "COUNTED_HASH_MAP"
	case TagCountedHashSet:
		return "COUNTED_HASH_SET"
	default:
		return fmt.Sprintf("Tag(%d)", uint8(t))
	}
}

// IsHashCollection reports whether the tag addresses a HAMT root
// (plain or counted, map or set).
func (t Tag) IsHashCollection() bool {
	switch t {
	case TagHashMap, TagHashSet, TagCountedHashMap, TagCountedHashSet:
		return true
	default:
		return false
	}
}

// IsCounted reports whether the tag's HAMT root is prefixed by an
// 8-byte population counter.
func (t Tag) IsCounted() bool {
	return t == TagCountedHashMap || t == TagCountedHashSet
}

// IsSet reports whether the tag denotes a set (as opposed to a map)
// HAMT variant.
func (t Tag) IsSet() bool {
	return t == TagHashSet || t == TagCountedHashSet
}

// Slot is the 9-byte tagged word that is the universal value carrier
// in the database.
type Slot struct {
	Tag   Tag
	Full  bool
	Value int64
}

// Empty reports whether the slot is the canonical "unused" slot:
// tag NONE and full unset. A NONE slot with Full=true is a
// deliberately written null value and is
// therefore not "empty" for iteration/lookup purposes.
func (s Slot) Empty() bool {
	return s.Tag == TagNone && !s.Full
}

// NoneSlot is the canonical unused slot value.
var NoneSlot = Slot{Tag: TagNone}

// Encode writes the slot's 9-byte on-disk representation into buf,
// which must be at least SlotSize bytes.
func (s Slot) Encode(buf []byte) {
	header := byte(s.Tag) & tagMask
	if s.Full {
		header |= fullFlagMask
	}
	buf[0] = header
	putInt64(buf[1:9], s.Value)
}

// DecodeSlot parses a 9-byte on-disk slot representation.
func DecodeSlot(buf []byte) (Slot, error) {
	if len(buf) < SlotSize {
		return Slot{}, fmt.Errorf("short slot buffer: need %d bytes, got %d", SlotSize, len(buf))
	}
	tag := Tag(buf[0] & tagMask)
	if tag > maxTag {
		return Slot{}, fmt.Errorf("invalid slot tag %d", tag)
	}
	full := buf[0]&fullFlagMask != 0
	value := int64Of(buf[1:9])
	return Slot{Tag: tag, Full: full, Value: value}, nil
}

func putInt64(buf []byte, v int64) {
	u := uint64(v)
	buf[0] = byte(u >> 56)
	buf[1] = byte(u >> 48)
	buf[2] = byte(u >> 40)
	buf[3] = byte(u >> 32)
	buf[4] = byte(u >> 24)
	buf[5] = byte(u >> 16)
	buf[6] = byte(u >> 8)
	buf[7] = byte(u)
}

func int64Of(buf []byte) int64 {
	u := uint64(buf[0])<<56 | uint64(buf[1])<<48 | uint64(buf[2])<<40 | uint64(buf[3])<<32 |
		uint64(buf[4])<<24 | uint64(buf[5])<<16 | uint64(buf[6])<<8 | uint64(buf[7])
	return int64(u)
}

// SlotPointer describes where a Slot lives: the byte position holding
// its on-disk representation, and the slot's decoded value. A nil
// Position marks the slot as reachable only through the file header
// (the root slot) and therefore not directly writable: the caller
// must rewrite the file header's RootTag/root pointer instead.
type SlotPointer struct {
	Position *int64
	Slot     Slot
}

// IsTopLevel reports whether this pointer addresses the root slot,
// i.e. has no backing byte position of its own.
func (p SlotPointer) IsTopLevel() bool {
	return p.Position == nil
}

// PositionValue returns the backing position, panicking if called on
// a top-level pointer; callers must check IsTopLevel first.
func (p SlotPointer) PositionValue() int64 {
	if p.Position == nil {
		panic("core: PositionValue called on top-level SlotPointer")
	}
	return *p.Position
}

// NewSlotPointer builds a SlotPointer backed by a concrete file
// position.
func NewSlotPointer(position int64, slot Slot) SlotPointer {
	return SlotPointer{Position: &position, Slot: slot}
}
