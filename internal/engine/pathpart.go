package engine

import (
	"math"

	"github.com/emberkv/edb/internal/core"
	"github.com/emberkv/edb/internal/structures"
)

// PathPart is one step of a path program executed against a Database.
// A path is a slice of PathParts interpreted left to right, threading
// a SlotPointer through each step.
type PathPart interface {
	apply(db *Database, mode Mode, sp core.SlotPointer) (core.SlotPointer, error)
}

// WriteValue is the closed set of things WriteData can write into a
// slot: a deliberate null, a raw pre-built Slot, a signed/unsigned
// integer, a float, or a byte payload (inline or allocated
// out-of-line depending on size and whether a 2-byte format tag is
// carried alongside it).
type WriteValue interface{ isWriteValue() }

type NullValue struct{}
type SlotValue struct{ Slot core.Slot }
type UintValue struct{ V uint64 }
type IntValue struct{ V int64 }
type FloatValue struct{ V float64 }
type BytesValue struct {
	Payload   []byte
	FormatTag *[2]byte
}

func (NullValue) isWriteValue()  {}
func (SlotValue) isWriteValue()  {}
func (UintValue) isWriteValue()  {}
func (IntValue) isWriteValue()   {}
func (FloatValue) isWriteValue() {}
func (BytesValue) isWriteValue() {}

// --- ArrayList ---

type arrayListInit struct{}

func ArrayListInit() PathPart { return arrayListInit{} }

func (arrayListInit) apply(db *Database, mode Mode, sp core.SlotPointer) (core.SlotPointer, error) {
	if mode != ModeWrite {
		return sp, core.ErrWriteNotAllowed
	}
	if sp.IsTopLevel() {
		if db.header.RootTag == core.TagNone {
			db.beginTransaction()
			// The TopLevelArrayListHeader occupies the fixed region
			// [HeaderLength, HeaderLength+8+ArrayListHeaderSize); claim it
			// with a zero-filled write before allocating the root index
			// block, so the block lands after it instead of on top of it.
			if err := db.writeBytesAt(core.HeaderLength, make([]byte, core.TopLevelArrayListHeaderSize)); err != nil {
				return sp, err
			}
			rootBlock, err := db.opctx().AllocateEmptyIndexBlock()
			if err != nil {
				return sp, err
			}
			if err := db.writeArrayListHeaderAt(core.HeaderLength+8, core.ArrayListHeader{Size: 0, Ptr: rootBlock}); err != nil {
				return sp, err
			}
			if err := db.writeInt64At(core.HeaderLength, 0); err != nil {
				return sp, err
			}
			if err := db.writeHeaderTag(core.TagArrayList); err != nil {
				return sp, err
			}
			return db.RootSlotPointer(), nil
		}
		if db.header.RootTag != core.TagArrayList {
			return sp, core.ErrUnexpectedTag
		}
		return db.RootSlotPointer(), nil
	}

	if sp.Slot.Empty() {
		// Allocate the root index block before the header: db.allocate
		// only peeks the container's current length, so computing
		// headerPos first and then allocating the block would hand both
		// calls the same position, and the header write that follows
		// would land inside the block it's supposed to point at.
		rootBlock, err := db.opctx().AllocateEmptyIndexBlock()
		if err != nil {
			return sp, err
		}
		headerPos, err := db.allocate(core.ArrayListHeaderSize)
		if err != nil {
			return sp, err
		}
		if err := db.writeArrayListHeaderAt(headerPos, core.ArrayListHeader{Size: 0, Ptr: rootBlock}); err != nil {
			return sp, err
		}
		newSlot := core.Slot{Tag: core.TagArrayList, Value: headerPos}
		if err := db.writeSlotAt(sp.PositionValue(), newSlot); err != nil {
			return sp, err
		}
		return core.NewSlotPointer(sp.PositionValue(), newSlot), nil
	}
	if sp.Slot.Tag != core.TagArrayList {
		return sp, core.ErrUnexpectedTag
	}
	if !db.needsCOW(sp.Slot.Value) {
		return sp, nil
	}
	h, err := db.readArrayListHeaderAt(sp.Slot.Value)
	if err != nil {
		return sp, err
	}
	newHeaderPos, err := db.allocate(core.ArrayListHeaderSize)
	if err != nil {
		return sp, err
	}
	if err := db.writeArrayListHeaderAt(newHeaderPos, h); err != nil {
		return sp, err
	}
	newSlot := core.Slot{Tag: core.TagArrayList, Value: newHeaderPos}
	if err := db.writeSlotAt(sp.PositionValue(), newSlot); err != nil {
		return sp, err
	}
	return core.NewSlotPointer(sp.PositionValue(), newSlot), nil
}

type arrayListGet struct{ index int64 }

func ArrayListGet(index int64) PathPart { return arrayListGet{index} }

func (p arrayListGet) apply(db *Database, mode Mode, sp core.SlotPointer) (core.SlotPointer, error) {
	headerPos, err := db.arrayListHeaderPos(sp)
	if err != nil {
		return sp, err
	}
	h, err := db.readArrayListHeaderAt(headerPos)
	if err != nil {
		return sp, err
	}
	key, ok := structures.ResolveArrayIndex(p.index, h.Size)
	if !ok {
		return sp, core.ErrKeyNotFound
	}
	writable := mode == ModeWrite
	if writable {
		result, newRoot, err := structures.RadixGetRoot(db.opctx(), h, key, true)
		if err != nil {
			return sp, err
		}
		if newRoot != h.Ptr {
			h.Ptr = newRoot
			if sp.IsTopLevel() {
				db.deferTopLevelArrayListHeader(h)
			} else if err := db.writeArrayListHeaderAt(headerPos, h); err != nil {
				return sp, err
			}
		}
		return result, nil
	}
	return structures.RadixGet(db.opctx(), h, key, false)
}

type arrayListAppend struct{}

func ArrayListAppend() PathPart { return arrayListAppend{} }

func (arrayListAppend) apply(db *Database, mode Mode, sp core.SlotPointer) (core.SlotPointer, error) {
	if mode != ModeWrite {
		return sp, core.ErrWriteNotAllowed
	}
	headerPos, err := db.arrayListHeaderPos(sp)
	if err != nil {
		return sp, err
	}
	if sp.IsTopLevel() {
		db.beginTransaction()
	}
	h, err := db.readArrayListHeaderAt(headerPos)
	if err != nil {
		return sp, err
	}
	newHeader, leafSp, err := structures.RadixAppend(db.opctx(), h)
	if err != nil {
		return sp, err
	}
	if sp.IsTopLevel() {
		// Deferred to commitTransaction: the TopLevelArrayListHeader
		// sits at a fixed, already-committed offset, so writing it now
		// would be an in-place mutation truncate() can never undo if a
		// trailing Context part in this same path later fails.
		db.deferTopLevelArrayListHeader(newHeader)
	} else if err := db.writeArrayListHeaderAt(headerPos, newHeader); err != nil {
		return sp, err
	}
	return leafSp, nil
}

type arrayListSlice struct{ size int64 }

func ArrayListSlice(size int64) PathPart { return arrayListSlice{size} }

func (p arrayListSlice) apply(db *Database, mode Mode, sp core.SlotPointer) (core.SlotPointer, error) {
	if mode != ModeWrite {
		return sp, core.ErrWriteNotAllowed
	}
	headerPos, err := db.arrayListHeaderPos(sp)
	if err != nil {
		return sp, err
	}
	h, err := db.readArrayListHeaderAt(headerPos)
	if err != nil {
		return sp, err
	}
	newHeader, err := structures.RadixSlice(h, p.size, db.readSlotAt)
	if err != nil {
		return sp, err
	}
	if sp.IsTopLevel() {
		db.deferTopLevelArrayListHeader(newHeader)
	} else if err := db.writeArrayListHeaderAt(headerPos, newHeader); err != nil {
		return sp, err
	}
	return sp, nil
}

// --- LinkedArrayList ---

type linkedArrayListInit struct{}

func LinkedArrayListInit() PathPart { return linkedArrayListInit{} }

func (linkedArrayListInit) apply(db *Database, mode Mode, sp core.SlotPointer) (core.SlotPointer, error) {
	if mode != ModeWrite {
		return sp, core.ErrWriteNotAllowed
	}
	if sp.IsTopLevel() {
		return sp, core.ErrInvalidTopLevelType
	}
	if sp.Slot.Empty() {
		headerPos, err := db.allocate(core.LinkedArrayListHeaderSize)
		if err != nil {
			return sp, err
		}
		if err := db.writeLinkedHeaderAt(headerPos, core.LinkedArrayListHeader{}); err != nil {
			return sp, err
		}
		newSlot := core.Slot{Tag: core.TagLinkedArrayList, Value: headerPos}
		if err := db.writeSlotAt(sp.PositionValue(), newSlot); err != nil {
			return sp, err
		}
		return core.NewSlotPointer(sp.PositionValue(), newSlot), nil
	}
	if sp.Slot.Tag != core.TagLinkedArrayList {
		return sp, core.ErrUnexpectedTag
	}
	if !db.needsCOW(sp.Slot.Value) {
		return sp, nil
	}
	h, err := db.readLinkedHeaderAt(sp.Slot.Value)
	if err != nil {
		return sp, err
	}
	newPos, err := db.allocate(core.LinkedArrayListHeaderSize)
	if err != nil {
		return sp, err
	}
	if err := db.writeLinkedHeaderAt(newPos, h); err != nil {
		return sp, err
	}
	newSlot := core.Slot{Tag: core.TagLinkedArrayList, Value: newPos}
	if err := db.writeSlotAt(sp.PositionValue(), newSlot); err != nil {
		return sp, err
	}
	return core.NewSlotPointer(sp.PositionValue(), newSlot), nil
}

type linkedArrayListGet struct{ index int64 }

func LinkedArrayListGet(index int64) PathPart { return linkedArrayListGet{index} }

func (p linkedArrayListGet) apply(db *Database, mode Mode, sp core.SlotPointer) (core.SlotPointer, error) {
	headerPos, err := db.linkedHeaderPos(sp)
	if err != nil {
		return sp, err
	}
	h, err := db.readLinkedHeaderAt(headerPos)
	if err != nil {
		return sp, err
	}
	key, ok := structures.ResolveArrayIndex(p.index, h.Size)
	if !ok {
		return sp, core.ErrKeyNotFound
	}
	writable := mode == ModeWrite
	result, newHeader, err := structures.LinkedGetRoot(db.opctx(), h, key, writable)
	if err != nil {
		return sp, err
	}
	if writable && newHeader != h.Ptr {
		h.Ptr = newHeader
		if err := db.writeLinkedHeaderAt(headerPos, h); err != nil {
			return sp, err
		}
	}
	return result, nil
}

type linkedArrayListAppend struct{}

func LinkedArrayListAppend() PathPart { return linkedArrayListAppend{} }

func (linkedArrayListAppend) apply(db *Database, mode Mode, sp core.SlotPointer) (core.SlotPointer, error) {
	if mode != ModeWrite {
		return sp, core.ErrWriteNotAllowed
	}
	headerPos, err := db.linkedHeaderPos(sp)
	if err != nil {
		return sp, err
	}
	h, err := db.readLinkedHeaderAt(headerPos)
	if err != nil {
		return sp, err
	}
	newHeader, leafSp, err := structures.LinkedAppend(db.opctx(), h)
	if err != nil {
		return sp, err
	}
	if err := db.writeLinkedHeaderAt(headerPos, newHeader); err != nil {
		return sp, err
	}
	return leafSp, nil
}

type linkedArrayListSlice struct{ offset, size int64 }

func LinkedArrayListSlice(offset, size int64) PathPart { return linkedArrayListSlice{offset, size} }

func (p linkedArrayListSlice) apply(db *Database, mode Mode, sp core.SlotPointer) (core.SlotPointer, error) {
	if mode != ModeWrite {
		return sp, core.ErrWriteNotAllowed
	}
	headerPos, err := db.linkedHeaderPos(sp)
	if err != nil {
		return sp, err
	}
	h, err := db.readLinkedHeaderAt(headerPos)
	if err != nil {
		return sp, err
	}
	if p.offset < 0 || p.size < 0 || p.offset+p.size > h.Size {
		return sp, core.ErrKeyNotFound
	}
	elems, err := structures.LinkedCollectRange(db.opctx(), h, p.offset, p.size)
	if err != nil {
		return sp, err
	}
	newHeader, err := structures.LinkedBuildFromSlots(db.opctx(), elems)
	if err != nil {
		return sp, err
	}
	if err := db.writeLinkedHeaderAt(headerPos, newHeader); err != nil {
		return sp, err
	}
	return sp, nil
}

type linkedArrayListConcat struct{ other core.Slot }

// LinkedArrayListConcat appends the elements of the LinkedArrayList
// addressed by other (a LINKED_ARRAY_LIST-tagged slot) after the
// current one's, rebuilding a single fresh spine for the result.
func LinkedArrayListConcat(other core.Slot) PathPart { return linkedArrayListConcat{other} }

func (p linkedArrayListConcat) apply(db *Database, mode Mode, sp core.SlotPointer) (core.SlotPointer, error) {
	if mode != ModeWrite {
		return sp, core.ErrWriteNotAllowed
	}
	if p.other.Tag != core.TagLinkedArrayList {
		return sp, core.ErrUnexpectedTag
	}
	headerPos, err := db.linkedHeaderPos(sp)
	if err != nil {
		return sp, err
	}
	h, err := db.readLinkedHeaderAt(headerPos)
	if err != nil {
		return sp, err
	}
	other, err := db.readLinkedHeaderAt(p.other.Value)
	if err != nil {
		return sp, err
	}
	a, err := structures.LinkedCollectRange(db.opctx(), h, 0, h.Size)
	if err != nil {
		return sp, err
	}
	b, err := structures.LinkedCollectRange(db.opctx(), other, 0, other.Size)
	if err != nil {
		return sp, err
	}
	newHeader, err := structures.LinkedBuildFromSlots(db.opctx(), append(a, b...))
	if err != nil {
		return sp, err
	}
	if err := db.writeLinkedHeaderAt(headerPos, newHeader); err != nil {
		return sp, err
	}
	return sp, nil
}

type linkedArrayListInsert struct {
	index int64
	value WriteValue
}

func LinkedArrayListInsert(index int64, value WriteValue) PathPart {
	return linkedArrayListInsert{index, value}
}

func (p linkedArrayListInsert) apply(db *Database, mode Mode, sp core.SlotPointer) (core.SlotPointer, error) {
	if mode != ModeWrite {
		return sp, core.ErrWriteNotAllowed
	}
	headerPos, err := db.linkedHeaderPos(sp)
	if err != nil {
		return sp, err
	}
	h, err := db.readLinkedHeaderAt(headerPos)
	if err != nil {
		return sp, err
	}
	if p.index < 0 || p.index > h.Size {
		return sp, core.ErrKeyNotFound
	}
	before, err := structures.LinkedCollectRange(db.opctx(), h, 0, p.index)
	if err != nil {
		return sp, err
	}
	after, err := structures.LinkedCollectRange(db.opctx(), h, p.index, h.Size-p.index)
	if err != nil {
		return sp, err
	}
	mid, err := db.encodeWriteValue(p.value)
	if err != nil {
		return sp, err
	}
	all := make([]core.Slot, 0, len(before)+1+len(after))
	all = append(all, before...)
	all = append(all, mid)
	all = append(all, after...)
	newHeader, err := structures.LinkedBuildFromSlots(db.opctx(), all)
	if err != nil {
		return sp, err
	}
	if err := db.writeLinkedHeaderAt(headerPos, newHeader); err != nil {
		return sp, err
	}
	return sp, nil
}

type linkedArrayListRemove struct{ index int64 }

func LinkedArrayListRemove(index int64) PathPart { return linkedArrayListRemove{index} }

func (p linkedArrayListRemove) apply(db *Database, mode Mode, sp core.SlotPointer) (core.SlotPointer, error) {
	if mode != ModeWrite {
		return sp, core.ErrWriteNotAllowed
	}
	headerPos, err := db.linkedHeaderPos(sp)
	if err != nil {
		return sp, err
	}
	h, err := db.readLinkedHeaderAt(headerPos)
	if err != nil {
		return sp, err
	}
	if p.index < 0 || p.index >= h.Size {
		return sp, core.ErrKeyNotFound
	}
	before, err := structures.LinkedCollectRange(db.opctx(), h, 0, p.index)
	if err != nil {
		return sp, err
	}
	after, err := structures.LinkedCollectRange(db.opctx(), h, p.index+1, h.Size-p.index-1)
	if err != nil {
		return sp, err
	}
	all := append(before, after...)
	newHeader, err := structures.LinkedBuildFromSlots(db.opctx(), all)
	if err != nil {
		return sp, err
	}
	if err := db.writeLinkedHeaderAt(headerPos, newHeader); err != nil {
		return sp, err
	}
	return sp, nil
}

// --- HashMap / HashSet ---

type hashMapInit struct {
	counted bool
	set     bool
}

func HashMapInit(counted, set bool) PathPart { return hashMapInit{counted, set} }

func tagFor(counted, set bool) core.Tag {
	switch {
	case counted && set:
		return core.TagCountedHashSet
	case counted:
		return core.TagCountedHashMap
	case set:
		return core.TagHashSet
	default:
		return core.TagHashMap
	}
}

func (p hashMapInit) apply(db *Database, mode Mode, sp core.SlotPointer) (core.SlotPointer, error) {
	if mode != ModeWrite {
		return sp, core.ErrWriteNotAllowed
	}
	tag := tagFor(p.counted, p.set)
	if sp.IsTopLevel() {
		if db.header.RootTag == core.TagNone {
			db.beginTransaction()
			base := int64(core.HeaderLength + 8)
			size := core.IndexBlockSize
			if p.counted {
				size += 8
			}
			if err := db.writeBytesAt(base, make([]byte, size)); err != nil {
				return sp, err
			}
			if err := db.writeInt64At(core.HeaderLength, 0); err != nil {
				return sp, err
			}
			if err := db.writeHeaderTag(tag); err != nil {
				return sp, err
			}
			return db.RootSlotPointer(), nil
		}
		if db.header.RootTag != tag {
			return sp, core.ErrUnexpectedTag
		}
		return db.RootSlotPointer(), nil
	}

	if sp.Slot.Tag == core.TagNone {
		rootPos, counterPos, err := structures.AllocateHAMTRoot(db.opctx(), p.counted)
		if err != nil {
			return sp, err
		}
		base := rootPos
		if p.counted {
			base = counterPos
		}
		newSlot := core.Slot{Tag: tag, Value: base}
		if err := db.writeSlotAt(sp.PositionValue(), newSlot); err != nil {
			return sp, err
		}
		return core.NewSlotPointer(sp.PositionValue(), newSlot), nil
	}
	if sp.Slot.Tag != tag {
		return sp, core.ErrUnexpectedTag
	}
	newBase, err := db.freshenHAMTRootIfNeeded(sp, p.counted, true)
	if err != nil {
		return sp, err
	}
	if newBase == sp.Slot.Value {
		return sp, nil
	}
	newSlot := core.Slot{Tag: tag, Value: newBase}
	return core.NewSlotPointer(sp.PositionValue(), newSlot), nil
}

// Target selects which slot of a HAMT entry HashMapGet resolves to.
type Target = structures.Target

const (
	TargetKVPair = structures.TargetKVPair
	TargetKey    = structures.TargetKey
	TargetValue  = structures.TargetValue
)

type hashMapGet struct {
	hash   []byte
	target Target
}

func HashMapGet(hash []byte, target Target) PathPart { return hashMapGet{hash, target} }

func (p hashMapGet) apply(db *Database, mode Mode, sp core.SlotPointer) (core.SlotPointer, error) {
	base, tag, ok := db.hashBase(sp)
	if !ok {
		return sp, core.ErrUnexpectedTag
	}
	counted := tag.IsCounted()
	writable := mode == ModeWrite
	if sp.IsTopLevel() && writable {
		db.beginTransaction()
	}
	base, err := db.freshenHAMTRootIfNeeded(sp, counted, writable)
	if err != nil {
		return sp, err
	}
	rootBlockPos, counterPos := splitHashBase(base, counted)

	if counted && !writable {
		kf, err := db.keyFilterFor(filterKeyFor(sp), counterPos, rootBlockPos)
		if err != nil {
			return sp, err
		}
		if !kf.MaybeContains(p.hash) {
			return sp, core.ErrKeyNotFound
		}
	}

	result, isEmpty, err := structures.HAMTGet(db.opctx(), rootBlockPos, counterPos, counted, p.hash, p.target, writable)
	if err == nil && counted && isEmpty {
		if kf, ferr := db.keyFilterFor(filterKeyFor(sp), counterPos, rootBlockPos); ferr == nil {
			kf.Add(p.hash)
		}
	}
	return result, err
}

type hashMapRemove struct{ hash []byte }

func HashMapRemove(hash []byte) PathPart { return hashMapRemove{hash} }

func (p hashMapRemove) apply(db *Database, mode Mode, sp core.SlotPointer) (core.SlotPointer, error) {
	if mode != ModeWrite {
		return sp, core.ErrWriteNotAllowed
	}
	base, tag, ok := db.hashBase(sp)
	if !ok {
		return sp, core.ErrUnexpectedTag
	}
	counted := tag.IsCounted()
	if sp.IsTopLevel() {
		db.beginTransaction()
	}
	base, err := db.freshenHAMTRootIfNeeded(sp, counted, true)
	if err != nil {
		return sp, err
	}
	rootBlockPos, counterPos := splitHashBase(base, counted)

	if counted {
		kf, err := db.keyFilterFor(filterKeyFor(sp), counterPos, rootBlockPos)
		if err != nil {
			return sp, err
		}
		if !kf.MaybeContains(p.hash) {
			return sp, core.ErrKeyNotFound
		}
	}

	if err := structures.HAMTRemove(db.opctx(), rootBlockPos, counterPos, counted, p.hash); err != nil {
		return sp, err
	}
	return sp, nil
}

// --- WriteData ---

type writeData struct{ value WriteValue }

func WriteData(value WriteValue) PathPart { return writeData{value} }

func (p writeData) apply(db *Database, mode Mode, sp core.SlotPointer) (core.SlotPointer, error) {
	if mode != ModeWrite {
		return sp, core.ErrWriteNotAllowed
	}
	if sp.IsTopLevel() {
		return sp, core.ErrCursorNotWriteable
	}
	slot, err := db.encodeWriteValue(p.value)
	if err != nil {
		return sp, err
	}
	if err := db.writeSlotAt(sp.PositionValue(), slot); err != nil {
		return sp, err
	}
	return core.NewSlotPointer(sp.PositionValue(), slot), nil
}

func (db *Database) encodeWriteValue(value WriteValue) (core.Slot, error) {
	switch v := value.(type) {
	case NullValue:
		return core.Slot{Tag: core.TagNone, Full: true}, nil
	case SlotValue:
		return v.Slot, nil
	case UintValue:
		if v.V > math.MaxInt64 {
			return core.Slot{}, core.ErrUint64Overflow
		}
		return core.Slot{Tag: core.TagUint, Value: int64(v.V)}, nil
	case IntValue:
		return core.Slot{Tag: core.TagInt, Value: v.V}, nil
	case FloatValue:
		return core.Slot{Tag: core.TagFloat, Value: int64(math.Float64bits(v.V))}, nil
	case BytesValue:
		return db.encodeBytes(v)
	default:
		return core.Slot{}, core.ErrUnexpectedTag
	}
}

func (db *Database) encodeBytes(v BytesValue) (core.Slot, error) {
	maxInline := 8
	if v.FormatTag != nil {
		maxInline = 6
	}
	if len(v.Payload) <= maxInline {
		var buf [8]byte
		copy(buf[:], v.Payload)
		if v.FormatTag != nil {
			buf[6] = v.FormatTag[0]
			buf[7] = v.FormatTag[1]
		}
		val := int64(uint64(buf[0])<<56 | uint64(buf[1])<<48 | uint64(buf[2])<<40 | uint64(buf[3])<<32 |
			uint64(buf[4])<<24 | uint64(buf[5])<<16 | uint64(buf[6])<<8 | uint64(buf[7]))
		return core.Slot{Tag: core.TagShortBytes, Full: v.FormatTag != nil, Value: val}, nil
	}
	extra := 0
	if v.FormatTag != nil {
		extra = 2
	}
	total := 8 + len(v.Payload) + extra
	pos, err := db.allocate(int64(total))
	if err != nil {
		return core.Slot{}, err
	}
	buf := make([]byte, total)
	n := uint64(len(v.Payload))
	buf[0], buf[1], buf[2], buf[3] = byte(n>>56), byte(n>>48), byte(n>>40), byte(n>>32)
	buf[4], buf[5], buf[6], buf[7] = byte(n>>24), byte(n>>16), byte(n>>8), byte(n)
	copy(buf[8:8+len(v.Payload)], v.Payload)
	if v.FormatTag != nil {
		buf[8+len(v.Payload)] = v.FormatTag[0]
		buf[9+len(v.Payload)] = v.FormatTag[1]
	}
	if err := db.writeBytesAt(pos, buf); err != nil {
		return core.Slot{}, err
	}
	return core.Slot{Tag: core.TagBytes, Full: v.FormatTag != nil, Value: pos}, nil
}

// --- Context ---

type contextPart struct{ fn func(db *Database, sp core.SlotPointer) error }

// Context runs fn against the current position; if fn returns an
// error the executor aborts the enclosing transaction — truncating
// away any bytes fn wrote and discarding any TopLevelArrayListHeader
// update still pending from this same path — before re-raising it.
// Must be the last part of a path.
func Context(fn func(db *Database, sp core.SlotPointer) error) PathPart {
	return contextPart{fn}
}

func (p contextPart) apply(db *Database, mode Mode, sp core.SlotPointer) (core.SlotPointer, error) {
	if mode != ModeWrite {
		return sp, core.ErrWriteNotAllowed
	}
	if err := p.fn(db, sp); err != nil {
		_ = db.abortTransaction()
		return sp, err
	}
	return sp, nil
}
