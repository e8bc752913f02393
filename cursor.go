package edb

import (
	"math"

	"github.com/emberkv/edb/internal/core"
	"github.com/emberkv/edb/internal/engine"
)

// ReadCursor addresses one position in the database and reads
// through it; it never mutates the file.
type ReadCursor struct {
	db *engine.Database
	sp core.SlotPointer
}

// Tag reports the slot tag currently addressed.
func (c *ReadCursor) Tag() core.Tag { return c.sp.Slot.Tag }

// IsEmpty reports whether the addressed slot has never been written.
func (c *ReadCursor) IsEmpty() bool { return c.sp.Slot.Empty() }

// ReadUint reads the addressed slot as an unsigned integer.
func (c *ReadCursor) ReadUint() (uint64, error) {
	if c.sp.Slot.Tag != core.TagUint {
		return 0, ErrUnexpectedTag
	}
	return uint64(c.sp.Slot.Value), nil
}

// ReadInt reads the addressed slot as a signed integer.
func (c *ReadCursor) ReadInt() (int64, error) {
	if c.sp.Slot.Tag != core.TagInt {
		return 0, ErrUnexpectedTag
	}
	return c.sp.Slot.Value, nil
}

// ReadFloat reads the addressed slot as a float64.
func (c *ReadCursor) ReadFloat() (float64, error) {
	if c.sp.Slot.Tag != core.TagFloat {
		return 0, ErrUnexpectedTag
	}
	return math.Float64frombits(uint64(c.sp.Slot.Value)), nil
}

// ReadBytes reads the addressed slot as a byte payload, plus its
// 2-byte format tag if one was written alongside it.
func (c *ReadCursor) ReadBytes() ([]byte, *[2]byte, error) {
	return c.db.ReadBytesPayload(c.sp.Slot)
}

// ArrayListLen reports the current element count of the addressed
// ArrayList.
func (c *ReadCursor) ArrayListLen() (int64, error) { return c.db.ArrayListLen(c.sp) }

// LinkedArrayListLen reports the current element count of the
// addressed LinkedArrayList.
func (c *ReadCursor) LinkedArrayListLen() (int64, error) { return c.db.LinkedArrayListLen(c.sp) }

// HashCollectionCount reports the population counter of a counted
// HashMap/HashSet; ok is false for a non-counted variant.
func (c *ReadCursor) HashCollectionCount() (count uint64, ok bool, err error) {
	return c.db.HashCollectionCount(c.sp)
}

// ForEach invokes fn for every entry reachable from the addressed
// HashMap/HashSet, in on-disk bucket order.
func (c *ReadCursor) ForEach(fn func(kv core.KeyValuePair) error) error {
	return c.db.ForEachHashEntry(c.sp, fn)
}

// ReadPath executes path in read-only mode from the cursor's current
// position and returns a new ReadCursor at the result. ErrKeyNotFound
// propagates rather than being swallowed: callers that want a
// not-found-as-nil result should check errors.Is themselves.
func (c *ReadCursor) ReadPath(path ...engine.PathPart) (*ReadCursor, error) {
	sp, err := c.db.ReadPath(path, c.sp)
	if err != nil {
		return nil, err
	}
	return &ReadCursor{db: c.db, sp: sp}, nil
}

// WriteCursor is a ReadCursor that may also mutate the file.
type WriteCursor struct {
	ReadCursor
}

// Freeze marks every byte written so far in the enclosing transaction
// as committed for copy-on-write purposes. See Database.Freeze.
func (c *WriteCursor) Freeze() { c.db.Freeze() }

// Write overwrites the addressed slot with value.
func (c *WriteCursor) Write(value engine.WriteValue) error {
	_, err := c.db.WritePath([]engine.PathPart{engine.WriteData(value)}, c.sp)
	return err
}

// WriteIfEmpty writes value only if the addressed slot is currently
// empty, leaving an already-populated slot untouched.
func (c *WriteCursor) WriteIfEmpty(value engine.WriteValue) error {
	if !c.sp.Slot.Empty() {
		return nil
	}
	return c.Write(value)
}

// WritePath executes path in write mode from the cursor's current
// position, committing (or syncing) on success, and returns a new
// WriteCursor at the result.
func (c *WriteCursor) WritePath(path ...engine.PathPart) (*WriteCursor, error) {
	sp, err := c.db.WritePath(path, c.sp)
	if err != nil {
		return nil, err
	}
	return &WriteCursor{ReadCursor{db: c.db, sp: sp}}, nil
}

// ArrayList views the cursor's current position as an ArrayList,
// initializing it in place if it is currently empty.
func (c *WriteCursor) ArrayList() (*ArrayList, error) {
	next, err := c.WritePath(engine.ArrayListInit())
	if err != nil {
		return nil, err
	}
	return &ArrayList{cursor: next}, nil
}

// LinkedArrayList views the cursor's current position as a
// LinkedArrayList, initializing it in place if it is currently empty.
func (c *WriteCursor) LinkedArrayList() (*LinkedArrayList, error) {
	next, err := c.WritePath(engine.LinkedArrayListInit())
	if err != nil {
		return nil, err
	}
	return &LinkedArrayList{cursor: next}, nil
}

// HashMap views the cursor's current position as a HashMap,
// initializing it in place if it is currently empty or null. counted selects
// the population-counted variant.
func (c *WriteCursor) HashMap(counted bool) (*HashMap, error) {
	next, err := c.WritePath(engine.HashMapInit(counted, false))
	if err != nil {
		return nil, err
	}
	return &HashMap{cursor: next}, nil
}

// HashSet views the cursor's current position as a HashSet,
// initializing it in place if it is currently empty or null. counted selects
// the population-counted variant.
func (c *WriteCursor) HashSet(counted bool) (*HashSet, error) {
	next, err := c.WritePath(engine.HashMapInit(counted, true))
	if err != nil {
		return nil, err
	}
	return &HashSet{cursor: next}, nil
}
