package edb

import (
	"github.com/emberkv/edb/internal/core"
	"github.com/emberkv/edb/internal/engine"
)

// ArrayList is a fixed-shift radix array: O(log16 n) random access,
// O(1) amortized append, and an in-place Slice to shrink it.
type ArrayList struct {
	cursor *WriteCursor
}

// Len reports the current element count.
func (a *ArrayList) Len() (int64, error) { return a.cursor.ArrayListLen() }

// Get returns a read cursor at index i (negative indices count from
// the end, Python-style).
func (a *ArrayList) Get(i int64) (*ReadCursor, error) {
	return a.cursor.ReadPath(engine.ArrayListGet(i))
}

// GetForWrite returns a write cursor at index i, copy-on-writing any
// block along the path that predates the current transaction.
func (a *ArrayList) GetForWrite(i int64) (*WriteCursor, error) {
	return a.cursor.WritePath(engine.ArrayListGet(i))
}

// Append grows the list by one element and returns a write cursor at
// the new (currently empty) slot.
func (a *ArrayList) Append() (*WriteCursor, error) {
	return a.cursor.WritePath(engine.ArrayListAppend())
}

// AppendValue appends value as a new element in one call.
func (a *ArrayList) AppendValue(value engine.WriteValue) error {
	next, err := a.Append()
	if err != nil {
		return err
	}
	return next.Write(value)
}

// Slice shrinks the list to its first size elements.
func (a *ArrayList) Slice(size int64) error {
	_, err := a.cursor.WritePath(engine.ArrayListSlice(size))
	return err
}

// ForEach invokes fn for every element in index order, stopping at
// the first error fn returns.
func (a *ArrayList) ForEach(fn func(i int64, elem *ReadCursor) error) error {
	size, err := a.Len()
	if err != nil {
		return err
	}
	for i := int64(0); i < size; i++ {
		elem, err := a.Get(i)
		if err != nil {
			return err
		}
		if err := fn(i, elem); err != nil {
			return err
		}
	}
	return nil
}

// AppendContext appends a new moment, seeds it from seed (typically
// the previous moment's slot, for structural sharing between
// history entries), and runs fn with a write cursor positioned at
// the new moment. The append, seed and fn all execute as a single
// path: if fn returns an error, the executor truncates away every
// byte fn wrote (and the seed write) before the error reaches the
// caller, so a failed moment never becomes visible in the committed
// history. Freeze (via the cursor fn receives) can be called from
// inside fn to force later writes within it to copy rather than
// mutate blocks fn itself allocated earlier.
func (a *ArrayList) AppendContext(seed engine.WriteValue, fn func(*WriteCursor) error) error {
	_, err := a.cursor.WritePath(
		engine.ArrayListAppend(),
		engine.WriteData(seed),
		engine.Context(func(db *engine.Database, sp core.SlotPointer) error {
			return fn(&WriteCursor{ReadCursor{db: db, sp: sp}})
		}),
	)
	return err
}
