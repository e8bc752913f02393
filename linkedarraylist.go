package edb

import "github.com/emberkv/edb/internal/engine"

// LinkedArrayList is an RRB-style array: like ArrayList but also
// supports Insert/Remove at arbitrary positions and Concat with
// another LinkedArrayList. It is never valid as the database root.
type LinkedArrayList struct {
	cursor *WriteCursor
}

// Len reports the current element count.
func (l *LinkedArrayList) Len() (int64, error) { return l.cursor.LinkedArrayListLen() }

// Get returns a read cursor at index i.
func (l *LinkedArrayList) Get(i int64) (*ReadCursor, error) {
	return l.cursor.ReadPath(engine.LinkedArrayListGet(i))
}

// GetForWrite returns a write cursor at index i.
func (l *LinkedArrayList) GetForWrite(i int64) (*WriteCursor, error) {
	return l.cursor.WritePath(engine.LinkedArrayListGet(i))
}

// Append grows the list by one element and returns a write cursor at
// the new slot.
func (l *LinkedArrayList) Append() (*WriteCursor, error) {
	return l.cursor.WritePath(engine.LinkedArrayListAppend())
}

// AppendValue appends value as a new element in one call.
func (l *LinkedArrayList) AppendValue(value engine.WriteValue) error {
	next, err := l.Append()
	if err != nil {
		return err
	}
	return next.Write(value)
}

// ForEach invokes fn for every element in index order, stopping at
// the first error fn returns.
func (l *LinkedArrayList) ForEach(fn func(i int64, elem *ReadCursor) error) error {
	size, err := l.Len()
	if err != nil {
		return err
	}
	for i := int64(0); i < size; i++ {
		elem, err := l.Get(i)
		if err != nil {
			return err
		}
		if err := fn(i, elem); err != nil {
			return err
		}
	}
	return nil
}

// Slice replaces the list's contents with the size elements starting
// at offset.
func (l *LinkedArrayList) Slice(offset, size int64) error {
	_, err := l.cursor.WritePath(engine.LinkedArrayListSlice(offset, size))
	return err
}

// Concat appends other's elements after this list's own.
func (l *LinkedArrayList) Concat(other *LinkedArrayList) error {
	_, err := l.cursor.WritePath(engine.LinkedArrayListConcat(other.cursor.sp.Slot))
	return err
}

// Insert inserts value at index i, shifting later elements up by one.
func (l *LinkedArrayList) Insert(i int64, value engine.WriteValue) error {
	_, err := l.cursor.WritePath(engine.LinkedArrayListInsert(i, value))
	return err
}

// Remove deletes the element at index i, shifting later elements
// down by one.
func (l *LinkedArrayList) Remove(i int64) error {
	_, err := l.cursor.WritePath(engine.LinkedArrayListRemove(i))
	return err
}
