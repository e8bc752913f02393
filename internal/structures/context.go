// Package structures implements the tree algorithms built on top of
// the core.Slot/Container primitives: the HAMT used for maps and
// sets, the radix tree used for ArrayList, and the RRB-style linked
// list used for LinkedArrayList. Each algorithm is parameterized by an
// OpContext so that transaction/copy-on-write policy stays owned by
// the path executor in internal/engine while the structural logic
// here stays transaction-agnostic and independently testable; pure
// format logic lives here while internal/engine owns allocation.
package structures

import (
	"github.com/emberkv/edb/internal/core"
)

// OpContext bundles everything a tree algorithm needs from its caller:
// the backing container, a way to allocate fresh space at end-of-file,
// and the engine's copy-on-write decision for a given existing block
// position.
type OpContext struct {
	Container core.Container

	// Allocate returns the position at which n new bytes go: the
	// current end-of-file. It writes nothing; the caller claims the
	// space by writing it (allocateZeroed writes zeros there).
	Allocate func(n int64) (int64, error)

	// NeedsCOW reports whether the block at pos was committed before
	// the current transaction started and must therefore be copied
	// rather than mutated in place.
	// A nil NeedsCOW (used by read-only callers) is treated as
	// "never copy".
	NeedsCOW func(pos int64) bool
}

func (c OpContext) needsCOW(pos int64) bool {
	if c.NeedsCOW == nil {
		return false
	}
	return c.NeedsCOW(pos)
}

// ReadSlot reads and decodes the slot at pos.
func (c OpContext) ReadSlot(pos int64) (core.Slot, error) {
	return core.ReadSlotAt(c.Container, pos)
}

// WriteSlot encodes and writes slot at pos.
func (c OpContext) WriteSlot(pos int64, s core.Slot) error {
	return core.WriteSlotAt(c.Container, pos, s)
}

// allocateZeroed allocates n bytes and fills them with zero, used for
// blocks whose all-NONE initial state is the all-zero byte pattern
// (tag NONE is 0, full bit unset, value 0).
func (c OpContext) allocateZeroed(n int64) (int64, error) {
	pos, err := c.Allocate(n)
	if err != nil {
		return 0, err
	}
	if err := c.Container.Seek(pos); err != nil {
		return 0, err
	}
	if err := c.Container.Write(make([]byte, n)); err != nil {
		return 0, err
	}
	return pos, nil
}

// AllocateEmptyIndexBlock allocates a 144-byte all-NONE radix/HAMT
// index block and returns its position.
func (c OpContext) AllocateEmptyIndexBlock() (int64, error) {
	return c.allocateZeroed(core.IndexBlockSize)
}

// copyIndexBlock duplicates a 144-byte index block to a new
// end-of-file position, returning the new position.
func (c OpContext) copyIndexBlock(oldPos int64) (int64, error) {
	buf := make([]byte, core.IndexBlockSize)
	if err := c.Container.Seek(oldPos); err != nil {
		return 0, err
	}
	if err := c.Container.ReadFully(buf); err != nil {
		return 0, err
	}
	newPos, err := c.Allocate(core.IndexBlockSize)
	if err != nil {
		return 0, err
	}
	if err := c.Container.Seek(newPos); err != nil {
		return 0, err
	}
	if err := c.Container.Write(buf); err != nil {
		return 0, err
	}
	return newPos, nil
}

// ensureFreshIndexBlock COWs blockPos if required, invoking
// writeback to repoint whatever referenced the old position, and
// returns the (possibly new) position callers should read/write
// through from now on.
func (c OpContext) ensureFreshIndexBlock(blockPos int64, writeback func(newPos int64) error) (int64, error) {
	if !c.needsCOW(blockPos) {
		return blockPos, nil
	}
	newPos, err := c.copyIndexBlock(blockPos)
	if err != nil {
		return 0, err
	}
	if err := writeback(newPos); err != nil {
		return 0, err
	}
	return newPos, nil
}
