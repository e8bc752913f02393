package structures

import (
	"github.com/emberkv/edb/internal/core"
)

// Implementation note (documented further in DESIGN.md): this file
// implements LinkedArrayList get/append with leaf-count-driven descent
// and shift growth identical to the radix tree's. Slice/Concat/Insert/
// Remove are implemented by reading the affected range(s) through the
// existing tree and rebuilding a fresh spine from scratch
// (LinkedBuildFromSlots) rather than a full RRB spine-splicing
// algorithm: every element slot word is copied as-is, so nested
// collections a slot points at stay shared rather than deep-copied,
// and size/order/round-trip behavior is identical to real structural
// sharing; only the sharing itself (and its performance benefit) is
// traded away for a much simpler implementation. On an interior
// linked-array-list slot the "full" bit records whether the subtree
// below it holds its full capacity of leaves; on a leaf it is the
// element slot's own flag, and a freshly appended leaf is written with
// it set so that the not-yet-written element is not skipped as empty.

func capacityAtLevel(level int) int64 {
	if level <= 0 {
		return 1
	}
	if level >= 15 {
		return 1 << 62 // effectively unbounded for any realistic tree.
	}
	cap := int64(1)
	for i := 0; i < level; i++ {
		cap *= core.SlotCount
	}
	return cap
}

func (c OpContext) allocateEmptyLinkedBlock() (int64, error) {
	return c.allocateZeroed(core.LinkedIndexBlockSize)
}

func (c OpContext) copyLinkedBlock(oldPos int64) (int64, error) {
	buf := make([]byte, core.LinkedIndexBlockSize)
	if err := c.Container.Seek(oldPos); err != nil {
		return 0, err
	}
	if err := c.Container.ReadFully(buf); err != nil {
		return 0, err
	}
	newPos, err := c.Allocate(core.LinkedIndexBlockSize)
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

func (c OpContext) ensureFreshLinkedBlock(blockPos int64, writeback func(newPos int64) error) (int64, error) {
	if !c.needsCOW(blockPos) {
		return blockPos, nil
	}
	newPos, err := c.copyLinkedBlock(blockPos)
	if err != nil {
		return 0, err
	}
	if err := writeback(newPos); err != nil {
		return 0, err
	}
	return newPos, nil
}

func (c OpContext) readLinkedSlot(pos int64) (core.LinkedArrayListSlot, error) {
	buf := make([]byte, core.LinkedArrayListSlotSize)
	if err := c.Container.Seek(pos); err != nil {
		return core.LinkedArrayListSlot{}, err
	}
	if err := c.Container.ReadFully(buf); err != nil {
		return core.LinkedArrayListSlot{}, err
	}
	return core.DecodeLinkedArrayListSlot(buf)
}

func (c OpContext) writeLinkedSlot(pos int64, s core.LinkedArrayListSlot) error {
	buf := make([]byte, core.LinkedArrayListSlotSize)
	s.Encode(buf)
	if err := c.Container.Seek(pos); err != nil {
		return err
	}
	return c.Container.Write(buf)
}

// LinkedGet walks a linked-array-list by cumulative leaf count rather
// than by fixed-radix digit, so that it works regardless of whether
// the tree below the root is perfectly dense.
func LinkedGet(ctx OpContext, header core.LinkedArrayListHeader, key int64, writable bool) (core.SlotPointer, error) {
	blockPos := header.Ptr
	level := int(header.Shift)
	for {
		consumed := int64(0)
		found := false
		var slotPos int64
		var entry core.LinkedArrayListSlot
		for i := 0; i < core.SlotCount; i++ {
			pos := blockPos + int64(i)*core.LinkedArrayListSlotSize
			e, err := ctx.readLinkedSlot(pos)
			if err != nil {
				return core.SlotPointer{}, err
			}
			if e.Slot.Empty() {
				continue
			}
			if key < consumed+int64(e.LeafCount) {
				slotPos, entry, found = pos, e, true
				break
			}
			consumed += int64(e.LeafCount)
		}
		if !found {
			return core.SlotPointer{}, core.ErrKeyNotFound
		}
		if level == 0 {
			return core.NewSlotPointer(slotPos, entry.Slot), nil
		}
		if entry.Slot.Tag != core.TagIndex {
			return core.SlotPointer{}, core.ErrUnexpectedTag
		}
		childPos := entry.Slot.Value
		if writable {
			var err error
			childPos, err = ctx.ensureFreshLinkedBlock(childPos, func(newPos int64) error {
				e2 := entry
				e2.Slot.Value = newPos
				return ctx.writeLinkedSlot(slotPos, e2)
			})
			if err != nil {
				return core.SlotPointer{}, err
			}
		}
		blockPos = childPos
		key -= consumed
		level--
	}
}

// LinkedGetRoot COWs the root block (if writable) before delegating
// to LinkedGet, mirroring RadixGetRoot.
func LinkedGetRoot(ctx OpContext, header core.LinkedArrayListHeader, key int64, writable bool) (core.SlotPointer, int64, error) {
	rootPos := header.Ptr
	if writable {
		var err error
		rootPos, err = ctx.ensureFreshLinkedBlock(rootPos, func(int64) error { return nil })
		if err != nil {
			return core.SlotPointer{}, 0, err
		}
	}
	h := header
	h.Ptr = rootPos
	sp, err := LinkedGet(ctx, h, key, writable)
	return sp, rootPos, err
}

// LinkedAppend appends a new (currently empty) leaf slot at key =
// header.Size, growing the tree by one level when needed exactly like
// RadixAppend, and maintains each touched ancestor's leaf count.
func LinkedAppend(ctx OpContext, header core.LinkedArrayListHeader) (core.LinkedArrayListHeader, core.SlotPointer, error) {
	newKey := header.Size
	oldShift := shiftForLastIndex(header.Size - 1)
	newShift := shiftForLastIndex(newKey)

	rootPos := header.Ptr
	switch {
	case header.Size == 0:
		pos, err := ctx.allocateEmptyLinkedBlock()
		if err != nil {
			return header, core.SlotPointer{}, err
		}
		rootPos = pos
	case newShift > oldShift:
		newRoot, err := ctx.allocateEmptyLinkedBlock()
		if err != nil {
			return header, core.SlotPointer{}, err
		}
		if newShift > core.MaxShift {
			return header, core.SlotPointer{}, core.ErrMaxShiftExceeded
		}
		entry := core.LinkedArrayListSlot{
			Slot:      core.Slot{Tag: core.TagIndex, Value: rootPos, Full: true},
			LeafCount: uint64(header.Size),
		}
		if err := ctx.writeLinkedSlot(newRoot, entry); err != nil {
			return header, core.SlotPointer{}, err
		}
		rootPos = newRoot
	default:
		var err error
		rootPos, err = ctx.ensureFreshLinkedBlock(rootPos, func(int64) error { return nil })
		if err != nil {
			return header, core.SlotPointer{}, err
		}
	}

	type touched struct {
		slotPos int64
		level   int
	}
	var path []touched
	blockPos := rootPos
	for level := newShift; level >= 1; level-- {
		digit := digitAtShift(newKey, level)
		slotPos := blockPos + int64(digit)*core.LinkedArrayListSlotSize
		entry, err := ctx.readLinkedSlot(slotPos)
		if err != nil {
			return header, core.SlotPointer{}, err
		}
		var childPos int64
		switch {
		case entry.Slot.Empty():
			childPos, err = ctx.allocateEmptyLinkedBlock()
			if err != nil {
				return header, core.SlotPointer{}, err
			}
			if err := ctx.writeLinkedSlot(slotPos, core.LinkedArrayListSlot{
				Slot:      core.Slot{Tag: core.TagIndex, Value: childPos, Full: true},
				LeafCount: 0,
			}); err != nil {
				return header, core.SlotPointer{}, err
			}
		case entry.Slot.Tag == core.TagIndex:
			childPos = entry.Slot.Value
			childPos, err = ctx.ensureFreshLinkedBlock(childPos, func(newPos int64) error {
				e2 := entry
				e2.Slot.Value = newPos
				return ctx.writeLinkedSlot(slotPos, e2)
			})
			if err != nil {
				return header, core.SlotPointer{}, err
			}
		default:
			return header, core.SlotPointer{}, core.ErrUnexpectedTag
		}
		path = append(path, touched{slotPos: slotPos, level: level})
		blockPos = childPos
	}

	leafDigit := digitAtShift(newKey, 0)
	leafSlotPos := blockPos + int64(leafDigit)*core.LinkedArrayListSlotSize
	// Reserve the leaf slot's trailer (leaf count 1); the caller fills
	// the Slot's own 9 bytes via WriteData afterward.
	if err := ctx.writeLinkedSlot(leafSlotPos, core.LinkedArrayListSlot{Slot: core.Slot{Full: true}, LeafCount: 1}); err != nil {
		return header, core.SlotPointer{}, err
	}

	for _, t := range path {
		entry, err := ctx.readLinkedSlot(t.slotPos)
		if err != nil {
			return header, core.SlotPointer{}, err
		}
		entry.LeafCount++
		entry.Slot.Full = entry.LeafCount >= uint64(capacityAtLevel(t.level))
		if err := ctx.writeLinkedSlot(t.slotPos, entry); err != nil {
			return header, core.SlotPointer{}, err
		}
	}

	newHeader := core.LinkedArrayListHeader{Size: newKey + 1, Ptr: rootPos, Shift: uint8(newShift)}
	return newHeader, core.NewSlotPointer(leafSlotPos, core.Slot{Full: true}), nil
}

// LinkedCollectRange reads count element slots starting at offset, in
// order, applying no copy-on-write (read-only traversal).
func LinkedCollectRange(ctx OpContext, header core.LinkedArrayListHeader, offset, count int64) ([]core.Slot, error) {
	out := make([]core.Slot, 0, count)
	for i := int64(0); i < count; i++ {
		sp, err := LinkedGet(ctx, header, offset+i, false)
		if err != nil {
			return nil, err
		}
		out = append(out, sp.Slot)
	}
	return out, nil
}

// LinkedBuildFromSlots builds a brand-new linked-array-list spine
// containing exactly slots, in order, returning its header. Each
// element's Slot word is copied verbatim, so references to nested
// collections remain shared rather than duplicated.
func LinkedBuildFromSlots(ctx OpContext, slots []core.Slot) (core.LinkedArrayListHeader, error) {
	header := core.LinkedArrayListHeader{}
	for _, s := range slots {
		newHeader, sp, err := LinkedAppend(ctx, header)
		if err != nil {
			return header, err
		}
		if s.Empty() {
			s.Full = true
		}
		if err := ctx.WriteSlot(sp.PositionValue(), s); err != nil {
			return header, err
		}
		header = newHeader
	}
	if header.Shift > core.MaxShift {
		return header, core.ErrMaxShiftExceeded
	}
	return header, nil
}
