package structures

import (
	"github.com/emberkv/edb/internal/core"
)

// shiftForLastIndex returns floor(log16(n)) for n >= 0, and 0 for
// n < 0 (the empty-list case): the tree depth needed so that n is a
// valid leaf index under a 16-ary radix split.
func shiftForLastIndex(n int64) int {
	if n < 0 {
		return 0
	}
	shift := 0
	for n >= core.SlotCount {
		n /= core.SlotCount
		shift++
	}
	return shift
}

func digitAtShift(key int64, level int) int {
	return int((key >> (uint(level) * core.BitCount)) & core.Mask)
}

// ResolveArrayIndex applies negative-index wraparound and bounds
// checking.
func ResolveArrayIndex(i, size int64) (int64, bool) {
	if i < 0 {
		i = size + i
	}
	if i < 0 || i >= size {
		return 0, false
	}
	return i, true
}

// RadixGet walks the radix tree rooted at header.Ptr to the leaf slot
// for key, applying copy-on-write to each block below the root along
// the way when writable is true. It never creates missing blocks (only
// copy-on-write copies); key must already be within [0, header.Size). Callers that intend to write through
// the returned pointer must use RadixGetRoot instead, which also COWs
// the root block itself.
func RadixGet(ctx OpContext, header core.ArrayListHeader, key int64, writable bool) (core.SlotPointer, error) {
	shift := shiftForLastIndex(header.Size - 1)
	blockPos := header.Ptr

	for level := shift; level >= 0; level-- {
		digit := digitAtShift(key, level)
		slotPos := blockPos + int64(digit)*core.SlotSize
		slot, err := ctx.ReadSlot(slotPos)
		if err != nil {
			return core.SlotPointer{}, err
		}
		if level == 0 {
			return core.NewSlotPointer(slotPos, slot), nil
		}
		if slot.Tag != core.TagIndex {
			if slot.Empty() {
				return core.SlotPointer{}, core.ErrKeyNotFound
			}
			return core.SlotPointer{}, core.ErrUnexpectedTag
		}
		blockPos = slot.Value
		if writable {
			parentSlotPos := slotPos
			blockPos, err = ctx.ensureFreshIndexBlock(blockPos, func(newPos int64) error {
				return ctx.WriteSlot(parentSlotPos, core.Slot{Tag: core.TagIndex, Value: newPos})
			})
			if err != nil {
				return core.SlotPointer{}, err
			}
		}
	}
	return core.SlotPointer{}, core.ErrKeyNotFound
}

// RadixGetRoot is RadixGet but additionally COWs the root block itself
// (header.Ptr) when needed, reporting the (possibly new) root position
// the caller must persist back into the header.
func RadixGetRoot(ctx OpContext, header core.ArrayListHeader, key int64, writable bool) (core.SlotPointer, int64, error) {
	rootPos := header.Ptr
	if writable {
		var err error
		rootPos, err = ctx.ensureFreshIndexBlock(rootPos, func(int64) error { return nil })
		if err != nil {
			return core.SlotPointer{}, 0, err
		}
	}
	h := header
	h.Ptr = rootPos
	sp, err := RadixGet(ctx, h, key, writable)
	return sp, rootPos, err
}

// RadixAppend appends a new (currently NONE) leaf slot at key =
// header.Size, growing the tree by one level when the new key crosses
// a shift boundary, and returns the updated header plus a pointer to
// the fresh leaf slot for the caller to fill via WriteData.
func RadixAppend(ctx OpContext, header core.ArrayListHeader) (core.ArrayListHeader, core.SlotPointer, error) {
	newKey := header.Size
	oldShift := shiftForLastIndex(header.Size - 1)
	newShift := shiftForLastIndex(newKey)

	rootPos := header.Ptr
	if header.Size == 0 {
		pos, err := ctx.AllocateEmptyIndexBlock()
		if err != nil {
			return header, core.SlotPointer{}, err
		}
		rootPos = pos
	} else if newShift > oldShift {
		// Promote: wrap the current root under a fresh top block.
		newRoot, err := ctx.AllocateEmptyIndexBlock()
		if err != nil {
			return header, core.SlotPointer{}, err
		}
		if err := ctx.WriteSlot(newRoot, core.Slot{Tag: core.TagIndex, Value: rootPos}); err != nil {
			return header, core.SlotPointer{}, err
		}
		rootPos = newRoot
	} else {
		var err error
		rootPos, err = ctx.ensureFreshIndexBlock(rootPos, func(int64) error { return nil })
		if err != nil {
			return header, core.SlotPointer{}, err
		}
	}

	blockPos := rootPos
	for level := newShift; level >= 1; level-- {
		digit := digitAtShift(newKey, level)
		slotPos := blockPos + int64(digit)*core.SlotSize
		slot, err := ctx.ReadSlot(slotPos)
		if err != nil {
			return header, core.SlotPointer{}, err
		}
		var childPos int64
		switch {
		case slot.Empty():
			childPos, err = ctx.AllocateEmptyIndexBlock()
			if err != nil {
				return header, core.SlotPointer{}, err
			}
			if err := ctx.WriteSlot(slotPos, core.Slot{Tag: core.TagIndex, Value: childPos}); err != nil {
				return header, core.SlotPointer{}, err
			}
		case slot.Tag == core.TagIndex:
			childPos = slot.Value
			childPos, err = ctx.ensureFreshIndexBlock(childPos, func(newPos int64) error {
				return ctx.WriteSlot(slotPos, core.Slot{Tag: core.TagIndex, Value: newPos})
			})
			if err != nil {
				return header, core.SlotPointer{}, err
			}
		default:
			return header, core.SlotPointer{}, core.ErrUnexpectedTag
		}
		blockPos = childPos
	}

	leafDigit := digitAtShift(newKey, 0)
	leafSlotPos := blockPos + int64(leafDigit)*core.SlotSize

	newHeader := core.ArrayListHeader{Size: newKey + 1, Ptr: rootPos}
	return newHeader, core.NewSlotPointer(leafSlotPos, core.NoneSlot), nil
}

// RadixSlice shrinks header.Size to newSize, repointing header.Ptr to
// the subtree that remains the root at the new (smaller-or-equal)
// shift. Underlying blocks beyond the new size are not reclaimed.
func RadixSlice(header core.ArrayListHeader, newSize int64, readSlot func(pos int64) (core.Slot, error)) (core.ArrayListHeader, error) {
	if newSize < 0 || newSize > header.Size {
		return header, core.ErrKeyNotFound
	}
	if newSize == 0 {
		return core.ArrayListHeader{Size: 0, Ptr: header.Ptr}, nil
	}
	oldShift := shiftForLastIndex(header.Size - 1)
	newShift := shiftForLastIndex(newSize - 1)
	ptr := header.Ptr
	for level := oldShift; level > newShift; level-- {
		slot, err := readSlot(ptr)
		if err != nil {
			return header, err
		}
		if slot.Tag != core.TagIndex {
			return header, core.ErrUnexpectedTag
		}
		ptr = slot.Value
	}
	return core.ArrayListHeader{Size: newSize, Ptr: ptr}, nil
}
