package structures

import (
	"bytes"

	"github.com/emberkv/edb/internal/core"
	"github.com/emberkv/edb/internal/utils"
)

// Target selects which slot of a HAMT entry a lookup resolves to.
type Target int

const (
	// TargetKVPair resolves to the KV_PAIR slot itself.
	TargetKVPair Target = iota
	// TargetKey resolves to the entry's key slot.
	TargetKey
	// TargetValue resolves to the entry's value slot.
	TargetValue
)

// digitAt returns the 4-bit digit of hash consumed at depth d,
// interpreting the digest most-significant-byte/nibble first.
func digitAt(hash []byte, depth int) (int, error) {
	byteIndex := depth / 2
	if byteIndex >= len(hash) {
		return 0, core.ErrKeyOffsetExceeded
	}
	b := hash[byteIndex]
	if depth%2 == 0 {
		return int(b >> 4), nil
	}
	return int(b & 0x0F), nil
}

// AllocateHAMTRoot allocates a fresh, empty HAMT root: a 144-byte
// all-NONE index block, optionally prefixed by an 8-byte zeroed
// population counter for counted variants.
func AllocateHAMTRoot(ctx OpContext, counted bool) (rootBlockPos int64, counterPos int64, err error) {
	if !counted {
		pos, err := ctx.AllocateEmptyIndexBlock()
		return pos, -1, err
	}
	base, err := ctx.allocateZeroed(8 + core.IndexBlockSize)
	if err != nil {
		return 0, 0, err
	}
	return base + 8, base, nil
}

func (c OpContext) bumpCounter(counterPos int64, delta int64) error {
	if counterPos < 0 {
		return nil
	}
	if err := c.Container.Seek(counterPos); err != nil {
		return err
	}
	buf := make([]byte, 8)
	if err := c.Container.ReadFully(buf); err != nil {
		return err
	}
	count := utils.Uint64(buf)
	count = uint64(int64(count) + delta)
	utils.PutUint64(buf, count)
	if err := c.Container.Seek(counterPos); err != nil {
		return err
	}
	return c.Container.Write(buf)
}

// readKVPair reads the KeyValuePair record of the given hash length
// at pos.
func (c OpContext) readKVPair(pos int64, hashLen int) (core.KeyValuePair, error) {
	buf := make([]byte, core.KeyValuePairSize(hashLen))
	if err := c.Container.Seek(pos); err != nil {
		return core.KeyValuePair{}, err
	}
	if err := c.Container.ReadFully(buf); err != nil {
		return core.KeyValuePair{}, err
	}
	return core.DecodeKeyValuePair(buf, hashLen)
}

func (c OpContext) writeKVPair(pos int64, kv core.KeyValuePair) error {
	buf := make([]byte, core.KeyValuePairSize(len(kv.Hash)))
	kv.Encode(buf)
	if err := c.Container.Seek(pos); err != nil {
		return err
	}
	return c.Container.Write(buf)
}

func (c OpContext) allocateKVPair(kv core.KeyValuePair) (int64, error) {
	buf := make([]byte, core.KeyValuePairSize(len(kv.Hash)))
	kv.Encode(buf)
	pos, err := c.Allocate(int64(len(buf)))
	if err != nil {
		return 0, err
	}
	if err := c.Container.Seek(pos); err != nil {
		return 0, err
	}
	if err := c.Container.Write(buf); err != nil {
		return 0, err
	}
	return pos, nil
}

func targetPointer(target Target, slotPos int64, kvPos int64, hashLen int, kvSlot core.Slot, kv core.KeyValuePair) core.SlotPointer {
	switch target {
	case TargetKey:
		keySlotPos := kvPos + int64(hashLen)
		return core.NewSlotPointer(keySlotPos, kv.KeySlot)
	case TargetValue:
		valueSlotPos := kvPos + int64(hashLen) + core.SlotSize
		return core.NewSlotPointer(valueSlotPos, kv.ValueSlot)
	default:
		return core.NewSlotPointer(slotPos, kvSlot)
	}
}

// HAMTGet walks the HAMT rooted at rootBlockPos to the entry for
// hash, creating it on first write-mode touch.
// It returns the SlotPointer for the requested target, whether the
// entry was newly created (isEmpty), and applies copy-on-write to
// every block it mutates or descends into. When counted is true the
// population counter at counterPos is incremented on creation.
func HAMTGet(ctx OpContext, rootBlockPos int64, counterPos int64, counted bool, hash []byte, target Target, writable bool) (core.SlotPointer, bool, error) {
	// rootBlockPos must already be fresh: the engine COWs the root
	// block (and repoints the collection's own tag slot or header
	// field) before calling HAMTGet, since only it knows how that
	// root is referenced.
	blockPos := rootBlockPos

	for depth := 0; ; depth++ {
		digit, err := digitAt(hash, depth)
		if err != nil {
			return core.SlotPointer{}, false, err
		}
		slotPos := blockPos + int64(digit)*core.SlotSize
		slot, err := ctx.ReadSlot(slotPos)
		if err != nil {
			return core.SlotPointer{}, false, err
		}

		switch {
		case slot.Empty():
			if !writable {
				return core.SlotPointer{}, false, core.ErrKeyNotFound
			}
			kv := core.KeyValuePair{Hash: hash}
			kvPos, err := ctx.allocateKVPair(kv)
			if err != nil {
				return core.SlotPointer{}, false, err
			}
			if err := ctx.WriteSlot(slotPos, core.Slot{Tag: core.TagKVPair, Value: kvPos}); err != nil {
				return core.SlotPointer{}, false, err
			}
			if counted {
				if err := ctx.bumpCounter(counterPos, 1); err != nil {
					return core.SlotPointer{}, false, err
				}
			}
			return targetPointer(target, slotPos, kvPos, len(hash), core.Slot{Tag: core.TagKVPair, Value: kvPos}, kv), true, nil

		case slot.Tag == core.TagIndex:
			childPos := slot.Value
			if writable {
				childPos, err = ctx.ensureFreshIndexBlock(childPos, func(newPos int64) error {
					return ctx.WriteSlot(slotPos, core.Slot{Tag: core.TagIndex, Value: newPos})
				})
				if err != nil {
					return core.SlotPointer{}, false, err
				}
			}
			blockPos = childPos
			continue

		case slot.Tag == core.TagKVPair:
			existing, err := ctx.readKVPair(slot.Value, len(hash))
			if err != nil {
				return core.SlotPointer{}, false, err
			}
			if bytes.Equal(existing.Hash, hash) {
				kvPos := slot.Value
				if writable {
					newKVPos, err := ctx.ensureFreshKVPair(slot.Value, existing, func(newPos int64) error {
						return ctx.WriteSlot(slotPos, core.Slot{Tag: core.TagKVPair, Value: newPos})
					})
					if err != nil {
						return core.SlotPointer{}, false, err
					}
					kvPos = newKVPos
				}
				return targetPointer(target, slotPos, kvPos, len(hash), core.Slot{Tag: core.TagKVPair, Value: kvPos}, existing), false, nil
			}
			if !writable {
				// Collision resolution only matters when growing the
				// tree; a read-only path simply doesn't find this key.
				return core.SlotPointer{}, false, core.ErrKeyNotFound
			}
			// Collision: branch one level deeper, relocating the
			// existing entry.
			newBlock, err := ctx.AllocateEmptyIndexBlock()
			if err != nil {
				return core.SlotPointer{}, false, err
			}
			existingDigit, err := digitAt(existing.Hash, depth+1)
			if err != nil {
				return core.SlotPointer{}, false, err
			}
			existingSlotPos := newBlock + int64(existingDigit)*core.SlotSize
			if err := ctx.WriteSlot(existingSlotPos, core.Slot{Tag: core.TagKVPair, Value: slot.Value}); err != nil {
				return core.SlotPointer{}, false, err
			}
			if err := ctx.WriteSlot(slotPos, core.Slot{Tag: core.TagIndex, Value: newBlock}); err != nil {
				return core.SlotPointer{}, false, err
			}
			blockPos = newBlock
			continue

		default:
			return core.SlotPointer{}, false, core.ErrUnexpectedTag
		}
	}
}

// ensureFreshKVPair COWs the KeyValuePair record at pos if required.
func (c OpContext) ensureFreshKVPair(pos int64, existing core.KeyValuePair, writeback func(newPos int64) error) (int64, error) {
	if !c.needsCOW(pos) {
		return pos, nil
	}
	newPos, err := c.allocateKVPair(existing)
	if err != nil {
		return 0, err
	}
	if err := writeback(newPos); err != nil {
		return 0, err
	}
	return newPos, nil
}

// HAMTRemove removes the entry for hash from the HAMT rooted at
// rootBlockPos, flattening any ancestor block left with a single
// KV_PAIR child. Returns core.ErrKeyNotFound
// if the key is absent.
func HAMTRemove(ctx OpContext, rootBlockPos int64, counterPos int64, counted bool, hash []byte) error {
	type frame struct {
		blockPos      int64
		parentSlotPos int64 // position, in the parent block, of the slot pointing at blockPos; -1 for the root
	}

	// rootBlockPos must already be fresh; see HAMTGet's equivalent note.
	frames := []frame{{blockPos: rootBlockPos, parentSlotPos: -1}}

	var leafSlotPos int64
	found := false
	for depth := 0; ; depth++ {
		digit, derr := digitAt(hash, depth)
		if derr != nil {
			return derr
		}
		cur := frames[len(frames)-1]
		slotPos := cur.blockPos + int64(digit)*core.SlotSize
		slot, rerr := ctx.ReadSlot(slotPos)
		if rerr != nil {
			return rerr
		}
		switch {
		case slot.Empty():
			return core.ErrKeyNotFound
		case slot.Tag == core.TagIndex:
			childPos := slot.Value
			childPos, cerr := ctx.ensureFreshIndexBlock(childPos, func(newPos int64) error {
				return ctx.WriteSlot(slotPos, core.Slot{Tag: core.TagIndex, Value: newPos})
			})
			if cerr != nil {
				return cerr
			}
			frames = append(frames, frame{blockPos: childPos, parentSlotPos: slotPos})
			continue
		case slot.Tag == core.TagKVPair:
			existing, kerr := ctx.readKVPair(slot.Value, len(hash))
			if kerr != nil {
				return kerr
			}
			if !bytes.Equal(existing.Hash, hash) {
				return core.ErrKeyNotFound
			}
			leafSlotPos = slotPos
			found = true
		default:
			return core.ErrUnexpectedTag
		}
		break
	}
	if !found {
		return core.ErrKeyNotFound
	}

	if err := ctx.WriteSlot(leafSlotPos, core.NoneSlot); err != nil {
		return err
	}
	if counted {
		if err := ctx.bumpCounter(counterPos, -1); err != nil {
			return err
		}
	}

	// Flatten ancestors left with exactly one KV_PAIR child.
	for i := len(frames) - 1; i >= 0; i-- {
		f := frames[i]
		if f.parentSlotPos < 0 {
			break // root block is never collapsed into its own container slot.
		}
		lone, loneSlot, count, err := soleNonEmptySlot(ctx, f.blockPos)
		if err != nil {
			return err
		}
		if count != 1 || loneSlot.Tag != core.TagKVPair {
			break
		}
		_ = lone
		if err := ctx.WriteSlot(f.parentSlotPos, loneSlot); err != nil {
			return err
		}
	}
	return nil
}

// soleNonEmptySlot scans a 144-byte index block and reports its one
// non-NONE slot (if there is exactly one), its position, and the
// total count of non-NONE slots found.
func soleNonEmptySlot(ctx OpContext, blockPos int64) (int64, core.Slot, int, error) {
	count := 0
	var pos int64
	var found core.Slot
	for i := 0; i < core.SlotCount; i++ {
		slotPos := blockPos + int64(i)*core.SlotSize
		slot, err := ctx.ReadSlot(slotPos)
		if err != nil {
			return 0, core.Slot{}, 0, err
		}
		if !slot.Empty() {
			count++
			pos = slotPos
			found = slot
		}
	}
	return pos, found, count, nil
}
