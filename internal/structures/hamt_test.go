package structures

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/emberkv/edb/internal/core"
)

func writeValueAt(t *testing.T, c *core.MemoryContainer, sp core.SlotPointer, s core.Slot) {
	t.Helper()
	require.NoError(t, core.WriteSlotAt(c, sp.PositionValue(), s))
}

func TestHAMTPutGetRemoveUncounted(t *testing.T) {
	c := core.NewMemoryContainer()
	ctx := newTestOpContext(c)
	rootBlockPos, _, err := AllocateHAMTRoot(ctx, false)
	require.NoError(t, err)

	hash := []byte{0x12, 0x34, 0x56, 0x78}
	sp, isEmpty, err := HAMTGet(ctx, rootBlockPos, -1, false, hash, TargetValue, true)
	require.NoError(t, err)
	require.True(t, isEmpty)
	writeValueAt(t, c, sp, core.Slot{Tag: core.TagUint, Value: 99})

	got, _, err := HAMTGet(ctx, rootBlockPos, -1, false, hash, TargetValue, false)
	require.NoError(t, err)
	require.Equal(t, int64(99), got.Slot.Value)

	require.NoError(t, HAMTRemove(ctx, rootBlockPos, -1, false, hash))
	_, _, err = HAMTGet(ctx, rootBlockPos, -1, false, hash, TargetValue, false)
	require.ErrorIs(t, err, core.ErrKeyNotFound)
}

func TestHAMTCountedPopulationCounter(t *testing.T) {
	c := core.NewMemoryContainer()
	ctx := newTestOpContext(c)
	rootBlockPos, counterPos, err := AllocateHAMTRoot(ctx, true)
	require.NoError(t, err)

	for i, h := range [][]byte{{0x01, 0x00}, {0x02, 0x00}, {0x03, 0x00}} {
		sp, isEmpty, err := HAMTGet(ctx, rootBlockPos, counterPos, true, h, TargetValue, true)
		require.NoError(t, err)
		require.True(t, isEmpty)
		writeValueAt(t, c, sp, core.Slot{Tag: core.TagUint, Value: int64(i)})
	}

	count, err := core.ReadInt64(sliceContainerAt(c, counterPos))
	require.NoError(t, err)
	require.Equal(t, int64(3), count)

	require.NoError(t, HAMTRemove(ctx, rootBlockPos, counterPos, true, []byte{0x01, 0x00}))
	count, err = core.ReadInt64(sliceContainerAt(c, counterPos))
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
}

// sliceContainerAt seeks c to pos and returns it, for reading a
// scalar field back out with the core helpers.
func sliceContainerAt(c *core.MemoryContainer, pos int64) *core.MemoryContainer {
	_ = c.Seek(pos)
	return c
}

func TestHAMTCollidingHashesBothSurviveAndFlattenOnRemove(t *testing.T) {
	c := core.NewMemoryContainer()
	ctx := newTestOpContext(c)
	rootBlockPos, counterPos, err := AllocateHAMTRoot(ctx, true)
	require.NoError(t, err)

	// Two distinct keys/hashes that share every nibble up to the last
	// one: forces HAMT descent to deepen a level before it can tell
	// them apart.
	h1 := []byte{0xAB, 0xCD, 0x01}
	h2 := []byte{0xAB, 0xCD, 0x02}

	sp1, isEmpty, err := HAMTGet(ctx, rootBlockPos, counterPos, true, h1, TargetValue, true)
	require.NoError(t, err)
	require.True(t, isEmpty)
	writeValueAt(t, c, sp1, core.Slot{Tag: core.TagUint, Value: 1})

	sp2, isEmpty, err := HAMTGet(ctx, rootBlockPos, counterPos, true, h2, TargetValue, true)
	require.NoError(t, err)
	require.True(t, isEmpty)
	writeValueAt(t, c, sp2, core.Slot{Tag: core.TagUint, Value: 2})

	got1, _, err := HAMTGet(ctx, rootBlockPos, counterPos, true, h1, TargetValue, false)
	require.NoError(t, err)
	require.Equal(t, int64(1), got1.Slot.Value)
	got2, _, err := HAMTGet(ctx, rootBlockPos, counterPos, true, h2, TargetValue, false)
	require.NoError(t, err)
	require.Equal(t, int64(2), got2.Slot.Value)

	require.NoError(t, HAMTRemove(ctx, rootBlockPos, counterPos, true, h1))
	_, _, err = HAMTGet(ctx, rootBlockPos, counterPos, true, h1, TargetValue, false)
	require.ErrorIs(t, err, core.ErrKeyNotFound)
	got2again, _, err := HAMTGet(ctx, rootBlockPos, counterPos, true, h2, TargetValue, false)
	require.NoError(t, err)
	require.Equal(t, int64(2), got2again.Slot.Value)
}
