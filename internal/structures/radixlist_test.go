package structures

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/emberkv/edb/internal/core"
)

func newTestOpContext(c core.Container) OpContext {
	return OpContext{
		Container: c,
		Allocate:  func(n int64) (int64, error) { return c.Length(), nil },
		NeedsCOW:  func(int64) bool { return false },
	}
}

func newRadixHeader(t *testing.T, ctx OpContext) core.ArrayListHeader {
	t.Helper()
	ptr, err := ctx.AllocateEmptyIndexBlock()
	require.NoError(t, err)
	return core.ArrayListHeader{Size: 0, Ptr: ptr}
}

func TestResolveArrayIndexHandlesNegativeAndOutOfRange(t *testing.T) {
	key, ok := ResolveArrayIndex(0, 5)
	require.True(t, ok)
	require.Equal(t, int64(0), key)

	key, ok = ResolveArrayIndex(-1, 5)
	require.True(t, ok)
	require.Equal(t, int64(4), key)

	_, ok = ResolveArrayIndex(5, 5)
	require.False(t, ok)
	_, ok = ResolveArrayIndex(-6, 5)
	require.False(t, ok)
}

func TestRadixAppendAndGetRoundTrip(t *testing.T) {
	c := core.NewMemoryContainer()
	ctx := newTestOpContext(c)
	header := newRadixHeader(t, ctx)

	for i := int64(0); i < 50; i++ {
		var err error
		header, _, err = RadixAppend(ctx, header)
		require.NoError(t, err)
	}
	require.Equal(t, int64(50), header.Size)

	for i := int64(0); i < 50; i++ {
		key, ok := ResolveArrayIndex(i, header.Size)
		require.True(t, ok)
		sp, err := RadixGet(ctx, header, key, false)
		require.NoError(t, err)
		require.True(t, sp.Slot.Empty())
	}
}

func TestRadixSliceShrinksHeader(t *testing.T) {
	c := core.NewMemoryContainer()
	ctx := newTestOpContext(c)
	header := newRadixHeader(t, ctx)
	for i := int64(0); i < 20; i++ {
		var err error
		header, _, err = RadixAppend(ctx, header)
		require.NoError(t, err)
	}

	newHeader, err := RadixSlice(header, 5, func(pos int64) (core.Slot, error) { return core.ReadSlotAt(c, pos) })
	require.NoError(t, err)
	require.Equal(t, int64(5), newHeader.Size)
}

func TestRadixGrowsShiftAcrossIndexBlockBoundary(t *testing.T) {
	c := core.NewMemoryContainer()
	ctx := newTestOpContext(c)
	header := newRadixHeader(t, ctx)

	// One index block holds 16 leaves; force growth into a second level.
	for i := int64(0); i < 20; i++ {
		var err error
		header, _, err = RadixAppend(ctx, header)
		require.NoError(t, err)
	}
	require.Equal(t, int64(20), header.Size)
	key, ok := ResolveArrayIndex(19, header.Size)
	require.True(t, ok)
	_, err := RadixGet(ctx, header, key, false)
	require.NoError(t, err)
}
