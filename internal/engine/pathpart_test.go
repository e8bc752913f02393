package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/emberkv/edb/internal/core"
)

func TestHashMapGetPutRemoveCountedRoot(t *testing.T) {
	db := newTestDB(t)
	root, err := db.WritePath([]PathPart{HashMapInit(true, false)}, db.RootSlotPointer())
	require.NoError(t, err)

	hash := db.hasher.Digest([]byte("key-1"))
	valueSp, err := db.WritePath([]PathPart{HashMapGet(hash, TargetValue)}, root)
	require.NoError(t, err)
	_, err = db.WritePath([]PathPart{WriteData(UintValue{V: 7})}, valueSp)
	require.NoError(t, err)

	got, err := db.ReadPath([]PathPart{HashMapGet(hash, TargetValue)}, root)
	require.NoError(t, err)
	require.Equal(t, core.TagUint, got.Slot.Tag)
	require.Equal(t, int64(7), got.Slot.Value)

	count, ok, err := db.HashCollectionCount(root)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1), count)

	_, err = db.WritePath([]PathPart{HashMapRemove(hash)}, root)
	require.NoError(t, err)
	_, err = db.ReadPath([]PathPart{HashMapGet(hash, TargetValue)}, root)
	require.ErrorIs(t, err, core.ErrKeyNotFound)

	count, ok, err = db.HashCollectionCount(root)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(0), count)
}

func TestHashMapGetMissingKeyFails(t *testing.T) {
	db := newTestDB(t)
	root, err := db.WritePath([]PathPart{HashMapInit(false, false)}, db.RootSlotPointer())
	require.NoError(t, err)

	hash := db.hasher.Digest([]byte("absent"))
	_, err = db.ReadPath([]PathPart{HashMapGet(hash, TargetValue)}, root)
	require.ErrorIs(t, err, core.ErrKeyNotFound)
}

func TestKeyFilterCacheServesRepeatedLookups(t *testing.T) {
	db := newTestDB(t)
	root, err := db.WritePath([]PathPart{HashMapInit(true, false)}, db.RootSlotPointer())
	require.NoError(t, err)

	hash := db.hasher.Digest([]byte("a"))
	valueSp, err := db.WritePath([]PathPart{HashMapGet(hash, TargetValue)}, root)
	require.NoError(t, err)
	_, err = db.WritePath([]PathPart{WriteData(UintValue{V: 1})}, valueSp)
	require.NoError(t, err)

	// Negative lookup, answered through the filter built during the insert above.
	absentHash := db.hasher.Digest([]byte("nope"))
	_, err = db.ReadPath([]PathPart{HashMapGet(absentHash, TargetValue)}, root)
	require.ErrorIs(t, err, core.ErrKeyNotFound)

	// A positive lookup after the negative one still succeeds.
	got, err := db.ReadPath([]PathPart{HashMapGet(hash, TargetValue)}, root)
	require.NoError(t, err)
	require.Equal(t, int64(1), got.Slot.Value)
}

func TestArrayListInitIsIdempotentAtRoot(t *testing.T) {
	db := newTestDB(t)
	sp1, err := db.WritePath([]PathPart{ArrayListInit()}, db.RootSlotPointer())
	require.NoError(t, err)
	sp2, err := db.WritePath([]PathPart{ArrayListInit()}, db.RootSlotPointer())
	require.NoError(t, err)
	require.Equal(t, sp1.Slot, sp2.Slot)
}

func TestArrayListInitAtRootRejectsWrongExistingTag(t *testing.T) {
	db := newTestDB(t)
	_, err := db.WritePath([]PathPart{HashMapInit(false, false)}, db.RootSlotPointer())
	require.NoError(t, err)
	_, err = db.WritePath([]PathPart{ArrayListInit()}, db.RootSlotPointer())
	require.ErrorIs(t, err, core.ErrUnexpectedTag)
}

func TestReadModeRejectsWritePathPart(t *testing.T) {
	db := newTestDB(t)
	root, err := db.WritePath([]PathPart{ArrayListInit()}, db.RootSlotPointer())
	require.NoError(t, err)
	_, err = db.ReadPath([]PathPart{ArrayListAppend()}, root)
	require.ErrorIs(t, err, core.ErrWriteNotAllowed)
}
