package edb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/emberkv/edb/internal/engine"
)

func newRootLinkedArrayList(t *testing.T, db *Database) *LinkedArrayList {
	t.Helper()
	// LinkedArrayList is never valid as the database root, so every
	// list in these tests lives as an element of a top-level ArrayList.
	top, err := db.RootCursor().ArrayList()
	require.NoError(t, err)
	slot, err := top.Append()
	require.NoError(t, err)
	l, err := slot.LinkedArrayList()
	require.NoError(t, err)
	return l
}

func TestLinkedArrayListInsertAtZeroOneThousandTimes(t *testing.T) {
	db := openMemDB(t)
	l := newRootLinkedArrayList(t, db)

	for i := int64(0); i < 1000; i++ {
		require.NoError(t, l.Insert(0, engine.IntValue{V: i}))
	}

	size, err := l.Len()
	require.NoError(t, err)
	require.Equal(t, int64(1000), size)

	for i := int64(0); i < 1000; i++ {
		c, err := l.Get(i)
		require.NoError(t, err)
		v, err := c.ReadInt()
		require.NoError(t, err)
		require.Equal(t, int64(999-i), v)
	}
}

func TestLinkedArrayListConcat(t *testing.T) {
	db := openMemDB(t)
	a := newRootLinkedArrayList(t, db)
	b := newRootLinkedArrayList(t, db)

	for i := int64(0); i < 5; i++ {
		require.NoError(t, a.AppendValue(engine.IntValue{V: i}))
	}
	for i := int64(5); i < 8; i++ {
		require.NoError(t, b.AppendValue(engine.IntValue{V: i}))
	}

	require.NoError(t, a.Concat(b))
	size, err := a.Len()
	require.NoError(t, err)
	require.Equal(t, int64(8), size)

	for i := int64(0); i < 8; i++ {
		c, err := a.Get(i)
		require.NoError(t, err)
		v, err := c.ReadInt()
		require.NoError(t, err)
		require.Equal(t, i, v)
	}
}

func TestLinkedArrayListSliceThenInsertRemoveRoundTrips(t *testing.T) {
	db := openMemDB(t)
	l := newRootLinkedArrayList(t, db)
	for i := int64(0); i < 10; i++ {
		require.NoError(t, l.AppendValue(engine.IntValue{V: i}))
	}

	require.NoError(t, l.Slice(2, 4))
	size, err := l.Len()
	require.NoError(t, err)
	require.Equal(t, int64(4), size)
	for i := int64(0); i < 4; i++ {
		c, err := l.Get(i)
		require.NoError(t, err)
		v, err := c.ReadInt()
		require.NoError(t, err)
		require.Equal(t, i+2, v)
	}

	require.NoError(t, l.Insert(1, engine.IntValue{V: 100}))
	require.NoError(t, l.Remove(1))

	sizeAfter, err := l.Len()
	require.NoError(t, err)
	require.Equal(t, int64(4), sizeAfter)
	for i := int64(0); i < 4; i++ {
		c, err := l.Get(i)
		require.NoError(t, err)
		v, err := c.ReadInt()
		require.NoError(t, err)
		require.Equal(t, i+2, v)
	}
}

func TestLinkedArrayListForEach(t *testing.T) {
	db := openMemDB(t)
	l := newRootLinkedArrayList(t, db)
	for i := int64(0); i < 6; i++ {
		require.NoError(t, l.AppendValue(engine.IntValue{V: i}))
	}

	var got []int64
	require.NoError(t, l.ForEach(func(i int64, elem *ReadCursor) error {
		v, err := elem.ReadInt()
		if err != nil {
			return err
		}
		got = append(got, v)
		return nil
	}))
	require.Equal(t, []int64{0, 1, 2, 3, 4, 5}, got)
}
