package edb

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/emberkv/edb/internal/core"
	"github.com/emberkv/edb/internal/engine"
)

func openMemDB(t *testing.T) *Database {
	t.Helper()
	db, err := Open(core.NewMemoryContainer(), core.NewXXHasher())
	require.NoError(t, err)
	return db
}

func TestOpenEmptyArrayListRootSize(t *testing.T) {
	db := openMemDB(t)
	_, err := db.RootCursor().ArrayList()
	require.NoError(t, err)

	count, err := db.RootCursor().ArrayListLen()
	require.NoError(t, err)
	require.Equal(t, int64(0), count)
	require.Equal(t, int64(180), db.Stat().FileSize)
}

func TestHistoryTransactionsAreImmutable(t *testing.T) {
	db := openMemDB(t)
	history, err := db.RootCursor().ArrayList()
	require.NoError(t, err)

	require.NoError(t, history.AppendContext(engine.NullValue{}, func(wc *WriteCursor) error {
		m, err := wc.HashMap(false)
		if err != nil {
			return err
		}
		if err := m.Put([]byte("foo"), engine.BytesValue{Payload: []byte("foo")}); err != nil {
			return err
		}
		return m.Put([]byte("bar"), engine.BytesValue{Payload: []byte("bar")})
	}))

	first, err := history.Get(0)
	require.NoError(t, err)
	firstMap := HashMap{cursor: &WriteCursor{*first}}
	fooCursor, err := firstMap.Get([]byte("foo"))
	require.NoError(t, err)
	foo, _, err := fooCursor.ReadBytes()
	require.NoError(t, err)
	require.Equal(t, "foo", string(foo))
	require.Equal(t, core.TagShortBytes, fooCursor.Tag())

	require.NoError(t, history.AppendContext(engine.SlotValue{Slot: first.sp.Slot}, func(wc *WriteCursor) error {
		m := HashMap{cursor: wc}
		if err := m.Remove([]byte("bar")); err != nil {
			return err
		}
		age, err := m.GetForWrite([]byte("age"))
		if err != nil {
			return err
		}
		return age.Write(engine.UintValue{V: 26})
	}))

	size, err := history.Len()
	require.NoError(t, err)
	require.Equal(t, int64(2), size)

	orig, err := history.Get(0)
	require.NoError(t, err)
	origMap := HashMap{cursor: &WriteCursor{*orig}}
	_, err = origMap.Get([]byte("bar"))
	require.NoError(t, err, "history.get(0) must still contain bar after a later moment removed it")
}

func TestAbortedTransactionTruncatesAway(t *testing.T) {
	db := openMemDB(t)
	history, err := db.RootCursor().ArrayList()
	require.NoError(t, err)

	require.NoError(t, history.AppendContext(engine.NullValue{}, func(wc *WriteCursor) error {
		m, err := wc.HashMap(false)
		if err != nil {
			return err
		}
		return m.Put([]byte("k"), engine.BytesValue{Payload: []byte("v")})
	}))
	sizeBefore := db.Stat().FileSize
	countBefore, err := history.Len()
	require.NoError(t, err)

	boom := errors.New("boom")
	err = history.AppendContext(engine.NullValue{}, func(wc *WriteCursor) error {
		m, err := wc.HashMap(false)
		if err != nil {
			return err
		}
		if err := m.Put([]byte("partial"), engine.BytesValue{Payload: []byte("x")}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.Equal(t, sizeBefore, db.Stat().FileSize)
	countAfter, err := history.Len()
	require.NoError(t, err)
	require.Equal(t, countBefore, countAfter)
}

func TestCloseFlushesAndSyncsMemoryContainer(t *testing.T) {
	db := openMemDB(t)
	require.NoError(t, db.Close())
}

func TestVerifyOnPopulatedStructures(t *testing.T) {
	db := openMemDB(t)
	root, err := db.RootCursor().HashMap(true)
	require.NoError(t, err)
	require.NoError(t, root.Put([]byte("a"), engine.UintValue{V: 1}))
	require.NoError(t, root.Put([]byte("b"), engine.UintValue{V: 2}))
	require.NoError(t, db.Verify())
}
