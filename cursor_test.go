package edb

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/emberkv/edb/internal/core"
	"github.com/emberkv/edb/internal/engine"
)

func TestScalarRoundTrips(t *testing.T) {
	db := openMemDB(t)
	m, err := db.RootCursor().HashMap(false)
	require.NoError(t, err)

	cases := []struct {
		name  string
		value engine.WriteValue
		check func(t *testing.T, c *ReadCursor)
	}{
		{"uint", engine.UintValue{V: 42}, func(t *testing.T, c *ReadCursor) {
			v, err := c.ReadUint()
			require.NoError(t, err)
			require.Equal(t, uint64(42), v)
		}},
		{"int", engine.IntValue{V: -17}, func(t *testing.T, c *ReadCursor) {
			v, err := c.ReadInt()
			require.NoError(t, err)
			require.Equal(t, int64(-17), v)
		}},
		{"float", engine.FloatValue{V: 3.5}, func(t *testing.T, c *ReadCursor) {
			v, err := c.ReadFloat()
			require.NoError(t, err)
			require.True(t, v == 3.5)
		}},
		{"bytes-short", engine.BytesValue{Payload: []byte("hi")}, func(t *testing.T, c *ReadCursor) {
			b, ft, err := c.ReadBytes()
			require.NoError(t, err)
			require.Nil(t, ft)
			require.Equal(t, "hi", string(b))
		}},
		{"bytes-long", engine.BytesValue{Payload: make([]byte, 64)}, func(t *testing.T, c *ReadCursor) {
			b, _, err := c.ReadBytes()
			require.NoError(t, err)
			require.Len(t, b, 64)
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wc, err := m.GetForWrite([]byte(tc.name))
			require.NoError(t, err)
			require.NoError(t, wc.Write(tc.value))
			rc, err := m.Get([]byte(tc.name))
			require.NoError(t, err)
			tc.check(t, rc)
		})
	}
}

func TestReadWrongTagFails(t *testing.T) {
	db := openMemDB(t)
	m, err := db.RootCursor().HashMap(false)
	require.NoError(t, err)
	wc, err := m.GetForWrite([]byte("k"))
	require.NoError(t, err)
	require.NoError(t, wc.Write(engine.UintValue{V: 1}))

	rc, err := m.Get([]byte("k"))
	require.NoError(t, err)
	_, err = rc.ReadInt()
	require.ErrorIs(t, err, ErrUnexpectedTag)
}

func TestWriteIfEmptyOnlyWritesOnce(t *testing.T) {
	db := openMemDB(t)
	m, err := db.RootCursor().HashMap(false)
	require.NoError(t, err)
	wc, err := m.GetForWrite([]byte("k"))
	require.NoError(t, err)
	require.NoError(t, wc.WriteIfEmpty(engine.UintValue{V: 1}))
	wc2, err := m.GetForWrite([]byte("k"))
	require.NoError(t, err)
	require.NoError(t, wc2.WriteIfEmpty(engine.UintValue{V: 2}))

	rc, err := m.Get([]byte("k"))
	require.NoError(t, err)
	v, err := rc.ReadUint()
	require.NoError(t, err)
	require.Equal(t, uint64(1), v)
}

func TestIsEmptyReflectsUnwrittenSlot(t *testing.T) {
	db := openMemDB(t)
	m, err := db.RootCursor().HashMap(false)
	require.NoError(t, err)
	wc, err := m.GetForWrite([]byte("k"))
	require.NoError(t, err)
	require.True(t, wc.IsEmpty())
	require.NoError(t, wc.Write(engine.UintValue{V: 9}))

	rc, err := m.Get([]byte("k"))
	require.NoError(t, err)
	require.False(t, rc.IsEmpty())
}

func TestFloatBitExactness(t *testing.T) {
	db := openMemDB(t)
	m, err := db.RootCursor().HashMap(false)
	require.NoError(t, err)
	wc, err := m.GetForWrite([]byte("k"))
	require.NoError(t, err)
	require.NoError(t, wc.Write(engine.FloatValue{V: math.NaN()}))

	rc, err := m.Get([]byte("k"))
	require.NoError(t, err)
	v, err := rc.ReadFloat()
	require.NoError(t, err)
	require.True(t, math.IsNaN(v))
}

func TestRootSlotPointerTagNoneUntilInitialized(t *testing.T) {
	db := openMemDB(t)
	require.Equal(t, core.TagNone, db.RootTag())
}
