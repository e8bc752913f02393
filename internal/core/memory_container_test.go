package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryContainerWriteReadRoundTrip(t *testing.T) {
	m := NewMemoryContainer()
	require.NoError(t, m.Write([]byte("hello")))
	require.Equal(t, int64(5), m.Length())

	require.NoError(t, m.Seek(0))
	buf := make([]byte, 5)
	require.NoError(t, m.ReadFully(buf))
	require.Equal(t, "hello", string(buf))
}

func TestMemoryContainerReadPastLengthFails(t *testing.T) {
	m := NewMemoryContainer()
	require.NoError(t, m.Write([]byte("ab")))
	require.NoError(t, m.Seek(0))
	err := m.ReadFully(make([]byte, 10))
	require.ErrorIs(t, err, ErrEndOfStream)
}

func TestMemoryContainerSetLengthGrowsAndShrinks(t *testing.T) {
	m := NewMemoryContainer()
	require.NoError(t, m.Write([]byte("abcdef")))

	require.NoError(t, m.SetLength(3))
	require.Equal(t, int64(3), m.Length())
	require.Equal(t, []byte("abc"), m.Bytes())

	require.NoError(t, m.SetLength(5))
	require.Equal(t, int64(5), m.Length())
	require.Equal(t, []byte{'a', 'b', 'c', 0, 0}, m.Bytes())
}

func TestSlotAtHelpersRoundTrip(t *testing.T) {
	m := NewMemoryContainer()
	require.NoError(t, m.SetLength(HeaderLength+SlotSize))

	s := Slot{Tag: TagInt, Full: true, Value: -99}
	require.NoError(t, WriteSlotAt(m, HeaderLength, s))

	got, err := ReadSlotAt(m, HeaderLength)
	require.NoError(t, err)
	require.Equal(t, s, got)
}

func TestInt64AndUint16Helpers(t *testing.T) {
	m := NewMemoryContainer()
	require.NoError(t, m.SetLength(10))
	require.NoError(t, m.Seek(0))
	require.NoError(t, WriteInt64(m, -4096))
	require.NoError(t, WriteUint16(m, 513))

	require.NoError(t, m.Seek(0))
	v, err := ReadInt64(m)
	require.NoError(t, err)
	require.Equal(t, int64(-4096), v)

	u, err := ReadUint16(m)
	require.NoError(t, err)
	require.Equal(t, uint16(513), u)
}
