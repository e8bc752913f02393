package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlotEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Slot{
		{Tag: TagNone, Full: false, Value: 0},
		{Tag: TagNone, Full: true, Value: 0},
		{Tag: TagUint, Full: false, Value: 42},
		{Tag: TagInt, Full: false, Value: -7},
		{Tag: TagBytes, Full: true, Value: 1 << 40},
		{Tag: TagCountedHashSet, Full: true, Value: -1},
	}
	for _, s := range cases {
		buf := make([]byte, SlotSize)
		s.Encode(buf)
		got, err := DecodeSlot(buf)
		require.NoError(t, err)
		require.Equal(t, s, got)
	}
}

func TestSlotEmpty(t *testing.T) {
	require.True(t, Slot{}.Empty())
	require.True(t, NoneSlot.Empty())
	require.False(t, Slot{Tag: TagNone, Full: true}.Empty())
	require.False(t, Slot{Tag: TagUint}.Empty())
}

func TestDecodeSlotRejectsInvalidTag(t *testing.T) {
	buf := make([]byte, SlotSize)
	buf[0] = byte(maxTag) + 1
	_, err := DecodeSlot(buf)
	require.Error(t, err)
}

func TestDecodeSlotRejectsShortBuffer(t *testing.T) {
	_, err := DecodeSlot(make([]byte, SlotSize-1))
	require.Error(t, err)
}

func TestSlotPointerTopLevel(t *testing.T) {
	root := SlotPointer{Position: nil, Slot: Slot{Tag: TagArrayList, Value: HeaderLength}}
	require.True(t, root.IsTopLevel())
	require.Panics(t, func() { root.PositionValue() })

	nested := NewSlotPointer(200, Slot{Tag: TagUint, Value: 5})
	require.False(t, nested.IsTopLevel())
	require.Equal(t, int64(200), nested.PositionValue())
}
