package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileHeaderEncodeDecodeRoundTrip(t *testing.T) {
	h := FileHeader{RootTag: TagHashMap, Version: CurrentVersion, HashLength: 8, HashID: 0xcafef00d}
	buf := make([]byte, HeaderLength)
	h.Encode(buf)

	// Magic bytes must be the fixed 'x', 'i', 't' signature.
	require.Equal(t, Magic[0], buf[0])
	require.Equal(t, Magic[1], buf[1])
	require.Equal(t, Magic[2], buf[2])

	got, err := DecodeFileHeader(buf)
	require.NoError(t, err)
	require.Equal(t, h, got)
}

func TestDecodeFileHeaderRejectsBadMagic(t *testing.T) {
	buf := make([]byte, HeaderLength)
	FileHeader{RootTag: TagArrayList, Version: CurrentVersion}.Encode(buf)
	buf[0] = 'z'
	_, err := DecodeFileHeader(buf)
	require.ErrorIs(t, err, ErrInvalidDatabase)
}

func TestDecodeFileHeaderRejectsFutureVersion(t *testing.T) {
	buf := make([]byte, HeaderLength)
	FileHeader{RootTag: TagArrayList, Version: CurrentVersion + 1}.Encode(buf)
	_, err := DecodeFileHeader(buf)
	require.ErrorIs(t, err, ErrInvalidVersion)
}

func TestArrayListHeaderRoundTrip(t *testing.T) {
	h := ArrayListHeader{Size: 17, Ptr: 4096}
	buf := make([]byte, ArrayListHeaderSize)
	h.Encode(buf)
	got, err := DecodeArrayListHeader(buf)
	require.NoError(t, err)
	require.Equal(t, h, got)
}

func TestArrayListHeaderRejectsNegativeFields(t *testing.T) {
	buf := make([]byte, ArrayListHeaderSize)
	ArrayListHeader{Size: -1, Ptr: 0}.Encode(buf)
	_, err := DecodeArrayListHeader(buf)
	require.ErrorIs(t, err, ErrExpectedUnsignedLong)
}

func TestTopLevelArrayListHeaderRoundTrip(t *testing.T) {
	h := TopLevelArrayListHeader{FileSize: 1024, ArrayListHeader: ArrayListHeader{Size: 3, Ptr: 36}}
	buf := make([]byte, TopLevelArrayListHeaderSize)
	h.Encode(buf)
	got, err := DecodeTopLevelArrayListHeader(buf)
	require.NoError(t, err)
	require.Equal(t, h, got)
}

func TestLinkedArrayListHeaderRoundTrip(t *testing.T) {
	h := LinkedArrayListHeader{Size: 200, Ptr: 512, Shift: 2}
	buf := make([]byte, LinkedArrayListHeaderSize)
	h.Encode(buf)
	got, err := DecodeLinkedArrayListHeader(buf)
	require.NoError(t, err)
	require.Equal(t, h, got)
}

func TestLinkedArrayListSlotRoundTrip(t *testing.T) {
	s := LinkedArrayListSlot{Slot: Slot{Tag: TagLinkedArrayList, Value: 88}, LeafCount: 12345}
	buf := make([]byte, LinkedArrayListSlotSize)
	s.Encode(buf)
	got, err := DecodeLinkedArrayListSlot(buf)
	require.NoError(t, err)
	require.Equal(t, s, got)
}

func TestKeyValuePairRoundTrip(t *testing.T) {
	kv := KeyValuePair{
		Hash:      []byte{1, 2, 3, 4, 5, 6, 7, 8},
		KeySlot:   Slot{Tag: TagShortBytes, Full: true, Value: 99},
		ValueSlot: Slot{Tag: TagUint, Value: 7},
	}
	buf := make([]byte, KeyValuePairSize(len(kv.Hash)))
	kv.Encode(buf)
	got, err := DecodeKeyValuePair(buf, len(kv.Hash))
	require.NoError(t, err)
	require.Equal(t, kv, got)
}

func TestKeyValuePairRejectsShortBuffer(t *testing.T) {
	_, err := DecodeKeyValuePair(make([]byte, 4), 8)
	require.Error(t, err)
}
