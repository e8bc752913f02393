package edb

import (
	"testing"

	"github.com/stretchr/testify/require"

	itesting "github.com/emberkv/edb/internal/testing"
)

func TestHashSetAddContainsRemove(t *testing.T) {
	db := openMemDB(t)
	s, err := db.RootCursor().HashSet(true)
	require.NoError(t, err)

	members := itesting.RandomKeys(10)
	for _, m := range members {
		require.NoError(t, s.Add(m))
	}
	// Adding the same member twice is a no-op, not a duplicate entry.
	require.NoError(t, s.Add(members[0]))

	count, ok, err := s.Count()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(10), count)

	for _, m := range members {
		ok, err := s.Contains(m)
		require.NoError(t, err)
		require.True(t, ok)
	}

	ok2, err := s.Contains([]byte("not-a-member"))
	require.NoError(t, err)
	require.False(t, ok2)

	require.NoError(t, s.Remove(members[0]))
	ok3, err := s.Contains(members[0])
	require.NoError(t, err)
	require.False(t, ok3)

	_, ok4, err := s.Count()
	require.NoError(t, err)
	require.True(t, ok4)
}

func TestHashSetForEachVisitsEveryMember(t *testing.T) {
	db := openMemDB(t)
	s, err := db.RootCursor().HashSet(false)
	require.NoError(t, err)
	want := map[string]struct{}{"x": {}, "y": {}, "z": {}}
	for m := range want {
		require.NoError(t, s.Add([]byte(m)))
	}

	seen := map[string]struct{}{}
	require.NoError(t, s.ForEach(func(member []byte) error {
		seen[string(member)] = struct{}{}
		return nil
	}))
	require.Equal(t, want, seen)
}

func TestHashSetRemoveMissingMemberFails(t *testing.T) {
	db := openMemDB(t)
	s, err := db.RootCursor().HashSet(false)
	require.NoError(t, err)
	err = s.Remove([]byte("never-added"))
	require.ErrorIs(t, err, ErrKeyNotFound)
}
