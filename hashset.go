package edb

import (
	"errors"

	"github.com/emberkv/edb/internal/core"
	"github.com/emberkv/edb/internal/engine"
)

// HashSet is a HashMap restricted to membership: each entry's key
// slot holds the member's bytes and its value slot goes unused.
type HashSet struct {
	cursor *WriteCursor
}

func (s *HashSet) hash(member []byte) []byte { return s.cursor.db.Hasher().Digest(member) }

// Count reports the population counter; ok is false for a
// non-counted HashSet.
func (s *HashSet) Count() (count uint64, ok bool, err error) {
	return s.cursor.HashCollectionCount()
}

// Contains reports whether member is in the set.
func (s *HashSet) Contains(member []byte) (bool, error) {
	_, err := s.cursor.ReadPath(engine.HashMapGet(s.hash(member), engine.TargetKVPair))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}
	return false, err
}

// Add inserts member, a no-op if it is already present.
func (s *HashSet) Add(member []byte) error {
	keyCursor, err := s.cursor.WritePath(engine.HashMapGet(s.hash(member), engine.TargetKey))
	if err != nil {
		return err
	}
	return keyCursor.Write(engine.BytesValue{Payload: member})
}

// Remove deletes member, or returns ErrKeyNotFound.
func (s *HashSet) Remove(member []byte) error {
	_, err := s.cursor.WritePath(engine.HashMapRemove(s.hash(member)))
	return err
}

// ForEach invokes fn for every member, in on-disk bucket order.
func (s *HashSet) ForEach(fn func(member []byte) error) error {
	return s.cursor.ForEach(func(kv core.KeyValuePair) error {
		member, _, err := s.cursor.db.ReadBytesPayload(kv.KeySlot)
		if err != nil {
			return err
		}
		return fn(member)
	})
}
