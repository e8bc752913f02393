package edb

import (
	"github.com/emberkv/edb/internal/core"
	"github.com/emberkv/edb/internal/engine"
)

// HashMap is a hash-array-mapped-trie keyed map. Keys are arbitrary
// byte strings hashed through the Database's configured Hasher;
// collisions are resolved by branching one level deeper rather than
// chaining, so lookup stays O(depth) even under adversarial input
// when a collision-resistant Hasher is configured.
type HashMap struct {
	cursor *WriteCursor
}

func (h *HashMap) hash(key []byte) []byte { return h.cursor.db.Hasher().Digest(key) }

// Count reports the population counter; ok is false for a
// non-counted HashMap.
func (h *HashMap) Count() (count uint64, ok bool, err error) {
	return h.cursor.HashCollectionCount()
}

// Get returns a read cursor at key's value, or ErrKeyNotFound.
func (h *HashMap) Get(key []byte) (*ReadCursor, error) {
	return h.cursor.ReadPath(engine.HashMapGet(h.hash(key), engine.TargetValue))
}

// GetKey returns a read cursor at the entry's stored key bytes
// (rather than its value), or ErrKeyNotFound.
func (h *HashMap) GetKey(key []byte) (*ReadCursor, error) {
	return h.cursor.ReadPath(engine.HashMapGet(h.hash(key), engine.TargetKey))
}

// GetKeyValuePair returns a read cursor at the entry's KVPair record
// itself, or ErrKeyNotFound.
func (h *HashMap) GetKeyValuePair(key []byte) (*ReadCursor, error) {
	return h.cursor.ReadPath(engine.HashMapGet(h.hash(key), engine.TargetKVPair))
}

// GetForWrite returns a write cursor at key's value, creating the
// entry (with an empty value slot) if it is not already present.
func (h *HashMap) GetForWrite(key []byte) (*WriteCursor, error) {
	return h.cursor.WritePath(engine.HashMapGet(h.hash(key), engine.TargetValue))
}

// Put writes value at key, creating the entry (and persisting the key
// bytes themselves into the entry's key slot) if needed.
func (h *HashMap) Put(key []byte, value engine.WriteValue) error {
	keyCursor, err := h.cursor.WritePath(engine.HashMapGet(h.hash(key), engine.TargetKey))
	if err != nil {
		return err
	}
	if err := keyCursor.Write(engine.BytesValue{Payload: key}); err != nil {
		return err
	}
	valueCursor, err := h.GetForWrite(key)
	if err != nil {
		return err
	}
	return valueCursor.Write(value)
}

// Remove deletes key's entry, or returns ErrKeyNotFound.
func (h *HashMap) Remove(key []byte) error {
	_, err := h.cursor.WritePath(engine.HashMapRemove(h.hash(key)))
	return err
}

// ForEach invokes fn for every (key, value) pair, in on-disk bucket
// order.
func (h *HashMap) ForEach(fn func(key []byte, value *ReadCursor) error) error {
	return h.cursor.ForEach(func(kv core.KeyValuePair) error {
		key, _, err := h.cursor.db.ReadBytesPayload(kv.KeySlot)
		if err != nil {
			return err
		}
		return fn(key, &ReadCursor{db: h.cursor.db, sp: core.NewSlotPointer(0, kv.ValueSlot)})
	})
}
