package structures

import "github.com/bits-and-blooms/bloom/v3"

// KeyFilter is an in-memory Bloom filter (github.com/bits-and-blooms/bloom/v3)
// that accelerates negative lookups
// against a COUNTED_HASH_MAP/COUNTED_HASH_SET before the engine walks
// the HAMT. It is never persisted: a freshly opened Database rebuilds
// it lazily, once, the first time a counted collection is touched, by
// iterating every existing key through Add and then calling
// MarkBuilt (the engine does this). Until Built reports
// true, MaybeContains always conservatively answers "maybe", so the
// filter can never introduce a false negative — it only ever saves
// HAMT walks once it has observed every key that exists.
type KeyFilter struct {
	filter *bloom.BloomFilter
	built  bool
}

// NewKeyFilter sizes a filter for roughly n expected keys at the given
// target false-positive rate.
func NewKeyFilter(n uint, falsePositiveRate float64) *KeyFilter {
	if n == 0 {
		n = 1
	}
	return &KeyFilter{filter: bloom.NewWithEstimates(n, falsePositiveRate)}
}

// Add records hash as present.
func (k *KeyFilter) Add(hash []byte) {
	k.filter.Add(hash)
}

// MarkBuilt records that every existing key has been added via Add;
// MaybeContains only starts trusting negative answers afterward.
func (k *KeyFilter) MarkBuilt() {
	k.built = true
}

// Built reports whether MarkBuilt has been called.
func (k *KeyFilter) Built() bool {
	return k.built
}

// MaybeContains reports whether hash might be a member. Before the
// filter is Built, it always returns true (a required "maybe") so the
// engine falls back to a real HAMT lookup.
func (k *KeyFilter) MaybeContains(hash []byte) bool {
	if !k.built {
		return true
	}
	return k.filter.Test(hash)
}
