// Package testing provides small key generators shared by this
// module's test suites; it intentionally holds no test files
// of its own.
package testing

import "github.com/google/uuid"

// RandomKey returns a fresh 16-byte UUID to use as a HashMap/HashSet
// key in tests that don't care about a specific key value, only that
// it is unique.
func RandomKey() []byte {
	id := uuid.New()
	return id[:]
}

// RandomKeys returns n distinct UUID-backed keys.
func RandomKeys(n int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = RandomKey()
	}
	return out
}
