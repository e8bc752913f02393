// Package edb is an embedded, append-only, copy-on-write key/value
// database: every write allocates fresh space at the end of the
// backing file rather than mutating committed bytes in place, so a
// crash mid-write leaves the previously committed state intact and
// recoverable by truncation. The root of the database is either an
// ArrayList, a HashMap, or a HashSet (optionally population-counted),
// reached through a Cursor.
package edb

import (
	"go.uber.org/zap"

	"github.com/emberkv/edb/internal/core"
	"github.com/emberkv/edb/internal/engine"
	"github.com/emberkv/edb/internal/writer"
)

// OpenOption configures Open/OpenFile.
type OpenOption = engine.OpenOption

// WithLogger attaches a *zap.Logger; Open logs transaction
// begin/commit/abort and truncation through it. Omit it (or pass nil)
// to use a no-op logger.
func WithLogger(l *zap.Logger) OpenOption { return engine.WithLogger(l) }

// Database is an open, append-only key/value store.
type Database struct {
	eng *engine.Database
}

// OpenFile opens (creating if necessary) an OS file as a Database,
// using a direct (unbuffered) file container.
func OpenFile(path string, hasher core.Hasher, opts ...OpenOption) (*Database, error) {
	container, err := writer.OpenFileContainer(path)
	if err != nil {
		return nil, err
	}
	return Open(container, hasher, opts...)
}

// OpenBuffered opens (creating if necessary) an OS file as a
// Database, using a write-behind buffered container. Call Close (or
// Sync explicitly through a write path) to guarantee buffered bytes
// reach disk.
func OpenBuffered(path string, hasher core.Hasher, pageSize int, opts ...OpenOption) (*Database, error) {
	under, err := writer.OpenFileContainer(path)
	if err != nil {
		return nil, err
	}
	return Open(writer.NewBufferedContainer(under, pageSize), hasher, opts...)
}

// Open wraps an already-constructed core.Container (an OS file, a
// buffered file, or an in-memory container for tests) as a Database.
func Open(container core.Container, hasher core.Hasher, opts ...OpenOption) (*Database, error) {
	eng, err := engine.Open(container, hasher, opts...)
	if err != nil {
		return nil, err
	}
	return &Database{eng: eng}, nil
}

// Close flushes, syncs, and (if the container supports it) closes the
// backing store.
func (db *Database) Close() error { return db.eng.Close() }

// RootTag reports the current root schema: NONE until the first
// ArrayListInit/HashMapInit/HashSetInit path runs against the root
// cursor, and thereafter fixed for the life of the file.
func (db *Database) RootTag() core.Tag { return db.eng.RootTag() }

// RootCursor returns a WriteCursor addressing the database root.
func (db *Database) RootCursor() *WriteCursor {
	return &WriteCursor{ReadCursor: ReadCursor{db: db.eng, sp: db.eng.RootSlotPointer()}}
}

// Stat reports coarse size information about the open file, grounded
// in the same fixed-offset bookkeeping the engine uses for
// transaction commit and crash recovery.
type Stat struct {
	// FileSize is the container's current length in bytes; it shrinks
	// when an aborted or incomplete transaction is truncated away.
	FileSize int64
	// RootTag is the schema of the database root.
	RootTag core.Tag
}

// Stat returns current size/schema information about the database.
func (db *Database) Stat() Stat {
	return Stat{FileSize: db.eng.Length(), RootTag: db.eng.RootTag()}
}

// Freeze marks every byte written so far in the current transaction
// as committed for copy-on-write purposes: subsequent writes within
// the same transaction must copy rather than mutate blocks allocated
// earlier in it. A no-op outside a transaction. Used from inside an
// AppendContext callback to stop a structurally-shared subtree (one
// aliased in via a seed) from being mutated in place after the clone.
func (db *Database) Freeze() { db.eng.Freeze() }

// Verify walks every reachable collection from the root and reports
// the first structural inconsistency found (a tag the walker doesn't
// expect, a pointer outside the file, or similar). A nil return means
// the reachable graph is self-consistent; it does not prove every
// byte in the file is reachable.
func (db *Database) Verify() error { return db.eng.Verify() }
