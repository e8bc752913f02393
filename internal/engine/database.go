// Package engine implements the path-executing storage engine: the
// Database type that owns a byte container and a hasher, interprets
// PathPart programs against it, and owns transaction/copy-on-write
// framing. The tree algorithms it drives live in internal/structures;
// the wire formats it reads and writes live in internal/core.
package engine

import (
	"encoding/binary"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/emberkv/edb/internal/core"
	"github.com/emberkv/edb/internal/structures"
)

// Mode selects whether a path executes read-only or read-write.
type Mode int

const (
	ModeRead Mode = iota
	ModeWrite
)

type options struct {
	logger *zap.Logger
}

// OpenOption configures Open.
type OpenOption func(*options)

// WithLogger attaches a structured logger; Open records transaction
// begin/commit/abort and truncation through it. When omitted,
// a no-op logger is used so the dependency is always exercised.
func WithLogger(l *zap.Logger) OpenOption {
	return func(o *options) { o.logger = l }
}

// Database owns a byte container and hasher for its lifetime and
// drives every read/write path against them. It is not safe for
// concurrent use: callers must serialize access.
type Database struct {
	container core.Container
	hasher    core.Hasher
	header    core.FileHeader
	txStart   int64 // -1 when no transaction is open
	logger    *zap.Logger

	// txDepth counts nested WritePath calls. A Context callback that
	// itself issues writes (e.g. HashMap.Put from inside AppendContext)
	// runs those writes through the same *Database via ordinary
	// WritePath calls; txDepth lets WritePath tell "the call that owns
	// this transaction" (depth drops back to 1 on return) from "a call
	// nested inside an active Context callback" (depth > 1), so only
	// the outermost call ever finalizes the transaction it began.
	txDepth int

	// pendingTopLevelArrayListHeader holds a top-level ArrayList's
	// updated header (size/ptr) between the PathPart that computed it
	// (ArrayListAppend/ArrayListSlice) and the transaction's actual
	// commit. The TopLevelArrayListHeader lives at a fixed, always-
	// already-committed file offset, so writing it immediately would
	// mutate bytes no truncate() can ever undo; deferring the write to
	// commitTransaction (and discarding it on abort) keeps the header
	// update itself inside the same all-or-nothing transaction as the
	// rest of the path, matching spec §4.3.1's "after the inner path
	// completes" requirement for ArrayListAppend.
	pendingTopLevelArrayListHeader *core.ArrayListHeader

	// keyFilters caches one Bloom-filter-backed negative-lookup
	// accelerator per counted HAMT collection touched so far this
	// session, keyed by the stable position of the slot that points at
	// the collection (or filterKeyTopLevel for a root collection). The
	// filter indexes hash values, not block positions, so it survives
	// copy-on-write relocation of the collection's root block.
	keyFilters map[int64]*structures.KeyFilter
}

// filterKeyTopLevel is the keyFilters key for the database root, which
// has no backing slot position of its own.
const filterKeyTopLevel = -1

func filterKeyFor(sp core.SlotPointer) int64 {
	if sp.IsTopLevel() {
		return filterKeyTopLevel
	}
	return sp.PositionValue()
}

// Open reads or initializes the file header. An empty container gets
// a fresh NONE-tag header; a non-empty one is validated (magic,
// version, hash digest length) and then truncated to its last
// committed size.
func Open(container core.Container, hasher core.Hasher, opts ...OpenOption) (*Database, error) {
	cfg := options{logger: zap.NewNop()}
	for _, o := range opts {
		o(&cfg)
	}
	db := &Database{container: container, hasher: hasher, logger: cfg.logger, txStart: -1, keyFilters: make(map[int64]*structures.KeyFilter)}

	if container.Length() == 0 {
		db.header = core.FileHeader{
			RootTag:    core.TagNone,
			Version:    core.CurrentVersion,
			HashLength: uint16(hasher.DigestLength()),
			HashID:     hasher.ID(),
		}
		buf := make([]byte, core.HeaderLength)
		db.header.Encode(buf)
		if err := db.writeBytesAt(0, buf); err != nil {
			return nil, err
		}
		if err := container.Flush(); err != nil {
			return nil, err
		}
		if err := container.Sync(); err != nil {
			return nil, err
		}
		db.logger.Debug("opened new database")
		return db, nil
	}

	buf, err := db.readBytesAt(0, core.HeaderLength)
	if err != nil {
		return nil, err
	}
	header, err := core.DecodeFileHeader(buf)
	if err != nil {
		return nil, err
	}
	if int(header.HashLength) != hasher.DigestLength() {
		return nil, core.ErrInvalidHashSize
	}
	db.header = header
	if err := db.truncate(); err != nil {
		return nil, err
	}
	db.logger.Debug("opened existing database", zap.Uint16("version", header.Version), zap.String("root_tag", header.RootTag.String()))
	return db, nil
}

// Close flushes and syncs the container, closing it if it implements
// io.Closer, combining every error it encounters (via
// go.uber.org/multierr) rather than discarding all but the first.
func (db *Database) Close() error {
	var err error
	err = multierr.Append(err, db.container.Flush())
	err = multierr.Append(err, db.container.Sync())
	if closer, ok := db.container.(interface{ Close() error }); ok {
		err = multierr.Append(err, closer.Close())
	}
	return err
}

// Hasher returns the Database's configured Hasher.
func (db *Database) Hasher() core.Hasher { return db.hasher }

// RootTag returns the current root schema tag.
func (db *Database) RootTag() core.Tag { return db.header.RootTag }

// RootSlotPointer returns the SlotPointer addressing the database
// root: a null position (not directly writable) and a slot carrying
// the root tag with value = HeaderLength.
func (db *Database) RootSlotPointer() core.SlotPointer {
	return core.SlotPointer{Position: nil, Slot: core.Slot{Tag: db.header.RootTag, Value: int64(core.HeaderLength)}}
}

func (db *Database) opctx() structures.OpContext {
	return structures.OpContext{Container: db.container, Allocate: db.allocate, NeedsCOW: db.needsCOW}
}

func (db *Database) allocate(n int64) (int64, error) {
	return db.container.Length(), nil
}

func (db *Database) needsCOW(pos int64) bool {
	return db.txStart >= 0 && pos < db.txStart
}

func (db *Database) beginTransaction() {
	if db.txStart < 0 {
		db.txStart = db.container.Length()
		db.logger.Debug("transaction begin", zap.Int64("tx_start", db.txStart))
	}
}

func (db *Database) inTransaction() bool { return db.txStart >= 0 }

// Freeze marks every byte written so far as committed for
// copy-on-write purposes, forcing subsequent writes within the same
// transaction to copy rather than mutate blocks allocated earlier in
// that same transaction.
func (db *Database) Freeze() {
	if db.txStart >= 0 {
		db.txStart = db.container.Length()
	}
}

// deferTopLevelArrayListHeader stashes h to be written to its fixed
// on-disk position when (and only when) the enclosing transaction
// commits. Called by ArrayListAppend/ArrayListSlice instead of
// writing the TopLevelArrayListHeader immediately.
func (db *Database) deferTopLevelArrayListHeader(h core.ArrayListHeader) {
	db.pendingTopLevelArrayListHeader = &h
}

func (db *Database) commitTransaction() error {
	if db.txStart < 0 {
		return nil
	}
	if db.pendingTopLevelArrayListHeader != nil {
		if err := db.writeArrayListHeaderAt(core.HeaderLength+8, *db.pendingTopLevelArrayListHeader); err != nil {
			return err
		}
		db.pendingTopLevelArrayListHeader = nil
	}
	if err := db.writeInt64At(core.HeaderLength, db.container.Length()); err != nil {
		return err
	}
	if err := db.container.Flush(); err != nil {
		return err
	}
	if err := db.container.Sync(); err != nil {
		return err
	}
	db.logger.Debug("transaction commit", zap.Int64("file_size", db.container.Length()))
	db.txStart = -1
	return nil
}

// abortTransaction discards an in-flight transaction: truncate() drops
// the uncommitted trailing bytes, and any TopLevelArrayListHeader
// deferred by ArrayListAppend/ArrayListSlice within the failed path is
// dropped rather than ever reaching disk. Called when a Context
// callback returns an error, so a failed top-level path leaves
// neither its data nor its header update visible.
func (db *Database) abortTransaction() error {
	err := db.truncate()
	db.pendingTopLevelArrayListHeader = nil
	db.txStart = -1
	return err
}

// truncate recovers from an interrupted transaction: when the root is
// an ArrayList or HAMT variant, the durable fileSize prefix is read
// and the container shrunk to it if that leaves bytes unaccounted for.
func (db *Database) truncate() error {
	if db.header.RootTag == core.TagNone {
		return nil
	}
	buf, err := db.readBytesAt(core.HeaderLength, 8)
	if err != nil {
		return err
	}
	fileSize := int64(binary.BigEndian.Uint64(buf))
	if fileSize != 0 && fileSize < db.container.Length() {
		db.logger.Debug("truncating incomplete transaction", zap.Int64("file_size", fileSize), zap.Int64("length", db.container.Length()))
		return db.container.SetLength(fileSize)
	}
	return nil
}

// ReadPath executes path in read-only mode starting from sp.
func (db *Database) ReadPath(path []PathPart, sp core.SlotPointer) (core.SlotPointer, error) {
	return db.execute(ModeRead, path, sp)
}

// WritePath executes path in read-write mode starting from sp and, if
// not already inside a transaction begun elsewhere in the same path,
// commits (or plainly syncs) on completion.
//
// A Context callback may itself call WritePath (e.g. a HashMap.Put
// issued from inside AppendContext's fn): that call runs on the same
// *Database, nested inside the still-executing outer WritePath call
// that opened the transaction. txDepth distinguishes that nested call
// (depth > 1 when it finishes) from the outermost one (depth back
// down to 1), so only the call that actually owns the transaction
// ever commits or clears it — a nested call must leave the
// transaction open for its caller's Context to still be able to
// abort it.
func (db *Database) WritePath(path []PathPart, sp core.SlotPointer) (core.SlotPointer, error) {
	db.txDepth++
	defer func() { db.txDepth-- }()
	result, err := db.execute(ModeWrite, path, sp)
	if err != nil {
		return result, err
	}
	if db.txDepth > 1 {
		return result, nil
	}
	if db.inTransaction() {
		if err := db.commitTransaction(); err != nil {
			return result, err
		}
		return result, nil
	}
	if err := db.container.Sync(); err != nil {
		return result, err
	}
	return result, nil
}

func (db *Database) execute(mode Mode, path []PathPart, sp core.SlotPointer) (core.SlotPointer, error) {
	if mode == ModeWrite && len(path) > 0 && sp.IsTopLevel() && db.header.RootTag != core.TagNone {
		db.beginTransaction()
	}
	for i, part := range path {
		if _, ok := part.(contextPart); ok && i != len(path)-1 {
			return sp, core.ErrPathPartMustBeAtEnd
		}
		next, err := part.apply(db, mode, sp)
		if err != nil {
			return sp, err
		}
		sp = next
	}
	if mode == ModeRead && sp.Slot.Empty() {
		return sp, core.ErrKeyNotFound
	}
	return sp, nil
}

// --- low-level byte/slot/header IO ---

func (db *Database) readBytesAt(pos int64, n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := db.container.Seek(pos); err != nil {
		return nil, err
	}
	if err := db.container.ReadFully(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (db *Database) writeBytesAt(pos int64, buf []byte) error {
	if err := db.container.Seek(pos); err != nil {
		return err
	}
	return db.container.Write(buf)
}

func (db *Database) readInt64At(pos int64) (int64, error) {
	buf, err := db.readBytesAt(pos, 8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(buf)), nil
}

func (db *Database) writeInt64At(pos int64, v int64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v))
	return db.writeBytesAt(pos, buf)
}

func (db *Database) readSlotAt(pos int64) (core.Slot, error) { return core.ReadSlotAt(db.container, pos) }
func (db *Database) writeSlotAt(pos int64, s core.Slot) error { return core.WriteSlotAt(db.container, pos, s) }

func (db *Database) writeHeaderTag(tag core.Tag) error {
	db.header.RootTag = tag
	buf := make([]byte, core.HeaderLength)
	db.header.Encode(buf)
	return db.writeBytesAt(0, buf)
}

func (db *Database) readArrayListHeaderAt(pos int64) (core.ArrayListHeader, error) {
	// The top-level header's own position never changes, so a pending
	// (not yet committed) update for it must be consulted here:
	// otherwise a second top-level ArrayList op in the same still-open
	// transaction (e.g. the Context callback of one AppendContext
	// issuing another path against the same history) would read the
	// stale on-disk size/ptr instead of what the current transaction
	// already computed.
	if pos == core.HeaderLength+8 && db.pendingTopLevelArrayListHeader != nil {
		return *db.pendingTopLevelArrayListHeader, nil
	}
	buf, err := db.readBytesAt(pos, core.ArrayListHeaderSize)
	if err != nil {
		return core.ArrayListHeader{}, err
	}
	return core.DecodeArrayListHeader(buf)
}

func (db *Database) writeArrayListHeaderAt(pos int64, h core.ArrayListHeader) error {
	buf := make([]byte, core.ArrayListHeaderSize)
	h.Encode(buf)
	return db.writeBytesAt(pos, buf)
}

func (db *Database) readLinkedHeaderAt(pos int64) (core.LinkedArrayListHeader, error) {
	buf, err := db.readBytesAt(pos, core.LinkedArrayListHeaderSize)
	if err != nil {
		return core.LinkedArrayListHeader{}, err
	}
	return core.DecodeLinkedArrayListHeader(buf)
}

func (db *Database) writeLinkedHeaderAt(pos int64, h core.LinkedArrayListHeader) error {
	buf := make([]byte, core.LinkedArrayListHeaderSize)
	h.Encode(buf)
	return db.writeBytesAt(pos, buf)
}

// arrayListHeaderPos resolves where an ArrayListHeader lives for sp:
// a fixed offset for the top level, or sp.Slot.Value for a nested
// ArrayList-tagged slot.
func (db *Database) arrayListHeaderPos(sp core.SlotPointer) (int64, error) {
	if sp.IsTopLevel() {
		if db.header.RootTag != core.TagArrayList {
			return 0, core.ErrUnexpectedTag
		}
		return core.HeaderLength + 8, nil
	}
	if sp.Slot.Tag != core.TagArrayList {
		return 0, core.ErrUnexpectedTag
	}
	return sp.Slot.Value, nil
}

// linkedHeaderPos resolves a LinkedArrayListHeader position; the top
// level never carries one (LinkedArrayListInit fails InvalidTopLevelType there).
func (db *Database) linkedHeaderPos(sp core.SlotPointer) (int64, error) {
	if sp.IsTopLevel() {
		return 0, core.ErrInvalidTopLevelType
	}
	if sp.Slot.Tag != core.TagLinkedArrayList {
		return 0, core.ErrUnexpectedTag
	}
	return sp.Slot.Value, nil
}

// hashBase resolves the base position of a HAMT's (optional counter +
// root block) region for sp, and whether sp addresses a hash
// collection at all.
func (db *Database) hashBase(sp core.SlotPointer) (base int64, tag core.Tag, ok bool) {
	if sp.IsTopLevel() {
		tag = db.header.RootTag
		if !tag.IsHashCollection() {
			return 0, tag, false
		}
		return core.HeaderLength + 8, tag, true
	}
	tag = sp.Slot.Tag
	if !tag.IsHashCollection() {
		return 0, tag, false
	}
	return sp.Slot.Value, tag, true
}

// keyFilterFor returns the lazily-built KeyFilter for the counted
// collection identified by filterKey, populating it from the current
// contents of rootBlockPos the first time this collection is touched
// in the session. Subsequent calls reuse the cached filter even after
// the collection's root block relocates under copy-on-write, since
// the filter only remembers hash values, not block positions.
func (db *Database) keyFilterFor(filterKey, counterPos, rootBlockPos int64) (*structures.KeyFilter, error) {
	if kf, ok := db.keyFilters[filterKey]; ok {
		return kf, nil
	}
	count, err := db.readInt64At(counterPos)
	if err != nil {
		return nil, err
	}
	kf := structures.NewKeyFilter(uint(count), 0.01)
	hashLen := db.hasher.DigestLength()
	if err := db.walkHashBlock(rootBlockPos, hashLen, func(kv core.KeyValuePair) error {
		kf.Add(kv.Hash)
		return nil
	}); err != nil {
		return nil, err
	}
	kf.MarkBuilt()
	db.keyFilters[filterKey] = kf
	return kf, nil
}

func splitHashBase(base int64, counted bool) (rootBlockPos int64, counterPos int64) {
	if counted {
		return base + 8, base
	}
	return base, -1
}

// freshenHAMTRootIfNeeded COWs a nested HAMT's (counter +) root block
// if it predates the current transaction, rewriting the parent slot
// to the new position. The top level never relocates this way: its
// root block sits at a permanently fixed offset and is always
// mutated in place, even inside the transaction a top-level HAMT write
// begins; the blocks below it follow the usual copy-on-write rules and
// the durable fileSize prefix records the commit.
func (db *Database) freshenHAMTRootIfNeeded(sp core.SlotPointer, counted bool, writable bool) (int64, error) {
	if sp.IsTopLevel() {
		return core.HeaderLength + 8, nil
	}
	base := sp.Slot.Value
	if !writable || !db.needsCOW(base) {
		return base, nil
	}
	size := core.IndexBlockSize
	if counted {
		size += 8
	}
	buf, err := db.readBytesAt(base, size)
	if err != nil {
		return 0, err
	}
	newBase, err := db.allocate(int64(size))
	if err != nil {
		return 0, err
	}
	if err := db.writeBytesAt(newBase, buf); err != nil {
		return 0, err
	}
	if err := db.writeSlotAt(sp.PositionValue(), core.Slot{Tag: sp.Slot.Tag, Value: newBase}); err != nil {
		return 0, err
	}
	return newBase, nil
}

