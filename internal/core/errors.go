package core

import "errors"

// Closed error taxonomy. These are the sentinel values the
// engine and structures packages return; the root package re-exports
// them unchanged so callers can use errors.Is against a single public
// set of names.
var (
	// Format validation.
	ErrInvalidDatabase = errors.New("edb: invalid database file")
	ErrInvalidVersion  = errors.New("edb: unsupported file version")
	ErrInvalidHashSize = errors.New("edb: hasher digest length does not match file")

	// Path/schema.
	ErrUnexpectedTag       = errors.New("edb: unexpected slot tag")
	ErrInvalidTopLevelType = errors.New("edb: invalid top-level root type")
	ErrPathPartMustBeAtEnd = errors.New("edb: path part must be the last part of the path")
	ErrExpectedRootNode    = errors.New("edb: expected root node")

	// Lookup.
	ErrKeyNotFound = errors.New("edb: key not found")

	// Permission/semantics.
	ErrWriteNotAllowed      = errors.New("edb: write not allowed in read-only mode")
	ErrCursorNotWriteable   = errors.New("edb: cursor is not writeable")
	ErrExpectedUnsignedLong = errors.New("edb: expected non-negative length")

	// ErrExpectedTxStart would fire for copy-on-write attempted outside
	// a transaction. Every top-level root (ArrayList and HashMap/HashSet
	// alike) now always opens a transaction before a top-level write
	// proceeds (see SPEC_FULL.md's root-HAMT transaction policy), so no
	// path currently reaches the condition this guards; kept for the
	// closed taxonomy in case a future root schema opts out of uniform
	// transaction framing.
	ErrExpectedTxStart = errors.New("edb: copy-on-write required outside a transaction")

	// Structural.
	ErrKeyOffsetExceeded     = errors.New("edb: ran out of hash bits while resolving key collision")
	ErrNoAvailableSlots      = errors.New("edb: no available slots in linked-array-list root")
	ErrMustSetNewSlotsToFull = errors.New("edb: new linked-array-list slots must be marked full")
	ErrEmptySlotException    = errors.New("edb: operation requires a non-empty slot")
	ErrMaxShiftExceeded      = errors.New("edb: linked-array-list shift exceeds maximum depth")
	ErrInvalidFormatTagSize  = errors.New("edb: format tag must be exactly 2 bytes")

	// Streaming.
	ErrEndOfStream              = errors.New("edb: unexpected end of stream")
	ErrInvalidOffset            = errors.New("edb: invalid stream offset")
	ErrStreamTooLong            = errors.New("edb: stream exceeds caller-supplied maximum")
	ErrUnexpectedWriterPosition = errors.New("edb: writer position does not match payload length")

	// Numeric overflow on write.
	ErrUint64Overflow = errors.New("edb: value does not fit in a 64-bit unsigned slot")
	ErrInt64Overflow  = errors.New("edb: value does not fit in a 64-bit signed slot")
)
