package edb

import "github.com/emberkv/edb/internal/core"

// Error sentinels callers match with errors.Is. They are the same
// values internal/core and internal/engine return; this package
// re-exports them under one public name so callers never import
// internal packages directly.
var (
	ErrInvalidDatabase = core.ErrInvalidDatabase
	ErrInvalidVersion  = core.ErrInvalidVersion
	ErrInvalidHashSize = core.ErrInvalidHashSize

	ErrUnexpectedTag       = core.ErrUnexpectedTag
	ErrInvalidTopLevelType = core.ErrInvalidTopLevelType
	ErrPathPartMustBeAtEnd = core.ErrPathPartMustBeAtEnd
	ErrExpectedRootNode    = core.ErrExpectedRootNode

	ErrKeyNotFound = core.ErrKeyNotFound

	ErrWriteNotAllowed      = core.ErrWriteNotAllowed
	ErrCursorNotWriteable   = core.ErrCursorNotWriteable
	ErrExpectedTxStart      = core.ErrExpectedTxStart
	ErrExpectedUnsignedLong = core.ErrExpectedUnsignedLong

	ErrKeyOffsetExceeded     = core.ErrKeyOffsetExceeded
	ErrNoAvailableSlots      = core.ErrNoAvailableSlots
	ErrMustSetNewSlotsToFull = core.ErrMustSetNewSlotsToFull
	ErrEmptySlotException    = core.ErrEmptySlotException
	ErrMaxShiftExceeded      = core.ErrMaxShiftExceeded
	ErrInvalidFormatTagSize  = core.ErrInvalidFormatTagSize

	ErrEndOfStream              = core.ErrEndOfStream
	ErrInvalidOffset            = core.ErrInvalidOffset
	ErrStreamTooLong            = core.ErrStreamTooLong
	ErrUnexpectedWriterPosition = core.ErrUnexpectedWriterPosition

	ErrUint64Overflow = core.ErrUint64Overflow
	ErrInt64Overflow  = core.ErrInt64Overflow
)
