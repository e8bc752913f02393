package edb

import (
	"github.com/emberkv/edb/internal/core"
	"github.com/emberkv/edb/internal/engine"
)

// Reader streams a BYTES/SHORT_BYTES payload's contents without
// materializing it all at once; it is a thin, position-tracking
// view over the Database's container, matching how the engine itself
// reads payloads sequentially.
type Reader struct {
	db        *engine.Database
	payload   []byte // SHORT_BYTES is always read in full; BYTES only its length-prefixed header is resolved eagerly
	base      int64  // absolute start of the out-of-line payload (BYTES only)
	inline    bool
	pos       int64 // offset within the payload, 0-based
	size      int64
	formatTag *[2]byte
}

// Reader opens a streaming reader over the addressed slot's byte
// payload.
func (c *ReadCursor) Reader() (*Reader, error) {
	s := c.sp.Slot
	switch s.Tag {
	case core.TagShortBytes:
		payload, ft := engine.DecodeShortBytes(s)
		return &Reader{inline: true, payload: payload, size: int64(len(payload)), formatTag: ft}, nil
	case core.TagBytes:
		n, err := c.db.ReadRawBytes(s.Value, 8)
		if err != nil {
			return nil, err
		}
		size := int64(0)
		for _, b := range n {
			size = size<<8 | int64(b)
		}
		var ft *[2]byte
		if s.Full {
			tagBuf, err := c.db.ReadRawBytes(s.Value+8+size, 2)
			if err != nil {
				return nil, err
			}
			ft = &[2]byte{tagBuf[0], tagBuf[1]}
		}
		return &Reader{db: c.db, base: s.Value + 8, size: size, formatTag: ft}, nil
	default:
		return nil, ErrUnexpectedTag
	}
}

// Len reports the total payload size in bytes.
func (r *Reader) Len() int64 { return r.size }

// FormatTag reports the payload's optional 2-byte format tag.
func (r *Reader) FormatTag() *[2]byte { return r.formatTag }

// Seek moves the read position; offset must be within [0, Len()].
func (r *Reader) Seek(offset int64) error {
	if offset < 0 || offset > r.size {
		return ErrInvalidOffset
	}
	r.pos = offset
	return nil
}

// Read fills dst with up to len(dst) bytes starting at the current
// position, returning the number of bytes read. Reading past Len()
// returns ErrEndOfStream rather than a short read, matching the
// container's own ReadFully contract.
func (r *Reader) Read(dst []byte) (int, error) {
	if r.pos+int64(len(dst)) > r.size {
		return 0, ErrEndOfStream
	}
	if r.inline {
		copy(dst, r.payload[r.pos:r.pos+int64(len(dst))])
		r.pos += int64(len(dst))
		return len(dst), nil
	}
	buf, err := r.db.ReadRawBytes(r.base+r.pos, len(dst))
	if err != nil {
		return 0, err
	}
	copy(dst, buf)
	r.pos += int64(len(dst))
	return len(dst), nil
}

// Writer stages a byte payload of not-yet-known length at end-of-file
// and finalizes it into a BYTES slot on Finish. Bytes are written
// directly to the container as they arrive rather than buffered in
// memory, so a caller streaming a large payload never holds the whole
// thing at once.
type Writer struct {
	cursor       *WriteCursor
	prefixPos    int64
	payloadStart int64
	pos          int64 // current write offset into the payload
	written      int64 // high-water mark of bytes written so far
	formatTag    *[2]byte
	finished     bool
}

// Writer opens a streaming writer that will finalize into the
// cursor's addressed slot. formatTag may be nil.
func (c *WriteCursor) Writer(formatTag *[2]byte) (*Writer, error) {
	if formatTag != nil {
		ft := *formatTag
		formatTag = &ft
	}
	prefixPos, err := c.db.AllocateBytes(8)
	if err != nil {
		return nil, err
	}
	return &Writer{cursor: c, prefixPos: prefixPos, payloadStart: prefixPos + 8, formatTag: formatTag}, nil
}

// Write appends p at the writer's current position, advancing it.
func (w *Writer) Write(p []byte) (int, error) {
	if w.finished {
		return 0, ErrCursorNotWriteable
	}
	if err := w.cursor.db.WriteRawBytes(w.payloadStart+w.pos, p); err != nil {
		return 0, err
	}
	w.pos += int64(len(p))
	if w.pos > w.written {
		w.written = w.pos
	}
	return len(p), nil
}

// Seek moves the write position within the already-written region;
// it cannot grow the payload by seeking beyond what Write has already
// extended it to.
func (w *Writer) Seek(offset int64) error {
	if offset < 0 || offset > w.written {
		return ErrInvalidOffset
	}
	w.pos = offset
	return nil
}

// Finish appends the optional format tag, backfills the 8-byte
// length prefix, and rewrites the addressed slot as BYTES pointing
// at the payload. It fails ErrUnexpectedWriterPosition if the
// writer's position does not sit at the end of the written payload
// (the caller seeked backward and never wrote or re-seeked forward
// to the end before calling Finish).
func (w *Writer) Finish() (*WriteCursor, error) {
	if w.finished {
		return nil, ErrCursorNotWriteable
	}
	if w.pos != w.written {
		return nil, ErrUnexpectedWriterPosition
	}
	w.finished = true
	if w.formatTag != nil {
		if err := w.cursor.db.WriteRawBytes(w.payloadStart+w.written, w.formatTag[:]); err != nil {
			return nil, err
		}
	}
	if err := w.cursor.db.WriteInt64At(w.prefixPos, w.written); err != nil {
		return nil, err
	}
	slot := core.Slot{Tag: core.TagBytes, Value: w.prefixPos, Full: w.formatTag != nil}
	return w.cursor.WritePath(engine.WriteData(engine.SlotValue{Slot: slot}))
}
