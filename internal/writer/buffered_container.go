package writer

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/emberkv/edb/internal/core"
	"github.com/emberkv/edb/internal/utils"
)

// DefaultPageSize is the buffering granularity of BufferedContainer.
const DefaultPageSize = 4096

// BufferedContainer is a bounded write-behind window over another
// core.Container (typically a FileContainer). Writes land in an
// in-memory page cache first; a bitset.BitSet
// (github.com/bits-and-blooms/bitset) records which fixed-size pages
// are dirty. Flush pushes dirty pages to the backing container in page-index
// order and clears their bits; reads transparently merge any
// in-flight buffered bytes with on-disk bytes.
//
// Writes never flush on their own: every touched page stays buffered
// and is tracked individually until Flush. SetLength and Sync always flush first
// so a truncation or a transaction boundary never observes stale
// buffered bytes.
type BufferedContainer struct {
	under    core.Container
	pageSize int64
	pages    map[int64][]byte // pageIndex -> full pageSize buffer
	dirty    *bitset.BitSet
	pos      int64
	length   int64
}

// NewBufferedContainer wraps under in a write-behind buffer using
// pageSize-byte pages (DefaultPageSize if pageSize <= 0).
func NewBufferedContainer(under core.Container, pageSize int) *BufferedContainer {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &BufferedContainer{
		under:    under,
		pageSize: int64(pageSize),
		pages:    make(map[int64][]byte),
		dirty:    bitset.New(64),
		length:   under.Length(),
	}
}

func (b *BufferedContainer) pageIndex(offset int64) int64 { return offset / b.pageSize }
func (b *BufferedContainer) pageOffset(offset int64) int64 { return offset % b.pageSize }

// loadPage returns the in-memory buffer for pageIndex, pulling the
// current on-disk contents on first touch.
func (b *BufferedContainer) loadPage(idx int64) ([]byte, error) {
	if p, ok := b.pages[idx]; ok {
		return p, nil
	}
	page := make([]byte, b.pageSize)
	base := idx * b.pageSize
	underLen := b.under.Length()
	if base < underLen {
		n := b.pageSize
		if base+n > underLen {
			n = underLen - base
		}
		if err := b.under.Seek(base); err != nil {
			return nil, err
		}
		if err := b.under.ReadFully(page[:n]); err != nil {
			return nil, err
		}
	}
	b.pages[idx] = page
	return page, nil
}

// ReadFully implements core.Container.
func (b *BufferedContainer) ReadFully(dst []byte) error {
	if b.pos+int64(len(dst)) > b.length {
		return core.ErrEndOfStream
	}
	remaining := dst
	offset := b.pos
	for len(remaining) > 0 {
		idx := b.pageIndex(offset)
		pageOff := b.pageOffset(offset)
		n := b.pageSize - pageOff
		if n > int64(len(remaining)) {
			n = int64(len(remaining))
		}
		page, err := b.loadPage(idx)
		if err != nil {
			return err
		}
		copy(remaining[:n], page[pageOff:pageOff+n])
		remaining = remaining[n:]
		offset += n
	}
	b.pos += int64(len(dst))
	return nil
}

// Write implements core.Container.
func (b *BufferedContainer) Write(src []byte) error {
	remaining := src
	offset := b.pos
	for len(remaining) > 0 {
		idx := b.pageIndex(offset)
		pageOff := b.pageOffset(offset)
		n := b.pageSize - pageOff
		if n > int64(len(remaining)) {
			n = int64(len(remaining))
		}
		page, err := b.loadPage(idx)
		if err != nil {
			return err
		}
		copy(page[pageOff:pageOff+n], remaining[:n])
		//nolint:gosec // G115: page indices stay well within uint range for realistic file sizes
		b.dirty.Set(uint(idx))
		remaining = remaining[n:]
		offset += n
	}
	b.pos += int64(len(src))
	if b.pos > b.length {
		b.length = b.pos
	}
	return nil
}

// Seek implements core.Container.
func (b *BufferedContainer) Seek(pos int64) error {
	if pos < 0 {
		return fmt.Errorf("negative seek position %d", pos)
	}
	b.pos = pos
	return nil
}

// Position implements core.Container.
func (b *BufferedContainer) Position() int64 { return b.pos }

// Length implements core.Container.
func (b *BufferedContainer) Length() int64 { return b.length }

// SetLength implements core.Container. Flushes first, per contract.
func (b *BufferedContainer) SetLength(n int64) error {
	if n < 0 {
		return fmt.Errorf("negative length %d", n)
	}
	if err := b.Flush(); err != nil {
		return err
	}
	if err := b.under.SetLength(n); err != nil {
		return err
	}
	b.length = n
	if b.pos > n {
		b.pos = n
	}
	for idx := range b.pages {
		if idx*b.pageSize >= n {
			delete(b.pages, idx)
		}
	}
	return nil
}

// Flush pushes every dirty page to the backing container, in
// ascending page-index order, and clears the dirty bitset.
func (b *BufferedContainer) Flush() error {
	if b.length > b.under.Length() {
		if err := b.under.SetLength(b.length); err != nil {
			return utils.WrapError("buffered container grow backing length", err)
		}
	}
	for idx, ok := b.dirty.NextSet(0); ok; idx, ok = b.dirty.NextSet(idx + 1) {
		pageIdx := int64(idx)
		page := b.pages[pageIdx]
		base := pageIdx * b.pageSize
		n := b.pageSize
		if base+n > b.length {
			n = b.length - base
		}
		if n <= 0 {
			b.dirty.Clear(idx)
			continue
		}
		if err := b.under.Seek(base); err != nil {
			return err
		}
		if err := b.under.Write(page[:n]); err != nil {
			return err
		}
		b.dirty.Clear(idx)
	}
	return b.under.Flush()
}

// Sync flushes then syncs the backing container.
func (b *BufferedContainer) Sync() error {
	if err := b.Flush(); err != nil {
		return err
	}
	return b.under.Sync()
}

// Close flushes, syncs, and closes the backing container if it
// supports closing.
func (b *BufferedContainer) Close() error {
	if err := b.Sync(); err != nil {
		return err
	}
	if closer, ok := b.under.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
