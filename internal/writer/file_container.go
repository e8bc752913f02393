// Package writer provides the mutable, OS-file-backed side of the
// byte container contract: a direct unbuffered implementation and a
// buffered write-behind implementation, kept separate from the
// pure-parsing internal/core package.
package writer

import (
	"fmt"
	"os"

	"github.com/emberkv/edb/internal/core"
	"github.com/emberkv/edb/internal/utils"
)

// FileContainer is a direct, unbuffered core.Container backed by an
// *os.File. Every Write/ReadFully goes straight to the OS; Flush is a
// no-op (there is no userspace buffer to push) and Sync calls
// (*os.File).Sync().
type FileContainer struct {
	file   *os.File
	pos    int64
	length int64
}

// OpenFileContainer opens (creating if necessary) filename as a
// FileContainer.
func OpenFileContainer(filename string) (*FileContainer, error) {
	//nolint:gosec // G304: caller-provided path is intentional for an embedded database file
	f, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, utils.WrapError("open file container", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, utils.WrapError("stat file container", err)
	}
	return &FileContainer{file: f, length: info.Size()}, nil
}

// ReadFully implements core.Container.
func (c *FileContainer) ReadFully(dst []byte) error {
	if c.pos+int64(len(dst)) > c.length {
		return core.ErrEndOfStream
	}
	n, err := c.file.ReadAt(dst, c.pos)
	if err != nil && n < len(dst) {
		return utils.WrapError("file container read", err)
	}
	c.pos += int64(n)
	return nil
}

// Write implements core.Container.
func (c *FileContainer) Write(src []byte) error {
	n, err := c.file.WriteAt(src, c.pos)
	if err != nil {
		return utils.WrapError("file container write", err)
	}
	if n != len(src) {
		return fmt.Errorf("file container short write: wrote %d of %d bytes", n, len(src))
	}
	c.pos += int64(n)
	if c.pos > c.length {
		c.length = c.pos
	}
	return nil
}

// Seek implements core.Container.
func (c *FileContainer) Seek(pos int64) error {
	if pos < 0 {
		return fmt.Errorf("negative seek position %d", pos)
	}
	c.pos = pos
	return nil
}

// Position implements core.Container.
func (c *FileContainer) Position() int64 { return c.pos }

// Length implements core.Container.
func (c *FileContainer) Length() int64 { return c.length }

// SetLength implements core.Container.
func (c *FileContainer) SetLength(n int64) error {
	if n < 0 {
		return fmt.Errorf("negative length %d", n)
	}
	if err := c.file.Truncate(n); err != nil {
		return utils.WrapError("file container truncate", err)
	}
	c.length = n
	if c.pos > n {
		c.pos = n
	}
	return nil
}

// Flush implements core.Container; unbuffered writes need no flush.
func (c *FileContainer) Flush() error { return nil }

// Sync implements core.Container.
func (c *FileContainer) Sync() error {
	if err := c.file.Sync(); err != nil {
		return utils.WrapError("file container sync", err)
	}
	return nil
}

// Close closes the underlying OS file handle.
func (c *FileContainer) Close() error {
	return c.file.Close()
}
