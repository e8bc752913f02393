package writer

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/emberkv/edb/internal/core"
)

func TestBufferedContainerReadsOwnUnflushedWrites(t *testing.T) {
	under := core.NewMemoryContainer()
	b := NewBufferedContainer(under, 8)

	require.NoError(t, b.Write([]byte("hello world")))
	require.Equal(t, int64(11), b.Length())
	require.Equal(t, int64(0), under.Length(), "nothing should reach the backing container before Flush")

	require.NoError(t, b.Seek(0))
	buf := make([]byte, 11)
	require.NoError(t, b.ReadFully(buf))
	require.Equal(t, "hello world", string(buf))
}

func TestBufferedContainerFlushPushesDirtyPagesOnly(t *testing.T) {
	under := core.NewMemoryContainer()
	b := NewBufferedContainer(under, 4)

	require.NoError(t, b.Write([]byte("0123456789"))) // spans 3 pages at pageSize=4
	require.NoError(t, b.Flush())
	require.Equal(t, int64(10), under.Length())
	require.Equal(t, "0123456789", string(under.Bytes()))
}

func TestBufferedContainerSyncFlushesThenDelegates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.edb")
	under, err := OpenFileContainer(path)
	require.NoError(t, err)
	defer under.Close()

	b := NewBufferedContainer(under, DefaultPageSize)
	require.NoError(t, b.Write([]byte("durable")))
	require.NoError(t, b.Sync())

	reopened, err := OpenFileContainer(path)
	require.NoError(t, err)
	defer reopened.Close()
	require.Equal(t, int64(7), reopened.Length())
}

func TestBufferedContainerSetLengthFlushesAndTruncates(t *testing.T) {
	under := core.NewMemoryContainer()
	b := NewBufferedContainer(under, 4)
	require.NoError(t, b.Write([]byte("abcdefgh")))

	require.NoError(t, b.SetLength(3))
	require.Equal(t, int64(3), b.Length())
	require.Equal(t, int64(3), under.Length())

	require.NoError(t, b.Seek(0))
	buf := make([]byte, 3)
	require.NoError(t, b.ReadFully(buf))
	require.Equal(t, "abc", string(buf))
}

func TestBufferedContainerReadPastLengthFails(t *testing.T) {
	under := core.NewMemoryContainer()
	b := NewBufferedContainer(under, 4)
	require.NoError(t, b.Write([]byte("ab")))
	require.NoError(t, b.Seek(0))
	err := b.ReadFully(make([]byte, 10))
	require.ErrorIs(t, err, core.ErrEndOfStream)
}
