package snake

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestDb(t *testing.T) *Db {
	t.Helper()
	dir := t.TempDir()
	data, err := os.OpenFile(filepath.Join(dir, "data.snake.shah"), os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)
	idx, err := os.OpenFile(filepath.Join(dir, "index.shah"), os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)
	db, err := New(data, idx, "test", 1)
	require.NoError(t, err)
	return db
}

func TestAllocWriteRead(t *testing.T) {
	db := openTestDb(t)
	head, err := db.Alloc(64)
	require.NoError(t, err)
	require.Equal(t, uint64(64), head.Capacity)

	n, err := db.Write(head.Gene, 0, []byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 5, n)

	buf := make([]byte, 5)
	n, err = db.Read(head.Gene, 0, buf)
	require.NoError(t, err)
	require.Equal(t, "hello", string(buf[:n]))
}

func TestWriteTruncatesAtCapacity(t *testing.T) {
	db := openTestDb(t)
	head, err := db.Alloc(4)
	require.NoError(t, err)

	n, err := db.Write(head.Gene, 0, []byte("abcdef"))
	require.NoError(t, err)
	require.Equal(t, 4, n)
}

func TestFreeThenAllocReuses(t *testing.T) {
	db := openTestDb(t)
	head, err := db.Alloc(32)
	require.NoError(t, err)
	require.NoError(t, db.Free(head.Gene))

	next, err := db.Alloc(32)
	require.NoError(t, err)
	require.Equal(t, head.Position, next.Position)
}

func TestSetLengthRejectsOverflow(t *testing.T) {
	db := openTestDb(t)
	head, err := db.Alloc(8)
	require.NoError(t, err)
	require.NoError(t, db.SetLength(head.Gene, 8))
	require.Error(t, db.SetLength(head.Gene, 9))
}
