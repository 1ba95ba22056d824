package cloth

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/00-team/shah/belt"
	"github.com/00-team/shah/entity"
	"github.com/00-team/shah/gene"
	"github.com/stretchr/testify/require"
)

func openTestDb(t *testing.T) *Db {
	t.Helper()
	dir := t.TempDir()

	open := func(name string) *os.File {
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_RDWR|os.O_CREATE, 0o644)
		require.NoError(t, err)
		return f
	}

	beltStore, err := entity.New[Belt, *Belt](open("belt.shah"), "cloth_belt", 1, 1, 7, BeltSchema(), entity.Options{})
	require.NoError(t, err)
	buckleStore, err := entity.New[belt.Buckle, *belt.Buckle](open("buckle.shah"), "cloth_buckle", 1, 1, 7, belt.BuckleSchema(), entity.Options{})
	require.NoError(t, err)

	db := New(beltStore, buckleStore)
	require.NoError(t, db.BuckleRoot())
	return db
}

func TestSetGetShortString(t *testing.T) {
	db := openTestDb(t)
	buckle, err := db.BuckleInit(gene.Gene{})
	require.NoError(t, err)

	require.NoError(t, db.Set(buckle.Gene, "hello world"))

	got, err := db.Get(buckle.Gene)
	require.NoError(t, err)
	require.Equal(t, "hello world", got)
}

func TestSetGetMultiChunkString(t *testing.T) {
	db := openTestDb(t)
	buckle, err := db.BuckleInit(gene.Gene{})
	require.NoError(t, err)

	long := strings.Repeat("ab", ChunkSize)
	require.NoError(t, db.Set(buckle.Gene, long))

	got, err := db.Get(buckle.Gene)
	require.NoError(t, err)
	require.Equal(t, long, got)
}

func TestSetGrowsThenShrinks(t *testing.T) {
	db := openTestDb(t)
	buckle, err := db.BuckleInit(gene.Gene{})
	require.NoError(t, err)

	long := strings.Repeat("x", ChunkSize*3)
	require.NoError(t, db.Set(buckle.Gene, long))
	got, err := db.Get(buckle.Gene)
	require.NoError(t, err)
	require.Equal(t, long, got)

	require.NoError(t, db.Set(buckle.Gene, "short"))
	got, err = db.Get(buckle.Gene)
	require.NoError(t, err)
	require.Equal(t, "short", got)
}

func TestBuckleDelCascadesChunks(t *testing.T) {
	db := openTestDb(t)
	buckle, err := db.BuckleInit(gene.Gene{})
	require.NoError(t, err)

	require.NoError(t, db.Set(buckle.Gene, strings.Repeat("z", ChunkSize*2)))
	require.NoError(t, db.BuckleDel(buckle.Gene))

	_, err = db.belt.BuckleGet(buckle.Gene)
	require.Error(t, err)
}
