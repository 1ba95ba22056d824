package belt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/00-team/shah/binary"
	"github.com/00-team/shah/entity"
	"github.com/00-team/shah/gene"
	"github.com/00-team/shah/schema"
	"github.com/stretchr/testify/require"
)

type link struct {
	Gene   gene.Gene
	Next   gene.Gene
	Past   gene.Gene
	Buckle gene.Gene
	Flags  entity.Flags
	Growth uint64
	Value  uint64
}

func (link) Size() uint64              { return 16 + 16 + 16 + 16 + 1 + 7 + 8 + 8 }
func (l *link) GeneRef() *gene.Gene     { return &l.Gene }
func (l *link) FlagsRef() *entity.Flags { return &l.Flags }
func (l *link) GrowthRef() *uint64      { return &l.Growth }
func (l *link) NextRef() *gene.Gene     { return &l.Next }
func (l *link) PastRef() *gene.Gene     { return &l.Past }
func (l *link) BuckleRef() *gene.Gene   { return &l.Buckle }

func init() { binary.MustSize[link](88) }

func linkSchema() schema.Schema { return schema.Model("link", link{}.Size()) }

func openTestDb(t *testing.T) *Db[link, *link] {
	t.Helper()
	dir := t.TempDir()

	open := func(name string) *os.File {
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_RDWR|os.O_CREATE, 0o644)
		require.NoError(t, err)
		return f
	}

	beltStore, err := entity.New[link, *link](open("belt.shah"), "belt", 1, 1, 7, linkSchema(), entity.Options{})
	require.NoError(t, err)
	buckleStore, err := entity.New[Buckle, *Buckle](open("buckle.shah"), "buckle", 1, 1, 7, BuckleSchema(), entity.Options{})
	require.NoError(t, err)

	db := New[link, *link](beltStore, buckleStore)
	require.NoError(t, db.BuckleRoot())
	return db
}

func TestBuckleInitAndAddChain(t *testing.T) {
	db := openTestDb(t)

	buckle, err := db.BuckleInit(gene.Gene{})
	require.NoError(t, err)
	require.True(t, buckle.Gene.IsSome())

	g1, err := db.Add(buckle.Gene, link{Value: 1})
	require.NoError(t, err)
	g2, err := db.Add(buckle.Gene, link{Value: 2})
	require.NoError(t, err)

	buckle, err = db.BuckleGet(buckle.Gene)
	require.NoError(t, err)
	require.Equal(t, uint64(2), buckle.BeltCount)
	require.Equal(t, g1, buckle.Head)
	require.Equal(t, g2, buckle.Tail)

	first, err := db.Get(g1)
	require.NoError(t, err)
	require.Equal(t, g2, first.Next)

	second, err := db.Get(g2)
	require.NoError(t, err)
	require.Equal(t, g1, second.Past)
}

func TestDelRelinksNeighbors(t *testing.T) {
	db := openTestDb(t)

	buckle, err := db.BuckleInit(gene.Gene{})
	require.NoError(t, err)

	g1, err := db.Add(buckle.Gene, link{Value: 1})
	require.NoError(t, err)
	g2, err := db.Add(buckle.Gene, link{Value: 2})
	require.NoError(t, err)
	g3, err := db.Add(buckle.Gene, link{Value: 3})
	require.NoError(t, err)

	require.NoError(t, db.Del(g2))

	first, err := db.Get(g1)
	require.NoError(t, err)
	require.Equal(t, g3, first.Next)

	third, err := db.Get(g3)
	require.NoError(t, err)
	require.Equal(t, g1, third.Past)

	buckle, err = db.BuckleGet(buckle.Gene)
	require.NoError(t, err)
	require.Equal(t, uint64(2), buckle.BeltCount)
}

func TestBuckleDelCascadesBelts(t *testing.T) {
	db := openTestDb(t)

	buckle, err := db.BuckleInit(gene.Gene{})
	require.NoError(t, err)

	g1, err := db.Add(buckle.Gene, link{Value: 1})
	require.NoError(t, err)
	g2, err := db.Add(buckle.Gene, link{Value: 2})
	require.NoError(t, err)

	require.NoError(t, db.BuckleDel(buckle.Gene))

	_, err = db.Get(g1)
	require.Error(t, err)
	_, err = db.Get(g2)
	require.Error(t, err)
	_, err = db.BuckleGet(buckle.Gene)
	require.Error(t, err)
}

func TestSetPreservesChainPointers(t *testing.T) {
	db := openTestDb(t)

	buckle, err := db.BuckleInit(gene.Gene{})
	require.NoError(t, err)

	g1, err := db.Add(buckle.Gene, link{Value: 1})
	require.NoError(t, err)

	orig, err := db.Get(g1)
	require.NoError(t, err)

	updated := orig
	updated.Value = 42
	require.NoError(t, db.Set(g1, updated))

	got, err := db.Get(g1)
	require.NoError(t, err)
	require.Equal(t, uint64(42), got.Value)
	require.Equal(t, orig.Next, got.Next)
	require.Equal(t, orig.Past, got.Past)
	require.Equal(t, orig.Buckle, got.Buckle)
}
