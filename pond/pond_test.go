package pond

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

type duck struct {
	Gene   gene.Gene
	Pond   gene.Gene
	Flags  entity.Flags
	Growth uint64
	Value  uint64
}

func (duck) Size() uint64               { return 16 + 16 + 1 + 7 + 8 + 8 }
func (d *duck) GeneRef() *gene.Gene      { return &d.Gene }
func (d *duck) FlagsRef() *entity.Flags  { return &d.Flags }
func (d *duck) GrowthRef() *uint64       { return &d.Growth }
func (d *duck) PondRef() *gene.Gene      { return &d.Pond }

func duckSchema() schema.Schema {
	return schema.Model("duck", duck{}.Size())
}

func openTestDb(t *testing.T) *Db[duck, *duck] {
	t.Helper()
	dir := t.TempDir()

	open := func(name string) *os.File {
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_RDWR|os.O_CREATE, 0o644)
		require.NoError(t, err)
		return f
	}

	item, err := entity.New[duck, *duck](open("item.shah"), "item", 1, 1, 7, duckSchema(), entity.Options{})
	require.NoError(t, err)
	pd, err := entity.New[Pond, *Pond](open("pond.shah"), "pond", 1, 1, 7, PondSchema(), entity.Options{})
	require.NoError(t, err)
	og, err := entity.New[Origin, *Origin](open("origin.shah"), "origin", 1, 1, 7, OriginSchema(), entity.Options{})
	require.NoError(t, err)

	db := New[duck, *duck](item, pd, og, 7)
	require.NoError(t, db.OriginRoot())
	return db
}

func TestAddGetDel(t *testing.T) {
	db := openTestDb(t)

	g, err := db.Add(gene.Root, duck{Value: 42})
	require.NoError(t, err)

	got, err := db.Get(g)
	require.NoError(t, err)
	require.Equal(t, uint64(42), got.Value)
	require.Equal(t, uint64(1), db.Count())

	require.NoError(t, db.Del(g))
	require.Equal(t, uint64(0), db.Count())
	_, err = db.Get(g)
	require.Error(t, err)
}

func TestAddFillsPageThenGrowsChain(t *testing.T) {
	db := openTestDb(t)

	genes := make([]gene.Gene, 0, PageSize+1)
	for i := 0; i < PageSize+1; i++ {
		g, err := db.Add(gene.Root, duck{Value: uint64(i)})
		require.NoError(t, err)
		genes = append(genes, g)
	}

	origin, err := db.OriginGet(gene.Root)
	require.NoError(t, err)
	require.Equal(t, uint64(2), origin.PondCount)
	require.Equal(t, uint64(PageSize+1), origin.ItemCount)

	for i, g := range genes {
		got, err := db.Get(g)
		require.NoError(t, err)
		require.Equal(t, uint64(i), got.Value)
	}
}

func TestDelRetiresEmptyPond(t *testing.T) {
	db := openTestDb(t)

	g, err := db.Add(gene.Root, duck{Value: 1})
	require.NoError(t, err)

	origin, err := db.OriginGet(gene.Root)
	require.NoError(t, err)
	require.Equal(t, uint64(1), origin.PondCount)

	require.NoError(t, db.Del(g))

	origin, err = db.OriginGet(gene.Root)
	require.NoError(t, err)
	require.Equal(t, uint64(0), origin.PondCount)

	g2, err := db.Add(gene.Root, duck{Value: 2})
	require.NoError(t, err)
	origin, err = db.OriginGet(gene.Root)
	require.NoError(t, err)
	require.Equal(t, uint64(1), origin.PondCount)

	got, err := db.Get(g2)
	require.NoError(t, err)
	require.Equal(t, uint64(2), got.Value)
}

func TestSetPreservesPondAndGrowth(t *testing.T) {
	db := openTestDb(t)

	g, err := db.Add(gene.Root, duck{Value: 1})
	require.NoError(t, err)
	orig, err := db.Get(g)
	require.NoError(t, err)

	updated := orig
	updated.Value = 99
	require.NoError(t, db.Set(g, updated))

	got, err := db.Get(g)
	require.NoError(t, err)
	require.Equal(t, uint64(99), got.Value)
	require.Equal(t, orig.Pond, got.Pond)
	require.Equal(t, orig.Growth, got.Growth)
}

func TestPondListReturnsWholePage(t *testing.T) {
	db := openTestDb(t)

	g, err := db.Add(gene.Root, duck{Value: 1})
	require.NoError(t, err)

	got, err := db.Get(g)
	require.NoError(t, err)

	_, items, err := db.PondList(got.Pond)
	require.NoError(t, err)
	require.Len(t, items, PageSize)
}

func TestOriginDelFreesAllPonds(t *testing.T) {
	db := openTestDb(t)

	for i := 0; i < PageSize+5; i++ {
		_, err := db.Add(gene.Root, duck{Value: uint64(i)})
		require.NoError(t, err)
	}

	require.NoError(t, db.OriginDel(gene.Root))
	_, err := db.OriginGet(gene.Root)
	require.Error(t, err)
}

func init() { binary.MustSize[duck](56) }
