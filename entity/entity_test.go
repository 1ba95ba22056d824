package entity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/00-team/shah/binary"
	"github.com/00-team/shah/gene"
	"github.com/00-team/shah/schema"
	"github.com/stretchr/testify/require"
)

type rec struct {
	Gene   gene.Gene
	Flags  Flags
	Growth uint64
	Value  uint64
}

func (rec) Size() uint64            { return 16 + 1 + 7 + 8 + 8 }
func (r *rec) GeneRef() *gene.Gene   { return &r.Gene }
func (r *rec) FlagsRef() *Flags      { return &r.Flags }
func (r *rec) GrowthRef() *uint64    { return &r.Growth }

func recSchema() schema.Schema {
	return schema.Model("rec", rec{}.Size())
}

func openTestDb(t *testing.T) *Db[rec, *rec] {
	t.Helper()
	dir := t.TempDir()
	f, err := os.OpenFile(filepath.Join(dir, "test.shah"), os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)
	db, err := New[rec, *rec](f, "test", 1, 1, 7, recSchema(), Options{})
	require.NoError(t, err)
	return db
}

func TestAddGetRoundTrip(t *testing.T) {
	db := openTestDb(t)
	g, err := db.Add(rec{Value: 42})
	require.NoError(t, err)
	require.NotZero(t, g.Id)

	got, err := db.Get(g)
	require.NoError(t, err)
	require.Equal(t, uint64(42), got.Value)
	require.Equal(t, uint64(1), db.Count())
}

func TestGetStaleGeneFails(t *testing.T) {
	db := openTestDb(t)
	g, err := db.Add(rec{Value: 1})
	require.NoError(t, err)

	require.NoError(t, db.Del(g))

	_, err = db.Get(g)
	require.Error(t, err)
}

func TestDelRecyclesSlot(t *testing.T) {
	db := openTestDb(t)
	g1, err := db.Add(rec{Value: 1})
	require.NoError(t, err)
	require.NoError(t, db.Del(g1))

	g2, err := db.Add(rec{Value: 2})
	require.NoError(t, err)

	require.Equal(t, g1.Id, g2.Id)
	require.NotEqual(t, g1.Pepper, g2.Pepper)
	require.Equal(t, uint64(1), db.Count())
}

func TestListVisitsOnlyAlive(t *testing.T) {
	db := openTestDb(t)
	g1, err := db.Add(rec{Value: 1})
	require.NoError(t, err)
	_, err = db.Add(rec{Value: 2})
	require.NoError(t, err)
	require.NoError(t, db.Del(g1))

	var seen []uint64
	require.NoError(t, db.List(func(g gene.Gene, r rec) bool {
		seen = append(seen, r.Value)
		return true
	}))
	require.Equal(t, []uint64{2}, seen)
}

func TestSetPreservesGene(t *testing.T) {
	db := openTestDb(t)
	g, err := db.Add(rec{Value: 1})
	require.NoError(t, err)
	require.NoError(t, db.Set(g, rec{Value: 99}))

	got, err := db.Get(g)
	require.NoError(t, err)
	require.Equal(t, uint64(99), got.Value)
	require.Equal(t, g, got.Gene)
}

func TestBinaryViewSize(t *testing.T) {
	var r rec
	require.Equal(t, r.Size(), uint64(len(binary.Bytes(&r))))
}

func TestGetMigratesFromKochSourceBeforeSweep(t *testing.T) {
	old := openTestDb(t)
	g, err := old.Add(rec{Value: 7})
	require.NoError(t, err)

	db := openTestDb(t)
	db.SetKoch(NewKoch(old, func(r rec) rec { return r }))

	got, err := db.Get(g)
	require.NoError(t, err)
	require.Equal(t, uint64(7), got.Value)
	require.Equal(t, uint64(1), db.Count())

	got, err = db.Get(g)
	require.NoError(t, err)
	require.Equal(t, uint64(7), got.Value)
}

func TestListMigratesFromKochSourceBeforeSweep(t *testing.T) {
	old := openTestDb(t)
	_, err := old.Add(rec{Value: 9})
	require.NoError(t, err)

	db := openTestDb(t)
	db.SetKoch(NewKoch(old, func(r rec) rec { return r }))

	var seen []uint64
	require.NoError(t, db.List(func(g gene.Gene, r rec) bool {
		seen = append(seen, r.Value)
		return true
	}))
	require.Equal(t, []uint64{9}, seen)
	require.Equal(t, uint64(1), db.Count())
}
