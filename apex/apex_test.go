package apex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/00-team/shah/entity"
	"github.com/00-team/shah/gene"
	"github.com/stretchr/testify/require"
)

func openTestDb(t *testing.T) *Db {
	t.Helper()
	dir := t.TempDir()
	f, err := os.OpenFile(filepath.Join(dir, "apex.shah"), os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)
	tiles, err := entity.New[Tile, *Tile](f, "apex", 1, 1, 7, TileSchema(), entity.Options{})
	require.NoError(t, err)
	return New(tiles)
}

func someGene(id uint64) gene.Gene { return gene.Gene{Id: id} }

func TestSetGetValueRoundTrip(t *testing.T) {
	db := openTestDb(t)

	c, err := NewCoords(6, 13, 27)
	require.NoError(t, err)
	g1 := someGene(42)

	old, err := db.Set(c, g1)
	require.NoError(t, err)
	require.True(t, old.IsNone())

	got, err := db.GetValue(c)
	require.NoError(t, err)
	require.Equal(t, g1, got)
}

func TestSetNoneClearsValue(t *testing.T) {
	db := openTestDb(t)

	c, err := NewCoords(6, 13, 27)
	require.NoError(t, err)
	g1 := someGene(7)

	_, err = db.Set(c, g1)
	require.NoError(t, err)

	old, err := db.Set(c, gene.Gene{})
	require.NoError(t, err)
	require.Equal(t, g1, old)

	got, err := db.GetValue(c)
	require.NoError(t, err)
	require.True(t, got.IsNone())
}

func TestSetOverwriteReturnsOld(t *testing.T) {
	db := openTestDb(t)

	c, err := NewCoords(6, 1, 1)
	require.NoError(t, err)

	_, err = db.Set(c, someGene(1))
	require.NoError(t, err)
	old, err := db.Set(c, someGene(2))
	require.NoError(t, err)
	require.Equal(t, someGene(1), old)

	got, err := db.GetValue(c)
	require.NoError(t, err)
	require.Equal(t, someGene(2), got)
}

func TestDistinctCoordsDoNotCollide(t *testing.T) {
	db := openTestDb(t)

	c1, err := NewCoords(6, 0, 0)
	require.NoError(t, err)
	c2, err := NewCoords(6, 63, 63)
	require.NoError(t, err)

	_, err = db.Set(c1, someGene(1))
	require.NoError(t, err)
	_, err = db.Set(c2, someGene(2))
	require.NoError(t, err)

	got1, err := db.GetValue(c1)
	require.NoError(t, err)
	require.Equal(t, someGene(1), got1)

	got2, err := db.GetValue(c2)
	require.NoError(t, err)
	require.Equal(t, someGene(2), got2)
}

func TestGetValueMissingCoordFails(t *testing.T) {
	db := openTestDb(t)
	c, err := NewCoords(6, 5, 5)
	require.NoError(t, err)
	_, err = db.GetValue(c)
	require.Error(t, err)
}

func TestNewCoordsRejectsOutOfRange(t *testing.T) {
	_, err := NewCoords(MaxZoom+1, 0, 0)
	require.Error(t, err)
	_, err = NewCoords(2, 4, 0)
	require.Error(t, err)
}

func TestGetDisplayBitmapReflectsSetLeaves(t *testing.T) {
	db := openTestDb(t)

	c, err := NewCoords(6, 13, 27)
	require.NoError(t, err)
	_, err = db.Set(c, someGene(9))
	require.NoError(t, err)

	data, size, err := db.GetDisplay(c)
	require.NoError(t, err)
	require.Equal(t, 1, size)
	require.Equal(t, byte(1), data[0]&1)
}

func TestGetDisplayMissingPathReturnsZeroSize(t *testing.T) {
	db := openTestDb(t)
	c, err := NewCoords(6, 13, 27)
	require.NoError(t, err)

	_, size, err := db.GetDisplay(c)
	require.NoError(t, err)
	require.Equal(t, 0, size)
}
