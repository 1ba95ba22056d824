package apex

import (
	"sync"

	"github.com/00-team/shah/entity"
	"github.com/00-team/shah/errs"
	"github.com/00-team/shah/gene"
	"github.com/00-team/shah/xlog"
)

// Db is a quadtree index backed by one entity store of Tile records,
// chained Len deep from the well-known root tile (gene.Root). Grounded
// on db/apex/api.rs's ApexDb.
type Db struct {
	mu    sync.Mutex
	tiles *entity.Db[Tile, *Tile]
	log   xlog.Logger
}

// New wraps an already-open tile store as an apex index.
func New(tiles *entity.Db[Tile, *Tile]) *Db {
	return &Db{tiles: tiles, log: xlog.Root().Named("apex." + tiles.Name())}
}

func (db *Db) Work() (bool, error) { return db.tiles.Work() }

// GetValue reads the gene stored at c's full-depth coordinate.
// Grounded on db/apex/api.rs's get_value.
func (db *Db) GetValue(c Coords) (gene.Gene, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	key, err := c.FullKey()
	if err != nil {
		return gene.Gene{}, err
	}

	g := gene.Root
	var tile Tile
	for _, x := range key {
		tile, err = db.tiles.Get(g)
		if err != nil {
			return gene.Gene{}, err
		}
		g = tile.Tiles[x]
	}

	return g, nil
}

// GetDisplay reads a subtree bitmap at c's (possibly partial) zoom: one
// bit per descendant slot of the tile the key bottoms out at, set iff
// that slot holds a live gene. Returns a size of 0 if no tile exists
// along the path yet. Grounded on db/apex/api.rs's get_display.
func (db *Db) GetDisplay(c Coords) ([]byte, int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	key := c.DisplayKey()

	g := gene.Root
	var tile Tile
	for _, x := range key.Key {
		t, err := db.tiles.Get(g)
		if err != nil {
			if errs.IsNotFound(err) {
				return nil, 0, nil
			}
			return nil, 0, err
		}
		tile = t
		g = tile.Tiles[x]
	}

	last := key.Key[len(key.Key)-1]
	size := key.Size
	list := tile.Tiles[last*size : (last+1)*size]

	data := make([]byte, (size+7)/8)
	for i, gn := range list {
		if gn.IsSome() {
			data[i/8] |= 1 << uint(i%8)
		}
	}

	return data, size, nil
}

// Set stores value at c's full-depth coordinate, returning the gene it
// replaced (IsNone if there wasn't one). Grounded on db/apex/api.rs's
// set.
func (db *Db) Set(c Coords, value gene.Gene) (gene.Gene, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	key, err := c.FullKey()
	if err != nil {
		return gene.Gene{}, err
	}

	voiding := value.IsNone()

	parent, err := db.tiles.Get(gene.Root)
	if err != nil {
		if !errs.IsNotFound(err) {
			return gene.Gene{}, err
		}
		parent = Tile{}
		parent.Gene = gene.Root
		parent.Level = 0
		parent.EFlags.SetAlive(true)
		if err := db.tiles.Set(gene.Root, parent); err != nil {
			return gene.Gene{}, err
		}

		if !voiding {
			childGene, err := db.add(key[1:], value)
			if err != nil {
				return gene.Gene{}, err
			}
			parent.Tiles[key[0]] = childGene
			if err := db.tiles.Set(gene.Root, parent); err != nil {
				return gene.Gene{}, err
			}
		}
		return gene.Gene{}, nil
	}

	for i, x := range key[:len(key)-1] {
		childGene := parent.Tiles[x]
		current, err := db.tiles.Get(childGene)
		if err != nil {
			if !errs.IsNotFound(err) {
				return gene.Gene{}, err
			}
			if !voiding {
				newGene, err := db.add(key[i+1:], value)
				if err != nil {
					return gene.Gene{}, err
				}
				parent.Tiles[x] = newGene
				if err := db.tiles.Set(parent.Gene, parent); err != nil {
					return gene.Gene{}, err
				}
			}
			return gene.Gene{}, nil
		}
		parent = current
	}

	leaf := key[len(key)-1]
	old := parent.Tiles[leaf]
	parent.Tiles[leaf] = value
	if err := db.tiles.Set(parent.Gene, parent); err != nil {
		return gene.Gene{}, err
	}

	return old, nil
}

// add grows a fresh chain of one tile per remaining key index, with
// value written into the deepest tile's own slot rather than pointing
// further. Returns the gene of the outermost (shallowest) new tile, to
// be linked into its parent. The reference `self.add` call site exists
// in the source but its body was never checked in; this is grounded on
// the analogous growth pattern in db/trie/mod.rs's add.
func (db *Db) add(tree []int, value gene.Gene) (gene.Gene, error) {
	var childGene gene.Gene
	for i := len(tree) - 1; i >= 0; i-- {
		var tile Tile
		if i == len(tree)-1 {
			tile.Tiles[tree[i]] = value
		} else {
			tile.Tiles[tree[i]] = childGene
		}
		g, err := db.tiles.Add(tile)
		if err != nil {
			return gene.Gene{}, err
		}
		childGene = g
	}
	return childGene, nil
}
