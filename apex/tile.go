// Package apex implements a quadtree-over-(z,x,y) index: one entity
// store of fixed-fanout tiles, each holding a slab of child genes for
// one z-level, chained Len tiles deep to cover the full zoom range.
// Grounded on db/apex/mod.rs, db/apex/api.rs and db/apex/coords.rs.
package apex

import (
	"github.com/00-team/shah/binary"
	"github.com/00-team/shah/entity"
	"github.com/00-team/shah/gene"
	"github.com/00-team/shah/schema"
)

// Lvl, Len and Siz fix the quadtree shape this store was built for:
// Siz = 4^Lvl child genes per tile, Len tiles chained to reach zoom
// Lvl*Len. The reference engine picks these as const generics per
// instantiation (`ApexDb<LVL, LEN, SIZ>`); Go has no const/value
// generic parameters, so they're fixed package constants instead (the
// same move pond made for PageSize and cloth made for ChunkSize). The
// values match spec.md's worked example (A1: LVL=3, LEN=2, SIZ=64),
// giving a max addressable zoom of 6.
const (
	Lvl = 3
	Len = 2
	Siz = 1 << (Lvl * 2)

	// MaxZoom is the deepest (z,x,y) coordinate accepted, independent
	// of how deep this store's chain reaches.
	MaxZoom = 22
)

// Tile is one z-level's slab of child genes. Grounded on
// db/apex/mod.rs's ApexTile.
type Tile struct {
	Gene   gene.Gene
	EFlags entity.Flags
	_pad0  [7]byte
	Growth uint64
	Level  uint8
	_pad   [7]byte
	Tiles  [Siz]gene.Gene
}

func init() { binary.MustSize[Tile](16 + 1 + 7 + 8 + 1 + 7 + 16*Siz) }

func (Tile) Size() uint64               { return 16 + 1 + 7 + 8 + 1 + 7 + 16*Siz }
func (t *Tile) GeneRef() *gene.Gene      { return &t.Gene }
func (t *Tile) FlagsRef() *entity.Flags  { return &t.EFlags }
func (t *Tile) GrowthRef() *uint64       { return &t.Growth }

func tileSchema() schema.Schema {
	return schema.Model("apex_tile", Tile{}.Size(),
		schema.Field{Name: "gene", Schema: schema.Primitive(schema.KindGene)},
		schema.Field{Name: "entity_flags", Schema: schema.Primitive(schema.KindU8)},
		schema.Field{Name: "growth", Schema: schema.Primitive(schema.KindU64)},
		schema.Field{Name: "level", Schema: schema.Primitive(schema.KindU8)},
		schema.Field{Name: "tiles", Schema: schema.Array(Siz, schema.Primitive(schema.KindGene))},
	)
}

func TileSchema() schema.Schema { return tileSchema() }
