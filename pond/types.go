package pond

import (
	"github.com/00-team/shah/binary"
	"github.com/00-team/shah/entity"
	"github.com/00-team/shah/gene"
	"github.com/00-team/shah/schema"
)

// Origin anchors one owner's linked list of ponds, tracking aggregate
// counts so callers don't have to walk the whole chain to answer "how
// many items does this owner have". Grounded on the reference engine's
// ShahOrigin (db/pond/mod.rs).
type Origin struct {
	Gene      gene.Gene
	Head      gene.Gene
	Tail      gene.Gene
	PondCount uint64
	ItemCount uint64
	EFlags    entity.Flags
	_pad      [7]byte
	Growth    uint64
}

func init() { binary.MustSize[Origin](80) }

func (Origin) Size() uint64              { return 80 }
func (o *Origin) GeneRef() *gene.Gene    { return &o.Gene }
func (o *Origin) FlagsRef() *entity.Flags { return &o.EFlags }
func (o *Origin) GrowthRef() *uint64     { return &o.Growth }

func originSchema() schema.Schema {
	return schema.Model("pond_origin", 80,
		schema.Field{Name: "gene", Schema: schema.Primitive(schema.KindGene)},
		schema.Field{Name: "head", Schema: schema.Primitive(schema.KindGene)},
		schema.Field{Name: "tail", Schema: schema.Primitive(schema.KindGene)},
		schema.Field{Name: "pond_count", Schema: schema.Primitive(schema.KindU64)},
		schema.Field{Name: "item_count", Schema: schema.Primitive(schema.KindU64)},
		schema.Field{Name: "entity_flags", Schema: schema.Primitive(schema.KindU8)},
		schema.Field{Name: "growth", Schema: schema.Primitive(schema.KindU64)},
	)
}

// Pond is one page-stack node: a fixed PageSize run of items addressed
// by Stack, linked to its neighbors in the owner's chain. Grounded on
// ShahPond (db/pond/mod.rs).
type Pond struct {
	Gene   gene.Gene
	Next   gene.Gene
	Past   gene.Gene
	Origin gene.Gene
	Stack  uint64
	Growth uint64
	EFlags entity.Flags
	Alive  uint8
	Empty  uint8
	_pad   [5]byte
}

func init() { binary.MustSize[Pond](88) }

func (Pond) Size() uint64              { return 88 }
func (p *Pond) GeneRef() *gene.Gene    { return &p.Gene }
func (p *Pond) FlagsRef() *entity.Flags { return &p.EFlags }
func (p *Pond) GrowthRef() *uint64     { return &p.Growth }

func pondSchema() schema.Schema {
	return schema.Model("pond_pond", 88,
		schema.Field{Name: "gene", Schema: schema.Primitive(schema.KindGene)},
		schema.Field{Name: "next", Schema: schema.Primitive(schema.KindGene)},
		schema.Field{Name: "past", Schema: schema.Primitive(schema.KindGene)},
		schema.Field{Name: "origin", Schema: schema.Primitive(schema.KindGene)},
		schema.Field{Name: "stack", Schema: schema.Primitive(schema.KindU64)},
		schema.Field{Name: "growth", Schema: schema.Primitive(schema.KindU64)},
		schema.Field{Name: "entity_flags", Schema: schema.Primitive(schema.KindU8)},
		schema.Field{Name: "alive", Schema: schema.Primitive(schema.KindU8)},
		schema.Field{Name: "empty", Schema: schema.Primitive(schema.KindU8)},
	)
}

// OriginSchema and PondSchema are exported for callers opening the
// pond/origin entity stores with entity.New directly.
func OriginSchema() schema.Schema { return originSchema() }
func PondSchema() schema.Schema   { return pondSchema() }
