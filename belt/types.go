// Package belt implements a two-entity-store composition forming
// per-buckle doubly-linked chains of variable-count belt records: a
// buckle anchors a linked list of belts, each belt record carrying
// whatever payload the caller's type needs plus the chain pointers.
// Grounded on the reference engine's db/belt tree (mod.rs, belt_api.rs,
// buckle.rs, options.rs).
package belt

import (
	"github.com/00-team/shah/binary"
	"github.com/00-team/shah/entity"
	"github.com/00-team/shah/gene"
	"github.com/00-team/shah/schema"
)

// Buckle anchors one chain of belts, tracking the chain length so
// callers don't have to walk it to answer "how many belts does this
// buckle have". Field names (Head/Tail/BeltCount) follow the
// trait-accessor naming used by the reference engine's working
// belt_api.rs/buckle.rs implementation, not the fully-commented-out
// First/Last/Belts sketch left in db/belt/mod.rs.
type Buckle struct {
	Gene      gene.Gene
	Head      gene.Gene
	Tail      gene.Gene
	BeltCount uint64
	Growth    uint64
	EFlags    entity.Flags
	_pad      [7]byte
}

func init() { binary.MustSize[Buckle](72) }

func (Buckle) Size() uint64              { return 72 }
func (b *Buckle) GeneRef() *gene.Gene     { return &b.Gene }
func (b *Buckle) FlagsRef() *entity.Flags { return &b.EFlags }
func (b *Buckle) GrowthRef() *uint64      { return &b.Growth }

func buckleSchema() schema.Schema {
	return schema.Model("belt_buckle", 72,
		schema.Field{Name: "gene", Schema: schema.Primitive(schema.KindGene)},
		schema.Field{Name: "head", Schema: schema.Primitive(schema.KindGene)},
		schema.Field{Name: "tail", Schema: schema.Primitive(schema.KindGene)},
		schema.Field{Name: "belt_count", Schema: schema.Primitive(schema.KindU64)},
		schema.Field{Name: "growth", Schema: schema.Primitive(schema.KindU64)},
		schema.Field{Name: "entity_flags", Schema: schema.Primitive(schema.KindU8)},
	)
}

// BuckleSchema is exported for callers opening the buckle entity store
// with entity.New directly.
func BuckleSchema() schema.Schema { return buckleSchema() }

// Link is implemented by every record type a Db chains into belts: in
// addition to the usual entity fields, it must carry the chain's own
// next/past neighbors and a pointer back to its buckle.
type Link interface {
	entity.Entity
	NextRef() *gene.Gene
	PastRef() *gene.Gene
	BuckleRef() *gene.Gene
}

// LinkPtr is the RecordPtr-equivalent constraint for belt record types.
type LinkPtr[T any] interface {
	*T
	entity.Entity
	Link
	Size() uint64
}
