// Package cloth specializes the belt/buckle chain store into an
// arbitrary-length UTF-8 string: the string is split into fixed-size
// chunks, each stored as one belt record, with an is-end sentinel
// terminating reconstruction. Grounded on db/belt/cloth.rs.
package cloth

import (
	"github.com/00-team/shah/binary"
	"github.com/00-team/shah/entity"
	"github.com/00-team/shah/gene"
	"github.com/00-team/shah/schema"
)

// ChunkSize is the number of payload bytes carried by one Belt record.
// The reference engine's ClothBelt<const S: usize> lets callers pick S
// per instantiation; Go has no const generic parameters, so this
// package fixes one size instead of exposing a type parameter for it
// (see DESIGN.md).
const ChunkSize = 504

// Belt is one chunk in a cloth string's chain. Grounded on
// db/belt/cloth.rs's ClothBelt.
type Belt struct {
	Gene   gene.Gene
	Next   gene.Gene
	Past   gene.Gene
	Buckle gene.Gene
	Growth uint64
	Length uint16
	EFlags entity.Flags
	IsEnd  bool
	_pad   [4]byte
	Data   [ChunkSize]byte
}

func init() { binary.MustSize[Belt](80 + ChunkSize) }

func (Belt) Size() uint64              { return 80 + ChunkSize }
func (b *Belt) GeneRef() *gene.Gene     { return &b.Gene }
func (b *Belt) FlagsRef() *entity.Flags { return &b.EFlags }
func (b *Belt) GrowthRef() *uint64      { return &b.Growth }
func (b *Belt) NextRef() *gene.Gene     { return &b.Next }
func (b *Belt) PastRef() *gene.Gene     { return &b.Past }
func (b *Belt) BuckleRef() *gene.Gene   { return &b.Buckle }

func beltSchema() schema.Schema {
	return schema.Model("cloth_belt", Belt{}.Size(),
		schema.Field{Name: "gene", Schema: schema.Primitive(schema.KindGene)},
		schema.Field{Name: "next", Schema: schema.Primitive(schema.KindGene)},
		schema.Field{Name: "past", Schema: schema.Primitive(schema.KindGene)},
		schema.Field{Name: "buckle", Schema: schema.Primitive(schema.KindGene)},
		schema.Field{Name: "growth", Schema: schema.Primitive(schema.KindU64)},
		schema.Field{Name: "length", Schema: schema.Primitive(schema.KindU16)},
		schema.Field{Name: "entity_flags", Schema: schema.Primitive(schema.KindU8)},
		schema.Field{Name: "is_end", Schema: schema.Primitive(schema.KindU8)},
		schema.Field{Name: "data", Schema: schema.Array(ChunkSize, schema.Primitive(schema.KindU8))},
	)
}

// BeltSchema is exported for callers opening the belt entity store with
// entity.New directly.
func BeltSchema() schema.Schema { return beltSchema() }
