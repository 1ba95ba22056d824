// Package snake implements the variable-length byte-range allocator used
// for arbitrary blob storage: each live snake is a contiguous run of bytes
// inside one growable payload file, addressed through an entity store of
// fixed-size headers recording {position, capacity, length}. Grounded on
// the reference engine's db/snake tree (mod.rs, api.rs, free.rs).
package snake

import (
	"github.com/00-team/shah/binary"
	"github.com/00-team/shah/entity"
	"github.com/00-team/shah/gene"
)

// Flags carries the snake-specific bookkeeping bit (is free), distinct
// from the entity store's own alive/edited/private flags: a snake header
// stays "alive" in the entity store sense for its whole life, toggling
// only its own is-free bit when its byte range is released.
type Flags uint8

const FlagFree Flags = 1

func (f Flags) IsFree() bool    { return f&FlagFree != 0 }
func (f *Flags) SetFree(v bool) {
	if v {
		*f |= FlagFree
	} else {
		*f &^= FlagFree
	}
}

// Head is the fixed-size record every snake keeps in the index entity
// store; Position/Capacity describe its byte range in the payload file,
// Length is how much of that capacity currently holds meaningful data.
type Head struct {
	Gene     gene.Gene
	Capacity uint64
	Position uint64
	Length   uint64
	Growth   uint64
	EFlags   entity.Flags
	SFlags   Flags
	_pad     [6]byte
}

func init() { binary.MustSize[Head](56) }

func (Head) Size() uint64             { return 56 }
func (h *Head) GeneRef() *gene.Gene   { return &h.Gene }
func (h *Head) FlagsRef() *entity.Flags { return &h.EFlags }
func (h *Head) GrowthRef() *uint64    { return &h.Growth }
