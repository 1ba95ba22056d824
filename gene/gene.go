// Package gene implements the shah record locator: a 16-byte handle that
// identifies a slot without implying any lifetime, protected against
// stale reuse by a per-allocation iter counter and random pepper bytes.
// See SPEC_FULL.md / spec.md §4.2.
package gene

import (
	"crypto/rand"
	"fmt"

	"github.com/00-team/shah/errs"
)

// IterExhaustion is the iter value at which a slot is retired forever
// rather than recycled; see spec.md §6.
const IterExhaustion = 250

// Gene is a 16-byte record locator: {id, iter, pepper[3], server}.
type Gene struct {
	Id     uint64
	Iter   uint8
	Pepper [3]byte
	Server uint32
}

func (Gene) Size() uint64 { return 16 }

// Root is the reserved gene used by stores that need a well-known root
// record (pond origins, belt buckles, apex root tile).
var Root = Gene{Id: 1}

// Clear zeroes the gene in place.
func (g *Gene) Clear() { *g = Gene{} }

func (g Gene) IsNone() bool { return g.Id == 0 }
func (g Gene) IsSome() bool { return g.Id != 0 }

// Exhausted reports whether this gene's slot may never be reused again.
func (g Gene) Exhausted() bool { return g.Iter >= IterExhaustion }

// Validate requires a non-zero id.
func (g Gene) Validate() error {
	if g.Id == 0 {
		return errs.NewNotFound(errs.GeneIdZero)
	}
	return nil
}

// Check compares g against other (typically a freshly-read on-disk gene)
// and reports the first mismatch, mirroring the reference engine's
// staleness defense used after reading a slot by id.
func (g Gene) Check(other Gene) error {
	if g.Id != other.Id {
		return errs.NewSystem(errs.GeneIdMismatch)
	}
	if g.Iter != other.Iter {
		return errs.NewNotFound(errs.GeneIterMismatch)
	}
	if g.Pepper != other.Pepper {
		return errs.NewNotFound(errs.GenePepperMismatch)
	}
	return nil
}

func (g Gene) String() string {
	return fmt.Sprintf("%d.%d.%x.%d", g.Id, g.Iter, g.Pepper, g.Server)
}

// GetRandom fills b with CSPRNG bytes, used for pepper generation on
// every new allocation.
func GetRandom(b []byte) {
	if _, err := rand.Read(b); err != nil {
		// crypto/rand.Read on supported platforms does not fail; if it
		// somehow does, a predictable pepper is still safer than a panic
		// mid-allocation, so fall back to a fixed pattern and let the
		// iter/id pair carry the uniqueness burden.
		for i := range b {
			b[i] = 0xA5
		}
	}
}

// New builds a fresh gene for id, stamping server and a random pepper,
// iter left at zero (callers bump it when reusing a non-fresh slot).
func New(id uint64, server uint32) Gene {
	g := Gene{Id: id, Server: server}
	GetRandom(g.Pepper[:])
	return g
}
