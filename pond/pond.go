// Package pond implements a three-entity-store composition forming
// per-owner doubly-linked page-stacks of fixed-size items: an origin
// (one per owner) anchors a linked list of ponds, each pond addressing a
// fixed PageSize run of item records ("ducks") in a shared item store.
// Grounded on the reference engine's db/pond tree (mod.rs, api_item.rs,
// api_origin.rs, api_pond.rs, util.rs, init.rs, options.rs) — the
// canonical trait-based design, not the superseded single-type-param
// sketch in db/pond.rs / db/pond/index.rs / public.rs.
package pond

import (
	"sync"

	"github.com/00-team/shah/deadlist"
	"github.com/00-team/shah/entity"
	"github.com/00-team/shah/gene"
	"github.com/00-team/shah/xlog"
)

// PageSize is the fixed number of item slots per pond.
const PageSize = 32

// Duck is implemented by every item type a Db stores: in addition to the
// usual entity fields, it must point back at the pond it currently lives
// in.
type Duck interface {
	entity.Entity
	PondRef() *gene.Gene
}

// DuckPtr is the RecordPtr-equivalent constraint for item types.
type DuckPtr[T any] interface {
	*T
	entity.Entity
	Duck
	Size() uint64
}

// Db composes three entity stores into one owner -> ponds -> items
// structure. Pond and Origin use the fixed ShahPond/ShahOrigin shapes;
// only the item type is generic, since tenants vary only in what an
// item carries, never in how ponds or origins are laid out.
type Db[T any, PT DuckPtr[T]] struct {
	mu sync.Mutex

	item   *entity.Db[T, PT]
	pond   *entity.Db[Pond, *Pond]
	origin *entity.Db[Origin, *Origin]

	freeList *deadlist.List[gene.Gene]
	log      xlog.Logger
	server   uint32
}

// New composes item/pond/origin entity stores (already opened by the
// caller against their own files) into a Db.
func New[T any, PT DuckPtr[T]](
	item *entity.Db[T, PT], pondDb *entity.Db[Pond, *Pond], origin *entity.Db[Origin, *Origin], server uint32,
) *Db[T, PT] {
	item.SetDeadListDisabled(true)
	return &Db[T, PT]{
		item:     item,
		pond:     pondDb,
		origin:   origin,
		freeList: deadlist.New[gene.Gene](entity.DeadCap),
		log:      xlog.Root().Named("pond"),
		server:   server,
	}
}

// Work runs one cooperative step across all three composed stores.
func (db *Db[T, PT]) Work() error {
	if _, err := db.item.Work(); err != nil {
		return err
	}
	if _, err := db.pond.Work(); err != nil {
		return err
	}
	if _, err := db.origin.Work(); err != nil {
		return err
	}
	return nil
}

func (db *Db[T, PT]) takeFree() (gene.Gene, bool) {
	return db.freeList.Pop(func(gene.Gene) bool { return true })
}

// newStackId computes the starting id of a fresh page at the end of the
// item file, matching the reference engine's alignment check against
// entity.RecordsOffset + itemSize.
func (db *Db[T, PT]) newStackId() (uint64, error) {
	pos, err := db.item.FileSize()
	if err != nil {
		return 0, err
	}
	itemSize := db.item.ItemSize()
	if pos < entity.RecordsOffset+itemSize {
		return 1, nil
	}
	stride := itemSize * PageSize
	usable := pos - entity.RecordsOffset - itemSize
	id, offset := usable/stride, usable%stride
	if offset != 0 {
		db.log.Warn("new stack id: unaligned page boundary", "offset", offset)
	}
	return id*PageSize + 1, nil
}
