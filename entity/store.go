// Package entity implements the fixed-stride record store every other
// store in this module composes: snake, pond and belt all keep their own
// bookkeeping inside one or more entity stores. Grounded on the reference
// engine's db/entity tree (entity/mod.rs, entity/init.rs, entity/api.rs,
// entity/work.rs, entity/dead.rs, entity/options.rs) collapsed into one
// generic implementation per spec.md §9's note that the duplicated
// per-store API methods are an editing artifact, not a designed feature.
package entity

import (
	"os"
	"sync"

	"github.com/00-team/shah/binary"
	"github.com/00-team/shah/cache"
	"github.com/00-team/shah/dbhead"
	"github.com/00-team/shah/deadlist"
	"github.com/00-team/shah/errs"
	"github.com/00-team/shah/gene"
	"github.com/00-team/shah/schema"
	"github.com/00-team/shah/shahutil"
	"github.com/00-team/shah/tasks"
	"github.com/00-team/shah/xlog"
)

// Entity is implemented by every entity-store record type via pointer
// receiver, exposing the three fields the store itself must read and
// mutate regardless of the record's own schema: its gene (identity +
// staleness token), its liveness flags, and its migration growth counter.
type Entity interface {
	GeneRef() *gene.Gene
	FlagsRef() *Flags
	GrowthRef() *uint64
}

// RecordPtr is the generic constraint every EntityDb instantiates over:
// PT must be a pointer to T, a fixed-size binary.View, and an Entity.
// This is the Go replacement for the reference engine's derive-macro
// generated trait implementations (spec.md §2's "Entity / EntityItem"
// traits) — the value-receiver Size() method from binary.View and the
// pointer-receiver accessor methods from Entity both land in *T's method
// set, so a single type parameter pair (T, PT) is enough to drive both
// value-shaped and pointer-shaped operations without reflection.
type RecordPtr[T any] interface {
	*T
	binary.View
	Entity
}

// DeadCap is the fixed capacity of the in-memory free-slot cache, matching
// the reference engine's DeadList<u64, N> bound (spec.md §2).
const DeadCap = 1024

// DefaultWorkIter is how many background-sweep steps run per Work call.
const DefaultWorkIter = 16

// Db is a fixed-stride record store over file f, holding records of type
// T addressed by PT's Entity methods. One Db backs exactly one on-disk
// file and exactly one record layout.
type Db[T any, PT RecordPtr[T]] struct {
	mu   sync.Mutex
	f    *os.File
	name string
	log  xlog.Logger

	meta     Meta
	prog     Prog
	itemSize uint64
	server   uint32

	live      uint64
	dead      *deadlist.List[uint64]
	setupProg uint64

	inspector func(id uint64, rec PT)
	koch      kochHook[T]
	cache     *cache.Clean
	tasks     *tasks.List[*Db[T, PT]]
	workIter  int
}

// Options configures New; zero value is the default configuration.
type Options struct {
	DeadListDisabled bool
	WorkIter         int
	CacheBytes       int
	Inspector        func(id uint64, rec any)
}

func itemSizeOf[T any, PT RecordPtr[T]]() uint64 {
	var v T
	return PT(&v).Size()
}

// New opens (creating if absent) an entity store backed by f, validating
// or stamping the dbhead.Head and schema on first use. server is stamped
// into every freshly minted gene (spec.md §4.2's per-instance server tag).
func New[T any, PT RecordPtr[T]](
	f *os.File, name string, revision, dbVersion uint16, server uint32, sc schema.Schema, opts Options,
) (*Db[T, PT], error) {
	itemSize := itemSizeOf[T, PT]()
	db := &Db[T, PT]{
		f:        f,
		name:     name,
		log:      xlog.Root().Named("entity." + name),
		itemSize: itemSize,
		dead:     deadlist.New[uint64](DeadCap),
		cache:    cache.New(opts.CacheBytes),
		workIter: opts.WorkIter,
		server:   server,
	}
	db.dead.SetDisabled(opts.DeadListDisabled)
	db.tasks = defaultTasks[T, PT]()
	if opts.Inspector != nil {
		fn := opts.Inspector
		db.inspector = func(id uint64, rec PT) { fn(id, rec) }
	}

	size, err := fileSize(f)
	if err != nil {
		return nil, err
	}
	if size < MetaSize+16 {
		db.meta.Db.Init(dbhead.MagicEntity, revision, name, dbVersion)
		db.meta.ItemSize = itemSize
		enc, err := schema.Encode(sc)
		if err != nil {
			return nil, err
		}
		copy(db.meta.Schema[:], enc)
		if err := shahutil.Falloc(f, 0, RecordsOffset); err != nil {
			return nil, err
		}
		if err := db.writeMeta(); err != nil {
			return nil, err
		}
		if err := db.writeProg(); err != nil {
			return nil, err
		}
	} else {
		if err := db.readMeta(); err != nil {
			return nil, err
		}
		if err := db.meta.Db.Check(name, dbhead.MagicEntity, revision, dbVersion); err != nil {
			return nil, err
		}
		if db.meta.ItemSize != itemSize {
			return nil, errs.NewDb(errs.InvalidDbMeta)
		}
		stored, err := schema.Decode(db.meta.Schema[:])
		if err != nil {
			return nil, err
		}
		if !schema.Equal(stored, sc) {
			return nil, errs.NewDb(errs.InvalidDbSchema)
		}
		if err := db.readProg(); err != nil {
			return nil, err
		}
	}

	count := recordCount(size, itemSize)
	for id := uint64(1); id <= count; id++ {
		var rec T
		pt := PT(&rec)
		ok, err := db.getUnchecked(id, pt)
		if err != nil {
			return nil, err
		}
		if ok && pt.FlagsRef().IsAlive() {
			db.live++
		}
	}
	db.setupProg = count
	return db, nil
}
