package snake

import (
	"os"
	"sync"

	"github.com/00-team/shah/entity"
	"github.com/00-team/shah/errs"
	"github.com/00-team/shah/gene"
	"github.com/00-team/shah/metrics"
	"github.com/00-team/shah/schema"
	"github.com/00-team/shah/xlog"
)

// TCD is the tolerable capacity difference: a free range within TCD bytes
// of the requested capacity is handed out whole instead of being split,
// trading a little wasted space for fewer free-list fragments.
const TCD uint64 = 255

// FreeListSize bounds the in-memory free-range cache.
const FreeListSize = 4096

// DataStart is the lowest payload position Alloc hands out; the first 64
// bytes of the data file are left unused, so position 0 never names a
// live range (addFree and cacheFree treat it as "no range").
const DataStart uint64 = 64

// Free is one cached free byte-range, backed by a dead (is_free) Head in
// the index store.
type Free struct {
	Gene     gene.Gene
	Position uint64
	Capacity uint64
}

// Db is a variable-length byte allocator: a growable payload file plus an
// entity-store index of fixed-size Head records describing live and free
// ranges within it.
type Db struct {
	mu   sync.Mutex
	f    *os.File
	name string
	log  xlog.Logger

	live     uint64
	free     uint64
	freeList []*Free
	index    *entity.Db[Head, *Head]
}

func headSchema() schema.Schema {
	return schema.Model("snake_head", 56,
		schema.Field{Name: "gene", Schema: schema.Primitive(schema.KindGene)},
		schema.Field{Name: "capacity", Schema: schema.Primitive(schema.KindU64)},
		schema.Field{Name: "position", Schema: schema.Primitive(schema.KindU64)},
		schema.Field{Name: "length", Schema: schema.Primitive(schema.KindU64)},
		schema.Field{Name: "growth", Schema: schema.Primitive(schema.KindU64)},
		schema.Field{Name: "entity_flags", Schema: schema.Primitive(schema.KindU8)},
		schema.Field{Name: "flags", Schema: schema.Primitive(schema.KindU8)},
	)
}

// New opens a snake store: dataFile holds the raw payload bytes,
// indexFile backs the entity store of Head records describing them.
func New(dataFile, indexFile *os.File, name string, server uint32) (*Db, error) {
	idx, err := entity.New[Head, *Head](indexFile, name+".index", 1, 1, server, headSchema(), entity.Options{})
	if err != nil {
		return nil, err
	}
	db := &Db{
		f:        dataFile,
		name:     name,
		log:      xlog.Root().Named("snake." + name),
		index:    idx,
		freeList: make([]*Free, FreeListSize),
	}
	idx.SetInspector(func(id uint64, rec *Head) {
		if rec.SFlags.IsFree() {
			db.cacheFree(*rec)
		} else {
			db.live++
		}
	})
	if err := idx.List(func(gene.Gene, Head) bool { return true }); err != nil {
		return nil, err
	}
	return db, nil
}

func (db *Db) fileSize() (uint64, error) {
	fi, err := db.f.Stat()
	if err != nil {
		return 0, err
	}
	return uint64(fi.Size()), nil
}

// cacheFree inserts head's range into the free list without touching the
// index (used when rebuilding the cache from an on-disk scan).
func (db *Db) cacheFree(head Head) {
	if head.Position == 0 || head.Capacity == 0 {
		return
	}
	for i, f := range db.freeList {
		if f == nil {
			db.freeList[i] = &Free{Gene: head.Gene, Position: head.Position, Capacity: head.Capacity}
			db.free++
			return
		}
	}
}

func (db *Db) checkOffset(g gene.Gene, head *Head, offset uint64, buflen int) (int, error) {
	h, err := db.index.Get(g)
	if err != nil {
		return 0, err
	}
	*head = h
	if head.SFlags.IsFree() {
		return 0, errs.NewNotFound(errs.SnakeIsFree)
	}
	if offset >= head.Capacity {
		return 0, errs.NewSystem(errs.BadOffset)
	}
	length := buflen
	if offset+uint64(buflen) > head.Capacity {
		length = int(head.Capacity - offset)
	}
	return length, nil
}

// Alloc reserves capacity bytes, reusing a free range when one fits well
// enough (see TCD), otherwise growing the payload file.
func (db *Db) Alloc(capacity uint64) (Head, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var head Head
	if capacity == 0 {
		return head, errs.NewSystem(errs.SnakeCapacityIsZero)
	}
	head.EFlags.SetAlive(true)

	free, err := db.takeFree(capacity)
	if err != nil {
		return head, err
	}
	if free != nil {
		head.Position = free.Position
		head.Capacity = free.Capacity
		head.Gene = free.Gene
	} else {
		size, err := db.fileSize()
		if err != nil {
			return head, err
		}
		if size < DataStart {
			size = DataStart
		}
		head.Position = size
		head.Capacity = capacity
	}

	if _, err := db.f.WriteAt([]byte{0}, int64(head.Position+head.Capacity-1)); err != nil {
		return head, err
	}

	if head.Gene.IsSome() {
		if err := db.index.Set(head.Gene, head); err != nil {
			if !errs.IsNotFound(err) {
				return head, err
			}
			g, err := db.index.Add(head)
			if err != nil {
				return head, err
			}
			head.Gene = g
		}
	} else {
		g, err := db.index.Add(head)
		if err != nil {
			return head, err
		}
		head.Gene = g
	}
	db.live++
	metrics.SnakeAlloc.WithLabelValues(db.name).Inc()
	return head, nil
}

// Write stores data at offset within the snake identified by g, truncating
// to the snake's capacity if data would overrun it.
func (db *Db) Write(g gene.Gene, offset uint64, data []byte) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var head Head
	n, err := db.checkOffset(g, &head, offset, len(data))
	if err != nil {
		return 0, err
	}
	if _, err := db.f.WriteAt(data[:n], int64(head.Position+offset)); err != nil {
		return 0, err
	}
	return n, nil
}

// Read fills data from offset within the snake identified by g.
func (db *Db) Read(g gene.Gene, offset uint64, data []byte) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var head Head
	n, err := db.checkOffset(g, &head, offset, len(data))
	if err != nil {
		return 0, err
	}
	if _, err := db.f.ReadAt(data[:n], int64(head.Position+offset)); err != nil {
		return 0, err
	}
	return n, nil
}

// SetLength records how many of a snake's capacity bytes are meaningful.
func (db *Db) SetLength(g gene.Gene, length uint64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	head, err := db.index.Get(g)
	if err != nil {
		return err
	}
	if head.SFlags.IsFree() {
		return errs.NewNotFound(errs.SnakeIsFree)
	}
	if length > head.Capacity {
		return errs.NewSystem(errs.SnakeBadLength)
	}
	head.Length = length
	return db.index.Set(g, head)
}

// Free releases the byte range backing g, returning it to the free list
// (coalescing with adjacent free ranges where possible).
func (db *Db) Free(g gene.Gene) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	head, err := db.index.Get(g)
	if err != nil {
		return err
	}
	if head.SFlags.IsFree() {
		return nil
	}
	head.SFlags.SetFree(true)
	if err := db.index.Set(g, head); err != nil {
		return err
	}
	db.live--
	metrics.SnakeFree.WithLabelValues(db.name).Inc()
	return db.addFree(head)
}

// takeFree finds and removes (or splits) a free range of at least
// capacity bytes, returning nil if none fits.
func (db *Db) takeFree(capacity uint64) (*Free, error) {
	dbSize, err := db.fileSize()
	if err != nil {
		return nil, err
	}

	travel := uint64(0)
	for i, slot := range db.freeList {
		if travel >= db.free {
			break
		}
		if slot == nil {
			continue
		}
		travel++

		if slot.Position+slot.Capacity == dbSize {
			if slot.Capacity > capacity+TCD {
				val := &Free{Position: slot.Position, Capacity: capacity}
				slot.Position += capacity
				slot.Capacity -= capacity
				if err := db.syncFreeHead(*slot); err != nil {
					return nil, err
				}
				return val, nil
			}
			val := &Free{Position: slot.Position, Capacity: maxU64(slot.Capacity, capacity), Gene: slot.Gene}
			db.freeList[i] = nil
			if db.free > 0 {
				db.free--
			}
			return val, nil
		}

		if slot.Capacity < capacity {
			continue
		}
		if slot.Capacity-capacity < TCD {
			val := slot
			db.freeList[i] = nil
			if db.free > 0 {
				db.free--
			}
			return val, nil
		}

		slot.Capacity -= capacity
		if err := db.syncFreeHead(*slot); err != nil {
			return nil, err
		}
		return &Free{Position: slot.Position + slot.Capacity, Capacity: capacity}, nil
	}

	return nil, nil
}

func (db *Db) syncFreeHead(f Free) error {
	disk, err := db.index.Get(f.Gene)
	if err != nil {
		return err
	}
	disk.Position = f.Position
	disk.Capacity = f.Capacity
	return db.index.Set(f.Gene, disk)
}

// addFree inserts head's range into the free list, merging with any
// adjacent free range first (rescanning after every merge since a merge
// can create a new adjacency).
func (db *Db) addFree(head Head) error {
	if head.Position == 0 || head.Capacity == 0 {
		return nil
	}

	for merged := true; merged; {
		merged = false
		for i, slot := range db.freeList {
			if slot == nil {
				continue
			}
			if slot.Position+slot.Capacity == head.Position {
				head.Position = slot.Position
				head.Capacity += slot.Capacity
				if err := db.index.Del(slot.Gene); err != nil && !errs.IsNotFound(err) {
					return err
				}
				db.freeList[i] = nil
				if db.free > 0 {
					db.free--
				}
				merged = true
				metrics.SnakeCoalesce.WithLabelValues(db.name).Inc()
				break
			}
			if head.Position+head.Capacity == slot.Position {
				head.Capacity += slot.Capacity
				if err := db.index.Del(slot.Gene); err != nil && !errs.IsNotFound(err) {
					return err
				}
				db.freeList[i] = nil
				if db.free > 0 {
					db.free--
				}
				merged = true
				metrics.SnakeCoalesce.WithLabelValues(db.name).Inc()
				break
			}
		}
	}

	head.SFlags.SetFree(true)
	head.EFlags.SetAlive(true)
	if err := db.index.Set(head.Gene, head); err != nil {
		return err
	}

	for i, slot := range db.freeList {
		if slot == nil {
			db.freeList[i] = &Free{Position: head.Position, Capacity: head.Capacity, Gene: head.Gene}
			db.free++
			return nil
		}
	}
	db.log.Warn("free list full, dropping range", "position", head.Position, "capacity", head.Capacity)
	return nil
}

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

// Live returns the number of currently allocated (non-free) snakes.
func (db *Db) Live() uint64 {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.live
}
