package entity

import (
	"unsafe"

	"github.com/00-team/shah/binary"
	"github.com/00-team/shah/errs"
	"github.com/00-team/shah/gene"
	"github.com/00-team/shah/shahutil"
)

func (db *Db[T, PT]) writeMeta() error {
	_, err := db.f.WriteAt(binary.Bytes(&db.meta), 0)
	return err
}

func (db *Db[T, PT]) readMeta() error {
	buf := make([]byte, db.meta.Size())
	if _, err := db.f.ReadAt(buf, 0); err != nil {
		return err
	}
	binary.CopyInto(&db.meta, buf)
	return nil
}

func (db *Db[T, PT]) writeProg() error {
	_, err := db.f.WriteAt(binary.Bytes(&db.prog), int64(MetaSize))
	return err
}

func (db *Db[T, PT]) readProg() error {
	buf := make([]byte, db.prog.Size())
	if _, err := db.f.ReadAt(buf, int64(MetaSize)); err != nil {
		return err
	}
	binary.CopyInto(&db.prog, buf)
	return nil
}

// getUnchecked reads the record at id into rec with no gene or liveness
// check, returning false if id is past the end of the file.
func (db *Db[T, PT]) getUnchecked(id uint64, rec PT) (bool, error) {
	size, err := fileSize(db.f)
	if err != nil {
		return false, err
	}
	if id == 0 || id > recordCount(size, db.itemSize) {
		return false, nil
	}
	buf := make([]byte, db.itemSize)
	key := make([]byte, 8)
	putU64(key, id)
	if cached, ok := db.cache.Get(buf[:0], key); ok && uint64(len(cached)) == db.itemSize {
		copy(unsafe.Slice((*byte)(unsafe.Pointer(rec)), db.itemSize), cached)
		return true, nil
	}
	if _, err := db.f.ReadAt(buf, idToPos(id, db.itemSize)); err != nil {
		return false, err
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(rec)), db.itemSize), buf)
	db.cache.Set(key, buf)
	return true, nil
}

func (db *Db[T, PT]) writeRecord(id uint64, rec PT) error {
	b := unsafe.Slice((*byte)(unsafe.Pointer(rec)), db.itemSize)
	if _, err := db.f.WriteAt(b, idToPos(id, db.itemSize)); err != nil {
		return err
	}
	key := make([]byte, 8)
	putU64(key, id)
	db.cache.Set(key, b)
	return nil
}

func putU64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

// writeConverted lands a koch-migrated record at id, preserving whatever
// gene convert carried over from the old store (so a caller already
// holding that gene still resolves it here after migration) and marking
// the slot alive. Satisfies dstWriter[T] for kochAdapter. Callers must
// already hold db.mu.
func (db *Db[T, PT]) writeConverted(id uint64, rec T) error {
	pt := PT(&rec)
	if pt.GeneRef().IsNone() {
		*pt.GeneRef() = newGene(id, db.server)
	}
	pt.FlagsRef().SetAlive(true)
	if err := db.writeRecord(id, pt); err != nil {
		return err
	}
	size, err := fileSize(db.f)
	if err != nil {
		return err
	}
	if id > recordCount(size, db.itemSize) {
		if err := shahutil.Falloc(db.f, uint64(idToPos(id, db.itemSize))-db.itemSize, db.itemSize); err != nil {
			return err
		}
	}
	db.live++
	return nil
}

// kochForward attempts a point migration of id from db.koch's old store
// into this one, landing the converted record via writeConverted. It
// leaves the slot untouched when there is no koch hook or the old store
// has nothing at id. When curFound is true a dead record already occupies
// the slot, so migration is further skipped unless old.growth exceeds
// cur's: a koch source that has fallen behind a slot already advanced
// past it (old.growth <= cur.growth) must never regress that slot. A
// slot that has never been written (curFound false) has no growth to
// protect and is always migrated. Callers must already hold db.mu.
func (db *Db[T, PT]) kochForward(id uint64, cur PT, curFound bool) error {
	if db.koch == nil {
		return nil
	}
	old, found, err := db.koch.fetch(id)
	if err != nil || !found {
		return err
	}
	oldPT := PT(&old)
	if curFound && *oldPT.GrowthRef() <= *cur.GrowthRef() {
		return nil
	}
	return db.writeConverted(id, old)
}

// Get reads the record identified by g into a fresh T, failing with
// errs.NotFound if g no longer matches what is stored (deleted, reused,
// or never written) or if the slot is not alive. A zero-gene or dead slot
// is first offered to kochForward, so a record not yet reached by the
// background migration sweep still resolves transparently.
func (db *Db[T, PT]) Get(g gene.Gene) (T, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var rec T
	pt := PT(&rec)
	if err := g.Validate(); err != nil {
		return rec, err
	}
	ok, err := db.getUnchecked(g.Id, pt)
	if err != nil {
		return rec, err
	}
	if !ok || !pt.FlagsRef().IsAlive() {
		if err := db.kochForward(g.Id, pt, ok); err != nil {
			return rec, err
		}
		if ok, err = db.getUnchecked(g.Id, pt); err != nil {
			return rec, err
		}
	}
	if !ok || !pt.FlagsRef().IsAlive() {
		return rec, errs.NewNotFound(errs.EntityNotAlive)
	}
	if err := g.Check(*pt.GeneRef()); err != nil {
		return rec, err
	}
	return rec, nil
}

// Add allocates a slot (reusing a dead one if the free list has one) and
// writes rec into it, stamping a fresh gene and returning it.
func (db *Db[T, PT]) Add(rec T) (gene.Gene, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	pt := PT(&rec)
	if id, ok := db.dead.Pop(func(uint64) bool { return true }); ok {
		var old T
		oldPT := PT(&old)
		if found, err := db.getUnchecked(id, oldPT); err != nil {
			return gene.Gene{}, err
		} else if found {
			g, exhausted := bumpIter(*oldPT.GeneRef())
			if !exhausted {
				*pt.GeneRef() = g
				*pt.FlagsRef() = 0
				pt.FlagsRef().SetAlive(true)
				if err := db.writeRecord(id, pt); err != nil {
					return gene.Gene{}, err
				}
				db.live++
				return g, nil
			}
		}
	}

	size, err := fileSize(db.f)
	if err != nil {
		return gene.Gene{}, err
	}
	id := recordCount(size, db.itemSize) + 1
	if err := shahutil.Falloc(db.f, uint64(idToPos(id, db.itemSize))-db.itemSize, db.itemSize); err != nil {
		return gene.Gene{}, err
	}
	g := newGene(id, db.server)
	*pt.GeneRef() = g
	*pt.FlagsRef() = 0
	pt.FlagsRef().SetAlive(true)
	if err := db.writeRecord(id, pt); err != nil {
		return gene.Gene{}, err
	}
	db.setupProg = id
	db.live++
	return g, nil
}

// Set overwrites the record identified by g with rec, preserving g's gene
// and alive flag (callers mutate payload fields only). A slot that has
// never been written (past the end of the file or still zero-gene) is
// created alive under g; this is how well-known roots such as gene.Root
// come into being.
func (db *Db[T, PT]) Set(g gene.Gene, rec T) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	var cur T
	curPT := PT(&cur)
	if err := g.Validate(); err != nil {
		return err
	}
	ok, err := db.getUnchecked(g.Id, curPT)
	if err != nil {
		return err
	}
	if !ok || curPT.GeneRef().IsNone() {
		pt := PT(&rec)
		*pt.GeneRef() = g
		pt.FlagsRef().SetAlive(true)
		if err := db.writeRecord(g.Id, pt); err != nil {
			return err
		}
		db.live++
		return nil
	}
	if !curPT.FlagsRef().IsAlive() {
		return errs.NewNotFound(errs.EntityNotAlive)
	}
	if err := g.Check(*curPT.GeneRef()); err != nil {
		return err
	}
	pt := PT(&rec)
	*pt.GeneRef() = *curPT.GeneRef()
	pt.FlagsRef().SetAlive(true)
	return db.writeRecord(g.Id, pt)
}

// Del marks the slot identified by g dead and returns it to the free list.
func (db *Db[T, PT]) Del(g gene.Gene) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	var cur T
	curPT := PT(&cur)
	if err := g.Validate(); err != nil {
		return err
	}
	ok, err := db.getUnchecked(g.Id, curPT)
	if err != nil {
		return err
	}
	if !ok || !curPT.FlagsRef().IsAlive() {
		return errs.NewNotFound(errs.EntityNotAlive)
	}
	if err := g.Check(*curPT.GeneRef()); err != nil {
		return err
	}
	curPT.FlagsRef().SetAlive(false)
	if err := db.writeRecord(g.Id, curPT); err != nil {
		return err
	}
	db.live--
	db.dead.Push(g.Id)
	return nil
}

// ReadRange reads n consecutive records starting at id, regardless of
// their alive flag, returning zero-valued T's for any id past the end of
// the file. Used by composite stores (pond) that address fixed-size
// pages of records by their starting id rather than filtering by
// liveness.
func (db *Db[T, PT]) ReadRange(id uint64, n int) ([]T, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]T, n)
	for i := 0; i < n; i++ {
		pt := PT(&out[i])
		if _, err := db.getUnchecked(id+uint64(i), pt); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// WriteRange writes items as a contiguous run of records starting at id,
// extending the file if needed, bypassing gene/liveness checks. Used by
// composite stores writing back a whole page at once.
func (db *Db[T, PT]) WriteRange(id uint64, items []T) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for i := range items {
		pt := PT(&items[i])
		if err := db.writeRecord(id+uint64(i), pt); err != nil {
			return err
		}
	}
	size, err := fileSize(db.f)
	if err != nil {
		return err
	}
	last := id + uint64(len(items)) - 1
	if last >= recordCount(size, db.itemSize) {
		db.setupProg = last
	}
	return nil
}

// Count returns the number of currently live records.
func (db *Db[T, PT]) Count() uint64 {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.live
}

// List calls fn for every live record in ascending id order, stopping
// early if fn returns false. A zero-gene or dead slot is first offered to
// kochForward, same as Get, so listing never surfaces a record the koch
// source could have supplied before the background sweep reached it.
func (db *Db[T, PT]) List(fn func(g gene.Gene, rec T) bool) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	size, err := fileSize(db.f)
	if err != nil {
		return err
	}
	count := recordCount(size, db.itemSize)
	if db.koch != nil {
		total, err := db.koch.total()
		if err != nil {
			return err
		}
		if total > count {
			count = total
		}
	}
	for id := uint64(1); id <= count; id++ {
		var rec T
		pt := PT(&rec)
		ok, err := db.getUnchecked(id, pt)
		if err != nil {
			return err
		}
		if !ok || !pt.FlagsRef().IsAlive() {
			if err := db.kochForward(id, pt, ok); err != nil {
				return err
			}
			if ok, err = db.getUnchecked(id, pt); err != nil {
				return err
			}
		}
		if !ok || !pt.FlagsRef().IsAlive() {
			continue
		}
		if db.inspector != nil {
			db.inspector(id, pt)
		}
		if !fn(*pt.GeneRef(), rec) {
			break
		}
	}
	return nil
}
