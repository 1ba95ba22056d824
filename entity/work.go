package entity

import "github.com/00-team/shah/tasks"

// kochHook lets a Db migrate records forward from an older on-disk shape
// without EntityDb[T, PT] itself carrying the old shape's type parameters.
// Grounded on the reference engine's EntityKochFrom<O, S> trait
// (entity/mod.rs) but modeled as composition instead of inheritance per
// spec.md §9: "model it as parametrized stores composed by a higher-level
// struct; do not inherit".
type kochHook[T any] interface {
	// total reports the highest record id in the old store, the bound
	// the migration cursor walks up to.
	total() (uint64, error)
	// migrate converts old record id and writes it into dst, returning
	// false if there was nothing at that id to migrate.
	migrate(dst dstWriter[T], id uint64) (bool, error)
	// fetch converts old record id without writing it anywhere, for
	// on-demand point migration where the caller must inspect the
	// converted record's growth counter before deciding to land it.
	fetch(id uint64) (T, bool, error)
}

// dstWriter is the slice of Db[T, PT] a kochAdapter needs to land a
// converted record, named independently of PT so kochAdapter[T, O, OldPT]
// never has to spell out T's own pointer-receiver type parameter.
type dstWriter[T any] interface {
	writeConverted(id uint64, rec T) error
}

// kochAdapter wraps an already-open old-shape store OP=*O (itself an
// EntityDb[O, OldPT]) plus a Convert function, satisfying kochHook[T]
// without EntityDb[T, PT]'s signature ever naming O.
type kochAdapter[T any, O any, OldPT RecordPtr[O]] struct {
	old     *Db[O, OldPT]
	convert func(O) T
}

// NewKoch builds a kochHook migrating every record out of old into the
// shape T using convert, for use with SetKoch.
func NewKoch[T any, O any, OldPT RecordPtr[O]](old *Db[O, OldPT], convert func(O) T) kochHook[T] {
	return &kochAdapter[T, O, OldPT]{old: old, convert: convert}
}

func (k *kochAdapter[T, O, OldPT]) total() (uint64, error) {
	k.old.mu.Lock()
	defer k.old.mu.Unlock()
	size, err := fileSize(k.old.f)
	if err != nil {
		return 0, err
	}
	return recordCount(size, k.old.itemSize), nil
}

func (k *kochAdapter[T, O, OldPT]) migrate(dst dstWriter[T], id uint64) (bool, error) {
	converted, found, err := k.fetch(id)
	if err != nil || !found {
		return false, err
	}
	if err := dst.writeConverted(id, converted); err != nil {
		return false, err
	}
	return true, nil
}

func (k *kochAdapter[T, O, OldPT]) fetch(id uint64) (T, bool, error) {
	k.old.mu.Lock()
	var old O
	found, err := k.old.getUnchecked(id, OldPT(&old))
	k.old.mu.Unlock()
	var zero T
	if err != nil || !found {
		return zero, false, err
	}
	return k.convert(old), true, nil
}

// kochStep runs one slice of the background koch migration: migrating up
// to workIter records starting at the persisted progress cursor, reporting
// Performed(true) whenever it actually moved a record forward.
func kochStep[T any, PT RecordPtr[T]](db *Db[T, PT]) (tasks.Performed, error) {
	if db.koch == nil {
		return tasks.Performed(false), nil
	}
	total, err := db.koch.total()
	if err != nil {
		return tasks.Performed(false), err
	}
	if db.prog.Done >= total {
		return tasks.Performed(false), nil
	}
	steps := db.workIter
	if steps <= 0 {
		steps = DefaultWorkIter
	}
	did := false
	for i := 0; i < steps && db.prog.Done < total; i++ {
		db.prog.Done++
		if _, err := db.koch.migrate(db, db.prog.Done); err != nil {
			return tasks.Performed(did), err
		}
		did = true
	}
	if err := db.writeProg(); err != nil {
		return tasks.Performed(did), err
	}
	return tasks.Performed(did), nil
}

// deadSweepStep restocks the in-memory dead list from disk when it has run
// dry, scanning forward from the last record it has not yet inspected.
// Mirrors the reference engine's work.rs dead-list replenishment pass.
func deadSweepStep[T any, PT RecordPtr[T]](db *Db[T, PT]) (tasks.Performed, error) {
	if db.dead.Len() > 0 || db.dead.Disabled() {
		return tasks.Performed(false), nil
	}
	steps := db.workIter
	if steps <= 0 {
		steps = DefaultWorkIter
	}
	did := false
	for i := 0; i < steps; i++ {
		id := db.setupProg + 1
		size, err := fileSize(db.f)
		if err != nil {
			return tasks.Performed(did), err
		}
		if id > recordCount(size, db.itemSize) {
			break
		}
		db.setupProg = id
		var rec T
		pt := PT(&rec)
		ok, err := db.getUnchecked(id, pt)
		if err != nil {
			return tasks.Performed(did), err
		}
		if ok && !pt.FlagsRef().IsAlive() {
			db.dead.Push(id)
		}
		did = true
	}
	return tasks.Performed(did), nil
}

func defaultTasks[T any, PT RecordPtr[T]]() *tasks.List[*Db[T, PT]] {
	return tasks.NewList(
		tasks.Step[*Db[T, PT]](kochStep[T, PT]),
		tasks.Step[*Db[T, PT]](deadSweepStep[T, PT]),
	)
}

// Work runs one cooperative step of background maintenance (koch migration
// and dead-list replenishment); call this from a server's idle loop.
func (db *Db[T, PT]) Work() (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	p, err := tasks.Work(db.tasks, db)
	return bool(p), err
}
