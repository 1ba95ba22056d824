package belt

import (
	"github.com/00-team/shah/errs"
	"github.com/00-team/shah/gene"
)

// Add appends belt to the chain anchored at buckleGene, linking it as
// the new tail. Grounded on db/belt/belt_api.rs's belt_add.
func (db *Db[T, PT]) Add(buckleGene gene.Gene, belt T) (gene.Gene, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	pt := PT(&belt)
	pt.FlagsRef().SetAlive(true)

	buckle, err := db.buckle.Get(buckleGene)
	if err != nil {
		return gene.Gene{}, err
	}

	*pt.BuckleRef() = buckle.Gene
	*pt.GrowthRef() = 0
	*pt.PastRef() = buckle.Tail
	pt.NextRef().Clear()

	g, err := db.belt.Add(belt)
	if err != nil {
		return gene.Gene{}, err
	}

	if !buckle.Head.IsSome() {
		buckle.Head = g
	}

	oldTail := buckle.Tail
	buckle.Tail = g
	buckle.BeltCount++

	if sibling, err := db.belt.Get(oldTail); err == nil {
		siblingPT := PT(&sibling)
		*siblingPT.NextRef() = buckle.Tail
		if err := db.belt.Set(oldTail, sibling); err != nil {
			return gene.Gene{}, err
		}
	}

	return g, db.buckle.Set(buckle.Gene, buckle)
}

// Get reads the belt record identified by g.
func (db *Db[T, PT]) Get(g gene.Gene) (T, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.belt.Get(g)
}

// Count returns the number of currently live belt records.
func (db *Db[T, PT]) Count() uint64 {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.belt.Count()
}

// Set overwrites the belt record identified by g, preserving
// its chain pointers and growth counter.
func (db *Db[T, PT]) Set(g gene.Gene, belt T) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	pt := PT(&belt)
	if !pt.FlagsRef().IsAlive() {
		return errs.NewSystem(errs.DeadSet)
	}

	old, err := db.belt.Get(g)
	if err != nil {
		return err
	}
	oldPT := PT(&old)
	*pt.GrowthRef() = *oldPT.GrowthRef()
	*pt.NextRef() = *oldPT.NextRef()
	*pt.PastRef() = *oldPT.PastRef()
	*pt.BuckleRef() = *oldPT.BuckleRef()
	return db.belt.Set(g, belt)
}

// Del removes the belt record identified by g, relinking its
// neighbors and the owning buckle's head/tail as needed. Grounded on
// db/belt/belt_api.rs's belt_del.
func (db *Db[T, PT]) Del(g gene.Gene) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.delLocked(g)
}

// delLocked is Del's body without locking, for callers (BuckleDel's
// cascade) that already hold db.mu.
func (db *Db[T, PT]) delLocked(g gene.Gene) error {
	belt, err := db.belt.Get(g)
	if err != nil {
		return err
	}
	pt := PT(&belt)

	buckle, err := db.buckle.Get(*pt.BuckleRef())
	if err != nil {
		return err
	}
	if buckle.BeltCount > 0 {
		buckle.BeltCount--
	}
	if buckle.Head == g {
		buckle.Head = *pt.NextRef()
	}
	if buckle.Tail == g {
		buckle.Tail = *pt.PastRef()
	}

	if sibling, err := db.belt.Get(*pt.PastRef()); err == nil {
		siblingPT := PT(&sibling)
		*siblingPT.NextRef() = *pt.NextRef()
		if err := db.belt.Set(*siblingPT.GeneRef(), sibling); err != nil {
			return err
		}
	}
	if sibling, err := db.belt.Get(*pt.NextRef()); err == nil {
		siblingPT := PT(&sibling)
		*siblingPT.PastRef() = *pt.PastRef()
		if err := db.belt.Set(*siblingPT.GeneRef(), sibling); err != nil {
			return err
		}
	}

	if err := db.belt.Del(g); err != nil {
		return err
	}
	return db.buckle.Set(buckle.Gene, buckle)
}

// List reads n consecutive belt records starting at
// id, regardless of liveness, matching entity.Db's raw positional read.
func (db *Db[T, PT]) List(id uint64, n int) ([]T, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.belt.ReadRange(id, n)
}
