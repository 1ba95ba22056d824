package belt

import (
	"github.com/00-team/shah/errs"
	"github.com/00-team/shah/gene"
)

// BuckleRoot ensures the well-known root buckle (gene.Root) exists,
// creating it empty if this is the first call. Grounded on
// db/belt/buckle.rs's buckle_root.
func (db *Db[T, PT]) BuckleRoot() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, err := db.buckle.Get(gene.Root); err == nil {
		return nil
	}
	var buckle Buckle
	buckle.EFlags.SetAlive(true)
	buckle.Gene = gene.Root
	return db.buckle.Set(gene.Root, buckle)
}

// BuckleInit creates a fresh buckle if g is none or not found, zeroing
// its chain pointers and counter. Grounded on db/belt/buckle.rs's
// buckle_init.
func (db *Db[T, PT]) BuckleInit(g gene.Gene) (Buckle, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if g.IsSome() {
		if b, err := db.buckle.Get(g); err == nil {
			return b, nil
		}
	}
	var buckle Buckle
	buckle.Head.Clear()
	buckle.Tail.Clear()
	buckle.BeltCount = 0
	buckle.Gene.Clear()
	g, err := db.buckle.Add(buckle)
	if err != nil {
		return Buckle{}, err
	}
	buckle.Gene = g
	buckle.EFlags.SetAlive(true)
	return buckle, nil
}

// BuckleGet reads the buckle identified by g.
func (db *Db[T, PT]) BuckleGet(g gene.Gene) (Buckle, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.buckle.Get(g)
}

// BuckleSet overwrites a buckle's non-chain fields, preserving its
// growth counter, chain pointers, and belt count (which only Add/Del
// mutate).
func (db *Db[T, PT]) BuckleSet(g gene.Gene, buckle Buckle) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if !buckle.EFlags.IsAlive() {
		return errs.NewSystem(errs.DeadSet)
	}
	old, err := db.buckle.Get(g)
	if err != nil {
		return err
	}
	buckle.Growth = old.Growth
	buckle.Head = old.Head
	buckle.Tail = old.Tail
	buckle.BeltCount = old.BeltCount
	return db.buckle.Set(g, buckle)
}

// BuckleCount returns the number of currently live buckles.
func (db *Db[T, PT]) BuckleCount() uint64 {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.buckle.Count()
}

// BuckleList reads up to n consecutive buckle records starting at id.
func (db *Db[T, PT]) BuckleList(id uint64, n int) ([]Buckle, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.buckle.ReadRange(id, n)
}

// BuckleDel cascades: frees every belt in g's chain, then removes the
// buckle itself. Grounded on db/belt/buckle.rs's buckle_del.
func (db *Db[T, PT]) BuckleDel(g gene.Gene) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	buckle, err := db.buckle.Get(g)
	if err != nil {
		return err
	}

	beltGene := buckle.Head
	for beltGene.IsSome() {
		belt, err := db.belt.Get(beltGene)
		if err != nil {
			break
		}
		pt := PT(&belt)
		next := *pt.NextRef()
		if err := db.delLocked(beltGene); err != nil {
			return err
		}
		beltGene = next
	}

	return db.buckle.Del(g)
}
