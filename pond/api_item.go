package pond

import (
	"github.com/00-team/shah/errs"
	"github.com/00-team/shah/gene"
)

// Add appends item to the owner identified by origeneGene, placing it in
// the first pond with an empty slot (allocating a fresh pond/page if
// none has room). Grounded on db/pond/api_item.rs's add.
func (db *Db[T, PT]) Add(origeneGene gene.Gene, item T) (gene.Gene, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	pt := PT(&item)
	pt.FlagsRef().SetAlive(true)

	origin, err := db.origin.Get(origeneGene)
	if err != nil {
		return gene.Gene{}, err
	}
	origin.ItemCount++

	pond, err := db.halfEmptyPond(&origin)
	if err != nil {
		return gene.Gene{}, err
	}
	pond.Alive++

	*pt.PondRef() = pond.Gene
	*pt.GrowthRef() = 0
	ig := pt.GeneRef()
	ig.Server = db.server
	gene.GetRandom(ig.Pepper[:])

	var assignedGene gene.Gene
	if pond.Stack == 0 {
		s, err := db.newStackId()
		if err != nil {
			return gene.Gene{}, err
		}
		ig.Id = s
		ig.Iter = 0
		pond.Stack = s
		pond.Empty = PageSize - 1
		assignedGene = *ig

		buf := make([]T, PageSize)
		buf[0] = item
		for i := 1; i < PageSize; i++ {
			bpt := PT(&buf[i])
			g := bpt.GeneRef()
			g.Id = s + uint64(i)
			g.Server = db.server
			*bpt.PondRef() = pond.Gene
		}
		if err := db.item.WriteRange(s, buf); err != nil {
			return gene.Gene{}, err
		}
		db.item.AdjustLive(1)
	} else {
		buf, err := db.item.ReadRange(pond.Stack, PageSize)
		if err != nil {
			return gene.Gene{}, err
		}
		found := false
		for i := range buf {
			slotPT := PT(&buf[i])
			sg := slotPT.GeneRef()
			if !slotPT.FlagsRef().IsAlive() && !sg.Exhausted() {
				ig.Id = pond.Stack + uint64(i)
				if sg.Id != 0 {
					ig.Iter = sg.Iter + 1
					*pt.GrowthRef() = *slotPT.GrowthRef() + 1
				} else {
					ig.Iter = 0
				}
				buf[i] = item
				found = true
				assignedGene = *ig
				if pond.Empty > 0 {
					pond.Empty--
				}
				break
			}
		}
		if !found {
			return gene.Gene{}, errs.NewSystem(errs.PondNoEmptySlotWasFound)
		}
		if err := db.item.WriteRange(pond.Stack, buf); err != nil {
			return gene.Gene{}, err
		}
		db.item.AdjustLive(1)
	}

	if err := db.pond.Set(pond.Gene, pond); err != nil {
		return gene.Gene{}, err
	}
	if err := db.origin.Set(origeneGene, origin); err != nil {
		return gene.Gene{}, err
	}

	return assignedGene, nil
}

// Get reads the item identified by g.
func (db *Db[T, PT]) Get(g gene.Gene) (T, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.item.Get(g)
}

// Count returns the number of currently live items.
func (db *Db[T, PT]) Count() uint64 {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.item.Count()
}

// Set overwrites the item identified by g, preserving its gene, growth
// counter and pond assignment.
func (db *Db[T, PT]) Set(g gene.Gene, item T) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	pt := PT(&item)
	if !pt.FlagsRef().IsAlive() {
		return errs.NewSystem(errs.DeadSet)
	}

	old, err := db.item.Get(g)
	if err != nil {
		return err
	}
	oldPT := PT(&old)
	*pt.GrowthRef() = *oldPT.GrowthRef()
	*pt.PondRef() = *oldPT.PondRef()
	return db.item.Set(g, item)
}

// Del removes the item identified by g and, if it was the last live item
// in its pond, retires the pond back to the free list.
func (db *Db[T, PT]) Del(g gene.Gene) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	item, err := db.item.Get(g)
	if err != nil {
		return err
	}
	if err := db.item.Del(g); err != nil {
		return err
	}
	itemPT := PT(&item)

	pond, err := db.pond.Get(*itemPT.PondRef())
	if err != nil {
		return err
	}
	if pond.Alive > 0 {
		pond.Alive--
	}

	origin, err := db.origin.Get(pond.Origin)
	if err != nil {
		return err
	}
	if origin.ItemCount > 0 {
		origin.ItemCount--
	}

	if pond.Alive == 0 {
		if err := db.addEmptyPond(&origin, pond); err != nil {
			return err
		}
	} else {
		if err := db.pond.Set(pond.Gene, pond); err != nil {
			return err
		}
	}

	return db.origin.Set(origin.Gene, origin)
}

// List reads the fixed PageSize page starting at id, regardless of
// liveness (callers filter alive items themselves, matching the
// reference engine's raw page read).
func (db *Db[T, PT]) List(id uint64) ([]T, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.item.ReadRange(id, PageSize)
}
