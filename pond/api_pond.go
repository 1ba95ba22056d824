package pond

import "github.com/00-team/shah/gene"

// PondList reads pond's page of items after refreshing pond itself from
// disk.
func (db *Db[T, PT]) PondList(g gene.Gene) (Pond, []T, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	pd, err := db.pond.Get(g)
	if err != nil {
		return Pond{}, nil, err
	}
	items, err := db.item.ReadRange(pd.Stack, PageSize)
	return pd, items, err
}

// PondGet reads the pond identified by g.
func (db *Db[T, PT]) PondGet(g gene.Gene) (Pond, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.pond.Get(g)
}

// PondSet overwrites a pond's mutable fields while preserving the
// fields only Add/Del/util bookkeeping may change.
func (db *Db[T, PT]) PondSet(g gene.Gene, pd Pond) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	old, err := db.pond.Get(g)
	if err != nil {
		return err
	}
	pd.Growth = old.Growth
	pd.Next = old.Next
	pd.Past = old.Past
	pd.Origin = old.Origin
	pd.Stack = old.Stack
	pd.Alive = old.Alive
	pd.Empty = old.Empty
	return db.pond.Set(g, pd)
}

// PondFree marks every item in pond's page dead and retires the pond to
// the free list. Grounded on db/pond/api_pond.rs's pond_free.
func (db *Db[T, PT]) PondFree(g gene.Gene) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	pd, err := db.pond.Get(g)
	if err != nil {
		return err
	}
	return db.pondFreeLocked(&pd)
}

func (db *Db[T, PT]) pondFreeLocked(pd *Pond) error {
	buf, err := db.item.ReadRange(pd.Stack, PageSize)
	if err != nil {
		return err
	}

	pd.Empty = 0
	for i := range buf {
		pt := PT(&buf[i])
		if pt.FlagsRef().IsAlive() {
			*pt.GrowthRef()++
			pt.FlagsRef().SetAlive(false)
		}
		if !pt.GeneRef().Exhausted() {
			pd.Empty++
		}
	}
	if err := db.item.WriteRange(pd.Stack, buf); err != nil {
		return err
	}

	pd.Alive = 0
	if err := db.pond.Set(pd.Gene, *pd); err != nil {
		return err
	}
	db.freeList.Push(pd.Gene)
	return nil
}
