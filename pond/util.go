package pond

// addEmptyPond retires a now-fully-dead pond: unlinks it from origin's
// chain, fixes up its neighbors, and pushes its gene onto the free list
// for reuse by halfEmptyPond. Grounded on db/pond/util.rs's
// add_empty_pond.
func (db *Db[T, PT]) addEmptyPond(origin *Origin, pond Pond) error {
	if origin.PondCount > 0 {
		origin.PondCount--
	}

	buf, err := db.item.ReadRange(pond.Stack, PageSize)
	if err != nil {
		return err
	}
	pond.Empty = 0
	pond.Alive = 0
	for i := range buf {
		pt := PT(&buf[i])
		if !pt.GeneRef().Exhausted() {
			pond.Empty++
		}
		if pt.FlagsRef().IsAlive() {
			db.log.Warn("adding a non-free pond to free_list", "pond", pond.Gene.String())
			return nil
		}
	}

	if origin.Head == pond.Gene {
		origin.Head = pond.Next
	}
	if origin.Tail == pond.Gene {
		origin.Tail = pond.Past
	}

	if old, err := db.pond.Get(pond.Past); err == nil {
		old.Next = pond.Next
		if err := db.pond.Set(old.Gene, old); err != nil {
			return err
		}
	}
	if old, err := db.pond.Get(pond.Next); err == nil {
		old.Past = pond.Past
		if err := db.pond.Set(old.Gene, old); err != nil {
			return err
		}
	}

	pond.Next.Clear()
	pond.Past.Clear()
	pond.Origin.Clear()
	if err := db.pond.Set(pond.Gene, pond); err != nil {
		return err
	}
	db.freeList.Push(pond.Gene)
	return nil
}

// halfEmptyPond finds the first pond in origin's chain with a free slot,
// or allocates one (reusing a retired pond from the free list when one
// exists), appending it to the tail of the chain. Grounded on
// db/pond/util.rs's half_empty_pond.
func (db *Db[T, PT]) halfEmptyPond(origin *Origin) (Pond, error) {
	pondGene := origin.Head
	var pond Pond
	for pondGene.IsSome() {
		p, err := db.pond.Get(pondGene)
		if err != nil {
			break
		}
		pond = p
		if pond.Empty > 0 {
			return pond, nil
		}
		pondGene = pond.Next
	}

	var fresh Pond
	addNew := true
	if g, ok := db.takeFree(); ok {
		if p, err := db.pond.Get(g); err == nil {
			fresh = p
			addNew = false
		}
	}
	if addNew {
		fresh.Gene.Clear()
		g, err := db.pond.Add(fresh)
		if err != nil {
			return Pond{}, err
		}
		fresh.Gene = g
	}
	fresh.Next.Clear()
	fresh.Alive = 0
	fresh.Origin = origin.Gene
	origin.PondCount++

	if pond.EFlags.IsAlive() {
		pond.Next = fresh.Gene
		fresh.Past = origin.Tail
		origin.Tail = fresh.Gene
		if err := db.pond.Set(pond.Gene, pond); err != nil {
			return Pond{}, err
		}
	} else {
		fresh.Past.Clear()
		origin.Head = fresh.Gene
		origin.Tail = fresh.Gene
	}

	return fresh, nil
}
