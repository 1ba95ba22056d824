package pond

import "github.com/00-team/shah/gene"

// OriginRoot ensures the well-known root origin (gene.Root) exists,
// creating it empty if this is the first call. Grounded on
// db/pond/api_origin.rs's origin_root.
func (db *Db[T, PT]) OriginRoot() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, err := db.origin.Get(gene.Root)
	if err == nil {
		return nil
	}
	var origin Origin
	origin.EFlags.SetAlive(true)
	origin.Gene = gene.Root
	return db.origin.Set(gene.Root, origin)
}

// OriginGet reads the origin identified by g.
func (db *Db[T, PT]) OriginGet(g gene.Gene) (Origin, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.origin.Get(g)
}

// OriginInit creates a fresh origin if g is none or not found, zeroing
// its chain pointers and counters.
func (db *Db[T, PT]) OriginInit(g gene.Gene) (Origin, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if g.IsSome() {
		if o, err := db.origin.Get(g); err == nil {
			return o, nil
		}
	}
	var origin Origin
	origin.Head.Clear()
	origin.Tail.Clear()
	origin.PondCount = 0
	origin.ItemCount = 0
	g, err := db.origin.Add(origin)
	if err != nil {
		return Origin{}, err
	}
	origin.Gene = g
	origin.EFlags.SetAlive(true)
	return origin, nil
}

// OriginSet overwrites an origin's non-chain fields, preserving its
// growth counter, chain pointers, and counters (which only Add/Del
// mutate).
func (db *Db[T, PT]) OriginSet(g gene.Gene, origin Origin) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	old, err := db.origin.Get(g)
	if err != nil {
		return err
	}
	origin.Growth = old.Growth
	origin.Head = old.Head
	origin.Tail = old.Tail
	origin.PondCount = old.PondCount
	origin.ItemCount = old.ItemCount
	return db.origin.Set(g, origin)
}

// OriginDel frees every pond in g's chain and removes the origin itself.
func (db *Db[T, PT]) OriginDel(g gene.Gene) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	origin, err := db.origin.Get(g)
	if err != nil {
		return err
	}

	pondGene := origin.Head
	for pondGene.IsSome() {
		pd, err := db.pond.Get(pondGene)
		if err != nil {
			break
		}
		pondGene = pd.Next
		if err := db.pondFreeLocked(&pd); err != nil {
			return err
		}
	}

	return db.origin.Del(g)
}
