package entity

// AdjustLive lets a composite store (pond, belt) that writes records
// directly via WriteRange correct the live counter itself, mirroring the
// reference engine's manual `self.item.live += 1` bookkeeping in
// PondDb::add.
func (db *Db[T, PT]) AdjustLive(delta int64) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if delta >= 0 {
		db.live += uint64(delta)
	} else {
		d := uint64(-delta)
		if d > db.live {
			db.live = 0
		} else {
			db.live -= d
		}
	}
}

// FileSize returns the current length of the backing file, used by
// composite stores to compute a fresh page's starting id.
func (db *Db[T, PT]) FileSize() (uint64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return fileSize(db.f)
}

// ItemSize returns the fixed per-record byte size.
func (db *Db[T, PT]) ItemSize() uint64 { return db.itemSize }

// DeadListLen reports how many free slot ids are currently cached
// in-memory, for diagnostics/metrics only.
func (db *Db[T, PT]) DeadListLen() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.dead.Len()
}

// SetupDone reports whether the initial full-file liveness sweep (run
// inline during New) has scanned every record that existed at open time;
// always true outside of tests that construct a Db directly against a
// partially-initialized file.
func (db *Db[T, PT]) SetupDone() bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	size, err := fileSize(db.f)
	if err != nil {
		return false
	}
	return db.setupProg >= recordCount(size, db.itemSize)
}
