package entity

// SetKoch installs the background migration hook; see NewKoch. Pass nil
// to disable (the default).
func (db *Db[T, PT]) SetKoch(k kochHook[T]) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.koch = k
}

// SetInspector installs a callback that List invokes for every live
// record it yields (Get does not call it); a plain function value, deliberately
// avoiding a back-pointer from the record to its store (spec.md §9).
func (db *Db[T, PT]) SetInspector(fn func(id uint64, rec PT)) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.inspector = fn
}

// SetDeadListDisabled toggles whether freed slots are tracked for reuse.
func (db *Db[T, PT]) SetDeadListDisabled(d bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.dead.SetDisabled(d)
}

// SetWorkIter changes how many steps each background Work call performs.
func (db *Db[T, PT]) SetWorkIter(n int) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.workIter = n
}

// Name returns the store's label, used by callers composing multiple
// entity stores (pond, belt) to build log/metric labels.
func (db *Db[T, PT]) Name() string { return db.name }
