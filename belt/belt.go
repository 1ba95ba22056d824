package belt

import (
	"sync"

	"github.com/00-team/shah/entity"
	"github.com/00-team/shah/xlog"
)

// Db composes a belt entity store (the chain links) and a buckle entity
// store (the chain anchors) into one buckle -> belts structure.
// Grounded on the reference engine's BeltDb (db/belt/mod.rs).
type Db[T any, PT LinkPtr[T]] struct {
	mu sync.Mutex

	belt   *entity.Db[T, PT]
	buckle *entity.Db[Buckle, *Buckle]

	log xlog.Logger
}

// New composes belt/buckle entity stores (already opened by the caller
// against their own files) into a Db.
func New[T any, PT LinkPtr[T]](belt *entity.Db[T, PT], buckle *entity.Db[Buckle, *Buckle]) *Db[T, PT] {
	return &Db[T, PT]{belt: belt, buckle: buckle, log: xlog.Root().Named("belt")}
}

// Work runs one cooperative step across both composed stores.
func (db *Db[T, PT]) Work() error {
	if _, err := db.belt.Work(); err != nil {
		return err
	}
	if _, err := db.buckle.Work(); err != nil {
		return err
	}
	return nil
}
