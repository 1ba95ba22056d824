// Package worker runs the cooperative background maintenance step
// (koch migration, dead-list replenishment) every entity-backed store
// exposes as Work(), deduplicating concurrent triggers for the same
// store with singleflight so a timer tick racing an on-demand trigger
// collapses into one migration pass. Grounded on the single-writer
// background work() sweep spec.md §5 describes.
package worker

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/00-team/shah/xlog"
)

// Workable is the subset of entity.Db's API a store exposes for
// cooperative background maintenance.
type Workable interface {
	Work() (bool, error)
}

// Scheduler runs Work() for a set of named stores, deduplicating
// concurrent calls for the same name.
type Scheduler struct {
	group  singleflight.Group
	log    xlog.Logger
	stores map[string]Workable
}

// New builds a Scheduler over stores, keyed by name for logging and
// singleflight dedup.
func New(stores map[string]Workable) *Scheduler {
	return &Scheduler{
		log:    xlog.Root().Named("worker"),
		stores: stores,
	}
}

// Trigger runs one Work() step for name, or joins an already in-flight
// call for the same name instead of running a second one concurrently.
func (s *Scheduler) Trigger(name string) (bool, error) {
	store, ok := s.stores[name]
	if !ok {
		return false, nil
	}
	v, err, _ := s.group.Do(name, func() (any, error) {
		return store.Work()
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// Run ticks every interval until ctx is done, triggering every store in
// turn on each tick.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for name := range s.stores {
				if _, err := s.Trigger(name); err != nil {
					s.log.Warn("work step failed", "store", name, "err", err)
				}
			}
		}
	}
}
