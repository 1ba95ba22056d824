// Package metrics exposes Prometheus counters/gauges for the
// long-running subsystems cmd/shahd wires up: named counters/gauges
// registered once at init and incremented from call sites.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// EntityLive and EntityDead track each entity store's live/free-list
	// size, labeled by store name.
	EntityLive = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "shah", Subsystem: "entity", Name: "live_records",
		Help: "number of live records in an entity store",
	}, []string{"store"})
	EntityDead = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "shah", Subsystem: "entity", Name: "dead_records",
		Help: "number of free-list (dead) slots in an entity store",
	}, []string{"store"})

	// SnakeAlloc, SnakeFree and SnakeCoalesce count the allocator's
	// lifetime operations, labeled by store name.
	SnakeAlloc = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shah", Subsystem: "snake", Name: "alloc_total",
		Help: "number of blocks allocated",
	}, []string{"store"})
	SnakeFree = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shah", Subsystem: "snake", Name: "free_total",
		Help: "number of blocks freed",
	}, []string{"store"})
	SnakeCoalesce = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shah", Subsystem: "snake", Name: "coalesce_total",
		Help: "number of adjacent free blocks merged",
	}, []string{"store"})

	// DispatchRequests counts dispatched orders by scope name and the
	// wire error scope of the reply ("ok" when no error).
	DispatchRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shah", Subsystem: "dispatch", Name: "requests_total",
		Help: "number of dispatched orders",
	}, []string{"scope", "error_scope"})

	// KochProgress tracks each entity store's background migration
	// cursor, labeled by store name.
	KochProgress = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "shah", Subsystem: "koch", Name: "progress",
		Help: "last migrated record id for a store undergoing koch migration",
	}, []string{"store"})
)

// Register adds every metric in this package to reg. Call once during
// startup before serving /metrics.
func Register(reg *prometheus.Registry) {
	reg.MustRegister(EntityLive, EntityDead, SnakeAlloc, SnakeFree, SnakeCoalesce, DispatchRequests, KochProgress)
}

// EntityCounts is the subset of entity.Db's API metrics needs, so this
// package doesn't import entity and create a dependency cycle risk as
// more store packages grow their own metrics hooks.
type EntityCounts interface {
	Count() uint64
	DeadListLen() int
}

// ObserveEntity updates the live/dead gauges for a named store.
func ObserveEntity(store string, db EntityCounts) {
	EntityLive.WithLabelValues(store).Set(float64(db.Count()))
	EntityDead.WithLabelValues(store).Set(float64(db.DeadListLen()))
}
