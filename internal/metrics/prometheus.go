package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BorrowsTotal tracks borrow calls per pool and outcome.
	BorrowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "idgen",
		Name:      "borrows_total",
		Help:      "Total number of borrow calls per pool",
	}, []string{"pool", "outcome"})

	// GivebacksTotal tracks identifiers returned unused per pool.
	GivebacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "idgen",
		Name:      "givebacks_total",
		Help:      "Total number of identifiers given back to the fresh pool",
	}, []string{"pool"})

	// ConsumesTotal tracks identifiers permanently claimed per pool.
	ConsumesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "idgen",
		Name:      "consumes_total",
		Help:      "Total number of identifiers consumed (permanently retired)",
	}, []string{"pool"})

	// RefillsTotal tracks successful remote refill calls per pool.
	RefillsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "idgen",
		Name:      "refills_total",
		Help:      "Total number of successful remote refill calls",
	}, []string{"pool"})

	// RefillFailuresTotal tracks failed remote refill calls per pool.
	RefillFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "idgen",
		Name:      "refill_failures_total",
		Help:      "Total number of failed remote refill calls",
	}, []string{"pool"})

	// IdentifiersFetchedTotal tracks identifiers received from the allocator.
	IdentifiersFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "idgen",
		Name:      "identifiers_fetched_total",
		Help:      "Total number of identifiers fetched from the remote allocator",
	}, []string{"pool"})

	// LentDiscardsTotal tracks identifiers dropped by the overflow safety valve.
	LentDiscardsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "idgen",
		Name:      "lent_discards_total",
		Help:      "Total number of lent identifiers discarded on overflow",
	}, []string{"pool"})

	// FreshIDs tracks the current fresh pool size per pool.
	FreshIDs = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "idgen",
		Name:      "fresh_ids",
		Help:      "Current number of fresh (unborrowed) identifiers",
	}, []string{"pool"})

	// LentIDs tracks the current lent pool size per pool.
	LentIDs = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "idgen",
		Name:      "lent_ids",
		Help:      "Current number of lent (borrowed, unresolved) identifiers",
	}, []string{"pool"})

	// PoolsActive tracks the number of tenant pools held by the manager.
	PoolsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "idgen",
		Name:      "pools_active",
		Help:      "Number of tenant identifier pools currently managed",
	})
)

// Borrow outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeExhausted = "exhausted"
	OutcomeError     = "error"
)

// RecordBorrow increments the borrow counter for a pool.
func RecordBorrow(pool, outcome string) {
	BorrowsTotal.WithLabelValues(pool, outcome).Inc()
}

// RecordGiveback increments the giveback counter for a pool.
func RecordGiveback(pool string) {
	GivebacksTotal.WithLabelValues(pool).Inc()
}

// RecordConsume increments the consume counter for a pool.
func RecordConsume(pool string) {
	ConsumesTotal.WithLabelValues(pool).Inc()
}

// RecordRefill records a successful refill and the batch size received.
func RecordRefill(pool string, fetched int) {
	RefillsTotal.WithLabelValues(pool).Inc()
	IdentifiersFetchedTotal.WithLabelValues(pool).Add(float64(fetched))
}

// RecordRefillFailure increments the refill failure counter for a pool.
func RecordRefillFailure(pool string) {
	RefillFailuresTotal.WithLabelValues(pool).Inc()
}

// RecordLentDiscard adds the number of identifiers dropped on overflow.
func RecordLentDiscard(pool string, discarded int) {
	LentDiscardsTotal.WithLabelValues(pool).Add(float64(discarded))
}

// UpdatePoolSizes updates the fresh and lent gauges for a pool.
func UpdatePoolSizes(pool string, fresh, lent int) {
	FreshIDs.WithLabelValues(pool).Set(float64(fresh))
	LentIDs.WithLabelValues(pool).Set(float64(lent))
}
