package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricVariables(t *testing.T) {
	t.Run("BorrowsTotal", func(t *testing.T) {
		assert.NotNil(t, BorrowsTotal)
	})

	t.Run("GivebacksTotal", func(t *testing.T) {
		assert.NotNil(t, GivebacksTotal)
	})

	t.Run("ConsumesTotal", func(t *testing.T) {
		assert.NotNil(t, ConsumesTotal)
	})

	t.Run("RefillsTotal", func(t *testing.T) {
		assert.NotNil(t, RefillsTotal)
	})

	t.Run("RefillFailuresTotal", func(t *testing.T) {
		assert.NotNil(t, RefillFailuresTotal)
	})

	t.Run("IdentifiersFetchedTotal", func(t *testing.T) {
		assert.NotNil(t, IdentifiersFetchedTotal)
	})

	t.Run("LentDiscardsTotal", func(t *testing.T) {
		assert.NotNil(t, LentDiscardsTotal)
	})

	t.Run("FreshIDs", func(t *testing.T) {
		assert.NotNil(t, FreshIDs)
	})

	t.Run("LentIDs", func(t *testing.T) {
		assert.NotNil(t, LentIDs)
	})

	t.Run("PoolsActive", func(t *testing.T) {
		assert.NotNil(t, PoolsActive)
	})
}

func TestRecordBorrow(t *testing.T) {
	before := testutil.ToFloat64(BorrowsTotal.WithLabelValues("t/borrow", OutcomeOK))
	RecordBorrow("t/borrow", OutcomeOK)
	after := testutil.ToFloat64(BorrowsTotal.WithLabelValues("t/borrow", OutcomeOK))
	assert.Equal(t, before+1, after)
}

func TestRecordRefill(t *testing.T) {
	RecordRefill("t/refill", 20)
	assert.Equal(t, float64(1), testutil.ToFloat64(RefillsTotal.WithLabelValues("t/refill")))
	assert.Equal(t, float64(20), testutil.ToFloat64(IdentifiersFetchedTotal.WithLabelValues("t/refill")))
}

func TestRecordLentDiscard(t *testing.T) {
	RecordLentDiscard("t/discard", 42)
	assert.Equal(t, float64(42), testutil.ToFloat64(LentDiscardsTotal.WithLabelValues("t/discard")))
}

func TestUpdatePoolSizes(t *testing.T) {
	UpdatePoolSizes("t/sizes", 15, 3)
	assert.Equal(t, float64(15), testutil.ToFloat64(FreshIDs.WithLabelValues("t/sizes")))
	assert.Equal(t, float64(3), testutil.ToFloat64(LentIDs.WithLabelValues("t/sizes")))
}
