package crawler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateBudgetObserveOverwrites(t *testing.T) {
	budget := NewRateBudget()
	resetAt := time.Now().Add(30 * time.Minute)

	budget.Observe(42, resetAt, 3)

	assert.Equal(t, 42, budget.Remaining())
	assert.Equal(t, resetAt, budget.ResetAt())
	assert.Equal(t, 3, budget.LastObservedCost())
}

func TestRateBudgetExhaustion(t *testing.T) {
	budget := NewRateBudget()
	assert.False(t, budget.IsExhausted())

	budget.Observe(0, time.Now().Add(time.Hour), 1)
	assert.True(t, budget.IsExhausted())

	// The next observation refills it.
	budget.Observe(5000, time.Now().Add(time.Hour), 1)
	assert.False(t, budget.IsExhausted())
}

func TestRateBudgetHasCapacity(t *testing.T) {
	budget := NewRateBudget()
	budget.Observe(2, time.Now().Add(time.Hour), 1)

	assert.True(t, budget.HasCapacity(1))
	assert.True(t, budget.HasCapacity(2))
	assert.False(t, budget.HasCapacity(3))
}
