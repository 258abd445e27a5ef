package crawler

import (
	"sync"
	"time"
)

// RateBudget tracks the shared upstream cost quota. The upstream API is
// authoritative: every successful response overwrites the state wholesale,
// there is no local decrementing beyond planning checks.
type RateBudget struct {
	mu               sync.Mutex
	remaining        int
	resetAt          time.Time
	lastObservedCost int
}

// NewRateBudget creates a budget seeded with the GitHub GraphQL default quota
func NewRateBudget() *RateBudget {
	return &RateBudget{
		remaining: 5000,
		resetAt:   time.Now().Add(time.Hour),
	}
}

// Observe overwrites the budget with the values echoed by the upstream API
func (b *RateBudget) Observe(remaining int, resetAt time.Time, cost int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.remaining = remaining
	b.resetAt = resetAt
	b.lastObservedCost = cost
}

// IsExhausted reports whether no quota remains
func (b *RateBudget) IsExhausted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remaining == 0
}

// HasCapacity reports whether an item of the given planned cost fits in the
// remaining quota
func (b *RateBudget) HasCapacity(cost int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remaining >= cost
}

// Remaining returns the most recently observed remaining quota
func (b *RateBudget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remaining
}

// ResetAt returns the most recently observed quota refill time
func (b *RateBudget) ResetAt() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.resetAt
}

// LastObservedCost returns the cost consumed by the most recent call
func (b *RateBudget) LastObservedCost() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastObservedCost
}
