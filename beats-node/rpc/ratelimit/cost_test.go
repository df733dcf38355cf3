package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCostBudgetAllowsWithinBurst(t *testing.T) {
	b := NewCostBudget(1000, 1)
	assert.True(t, b.Allow("a", 400))
	assert.True(t, b.Allow("a", 400))
	assert.False(t, b.Allow("a", 400))
}

func TestCostBudgetKeysAreIndependent(t *testing.T) {
	b := NewCostBudget(500, 1)
	assert.True(t, b.Allow("a", 500))
	assert.False(t, b.Allow("a", 1))
	assert.True(t, b.Allow("b", 500))
}

func TestCostBudgetRemaining(t *testing.T) {
	b := NewCostBudget(1000, 1)
	assert.True(t, b.Allow("a", 300))
	assert.True(t, b.Remaining("a") <= 700)
}

func TestCostBudgetRejectsOversizedDraw(t *testing.T) {
	b := NewCostBudget(100, 1)
	assert.False(t, b.Allow("a", 101))
}
