package ratelimit

import (
	"github.com/kevinms/leakybucket-go"
)

// CostBudget bounds the hash operations a single client can demand from the
// verification endpoints. The request limiter alone is not enough: every
// request can legally cost PUBLIC_MAX_SPOT_CHECKS * PUBLIC_MAX_DIFFICULTY
// hash iterations, so CPU is metered separately with a leaky bucket per
// client.
type CostBudget struct {
	collector *leakybucket.Collector
}

// NewCostBudget allows burst hash operations at once, refilling at
// perSecond.
func NewCostBudget(burst int64, perSecond float64) *CostBudget {
	return &CostBudget{
		collector: leakybucket.NewCollector(perSecond, burst, true),
	}
}

// Allow tries to draw cost operations from key's bucket. A partial draw is
// rolled into the bucket anyway, so a rejected oversized request still
// consumes budget; that punishes clients probing the limit.
func (b *CostBudget) Allow(key string, cost int64) bool {
	return b.collector.Add(key, cost) == cost
}

// Remaining returns the operations left in key's bucket.
func (b *CostBudget) Remaining(key string) int64 {
	return b.collector.Remaining(key)
}
