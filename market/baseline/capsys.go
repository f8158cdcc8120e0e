package baseline

import (
	"context"
	"sync"

	"github.com/streambazaar/streambazaar/market"
)

const (
	// contentionPenalty is how much one unit of contention shrinks a grant.
	contentionPenalty = 0.3
	// contentionGrowth scales how much each request adds to its kind's contention.
	contentionGrowth = 0.1
)

// CAPSys models contention-aware placement. Every request raises the
// contention score of its resource kind by 0.1*required/available, and later
// requests for that kind are shrunk by 1-0.3*contention (never below zero).
// Contention accumulates across rounds.
type CAPSys struct {
	allocator

	mu         sync.Mutex
	contention map[string]float64
}

// NewCAPSys returns a CAPSys allocator with no contention history.
func NewCAPSys() *CAPSys {
	return &CAPSys{allocator: newAllocator(StrategyCAPSys), contention: make(map[string]float64)}
}

// InitializeTenant is a no-op; contention is tracked per resource kind.
func (c *CAPSys) InitializeTenant(string, float64) {}

// Contention returns the current contention score for kind.
func (c *CAPSys) Contention(kind string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.contention[kind]
}

func (c *CAPSys) RunRound(ctx context.Context, in market.RoundInput) (market.RoundOutcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	scale := func(_, kind string) float64 {
		return 1.0 - contentionPenalty*c.contention[kind]
	}
	after := func(_ string, required, _ market.Bundle) {
		for kind, amount := range required {
			avail, ok := in.Available[kind]
			if !ok {
				avail = 1.0
			}
			if avail <= 0 {
				continue
			}
			c.contention[kind] += contentionGrowth * amount / avail
		}
	}
	return c.run(ctx, sortedTenants(in.Requirements), in, scale, anyGranted, after)
}
