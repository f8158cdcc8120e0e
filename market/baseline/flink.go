package baseline

import (
	"context"
	"sort"
	"sync"

	"github.com/streambazaar/streambazaar/market"
)

// flinkSlotShare is the static share a tenant of weight 1.0 is given.
const flinkSlotShare = 100.0

// FlinkDefault models Flink's native slot allocation: each tenant has a fixed
// share proportional to its priority weight, and tenants with larger shares
// are served first. A tenant counts as served when it receives more than half
// of what it asked for.
type FlinkDefault struct {
	allocator

	mu     sync.Mutex
	shares map[string]float64
}

// NewFlinkDefault returns an empty FlinkDefault allocator.
func NewFlinkDefault() *FlinkDefault {
	return &FlinkDefault{allocator: newAllocator(StrategyFlinkDefault), shares: make(map[string]float64)}
}

func (f *FlinkDefault) InitializeTenant(tenantID string, priorityWeight float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shares[tenantID] = flinkSlotShare * priorityWeight
}

// Share returns the tenant's static share, 0 if unknown.
func (f *FlinkDefault) Share(tenantID string) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shares[tenantID]
}

// RunRound serves tenants by share, largest first, ties by name.
func (f *FlinkDefault) RunRound(ctx context.Context, in market.RoundInput) (market.RoundOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order := sortedTenants(in.Requirements)
	sort.SliceStable(order, func(i, j int) bool {
		return f.shares[order[i]] > f.shares[order[j]]
	})
	return f.run(ctx, order, in, constScale(1.0), halfServed, nil)
}

func halfServed(allocated, required float64) bool {
	return required > 0 && allocated/required > 0.5
}
