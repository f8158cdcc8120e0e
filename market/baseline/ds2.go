package baseline

import (
	"context"

	"github.com/streambazaar/streambazaar/market"
)

// DS2ScalingFactor is the headroom DS2 provisions above the stated requirement.
const DS2ScalingFactor = 1.2

// DS2 models a rate-based autoscaler that over-provisions every requirement
// by a fixed factor, first come first served in tenant-name order.
type DS2 struct {
	allocator
}

// NewDS2 returns a DS2 allocator.
func NewDS2() *DS2 {
	return &DS2{allocator: newAllocator(StrategyDS2)}
}

// InitializeTenant is a no-op; DS2 keeps no per-tenant state.
func (d *DS2) InitializeTenant(string, float64) {}

func (d *DS2) RunRound(ctx context.Context, in market.RoundInput) (market.RoundOutcome, error) {
	return d.run(ctx, sortedTenants(in.Requirements), in, constScale(DS2ScalingFactor), anyGranted, nil)
}
