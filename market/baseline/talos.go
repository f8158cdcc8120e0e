package baseline

import (
	"context"
	"sync"

	"github.com/streambazaar/streambazaar/market"
)

// TALOSProvisioningFactor trims each requirement to curb over-provisioning.
const TALOSProvisioningFactor = 0.9

// TALOS models a task-level autoscaler that grants slightly less than asked
// and tracks, per tenant, how far short of the requirement the last grant was.
type TALOS struct {
	allocator

	mu               sync.Mutex
	overProvisioning map[string]float64
}

// NewTALOS returns a TALOS allocator.
func NewTALOS() *TALOS {
	return &TALOS{allocator: newAllocator(StrategyTALOS), overProvisioning: make(map[string]float64)}
}

func (t *TALOS) InitializeTenant(tenantID string, _ float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.overProvisioning[tenantID] = 0
}

// OverProvisioning returns max(0, 1-granted/required) from the tenant's last
// round. Only tracked for initialized tenants.
func (t *TALOS) OverProvisioning(tenantID string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.overProvisioning[tenantID]
}

func (t *TALOS) RunRound(ctx context.Context, in market.RoundInput) (market.RoundOutcome, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	after := func(tenantID string, required, granted market.Bundle) {
		if _, ok := t.overProvisioning[tenantID]; !ok {
			return
		}
		req := required.Total()
		if req <= 0 {
			t.overProvisioning[tenantID] = 0
			return
		}
		t.overProvisioning[tenantID] = max(0, 1.0-granted.Total()/req)
	}
	return t.run(ctx, sortedTenants(in.Requirements), in, constScale(TALOSProvisioningFactor), anyGranted, after)
}
