// Package baseline implements the non-market allocators StreamBazaar is
// compared against. They ignore bids and currency, and divide each round's
// available resources by walking tenant requirements in a fixed order.
//
// Importing this package registers every allocator with market.RegisterStrategy.
package baseline

import (
	"context"
	"sort"

	"github.com/streambazaar/streambazaar/market"
	"github.com/streambazaar/streambazaar/market/metrics"
)

// scaleFunc returns the multiplier applied to a tenant's requirement for kind.
type scaleFunc func(tenantID, kind string) float64

// allocator is the greedy min(required*scale, remaining) walk every baseline shares.
type allocator struct {
	name    string
	tracker *metrics.Tracker
}

func newAllocator(name string) allocator {
	return allocator{name: name, tracker: metrics.NewTracker()}
}

func (a *allocator) Name() string { return a.name }

func (a *allocator) GetMetrics() map[string]float64 { return a.tracker.GetAllMetrics() }

// UpdateResourceUtilization records a device snapshot for the RUE metric.
// Baselines do not price, so the device name is unused.
func (a *allocator) UpdateResourceUtilization(_ string, utilizations map[string]float64) {
	a.tracker.RecordResourceUtilization(utilizations)
}

func (a *allocator) RecordTenantLatency(tenantID string, latencyMs float64, priority string) {
	a.tracker.RecordLatency(tenantID, latencyMs, priority)
}

func (a *allocator) RecordThroughput(value float64) { a.tracker.RecordThroughput(value) }

// grant allocates min(required*scale, remaining) per kind, kinds in sorted
// order, and debits remaining. A negative scale is treated as zero.
func grant(tenantID string, required market.Bundle, remaining market.Bundle, scale scaleFunc) market.Bundle {
	out := make(market.Bundle, len(required))
	for _, kind := range required.Kinds() {
		factor := scale(tenantID, kind)
		if factor < 0 {
			factor = 0
		}
		amount := min(required[kind]*factor, remaining[kind])
		if amount < 0 {
			amount = 0
		}
		out[kind] = amount
		remaining[kind] -= amount
	}
	return out
}

// sortedTenants returns the requirement keys in name order.
func sortedTenants(requirements map[string]market.Bundle) []string {
	ids := make([]string, 0, len(requirements))
	for id := range requirements {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// run walks tenants in order, grants each one, and records one auction result
// per tenant with the requirement total as the valuation. satisfied decides
// the allocated flag from the granted and required totals.
func (a *allocator) run(ctx context.Context, order []string, in market.RoundInput, scale scaleFunc,
	satisfied func(allocated, required float64) bool, after func(tenantID string, required, granted market.Bundle)) (market.RoundOutcome, error) {
	if err := ctx.Err(); err != nil {
		return market.RoundOutcome{}, err
	}
	remaining := in.Available.Clone()
	grants := make(map[string]market.Bundle, len(order))
	for _, tenantID := range order {
		required := in.Requirements[tenantID]
		g := grant(tenantID, required, remaining, scale)
		grants[tenantID] = g
		req, got := required.Total(), g.Total()
		a.tracker.RecordAuctionResults([]float64{req}, []bool{satisfied(got, req)})
		if after != nil {
			after(tenantID, required, g)
		}
	}
	return market.RoundOutcome{Grants: grants}, nil
}

func anyGranted(allocated, _ float64) bool { return allocated > 0 }

// constScale applies the same multiplier to every tenant and kind.
func constScale(f float64) scaleFunc {
	return func(string, string) float64 { return f }
}
