package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/sirupsen/logrus"

	"github.com/streambazaar/streambazaar/market"
	"github.com/streambazaar/streambazaar/market/workload"
)

// utilizationSink is implemented by strategies that track device utilization.
type utilizationSink interface {
	UpdateResourceUtilization(device string, utilizations map[string]float64)
}

// throughputSink is implemented by strategies that track throughput.
type throughputSink interface {
	RecordThroughput(value float64)
}

// driver feeds a Strategy one generated round at a time.
type driver struct {
	strategy market.Strategy
	gen      *workload.Generator
	auction  *market.Auction
	clock    clock.Clock

	// replenishEvery tops market tenants up every N rounds; 0 disables.
	replenishEvery int
	// interval paces rounds in wall-clock time; 0 runs them back to back.
	interval time.Duration
	// out receives a per-round report; nil for silent runs.
	out io.Writer
}

// runStats summarizes a completed run.
type runStats struct {
	Rounds        int
	SkippedRounds int
	Bids          int
	Allocations   int
	Granted       map[string]float64 // tenant -> total units granted across rounds
}

func newDriver(strategy market.Strategy, gen *workload.Generator, config market.Config) (*driver, error) {
	auction, err := market.NewAuction(config.Auction)
	if err != nil {
		return nil, err
	}
	return &driver{strategy: strategy, gen: gen, auction: auction, clock: clock.NewClock()}, nil
}

// initializeTenants registers every workload tenant with the strategy.
func (d *driver) initializeTenants() {
	for _, t := range d.gen.Tenants() {
		d.strategy.InitializeTenant(t.ID, t.Priority)
	}
}

// run drives rounds until n have been attempted or ctx is done. An overrun
// round is counted as skipped and the run continues.
func (d *driver) run(ctx context.Context, n int) (runStats, error) {
	stats := runStats{Granted: make(map[string]float64)}
	var ticker clock.Ticker
	if d.interval > 0 {
		ticker = d.clock.NewTicker(d.interval)
		defer ticker.Stop()
	}
	for i := 0; i < n; i++ {
		if ticker != nil && i > 0 {
			select {
			case <-ctx.Done():
				return stats, ctx.Err()
			case <-ticker.C():
			}
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := d.step(ctx, &stats); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func (d *driver) step(ctx context.Context, stats *runStats) error {
	r := d.gen.Next()
	stats.Rounds++

	if sink, ok := d.strategy.(utilizationSink); ok {
		devices := make([]string, 0, len(r.Utilizations))
		for device := range r.Utilizations {
			devices = append(devices, device)
		}
		sort.Strings(devices)
		for _, device := range devices {
			sink.UpdateResourceUtilization(device, r.Utilizations[device])
		}
	}

	bids := make([]market.Bid, 0, len(r.Signals))
	scheduler, isMarket := d.strategy.(*market.Scheduler)
	for _, sig := range r.Signals {
		if isMarket {
			bids = append(bids, scheduler.SubmitBid(sig))
		} else {
			bids = append(bids, d.auction.FormulateBid(sig, d.clock.Now()))
		}
	}
	stats.Bids += len(bids)

	outcome, err := d.strategy.RunRound(ctx, market.RoundInput{
		Bids:         bids,
		Requirements: r.Requirements,
		Available:    r.Available,
	})
	if errors.Is(err, market.ErrRoundOverrun) {
		logrus.Warnf("[%s] round %d skipped: %v", d.strategy.Name(), r.Index, err)
		stats.SkippedRounds++
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s round %d: %w", d.strategy.Name(), r.Index, err)
	}
	stats.Allocations += len(outcome.Allocations)

	granted := make(map[string]float64, len(outcome.Grants))
	grantedTotal := 0.0
	for tenant, g := range outcome.Grants {
		granted[tenant] = g.Total()
		grantedTotal += granted[tenant]
		stats.Granted[tenant] += granted[tenant]
	}
	if sink, ok := d.strategy.(throughputSink); ok {
		sink.RecordThroughput(servedFraction(grantedTotal, demand(isMarket, bids, r)))
	}

	if isMarket && d.replenishEvery > 0 && r.Index%d.replenishEvery == 0 {
		for _, t := range d.gen.Tenants() {
			if _, err := scheduler.AllocateCurrency(t.ID, t.Priority, granted[t.ID], grantedTotal); err != nil {
				logrus.Warnf("round %d: replenish %s: %v", r.Index, t.ID, err)
			}
		}
	}

	if d.out != nil {
		d.report(r, bids, outcome, scheduler)
	}
	return nil
}

// demand is the round's stated demand in resource units. Market rounds are
// measured against bids, baseline rounds against requirements.
func demand(isMarket bool, bids []market.Bid, r workload.Round) float64 {
	total := 0.0
	if isMarket {
		for _, b := range bids {
			total += b.Bundle.Total()
		}
		return total
	}
	for _, req := range r.Requirements {
		total += req.Total()
	}
	return total
}

// servedFraction is the share of demand that was granted, capped at 1.
func servedFraction(granted, demand float64) float64 {
	if demand <= 0 {
		return 0
	}
	return min(1.0, granted/demand)
}

func (d *driver) report(r workload.Round, bids []market.Bid, outcome market.RoundOutcome, scheduler *market.Scheduler) {
	fmt.Fprintf(d.out, "\n--- Round %d ---\n", r.Index)
	fmt.Fprintf(d.out, "Number of bids: %d\n", len(bids))
	if scheduler == nil {
		tenants := make([]string, 0, len(outcome.Grants))
		for t := range outcome.Grants {
			tenants = append(tenants, t)
		}
		sort.Strings(tenants)
		for _, t := range tenants {
			fmt.Fprintf(d.out, "  Tenant %s granted %s\n", t, formatBundle(outcome.Grants[t]))
		}
		return
	}
	fmt.Fprintf(d.out, "Number of allocations: %d\n", len(outcome.Allocations))
	for _, a := range outcome.Allocations {
		fmt.Fprintf(d.out, "  Tenant %s operator %s allocated %s for $%.2f\n",
			a.TenantID, a.OperatorID, formatBundle(a.Bundle), a.PricePaid)
	}
	fmt.Fprintln(d.out, "Tenant balances:")
	for _, t := range d.gen.Tenants() {
		fmt.Fprintf(d.out, "  %s: $%.2f\n", t.ID, scheduler.Ledger().GetBalance(t.ID))
	}
}

func formatBundle(b market.Bundle) string {
	s := "{"
	for i, kind := range b.Kinds() {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%s: %.2f", kind, b[kind])
	}
	return s + "}"
}
