package market

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/streambazaar/streambazaar/market/metrics"
	"github.com/streambazaar/streambazaar/market/trace"
)

// StrategyStreamBazaar is the registered name of the market scheduler.
const StrategyStreamBazaar = "streambazaar"

// Scheduler runs the market one round at a time. It owns the ledger, the
// pricing engine, the utilization snapshot, and the current allocations.
//
// At most one RunAuctionRound is in flight per Scheduler; a concurrent call
// fails fast with ErrRoundInProgress. Every other method may be called from
// any goroutine, including while a round is clearing.
type Scheduler struct {
	config  Config
	auction *Auction
	ledger  *Ledger
	pricing *PricingEngine
	clock   clock.Clock
	metrics metrics.Recorder
	trace   *trace.MarketTrace

	roundMu sync.Mutex // held for the duration of a round

	mu                 sync.RWMutex // guards everything below
	tenantBalances     map[string]float64
	utilizations       map[string]map[string]float64
	currentAllocations map[string]Allocation
	lastRoundTime      time.Time
	round              int
}

// SchedulerOption customizes a Scheduler at construction.
type SchedulerOption func(*Scheduler)

// WithClock replaces the wall clock used to stamp bids and rounds.
func WithClock(c clock.Clock) SchedulerOption {
	return func(s *Scheduler) { s.clock = c }
}

// WithMetrics replaces the default in-memory metrics.Tracker.
func WithMetrics(r metrics.Recorder) SchedulerOption {
	return func(s *Scheduler) { s.metrics = r }
}

// WithTrace records every round into mt.
func WithTrace(mt *trace.MarketTrace) SchedulerOption {
	return func(s *Scheduler) { s.trace = mt }
}

// NewScheduler validates config and wires the market components together.
// Invalid configuration is reported here, never mid-round. Panics if cat is nil.
func NewScheduler(config Config, cat DeviceCatalog, opts ...SchedulerOption) (*Scheduler, error) {
	if cat == nil {
		panic("NewScheduler: catalog is nil")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	auction, err := NewAuction(config.Auction)
	if err != nil {
		return nil, err
	}
	ledger, err := NewLedger(config.Currency)
	if err != nil {
		return nil, err
	}
	pricing, err := NewPricingEngine(config.Pricing, cat)
	if err != nil {
		return nil, err
	}
	s := &Scheduler{
		config:             config,
		auction:            auction,
		ledger:             ledger,
		pricing:            pricing,
		clock:              clock.NewClock(),
		metrics:            metrics.NewTracker(),
		tenantBalances:     make(map[string]float64),
		utilizations:       make(map[string]map[string]float64),
		currentAllocations: make(map[string]Allocation),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil || s.metrics == nil {
		panic("NewScheduler: nil clock or metrics option")
	}
	s.lastRoundTime = s.clock.Now()
	return s, nil
}

// Name implements Strategy.
func (s *Scheduler) Name() string { return StrategyStreamBazaar }

// Ledger exposes the scheduler's ledger for read access and currency top-ups.
func (s *Scheduler) Ledger() *Ledger { return s.ledger }

// Pricing exposes the pricing engine.
func (s *Scheduler) Pricing() *PricingEngine { return s.pricing }

// InitializeTenant gives the tenant its starting balance and mirrors it into
// the cache. An invalid weight is logged and the tenant is left unregistered.
func (s *Scheduler) InitializeTenant(tenantID string, priorityWeight float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ledger.InitializeTenant(tenantID, priorityWeight); err != nil {
		logrus.Warnf("[scheduler] %v", err)
		return
	}
	s.tenantBalances[tenantID] = s.ledger.GetBalance(tenantID)
}

// AllocateCurrency tops a tenant up through the ledger and refreshes the cache.
func (s *Scheduler) AllocateCurrency(tenantID string, priorityWeight, avgUtilization, totalUtilization float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	grant, err := s.ledger.AllocateCurrency(tenantID, priorityWeight, avgUtilization, totalUtilization)
	if err != nil {
		return 0, err
	}
	s.tenantBalances[tenantID] = s.ledger.GetBalance(tenantID)
	return grant, nil
}

// SubmitBid formulates a bid stamped with the current time. Stateless.
func (s *Scheduler) SubmitBid(sig DemandSignal) Bid {
	return s.auction.FormulateBid(sig, s.clock.Now())
}

// RunAuctionRound clears bids against available and settles the result:
// refresh cached balances, clear, record winners and debit them, report to
// metrics, decay every balance, and advance the round clock.
//
// Clearing works on a snapshot of the balances and runs without holding the
// state lock, so UpdateResourceUtilization and GetDevicePrices proceed while
// a round is clearing. If ctx is done before settlement (for example because
// SchedulerConfig.RoundTimeout elapsed) nothing is committed and the error
// wraps ErrRoundOverrun or the context's error. A winner whose debit the
// ledger refuses is dropped. Rejected bids are not returned; use
// Auction.DetermineWinners for those.
func (s *Scheduler) RunAuctionRound(ctx context.Context, bids []Bid, available Bundle) ([]Allocation, error) {
	if !s.roundMu.TryLock() {
		return nil, ErrRoundInProgress
	}
	defer s.roundMu.Unlock()

	if timeout := s.config.Scheduler.RoundTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	round, balances := s.beginRound()
	roundID := uuid.NewString()
	log := logrus.WithFields(logrus.Fields{"round": round, "round_id": roundID})

	result := s.auction.DetermineWinners(bids, available, balances)

	if err := ctx.Err(); err != nil {
		log.Warnf("round aborted before settlement, nothing committed: %v", err)
		s.trace.RecordRound(trace.RoundRecord{
			RoundID:   roundID,
			Round:     round,
			Timestamp: s.clock.Now(),
			Available: available.Clone(),
			Skipped:   true,
		})
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("round %d: %w", round, ErrRoundOverrun)
		}
		return nil, fmt.Errorf("round %d: %w", round, err)
	}

	committed, granted := s.settle(log, result)

	valuations := make([]float64, len(bids))
	for i, b := range bids {
		valuations[i] = b.Valuation
	}
	s.metrics.RecordAuctionResults(valuations, granted)

	s.ledger.ApplyDecay()
	now := s.clock.Now()
	s.mu.Lock()
	s.lastRoundTime = now
	s.mu.Unlock()

	if s.trace.Enabled() {
		s.trace.RecordRound(s.roundRecord(roundID, round, now, bids, available, result, committed))
	}
	log.Infof("granted %d of %d bids", len(committed), len(bids))
	return committed, nil
}

// beginRound advances the round counter, refreshes the balance cache from
// the ledger, and returns a private copy of it for clearing.
func (s *Scheduler) beginRound() (int, map[string]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.round++
	for _, tenantID := range s.ledger.Tenants() {
		s.tenantBalances[tenantID] = s.ledger.GetBalance(tenantID)
	}
	balances := make(map[string]float64, len(s.tenantBalances))
	for id, b := range s.tenantBalances {
		balances[id] = b
	}
	return s.round, balances
}

// settle debits every winner and records the ones the ledger accepted.
// The returned flags are aligned with the input bids and cover only
// committed allocations.
func (s *Scheduler) settle(log *logrus.Entry, result ClearingResult) ([]Allocation, []bool) {
	granted := append([]bool(nil), result.Granted...)
	committed := make([]Allocation, 0, len(result.Allocations))

	s.mu.Lock()
	defer s.mu.Unlock()
	// Allocations are in clearing order, one per granted index.
	next := 0
	for _, idx := range result.Order {
		if !result.Granted[idx] {
			continue
		}
		a := result.Allocations[next]
		next++
		ok := s.ledger.DeductBalance(a.TenantID, a.PricePaid)
		s.tenantBalances[a.TenantID] = s.ledger.GetBalance(a.TenantID)
		if !ok {
			log.Warnf("ledger refused debit of %.4f from %s (balance %.4f), allocation dropped",
				a.PricePaid, a.TenantID, s.tenantBalances[a.TenantID])
			granted[idx] = false
			continue
		}
		s.currentAllocations[a.TenantID] = a
		committed = append(committed, a)
	}
	return committed, granted
}

func (s *Scheduler) roundRecord(roundID string, round int, at time.Time, bids []Bid, available Bundle,
	result ClearingResult, committed []Allocation) trace.RoundRecord {
	rec := trace.RoundRecord{
		RoundID:       roundID,
		Round:         round,
		Timestamp:     at,
		Available:     available.Clone(),
		Bids:          make([]trace.BidRecord, 0, len(bids)),
		Winners:       make([]trace.WinnerRecord, 0, len(committed)),
		Rejections:    make([]trace.RejectionRecord, 0, len(result.Rejections)),
		BalancesAfter: s.ledger.Balances(),
	}
	for _, idx := range result.Order {
		b := bids[idx]
		rec.Bids = append(rec.Bids, trace.BidRecord{
			TenantID:   b.TenantID,
			OperatorID: b.OperatorID,
			Bundle:     b.Bundle.Clone(),
			Valuation:  b.Valuation,
			Efficiency: Efficiency(b),
		})
	}
	for _, a := range committed {
		rec.Winners = append(rec.Winners, trace.WinnerRecord{
			TenantID:   a.TenantID,
			OperatorID: a.OperatorID,
			Bundle:     a.Bundle.Clone(),
			PricePaid:  a.PricePaid,
		})
	}
	for _, r := range result.Rejections {
		rec.Rejections = append(rec.Rejections, trace.RejectionRecord{
			TenantID:   r.Bid.TenantID,
			OperatorID: r.Bid.OperatorID,
			Valuation:  r.Bid.Valuation,
			Reason:     string(r.Reason),
		})
	}
	return rec
}

// RunRound implements Strategy by running one auction round over in.Bids.
func (s *Scheduler) RunRound(ctx context.Context, in RoundInput) (RoundOutcome, error) {
	allocations, err := s.RunAuctionRound(ctx, in.Bids, in.Available)
	if err != nil {
		return RoundOutcome{}, err
	}
	grants := make(map[string]Bundle)
	for _, a := range allocations {
		g, ok := grants[a.TenantID]
		if !ok {
			g = make(Bundle)
			grants[a.TenantID] = g
		}
		for kind, amount := range a.Bundle {
			g[kind] += amount
		}
	}
	return RoundOutcome{Grants: grants, Allocations: allocations}, nil
}

// UpdateResourceUtilization merges utilizations into the device's snapshot,
// last write wins per kind, and forwards them to metrics.
func (s *Scheduler) UpdateResourceUtilization(device string, utilizations map[string]float64) {
	s.mu.Lock()
	snapshot, ok := s.utilizations[device]
	if !ok {
		snapshot = make(map[string]float64, len(utilizations))
		s.utilizations[device] = snapshot
	}
	for kind, u := range utilizations {
		snapshot[kind] = u
	}
	s.mu.Unlock()
	s.metrics.RecordResourceUtilization(utilizations)
}

// GetDevicePrices quotes the device's resources. Before any utilization has
// been recorded for the device the list prices are returned unadjusted.
// Unknown devices yield a *catalog.NotFoundError.
func (s *Scheduler) GetDevicePrices(device string) (map[string]float64, error) {
	s.mu.RLock()
	snapshot, ok := s.utilizations[device]
	var utilizations map[string]float64
	if ok {
		utilizations = make(map[string]float64, len(snapshot))
		for k, v := range snapshot {
			utilizations[k] = v
		}
	}
	s.mu.RUnlock()

	if !ok {
		return s.pricing.ListPrices(device)
	}
	return s.pricing.ComputeDevicePrice(device, utilizations)
}

// RecordTenantLatency forwards a latency sample to metrics.
func (s *Scheduler) RecordTenantLatency(tenantID string, latencyMs float64, priority string) {
	s.metrics.RecordLatency(tenantID, latencyMs, priority)
}

// RecordThroughput forwards a throughput sample to metrics.
func (s *Scheduler) RecordThroughput(value float64) {
	s.metrics.RecordThroughput(value)
}

// RecordMigrationImpact forwards a migration impact sample to metrics.
func (s *Scheduler) RecordMigrationImpact(value float64) {
	s.metrics.RecordMigrationImpact(value)
}

// GetMetrics implements Strategy. Empty unless the recorder is a metrics.Reporter.
func (s *Scheduler) GetMetrics() map[string]float64 {
	if rep, ok := s.metrics.(metrics.Reporter); ok {
		return rep.GetAllMetrics()
	}
	return map[string]float64{}
}

// CurrentAllocations returns a copy of the latest allocation per tenant.
func (s *Scheduler) CurrentAllocations() map[string]Allocation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Allocation, len(s.currentAllocations))
	for k, v := range s.currentAllocations {
		out[k] = v
	}
	return out
}

// CachedBalance returns the scheduler's mirrored balance for a tenant.
func (s *Scheduler) CachedBalance(tenantID string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tenantBalances[tenantID]
}

// LastRoundTime returns when the last committed round finished.
func (s *Scheduler) LastRoundTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRoundTime
}

// Rounds returns how many rounds have been attempted.
func (s *Scheduler) Rounds() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.round
}
