package market

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// Ledger is the sole authority over tenant currency balances.
// Every balance-changing call appends exactly one snapshot to the tenant's
// history. Safe for concurrent use.
type Ledger struct {
	mu       sync.RWMutex
	config   CurrencyConfig
	balances map[string]float64
	history  map[string][]float64
}

// NewLedger validates config and returns an empty Ledger.
func NewLedger(config CurrencyConfig) (*Ledger, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Ledger{
		config:   config,
		balances: make(map[string]float64),
		history:  make(map[string][]float64),
	}, nil
}

func (l *Ledger) record(tenantID string) {
	l.history[tenantID] = append(l.history[tenantID], l.balances[tenantID])
}

// InitializeTenant sets the balance to BaseAllocation*priorityWeight,
// overwriting any existing balance. A negative or non-finite weight wraps
// ErrInvalidPriorityWeight and changes nothing.
func (l *Ledger) InitializeTenant(tenantID string, priorityWeight float64) error {
	if !finiteNonNegative(priorityWeight) {
		return fmt.Errorf("tenant %s: %w: %v", tenantID, ErrInvalidPriorityWeight, priorityWeight)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[tenantID] = l.config.BaseAllocation * priorityWeight
	l.record(tenantID)
	return nil
}

// ApplyDecay shrinks every known balance by DecayRate.
func (l *Ledger) ApplyDecay() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for tenantID := range l.balances {
		l.balances[tenantID] *= 1.0 - l.config.DecayRate
		l.record(tenantID)
	}
}

// AllocateCurrency tops a tenant up by BaseAllocation*(priorityWeight + reward),
// where reward is UtilizationRewardFactor*avg/total (0 when total <= 0).
// Unknown tenants start from zero. Returns the amount granted.
//
// The grant never takes currency away: a negative or non-finite weight, or
// utilization figures that would make the grant negative or non-finite,
// wrap ErrInvalidPriorityWeight and change nothing.
func (l *Ledger) AllocateCurrency(tenantID string, priorityWeight, avgUtilization, totalUtilization float64) (float64, error) {
	if !finiteNonNegative(priorityWeight) {
		return 0, fmt.Errorf("tenant %s: %w: %v", tenantID, ErrInvalidPriorityWeight, priorityWeight)
	}
	reward := 0.0
	if totalUtilization > 0 {
		reward = l.config.UtilizationRewardFactor * (avgUtilization / totalUtilization)
	}
	grant := l.config.BaseAllocation * (priorityWeight + reward)
	if !finiteNonNegative(grant) {
		return 0, fmt.Errorf("tenant %s: %w: grant %v from avg %v / total %v",
			tenantID, ErrInvalidPriorityWeight, grant, avgUtilization, totalUtilization)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[tenantID] += grant
	l.record(tenantID)
	return grant, nil
}

// DeductBalance subtracts amount if the balance covers it.
// Returns false, changing nothing, when funds are insufficient or amount is
// negative, NaN, or +Inf.
func (l *Ledger) DeductBalance(tenantID string, amount float64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !(amount >= 0) || math.IsInf(amount, 1) || l.balances[tenantID] < amount {
		return false
	}
	l.balances[tenantID] -= amount
	l.record(tenantID)
	return true
}

// GetBalance returns the tenant's balance, or 0 if unknown.
func (l *Ledger) GetBalance(tenantID string) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[tenantID]
}

// GetHistory returns a copy of the tenant's balance snapshots, oldest first.
func (l *Ledger) GetHistory(tenantID string) []float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]float64{}, l.history[tenantID]...)
}

// Tenants returns every tenant the ledger knows, sorted.
func (l *Ledger) Tenants() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, 0, len(l.balances))
	for id := range l.balances {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Balances returns a snapshot copy of every balance.
func (l *Ledger) Balances() map[string]float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]float64, len(l.balances))
	for id, b := range l.balances {
		out[id] = b
	}
	return out
}
