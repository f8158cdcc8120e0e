package market

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// RoundInput is everything a strategy may look at in one round. The market
// scheduler consumes Bids; allocators that do not bid read Requirements.
type RoundInput struct {
	Bids         []Bid
	Requirements map[string]Bundle // tenant -> resources wanted this round
	Available    Bundle
}

// RoundOutcome is what a strategy granted in one round.
type RoundOutcome struct {
	Grants      map[string]Bundle // tenant -> total resources granted
	Allocations []Allocation      // market allocations; empty for non-market strategies
}

// Strategy is a resource allocator that can be compared round by round.
type Strategy interface {
	Name() string
	InitializeTenant(tenantID string, priorityWeight float64)
	RunRound(ctx context.Context, in RoundInput) (RoundOutcome, error)
	GetMetrics() map[string]float64
}

// StrategyFactory builds a Strategy from the shared configuration.
type StrategyFactory func(config Config, cat DeviceCatalog) (Strategy, error)

var (
	strategiesMu sync.RWMutex
	strategies   = map[string]StrategyFactory{
		StrategyStreamBazaar: func(config Config, cat DeviceCatalog) (Strategy, error) {
			s, err := NewScheduler(config, cat)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
	}
)

// RegisterStrategy makes a strategy constructible by name.
// Sub-packages call this from init(). Panics on a duplicate name.
func RegisterStrategy(name string, factory StrategyFactory) {
	strategiesMu.Lock()
	defer strategiesMu.Unlock()
	if _, dup := strategies[name]; dup {
		panic(fmt.Sprintf("strategy %q registered twice", name))
	}
	strategies[name] = factory
}

// IsValidStrategy reports whether name has been registered.
func IsValidStrategy(name string) bool {
	strategiesMu.RLock()
	defer strategiesMu.RUnlock()
	_, ok := strategies[name]
	return ok
}

// StrategyNames returns every registered strategy name, sorted.
func StrategyNames() []string {
	strategiesMu.RLock()
	defer strategiesMu.RUnlock()
	names := make([]string, 0, len(strategies))
	for name := range strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewStrategy constructs the named strategy. An empty name selects StreamBazaar.
func NewStrategy(name string, config Config, cat DeviceCatalog) (Strategy, error) {
	if name == "" {
		name = StrategyStreamBazaar
	}
	strategiesMu.RLock()
	factory, ok := strategies[name]
	strategiesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (valid: %v)", name, StrategyNames())
	}
	return factory(config, cat)
}
