package market

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streambazaar/streambazaar/market/catalog"
)

type fixedStrategy struct{ name string }

func (f fixedStrategy) Name() string                   { return f.name }
func (fixedStrategy) InitializeTenant(string, float64) {}
func (fixedStrategy) GetMetrics() map[string]float64   { return map[string]float64{} }
func (fixedStrategy) RunRound(context.Context, RoundInput) (RoundOutcome, error) {
	return RoundOutcome{Grants: map[string]Bundle{}}, nil
}

func TestNewStrategy_DefaultIsMarket(t *testing.T) {
	s, err := NewStrategy("", DefaultConfig(), catalog.DefaultCatalog())
	require.NoError(t, err)
	assert.Equal(t, StrategyStreamBazaar, s.Name())
	_, ok := s.(*Scheduler)
	assert.True(t, ok)
}

func TestNewStrategy_Unknown(t *testing.T) {
	_, err := NewStrategy("round-robin", DefaultConfig(), catalog.DefaultCatalog())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "round-robin")
	assert.False(t, IsValidStrategy("round-robin"))
}

func TestNewStrategy_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pricing.MinPriceMultiplier = 0
	s, err := NewStrategy(StrategyStreamBazaar, cfg, catalog.DefaultCatalog())
	assert.Error(t, err)
	assert.Nil(t, s)
}

func TestRegisterStrategy(t *testing.T) {
	const name = "test-fixed"
	RegisterStrategy(name, func(Config, DeviceCatalog) (Strategy, error) {
		return fixedStrategy{name: name}, nil
	})
	t.Cleanup(func() {
		strategiesMu.Lock()
		delete(strategies, name)
		strategiesMu.Unlock()
	})

	assert.True(t, IsValidStrategy(name))
	assert.Contains(t, StrategyNames(), name)
	s, err := NewStrategy(name, DefaultConfig(), catalog.DefaultCatalog())
	require.NoError(t, err)
	assert.Equal(t, name, s.Name())

	assert.Panics(t, func() {
		RegisterStrategy(name, func(Config, DeviceCatalog) (Strategy, error) { return nil, nil })
	})
}

func TestStrategyNames_Sorted(t *testing.T) {
	names := StrategyNames()
	assert.IsIncreasing(t, names)
	assert.Contains(t, names, StrategyStreamBazaar)
}
