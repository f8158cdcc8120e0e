package market

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streambazaar/streambazaar/market/catalog"
)

func newTestPricing(t *testing.T, mutate func(*PricingConfig)) *PricingEngine {
	t.Helper()
	cfg := DefaultConfig().Pricing
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := NewPricingEngine(cfg, testCatalog(t))
	require.NoError(t, err)
	return e
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(&catalog.Device{
		Name:      "node",
		Resources: map[string]float64{"cpu": 8, "memory": 16},
		BasePrice: map[string]float64{"cpu": 1.0, "memory": 0.2},
	})
	require.NoError(t, err)
	return c
}

func TestComputeBasePrice_OverTarget(t *testing.T) {
	e := newTestPricing(t, nil)
	// smoothed = 0.7*1 + 0.3*1 = 1; adjustment = 1 + 1*(0.1)^2
	assert.InDelta(t, 1.01, e.ComputeBasePrice("cpu", 0.9, 1.0, nil), 1e-12)
}

func TestComputeBasePrice_UnderTarget(t *testing.T) {
	e := newTestPricing(t, nil)
	// adjustment = 1 - 0.5*(0.8-0.4) = 0.8
	assert.InDelta(t, 1.6, e.ComputeBasePrice("cpu", 0.4, 2.0, nil), 1e-12)
}

func TestComputeBasePrice_AtTargetIsNeutral(t *testing.T) {
	e := newTestPricing(t, nil)
	assert.InDelta(t, 3.0, e.ComputeBasePrice("cpu", 0.8, 3.0, nil), 1e-12)
}

func TestComputeBasePrice_SmoothsTowardSpot(t *testing.T) {
	e := newTestPricing(t, nil)
	// smoothed = 0.7*2 + 0.3*1 = 1.7 at target utilization
	assert.InDelta(t, 1.7, e.ComputeBasePrice("cpu", 0.8, 1.0, float64Ptr(2.0)), 1e-12)
}

func TestUtilizationAdjustment_ClampedAtMinimum(t *testing.T) {
	e := newTestPricing(t, func(c *PricingConfig) {
		c.UnderUtilizationReduction = 10
		c.MinPriceMultiplier = 0.05
	})
	assert.Equal(t, 0.05, e.UtilizationAdjustment(0))
	assert.Greater(t, e.ComputeBasePrice("cpu", 0, 1, nil), 0.0)
}

func TestUtilizationAdjustment_ConvexAboveTarget(t *testing.T) {
	e := newTestPricing(t, nil)
	a1 := e.UtilizationAdjustment(0.85) - 1
	a2 := e.UtilizationAdjustment(0.9) - 1
	assert.InDelta(t, 4*a1, a2, 1e-12, "doubling the excess should quadruple the surcharge")
}

func TestComputeDevicePrice_UsesListPriceAsSpot(t *testing.T) {
	e := newTestPricing(t, nil)
	prices, err := e.ComputeDevicePrice("node", map[string]float64{"cpu": 0.9})
	require.NoError(t, err)
	// cpu list price = 1.0*1.5; memory missing -> utilization 0 -> adjustment 0.6
	assert.InDelta(t, 1.5*1.01, prices["cpu"], 1e-12)
	assert.InDelta(t, 0.3*0.6, prices["memory"], 1e-12)
	assert.Len(t, prices, 2)
}

func TestComputeDevicePrice_NoMemoryAcrossCalls(t *testing.T) {
	e := newTestPricing(t, nil)
	u := map[string]float64{"cpu": 1.0, "memory": 1.0}
	first, err := e.ComputeDevicePrice("node", u)
	require.NoError(t, err)
	second, err := e.ComputeDevicePrice("node", u)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestComputeDevicePriceFrom_ThreadsPreviousPrice(t *testing.T) {
	e := newTestPricing(t, nil)
	prices, err := e.ComputeDevicePriceFrom("node",
		map[string]float64{"cpu": 0.8, "memory": 0.8},
		map[string]float64{"cpu": 3.0})
	require.NoError(t, err)
	assert.InDelta(t, 0.7*3.0+0.3*1.5, prices["cpu"], 1e-12)
	assert.InDelta(t, 0.3, prices["memory"], 1e-12, "kinds without an anchor bootstrap from spot")
}

func TestComputeDevicePrice_UnknownDevice(t *testing.T) {
	e := newTestPricing(t, nil)
	_, err := e.ComputeDevicePrice("nope", nil)
	var nf *catalog.NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestNewPricingEngine_InvalidConfiguration(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PricingConfig)
		field  string
	}{
		{"negative smoothing", func(c *PricingConfig) { c.PriceSmoothing = -0.1 }, "pricing.price_smoothing"},
		{"target above one", func(c *PricingConfig) { c.TargetUtilization = 1.2 }, "pricing.target_utilization"},
		{"negative aggressiveness", func(c *PricingConfig) { c.OverUtilizationAggressiveness = -1 }, "pricing.over_utilization_aggressiveness"},
		{"zero floor", func(c *PricingConfig) { c.MinPriceMultiplier = 0 }, "pricing.min_price_multiplier"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig().Pricing
			tc.mutate(&cfg)
			_, err := NewPricingEngine(cfg, testCatalog(t))
			var ice *InvalidConfigurationError
			require.ErrorAs(t, err, &ice)
			assert.Equal(t, tc.field, ice.Field)
		})
	}
}

func TestNewPricingEngine_NilCatalogPanics(t *testing.T) {
	assert.Panics(t, func() { _, _ = NewPricingEngine(DefaultConfig().Pricing, nil) })
}
