package market

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/streambazaar/streambazaar/market/catalog"
)

// DeviceCatalog is the read-only device lookup the market prices against.
// GetDevice returns a *catalog.NotFoundError for unknown names.
type DeviceCatalog interface {
	GetDevice(name string) (*catalog.Device, error)
}

// PricingEngine publishes utilization-aware resource prices.
// It holds no price memory: callers that want smoothing across rounds
// thread the previous price back in.
type PricingEngine struct {
	config  PricingConfig
	catalog DeviceCatalog
}

// NewPricingEngine validates config and returns an engine bound to cat.
// Panics if cat is nil.
func NewPricingEngine(config PricingConfig, cat DeviceCatalog) (*PricingEngine, error) {
	if cat == nil {
		panic("NewPricingEngine: catalog is nil")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &PricingEngine{config: config, catalog: cat}, nil
}

// UtilizationAdjustment is the multiplier applied to the smoothed price.
// Above target it is 1 + aggressiveness*excess²; at or below target it is
// 1 - reduction*deficit, floored at MinPriceMultiplier.
func (e *PricingEngine) UtilizationAdjustment(utilization float64) float64 {
	target := e.config.TargetUtilization
	if utilization > target {
		excess := utilization - target
		return 1.0 + e.config.OverUtilizationAggressiveness*excess*excess
	}
	adj := 1.0 - e.config.UnderUtilizationReduction*(target-utilization)
	if adj < e.config.MinPriceMultiplier {
		logrus.Debugf("[pricing] adjustment %.4f at utilization %.4f clamped to %.4f",
			adj, utilization, e.config.MinPriceMultiplier)
		return e.config.MinPriceMultiplier
	}
	return adj
}

// ComputeBasePrice smooths toward spotPrice and applies the utilization adjustment.
// A nil previousPrice bootstraps from spotPrice.
func (e *PricingEngine) ComputeBasePrice(kind string, utilization, spotPrice float64, previousPrice *float64) float64 {
	previous := spotPrice
	if previousPrice != nil {
		previous = *previousPrice
	}
	alpha := e.config.PriceSmoothing
	smoothed := alpha*previous + (1-alpha)*spotPrice
	return smoothed * e.UtilizationAdjustment(utilization)
}

// ComputeDevicePrice quotes every resource kind the device prices, using the
// device's list price (its intrinsic price at full utilization) as the spot
// price and no previous-price anchor. Missing utilizations count as 0.
func (e *PricingEngine) ComputeDevicePrice(device string, utilizations map[string]float64) (map[string]float64, error) {
	return e.ComputeDevicePriceFrom(device, utilizations, nil)
}

// ComputeDevicePriceFrom is ComputeDevicePrice with per-kind previous prices
// used as smoothing anchors. Kinds absent from previous are bootstrapped.
func (e *PricingEngine) ComputeDevicePriceFrom(device string, utilizations, previous map[string]float64) (map[string]float64, error) {
	d, err := e.catalog.GetDevice(device)
	if err != nil {
		return nil, fmt.Errorf("pricing device: %w", err)
	}
	prices := make(map[string]float64, len(d.BasePrice))
	for _, kind := range d.ResourceKinds() {
		spot, err := d.CalculateResourcePrice(kind, 1.0)
		if err != nil {
			return nil, fmt.Errorf("pricing device %s: %w", device, err)
		}
		var anchor *float64
		if p, ok := previous[kind]; ok {
			anchor = &p
		}
		prices[kind] = e.ComputeBasePrice(kind, utilizations[kind], spot, anchor)
	}
	return prices, nil
}

// ListPrices returns the device's list price per kind, unadjusted.
func (e *PricingEngine) ListPrices(device string) (map[string]float64, error) {
	d, err := e.catalog.GetDevice(device)
	if err != nil {
		return nil, fmt.Errorf("pricing device: %w", err)
	}
	prices := make(map[string]float64, len(d.BasePrice))
	for _, kind := range d.ResourceKinds() {
		p, err := d.CalculateResourcePrice(kind, 1.0)
		if err != nil {
			return nil, fmt.Errorf("pricing device %s: %w", device, err)
		}
		prices[kind] = p
	}
	return prices, nil
}
