package market

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AuctionConfig groups bid formulation and clearing parameters.
type AuctionConfig struct {
	Interval                time.Duration `yaml:"auction_interval"`         // wall-clock spacing between rounds in live mode
	MinBidIncrement         float64       `yaml:"min_bid_increment"`        // advisory; the clearer does not enforce it
	BackpressureSensitivity float64       `yaml:"backpressure_sensitivity"` // exponent scale on queue fill ratio
}

// CurrencyConfig groups ledger parameters.
type CurrencyConfig struct {
	DecayRate               float64 `yaml:"decay_rate"`                // fraction of every balance removed per round, in [0,1]
	BaseAllocation          float64 `yaml:"base_allocation"`           // currency granted per unit of priority weight
	PriorityWeightFactor    float64 `yaml:"priority_weight_factor"`    // reserved
	UtilizationRewardFactor float64 `yaml:"utilization_reward_factor"` // top-up bonus scale for relative utilization
}

// PricingConfig groups dynamic pricing parameters.
type PricingConfig struct {
	PriceSmoothing                float64 `yaml:"price_smoothing"`                 // weight on the previous price, in [0,1]
	TargetUtilization             float64 `yaml:"target_utilization"`              // in [0,1]
	OverUtilizationAggressiveness float64 `yaml:"over_utilization_aggressiveness"` // quadratic surcharge scale above target
	UnderUtilizationReduction     float64 `yaml:"under_utilization_reduction"`     // linear discount scale below target
	MinPriceMultiplier            float64 `yaml:"min_price_multiplier"`            // floor on the utilization adjustment (> 0)
}

// SchedulerConfig groups orchestration parameters.
type SchedulerConfig struct {
	RoundTimeout time.Duration `yaml:"round_timeout"` // 0 = unbounded
}

// Config is the complete market configuration.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type Config struct {
	Auction   AuctionConfig   `yaml:"auction"`
	Currency  CurrencyConfig  `yaml:"currency"`
	Pricing   PricingConfig   `yaml:"pricing"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// DefaultConfig returns the stock market parameters.
func DefaultConfig() Config {
	return Config{
		Auction: AuctionConfig{
			Interval:                time.Second,
			MinBidIncrement:         0.01,
			BackpressureSensitivity: 2.0,
		},
		Currency: CurrencyConfig{
			DecayRate:               0.05,
			BaseAllocation:          100.0,
			PriorityWeightFactor:    1.0,
			UtilizationRewardFactor: 0.5,
		},
		Pricing: PricingConfig{
			PriceSmoothing:                0.7,
			TargetUtilization:             0.8,
			OverUtilizationAggressiveness: 1.0,
			UnderUtilizationReduction:     0.5,
			MinPriceMultiplier:            0.01,
		},
	}
}

// LoadConfig reads a YAML configuration file on top of DefaultConfig.
// Keys absent from the file keep their default; unknown keys are an error.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading market config: %w", err)
	}
	cfg := DefaultConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing market config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Auction.Validate(); err != nil {
		return err
	}
	if err := c.Currency.Validate(); err != nil {
		return err
	}
	if err := c.Pricing.Validate(); err != nil {
		return err
	}
	if c.Scheduler.RoundTimeout < 0 {
		return invalidConfig("scheduler.round_timeout", "must be non-negative, got %s", c.Scheduler.RoundTimeout)
	}
	return nil
}

// Validate checks auction parameter ranges.
func (c AuctionConfig) Validate() error {
	if c.Interval < 0 {
		return invalidConfig("auction.auction_interval", "must be non-negative, got %s", c.Interval)
	}
	if !finiteNonNegative(c.MinBidIncrement) {
		return invalidConfig("auction.min_bid_increment", "must be a non-negative number, got %f", c.MinBidIncrement)
	}
	if !finiteNonNegative(c.BackpressureSensitivity) {
		return invalidConfig("auction.backpressure_sensitivity", "must be a non-negative number, got %f", c.BackpressureSensitivity)
	}
	return nil
}

// Validate checks currency parameter ranges.
func (c CurrencyConfig) Validate() error {
	if !unitInterval(c.DecayRate) {
		return invalidConfig("currency.decay_rate", "must be in [0,1], got %f", c.DecayRate)
	}
	if !finiteNonNegative(c.BaseAllocation) {
		return invalidConfig("currency.base_allocation", "must be a non-negative number, got %f", c.BaseAllocation)
	}
	if !finiteNonNegative(c.PriorityWeightFactor) {
		return invalidConfig("currency.priority_weight_factor", "must be a non-negative number, got %f", c.PriorityWeightFactor)
	}
	if !finiteNonNegative(c.UtilizationRewardFactor) {
		return invalidConfig("currency.utilization_reward_factor", "must be a non-negative number, got %f", c.UtilizationRewardFactor)
	}
	return nil
}

// Validate checks pricing parameter ranges.
func (c PricingConfig) Validate() error {
	if !unitInterval(c.PriceSmoothing) {
		return invalidConfig("pricing.price_smoothing", "must be in [0,1], got %f", c.PriceSmoothing)
	}
	if !unitInterval(c.TargetUtilization) {
		return invalidConfig("pricing.target_utilization", "must be in [0,1], got %f", c.TargetUtilization)
	}
	if !finiteNonNegative(c.OverUtilizationAggressiveness) {
		return invalidConfig("pricing.over_utilization_aggressiveness", "must be a non-negative number, got %f", c.OverUtilizationAggressiveness)
	}
	if !finiteNonNegative(c.UnderUtilizationReduction) {
		return invalidConfig("pricing.under_utilization_reduction", "must be a non-negative number, got %f", c.UnderUtilizationReduction)
	}
	if !(c.MinPriceMultiplier > 0) || math.IsInf(c.MinPriceMultiplier, 0) {
		return invalidConfig("pricing.min_price_multiplier", "must be positive, got %f", c.MinPriceMultiplier)
	}
	return nil
}

func finiteNonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 1)
}

func unitInterval(v float64) bool {
	return v >= 0 && v <= 1
}
