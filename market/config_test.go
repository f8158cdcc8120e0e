package market

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "market.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig_IsValid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestLoadConfig_OverlaysDefaults(t *testing.T) {
	path := writeTempYAML(t, `
auction:
  backpressure_sensitivity: 3.0
  auction_interval: 250ms
currency:
  decay_rate: 0.1
pricing:
  target_utilization: 0.6
scheduler:
  round_timeout: 2s
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 3.0, cfg.Auction.BackpressureSensitivity)
	assert.Equal(t, 250*time.Millisecond, cfg.Auction.Interval)
	assert.Equal(t, 0.1, cfg.Currency.DecayRate)
	assert.Equal(t, 0.6, cfg.Pricing.TargetUtilization)
	assert.Equal(t, 2*time.Second, cfg.Scheduler.RoundTimeout)

	// untouched keys keep defaults
	def := DefaultConfig()
	assert.Equal(t, def.Currency.BaseAllocation, cfg.Currency.BaseAllocation)
	assert.Equal(t, def.Pricing.PriceSmoothing, cfg.Pricing.PriceSmoothing)
	assert.Equal(t, def.Auction.MinBidIncrement, cfg.Auction.MinBidIncrement)
}

func TestLoadConfig_ZeroIsDistinctFromUnset(t *testing.T) {
	path := writeTempYAML(t, `
currency:
  decay_rate: 0.0
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.Currency.DecayRate)
	assert.Equal(t, 100.0, cfg.Currency.BaseAllocation)
}

func TestLoadConfig_UnknownKeyRejected(t *testing.T) {
	path := writeTempYAML(t, `
pricing:
  target_utilisation: 0.5
`)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_InvalidValueRejected(t *testing.T) {
	path := writeTempYAML(t, `
pricing:
  target_utilization: 1.5
`)
	_, err := LoadConfig(path)
	var ice *InvalidConfigurationError
	require.ErrorAs(t, err, &ice)
	assert.Equal(t, "pricing.target_utilization", ice.Field)
}

func TestLoadConfig_NonexistentFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/market.yaml")
	assert.Error(t, err)
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	_, err := LoadConfig(writeTempYAML(t, "{{invalid yaml"))
	assert.Error(t, err)
}

func TestConfigValidate_Ranges(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"negative backpressure", func(c *Config) { c.Auction.BackpressureSensitivity = -1 }, "auction.backpressure_sensitivity"},
		{"negative interval", func(c *Config) { c.Auction.Interval = -time.Second }, "auction.auction_interval"},
		{"negative min bid increment", func(c *Config) { c.Auction.MinBidIncrement = -0.01 }, "auction.min_bid_increment"},
		{"decay above one", func(c *Config) { c.Currency.DecayRate = 1.01 }, "currency.decay_rate"},
		{"negative base allocation", func(c *Config) { c.Currency.BaseAllocation = -1 }, "currency.base_allocation"},
		{"negative reward", func(c *Config) { c.Currency.UtilizationRewardFactor = -1 }, "currency.utilization_reward_factor"},
		{"smoothing above one", func(c *Config) { c.Pricing.PriceSmoothing = 1.1 }, "pricing.price_smoothing"},
		{"negative target", func(c *Config) { c.Pricing.TargetUtilization = -0.1 }, "pricing.target_utilization"},
		{"negative reduction", func(c *Config) { c.Pricing.UnderUtilizationReduction = -0.1 }, "pricing.under_utilization_reduction"},
		{"negative timeout", func(c *Config) { c.Scheduler.RoundTimeout = -time.Millisecond }, "scheduler.round_timeout"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			var ice *InvalidConfigurationError
			require.ErrorAs(t, cfg.Validate(), &ice)
			assert.Equal(t, tc.field, ice.Field)
		})
	}
}
