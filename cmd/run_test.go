package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streambazaar/streambazaar/market"
	"github.com/streambazaar/streambazaar/market/baseline"
	"github.com/streambazaar/streambazaar/market/catalog"
	"github.com/streambazaar/streambazaar/market/metrics"
	"github.com/streambazaar/streambazaar/market/trace"
	"github.com/streambazaar/streambazaar/market/workload"
)

func defaultInputs() inputs {
	return inputs{
		config:   market.DefaultConfig(),
		catalog:  catalog.DefaultCatalog(),
		workload: workload.DefaultSpec(),
	}
}

func TestRunMarket_ReportsRoundsMetricsAndTrace(t *testing.T) {
	var out bytes.Buffer
	err := runMarket(context.Background(), defaultInputs(), runOptions{
		strategy:   market.StrategyStreamBazaar,
		rounds:     3,
		traceLevel: trace.TraceLevelRounds,
	}, &out)
	require.NoError(t, err)

	s := out.String()
	assert.Contains(t, s, "Strategy: streambazaar")
	assert.Contains(t, s, "--- Round 3 ---")
	assert.Contains(t, s, "Tenant balances:")
	assert.Contains(t, s, "Rounds: 3 (skipped 0)")
	assert.Contains(t, s, "Bids: 18")
	assert.Contains(t, s, metrics.EconomicEfficiencyIndex)
	assert.Contains(t, s, "=== Trace Summary ===")
}

func TestRunMarket_Baseline(t *testing.T) {
	var out bytes.Buffer
	err := runMarket(context.Background(), defaultInputs(), runOptions{
		strategy:   baseline.StrategyTALOS,
		rounds:     2,
		traceLevel: trace.TraceLevelNone,
	}, &out)
	require.NoError(t, err)

	s := out.String()
	assert.Contains(t, s, "Strategy: talos")
	assert.Contains(t, s, "Tenant tenant_1 granted")
	assert.NotContains(t, s, "Tenant balances:")
	assert.NotContains(t, s, "Trace Summary")
}

func TestRunMarket_ExportsToPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	var out bytes.Buffer
	err := runMarket(context.Background(), defaultInputs(), runOptions{
		strategy:   market.StrategyStreamBazaar,
		rounds:     2,
		traceLevel: trace.TraceLevelNone,
		registry:   reg,
	}, &out)
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	found := false
	for _, mf := range families {
		if mf.GetName() == "streambazaar_bids_submitted_total" {
			found = true
			require.Len(t, mf.GetMetric(), 1)
			assert.Equal(t, 12.0, mf.GetMetric()[0].GetCounter().GetValue())
		}
	}
	assert.True(t, found)
}

func TestRunMarket_Deterministic(t *testing.T) {
	run := func() string {
		var out bytes.Buffer
		require.NoError(t, runMarket(context.Background(), defaultInputs(), runOptions{
			strategy: market.StrategyStreamBazaar, rounds: 4, traceLevel: trace.TraceLevelNone,
		}, &out))
		return out.String()
	}
	assert.Equal(t, run(), run())
}

func TestRunMarket_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	err := runMarket(ctx, defaultInputs(), runOptions{
		strategy: market.StrategyStreamBazaar, rounds: 2, traceLevel: trace.TraceLevelNone,
	}, &out)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDriver_ReplenishTopsUpMarketTenants(t *testing.T) {
	in := defaultInputs()
	without, err := market.NewScheduler(in.config, in.catalog)
	require.NoError(t, err)
	with, err := market.NewScheduler(in.config, in.catalog)
	require.NoError(t, err)

	for _, tc := range []struct {
		s         *market.Scheduler
		replenish int
	}{{without, 0}, {with, 1}} {
		gen, err := workload.NewGenerator(in.workload, in.catalog.ListDevices())
		require.NoError(t, err)
		d, err := newDriver(tc.s, gen, in.config)
		require.NoError(t, err)
		d.replenishEvery = tc.replenish
		d.initializeTenants()
		// one round: identical clearing, replenishment lands afterwards
		_, err = d.run(context.Background(), 1)
		require.NoError(t, err)
	}
	for _, tenant := range []string{"tenant_1", "tenant_2", "tenant_3"} {
		assert.Greater(t, with.Ledger().GetBalance(tenant), without.Ledger().GetBalance(tenant), tenant)
	}
}

func TestCompareStrategies_AllRegistered(t *testing.T) {
	names := market.StrategyNames()
	results, err := compareStrategies(context.Background(), defaultInputs(), names, 3)
	require.NoError(t, err)
	require.Len(t, results, len(names))
	for i, r := range results {
		assert.Equal(t, names[i], r.Name)
		assert.Equal(t, 3, r.Stats.Rounds)
		assert.Contains(t, r.Metrics, metrics.JainsFairnessIndex)
	}

	again, err := compareStrategies(context.Background(), defaultInputs(), names, 3)
	require.NoError(t, err)
	for i := range results {
		assert.Equal(t, results[i].Metrics, again[i].Metrics, results[i].Name)
	}

	var out bytes.Buffer
	printComparison(&out, results)
	assert.Contains(t, out.String(), "METRIC")
	assert.Contains(t, out.String(), baseline.StrategyCAPSys)
}

func TestCompareStrategies_UnknownStrategy(t *testing.T) {
	_, err := compareStrategies(context.Background(), defaultInputs(), []string{"nope"}, 1)
	assert.Error(t, err)
}

func TestQuotePrices(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, quotePrices(defaultInputs(), []string{"server"}, map[string]float64{"cpu": 0.8}, &out))
	s := out.String()
	assert.Contains(t, s, "server (cloud")
	assert.Contains(t, s, "list 0.0600  quote 0.0600")

	out.Reset()
	require.NoError(t, quotePrices(defaultInputs(), nil, nil, &out))
	for _, d := range catalog.DefaultCatalog().ListDevices() {
		assert.Contains(t, out.String(), d)
	}

	err := quotePrices(defaultInputs(), []string{"mainframe"}, nil, &out)
	var nf *catalog.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestParseUtilizations(t *testing.T) {
	u, err := parseUtilizations(map[string]string{"cpu": "0.9"})
	require.NoError(t, err)
	assert.Equal(t, 0.9, u["cpu"])

	_, err = parseUtilizations(map[string]string{"cpu": "high"})
	assert.Error(t, err)
	_, err = parseUtilizations(map[string]string{"cpu": "1.5"})
	assert.Error(t, err)
}

func TestLoadInputs_SeedOverrideAndFiles(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "market.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("currency:\n  decay_rate: 0.2\n"), 0o644))

	oldConfig, oldDevices, oldWorkload, oldSeed := configPath, devicesPath, workloadPath, seed
	t.Cleanup(func() { configPath, devicesPath, workloadPath, seed = oldConfig, oldDevices, oldWorkload, oldSeed })
	configPath, devicesPath, workloadPath, seed = cfgFile, "", "", 99

	in, err := loadInputs(true)
	require.NoError(t, err)
	assert.Equal(t, 0.2, in.config.Currency.DecayRate)
	assert.Equal(t, int64(99), in.workload.Seed)
	assert.NotNil(t, in.catalog)

	in, err = loadInputs(false)
	require.NoError(t, err)
	assert.Equal(t, workload.DefaultSpec().Seed, in.workload.Seed)

	devicesPath = filepath.Join(dir, "missing.yaml")
	_, err = loadInputs(false)
	assert.Error(t, err)
}
