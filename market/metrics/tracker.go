package metrics

import (
	"sync"

	"gonum.org/v1/gonum/stat"
)

// Metric names reported by Tracker.GetAllMetrics.
const (
	ResourceUtilizationEfficiency = "Resource Utilization Efficiency (RUE)"
	TailLatencyViolationRate      = "Tail Latency Violation Rate (TLVR)"
	EconomicEfficiencyIndex       = "Economic Efficiency Index (EEI)"
	JainsFairnessIndex            = "Jain's Fairness Index"
	NormalizedThroughput          = "Normalized Throughput"
	FairnessPerformanceProduct    = "Fairness-Performance Product (FPP)"
	MigrationImpactScore          = "Migration Impact Score (MIS)"
)

// DefaultHighPriorityLatencySLA is the latency bound, in milliseconds, that
// high-priority samples are checked against.
const DefaultHighPriorityLatencySLA = 100.0

// maxThroughput normalizes recorded throughput.
const maxThroughput = 1.0

// utilizationKinds are averaged per snapshot for RUE.
var utilizationKinds = []string{"cpu", "memory", "network"}

type latencySample struct {
	tenantID  string
	latencyMs float64
	priority  string
}

// Tracker keeps every recorded value in memory and derives the evaluation
// metrics on demand. Safe for concurrent use.
type Tracker struct {
	mu sync.Mutex

	highPriorityLatencySLA float64

	utilizations    []map[string]float64
	latencies       []latencySample
	valuations      [][]float64
	allocations     [][]bool
	throughputs     []float64
	migrationImpact []float64
}

// NewTracker returns an empty Tracker using DefaultHighPriorityLatencySLA.
func NewTracker() *Tracker {
	return &Tracker{highPriorityLatencySLA: DefaultHighPriorityLatencySLA}
}

func (t *Tracker) RecordAuctionResults(valuations []float64, allocated []bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.valuations = append(t.valuations, append([]float64(nil), valuations...))
	t.allocations = append(t.allocations, append([]bool(nil), allocated...))
}

func (t *Tracker) RecordResourceUtilization(utilizations map[string]float64) {
	snapshot := make(map[string]float64, len(utilizations))
	for k, v := range utilizations {
		snapshot[k] = v
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.utilizations = append(t.utilizations, snapshot)
}

func (t *Tracker) RecordLatency(tenantID string, latencyMs float64, priority string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.latencies = append(t.latencies, latencySample{tenantID: tenantID, latencyMs: latencyMs, priority: priority})
}

func (t *Tracker) RecordThroughput(value float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.throughputs = append(t.throughputs, value)
}

func (t *Tracker) RecordMigrationImpact(value float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.migrationImpact = append(t.migrationImpact, value)
}

// ResourceUtilizationEfficiency is the mean, over snapshots, of the mean
// cpu/memory/network utilization. Missing kinds count as 0.
func (t *Tracker) ResourceUtilizationEfficiency() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.utilizations) == 0 {
		return 0
	}
	perSnapshot := make([]float64, len(t.utilizations))
	for i, u := range t.utilizations {
		vals := make([]float64, len(utilizationKinds))
		for j, k := range utilizationKinds {
			vals[j] = u[k]
		}
		perSnapshot[i] = stat.Mean(vals, nil)
	}
	return stat.Mean(perSnapshot, nil)
}

// TailLatencyViolationRate is the percentage of high-priority latency
// samples above the SLA.
func (t *Tracker) TailLatencyViolationRate() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	total, violations := 0, 0
	for _, s := range t.latencies {
		if s.priority != PriorityHigh {
			continue
		}
		total++
		if s.latencyMs > t.highPriorityLatencySLA {
			violations++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(violations) / float64(total) * 100
}

// EconomicEfficiencyIndex is achieved welfare Σv·x over the maximum Σv.
func (t *Tracker) EconomicEfficiencyIndex() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	achieved, maximum := 0.0, 0.0
	for i, vals := range t.valuations {
		flags := t.allocations[i]
		for j, v := range vals {
			if j < len(flags) && flags[j] {
				achieved += v
			}
			maximum += v
		}
	}
	if maximum <= 0 {
		return 0
	}
	return achieved / maximum
}

// JainsFairnessIndex computes (Σx)²/(n·Σx²) over the number of grants each
// result position received across all rounds. 1.0 when nothing was granted.
func (t *Tracker) JainsFairnessIndex() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.jainsLocked()
}

func (t *Tracker) jainsLocked() float64 {
	var perPosition []float64
	for _, flags := range t.allocations {
		for i, granted := range flags {
			if i >= len(perPosition) {
				perPosition = append(perPosition, 0)
			}
			if granted {
				perPosition[i]++
			}
		}
	}
	if len(perPosition) == 0 {
		return 1
	}
	sum, sumSq := 0.0, 0.0
	for _, x := range perPosition {
		sum += x
		sumSq += x * x
	}
	if sumSq == 0 {
		return 1
	}
	return sum * sum / (float64(len(perPosition)) * sumSq)
}

// NormalizedThroughput is mean recorded throughput over the theoretical maximum.
func (t *Tracker) NormalizedThroughput() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.normalizedThroughputLocked()
}

func (t *Tracker) normalizedThroughputLocked() float64 {
	if len(t.throughputs) == 0 {
		return 0
	}
	return stat.Mean(t.throughputs, nil) / maxThroughput
}

// FairnessPerformanceProduct is Jain's index times normalized throughput.
func (t *Tracker) FairnessPerformanceProduct() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.jainsLocked() * t.normalizedThroughputLocked()
}

// MigrationImpactScore is the mean recorded migration impact.
func (t *Tracker) MigrationImpactScore() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.migrationImpact) == 0 {
		return 0
	}
	return stat.Mean(t.migrationImpact, nil)
}

// GetAllMetrics returns every evaluation metric keyed by its display name.
func (t *Tracker) GetAllMetrics() map[string]float64 {
	return map[string]float64{
		ResourceUtilizationEfficiency: t.ResourceUtilizationEfficiency(),
		TailLatencyViolationRate:      t.TailLatencyViolationRate(),
		EconomicEfficiencyIndex:       t.EconomicEfficiencyIndex(),
		JainsFairnessIndex:            t.JainsFairnessIndex(),
		NormalizedThroughput:          t.NormalizedThroughput(),
		FairnessPerformanceProduct:    t.FairnessPerformanceProduct(),
		MigrationImpactScore:          t.MigrationImpactScore(),
	}
}
