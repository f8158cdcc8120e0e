// Package metrics collects round outcomes for evaluation and export.
// Recorders are purely additive: nothing recorded here feeds back into scheduling.
package metrics

import "sort"

// Priority tiers accepted by RecordLatency.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Recorder receives round outcomes from a scheduling strategy.
type Recorder interface {
	RecordAuctionResults(valuations []float64, allocated []bool)
	RecordResourceUtilization(utilizations map[string]float64)
	RecordLatency(tenantID string, latencyMs float64, priority string)
	RecordThroughput(value float64)
	RecordMigrationImpact(value float64)
}

// Reporter is a Recorder that can summarize what it has seen.
type Reporter interface {
	Recorder
	GetAllMetrics() map[string]float64
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordAuctionResults([]float64, []bool)       {}
func (Nop) RecordResourceUtilization(map[string]float64) {}
func (Nop) RecordLatency(string, float64, string)        {}
func (Nop) RecordThroughput(float64)                     {}
func (Nop) RecordMigrationImpact(float64)                {}

// Multi fans every record out to each member in order.
type Multi []Recorder

func (m Multi) RecordAuctionResults(valuations []float64, allocated []bool) {
	for _, r := range m {
		r.RecordAuctionResults(valuations, allocated)
	}
}

func (m Multi) RecordResourceUtilization(utilizations map[string]float64) {
	for _, r := range m {
		r.RecordResourceUtilization(utilizations)
	}
}

func (m Multi) RecordLatency(tenantID string, latencyMs float64, priority string) {
	for _, r := range m {
		r.RecordLatency(tenantID, latencyMs, priority)
	}
}

func (m Multi) RecordThroughput(value float64) {
	for _, r := range m {
		r.RecordThroughput(value)
	}
}

func (m Multi) RecordMigrationImpact(value float64) {
	for _, r := range m {
		r.RecordMigrationImpact(value)
	}
}

// GetAllMetrics merges the summaries of every member that is a Reporter.
// On a name collision the earlier member wins.
func (m Multi) GetAllMetrics() map[string]float64 {
	out := make(map[string]float64)
	for _, r := range m {
		rep, ok := r.(Reporter)
		if !ok {
			continue
		}
		for k, v := range rep.GetAllMetrics() {
			if _, seen := out[k]; !seen {
				out[k] = v
			}
		}
	}
	return out
}

// SortedNames returns the keys of a metrics summary in a stable order for printing.
func SortedNames(summary map[string]float64) []string {
	names := make([]string, 0, len(summary))
	for k := range summary {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
