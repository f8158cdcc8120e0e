// Package workload generates reproducible synthetic demand for the market:
// operator demand signals, per-tenant requirement vectors for the baseline
// allocators, and per-device utilization snapshots.
package workload

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/streambazaar/streambazaar/market"
)

// Range is a closed interval sampled uniformly.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// TenantSpec describes one tenant and the operators it runs.
type TenantSpec struct {
	ID        string   `yaml:"id"`
	Priority  float64  `yaml:"priority"`
	Operators []string `yaml:"operators"`
}

// DemandSpec bounds the demand signal each operator emits per round.
type DemandSpec struct {
	Resources          map[string]Range `yaml:"resources"` // base bundle per operator
	InputRate          Range            `yaml:"input_rate"`
	ReferenceInputRate float64          `yaml:"reference_input_rate"`
	Complexity         Range            `yaml:"complexity"`
	QueueLength        Range            `yaml:"queue_length"`
	MaxQueueLength     float64          `yaml:"max_queue_length"`
}

// Spec is a complete workload description.
type Spec struct {
	Seed      int64         `yaml:"seed"`
	Tenants   []TenantSpec  `yaml:"tenants"`
	Available market.Bundle `yaml:"available"`
	Demand    DemandSpec    `yaml:"demand"`
	// Utilization bounds each device's per-kind utilization snapshot.
	Utilization map[string]Range `yaml:"utilization"`
	// Requirements bounds a tenant's per-operator requirement; the tenant's
	// vector is the sample times its operator count.
	Requirements map[string]Range `yaml:"requirements"`
}

// DefaultSpec returns three tenants over a 32-core cluster, with demand
// ranges sized so that every round is contended.
func DefaultSpec() *Spec {
	return &Spec{
		Seed: 42,
		Tenants: []TenantSpec{
			{ID: "tenant_1", Priority: 1.5, Operators: []string{"op_1", "op_2"}},
			{ID: "tenant_2", Priority: 1.0, Operators: []string{"op_3", "op_4", "op_5"}},
			{ID: "tenant_3", Priority: 0.8, Operators: []string{"op_6"}},
		},
		Available: market.Bundle{"cpu": 32, "memory": 128, "network": 20},
		Demand: DemandSpec{
			Resources: map[string]Range{
				"cpu":     {Min: 1, Max: 4},
				"memory":  {Min: 2, Max: 8},
				"network": {Min: 0.5, Max: 2},
			},
			InputRate:          Range{Min: 100, Max: 1000},
			ReferenceInputRate: 500,
			Complexity:         Range{Min: 0.1, Max: 0.9},
			QueueLength:        Range{Min: 0, Max: 100},
			MaxQueueLength:     200,
		},
		Utilization: map[string]Range{
			"cpu":     {Min: 0.5, Max: 0.9},
			"memory":  {Min: 0.4, Max: 0.8},
			"network": {Min: 0.3, Max: 0.7},
		},
		Requirements: map[string]Range{
			"cpu":     {Min: 2, Max: 8},
			"memory":  {Min: 4, Max: 16},
			"network": {Min: 1, Max: 4},
		},
	}
}

// LoadSpec reads a YAML workload file. Unknown keys are an error; the
// result is validated.
func LoadSpec(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workload spec: %w", err)
	}
	var spec Spec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("parsing workload spec: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid workload spec: %w", err)
	}
	return &spec, nil
}

// Validate checks tenants and ranges.
func (s *Spec) Validate() error {
	if len(s.Tenants) == 0 {
		return fmt.Errorf("at least one tenant is required")
	}
	seen := make(map[string]bool, len(s.Tenants))
	for i, t := range s.Tenants {
		if t.ID == "" {
			return fmt.Errorf("tenants[%d]: id is required", i)
		}
		if seen[t.ID] {
			return fmt.Errorf("tenants[%d]: duplicate id %q", i, t.ID)
		}
		seen[t.ID] = true
		if !(t.Priority > 0) || math.IsInf(t.Priority, 0) {
			return fmt.Errorf("tenant %q: priority must be a positive number, got %f", t.ID, t.Priority)
		}
		if len(t.Operators) == 0 {
			return fmt.Errorf("tenant %q: at least one operator is required", t.ID)
		}
	}
	for _, kind := range s.Available.Kinds() {
		if err := validateNonNegative("available."+kind, s.Available[kind]); err != nil {
			return err
		}
	}
	if err := validateRanges("demand.resources", s.Demand.Resources); err != nil {
		return err
	}
	if err := validateRange("demand.input_rate", s.Demand.InputRate); err != nil {
		return err
	}
	if err := validateRange("demand.complexity", s.Demand.Complexity); err != nil {
		return err
	}
	if err := validateRange("demand.queue_length", s.Demand.QueueLength); err != nil {
		return err
	}
	if err := validateNonNegative("demand.reference_input_rate", s.Demand.ReferenceInputRate); err != nil {
		return err
	}
	if err := validateNonNegative("demand.max_queue_length", s.Demand.MaxQueueLength); err != nil {
		return err
	}
	if err := validateRanges("utilization", s.Utilization); err != nil {
		return err
	}
	for kind, r := range s.Utilization {
		if r.Max > 1 {
			return fmt.Errorf("utilization.%s: max must be at most 1, got %f", kind, r.Max)
		}
	}
	return validateRanges("requirements", s.Requirements)
}

func validateRanges(prefix string, ranges map[string]Range) error {
	kinds := make([]string, 0, len(ranges))
	for k := range ranges {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		if err := validateRange(prefix+"."+k, ranges[k]); err != nil {
			return err
		}
	}
	return nil
}

func validateRange(name string, r Range) error {
	if err := validateNonNegative(name+".min", r.Min); err != nil {
		return err
	}
	if err := validateNonNegative(name+".max", r.Max); err != nil {
		return err
	}
	if r.Min > r.Max {
		return fmt.Errorf("%s: min %f exceeds max %f", name, r.Min, r.Max)
	}
	return nil
}

func validateNonNegative(name string, val float64) error {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return fmt.Errorf("%s must be a finite number, got %f", name, val)
	}
	if val < 0 {
		return fmt.Errorf("%s must be non-negative, got %f", name, val)
	}
	return nil
}
