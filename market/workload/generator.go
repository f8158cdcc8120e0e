package workload

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/streambazaar/streambazaar/market"
)

// Round is the demand for one market round.
type Round struct {
	Index        int
	Signals      []market.DemandSignal         // one per operator, tenants and operators in declaration order
	Requirements map[string]market.Bundle      // tenant -> requirement vector
	Utilizations map[string]map[string]float64 // device -> kind -> utilization
	Available    market.Bundle
}

// Generator produces Rounds from a Spec. Deterministic given the same spec,
// seed, and device list. Not safe for concurrent use.
type Generator struct {
	spec    *Spec
	devices []string

	rng         *market.PartitionedRNG
	demand      *rand.Rand
	utilization *rand.Rand

	round int
}

// NewGenerator validates spec and seeds one RNG stream per concern, so the
// device list does not perturb demand and vice versa. Requirements come from
// a private stream per tenant, so adding a tenant leaves the others' intact.
func NewGenerator(spec *Spec, devices []string) (*Generator, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid workload spec: %w", err)
	}
	rng := market.NewPartitionedRNG(market.NewSimulationKey(spec.Seed))
	sorted := append([]string(nil), devices...)
	sort.Strings(sorted)
	return &Generator{
		spec:        spec,
		devices:     sorted,
		rng:         rng,
		demand:      rng.ForSubsystem(market.SubsystemDemand),
		utilization: rng.ForSubsystem(market.SubsystemUtilization),
	}, nil
}

// Tenants returns the workload's tenants in declaration order.
func (g *Generator) Tenants() []TenantSpec {
	return g.spec.Tenants
}

// Next draws the following round.
func (g *Generator) Next() Round {
	g.round++
	r := Round{
		Index:        g.round,
		Requirements: make(map[string]market.Bundle, len(g.spec.Tenants)),
		Utilizations: make(map[string]map[string]float64, len(g.devices)),
		Available:    g.spec.Available.Clone(),
	}
	for _, device := range g.devices {
		r.Utilizations[device] = sampleBundle(g.spec.Utilization, g.utilization)
	}
	d := g.spec.Demand
	for _, t := range g.spec.Tenants {
		for _, op := range t.Operators {
			r.Signals = append(r.Signals, market.DemandSignal{
				TenantID:             t.ID,
				OperatorID:           op,
				BaseResources:        sampleBundle(d.Resources, g.demand),
				CurrentInputRate:     uniform(d.InputRate, g.demand),
				ReferenceInputRate:   d.ReferenceInputRate,
				ProcessingComplexity: uniform(d.Complexity, g.demand),
				CurrentQueueLength:   uniform(d.QueueLength, g.demand),
				MaxQueueLength:       d.MaxQueueLength,
			})
		}
		req := sampleBundle(g.spec.Requirements, g.rng.ForSubsystem(market.SubsystemTenant(t.ID)))
		for kind := range req {
			req[kind] *= float64(len(t.Operators))
		}
		r.Requirements[t.ID] = req
	}
	return r
}

// sampleBundle draws one value per kind, kinds in sorted order.
func sampleBundle(ranges map[string]Range, src rand.Source) market.Bundle {
	kinds := make([]string, 0, len(ranges))
	for k := range ranges {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	out := make(market.Bundle, len(kinds))
	for _, k := range kinds {
		out[k] = uniform(ranges[k], src)
	}
	return out
}

func uniform(r Range, src rand.Source) float64 {
	if r.Min == r.Max {
		return r.Min
	}
	return distuv.Uniform{Min: r.Min, Max: r.Max, Src: src}.Rand()
}
