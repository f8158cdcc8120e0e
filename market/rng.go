package market

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
)

// SimulationKey uniquely identifies a reproducible market run.
// Two runs with the same SimulationKey and identical configuration
// MUST produce identical bids, allocations, and balances.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

const (
	// SubsystemDemand is the RNG subsystem for operator demand signals.
	SubsystemDemand = "demand"

	// SubsystemUtilization is the RNG subsystem for device utilization snapshots.
	SubsystemUtilization = "utilization"
)

// SubsystemTenant returns the subsystem name for a tenant's private stream,
// used for its baseline requirements.
func SubsystemTenant(tenantID string) string {
	return fmt.Sprintf("tenant_%s", tenantID)
}

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem.
//
// Each subsystem is seeded with a PCG whose state is (masterSeed, fnv1a64(name)),
// so adding a new subsystem never perturbs the streams of existing ones.
//
// Thread-safety: NOT thread-safe. Must be called from single goroutine.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance (cached).
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewPCG(uint64(p.key), fnv1a64(name)))
	p.subsystems[name] = rng
	return rng
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

func fnv1a64(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}
