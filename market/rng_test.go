package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartitionedRNG_SameKeySameStream(t *testing.T) {
	a := NewPartitionedRNG(NewSimulationKey(42)).ForSubsystem(SubsystemDemand)
	b := NewPartitionedRNG(NewSimulationKey(42)).ForSubsystem(SubsystemDemand)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Uint64(), b.Uint64())
	}
}

func TestPartitionedRNG_SubsystemsIsolated(t *testing.T) {
	p := NewPartitionedRNG(NewSimulationKey(42))
	demand := p.ForSubsystem(SubsystemDemand)
	util := p.ForSubsystem(SubsystemUtilization)
	assert.NotEqual(t, demand.Uint64(), util.Uint64())

	// drawing from one subsystem does not shift another
	fresh := NewPartitionedRNG(NewSimulationKey(42))
	freshUtil := fresh.ForSubsystem(SubsystemUtilization)
	for i := 0; i < 10; i++ {
		fresh.ForSubsystem(SubsystemDemand).Uint64()
	}
	p2 := NewPartitionedRNG(NewSimulationKey(42))
	assert.Equal(t, p2.ForSubsystem(SubsystemUtilization).Uint64(), freshUtil.Uint64())
}

func TestPartitionedRNG_Cached(t *testing.T) {
	p := NewPartitionedRNG(NewSimulationKey(1))
	assert.Same(t, p.ForSubsystem("x"), p.ForSubsystem("x"))
	assert.Equal(t, SimulationKey(1), p.Key())
}

func TestSubsystemTenant(t *testing.T) {
	assert.Equal(t, "tenant_t1", SubsystemTenant("t1"))
}
