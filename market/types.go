package market

import (
	"sort"
	"time"
)

// Bundle maps a resource kind (e.g. "cpu") to an amount.
type Bundle map[string]float64

// Total sums every amount in the bundle.
func (b Bundle) Total() float64 {
	total := 0.0
	for _, k := range b.Kinds() {
		total += b[k]
	}
	return total
}

// Clone returns an independent copy. A nil bundle clones to an empty one.
func (b Bundle) Clone() Bundle {
	c := make(Bundle, len(b))
	for k, v := range b {
		c[k] = v
	}
	return c
}

// Kinds returns the resource kinds in the bundle, sorted.
func (b Bundle) Kinds() []string {
	kinds := make([]string, 0, len(b))
	for k := range b {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Fits reports whether every amount in b is covered by pool.
// Kinds absent from pool have zero availability. A NaN amount never fits.
func (b Bundle) Fits(pool Bundle) bool {
	for k, v := range b {
		if !(pool[k] >= v) {
			return false
		}
	}
	return true
}

// Bid is a tenant's offer for one resource bundle. Treat as immutable.
type Bid struct {
	TenantID   string
	OperatorID string
	Bundle     Bundle
	Valuation  float64
	Timestamp  time.Time
}

// Valid reports whether the valuation and every bundle amount are finite
// and non-negative.
func (b Bid) Valid() bool {
	if !finiteNonNegative(b.Valuation) {
		return false
	}
	for _, v := range b.Bundle {
		if !finiteNonNegative(v) {
			return false
		}
	}
	return true
}

// Allocation is a granted bid. PricePaid equals the bid's valuation.
type Allocation struct {
	TenantID   string
	OperatorID string
	Bundle     Bundle
	PricePaid  float64
	Timestamp  time.Time
}

// RejectReason says why the clearer turned a bid down.
type RejectReason string

const (
	// RejectInsufficientFunds means the tenant's balance could not cover the valuation.
	RejectInsufficientFunds RejectReason = "insufficient_funds"
	// RejectInsufficientCapacity means some requested kind exceeded what remained in the pool.
	RejectInsufficientCapacity RejectReason = "insufficient_capacity"
	// RejectInvalidBid means the valuation or a bundle amount was negative or not finite.
	RejectInvalidBid RejectReason = "invalid_bid"
)

// Rejection pairs a losing bid with its reason.
type Rejection struct {
	Bid    Bid
	Reason RejectReason
}
