// Package trace provides per-round decision recording for market analysis.
// This package has no dependencies on market/; it stores pure data types.
package trace

import "time"

// BidRecord captures one bid as it entered the clearer.
type BidRecord struct {
	TenantID   string
	OperatorID string
	Bundle     map[string]float64
	Valuation  float64
	Efficiency float64
}

// RejectionRecord captures a losing bid and why it lost.
type RejectionRecord struct {
	TenantID   string
	OperatorID string
	Valuation  float64
	Reason     string // "insufficient_funds", "insufficient_capacity" or "invalid_bid"
}

// WinnerRecord captures a granted bid and what it paid.
type WinnerRecord struct {
	TenantID   string
	OperatorID string
	Bundle     map[string]float64
	PricePaid  float64
}

// RoundRecord captures everything one auction round decided.
type RoundRecord struct {
	RoundID       string
	Round         int
	Timestamp     time.Time
	Available     map[string]float64
	Bids          []BidRecord // in clearing order (efficiency desc)
	Winners       []WinnerRecord
	Rejections    []RejectionRecord
	BalancesAfter map[string]float64 // after settlement and decay
	Skipped       bool               // round overran its deadline and committed nothing
}
