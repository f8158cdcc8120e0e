package market

import (
	"sort"

	"github.com/sirupsen/logrus"
)

// ClearingResult is the outcome of one call to DetermineWinners.
type ClearingResult struct {
	Allocations []Allocation       // in clearing order
	Rejections  []Rejection        // in clearing order
	Granted     []bool             // aligned with the input bids
	Balances    map[string]float64 // settled balances; the input map is untouched
	Remaining   Bundle             // pool left after all grants
	Order       []int              // input indices in clearing order
}

// RejectedBids returns the losing bids without their reasons.
func (r ClearingResult) RejectedBids() []Bid {
	out := make([]Bid, len(r.Rejections))
	for i, rej := range r.Rejections {
		out[i] = rej.Bid
	}
	return out
}

// Efficiency is valuation per unit of requested resource, or 0 for an empty bundle.
func Efficiency(b Bid) float64 {
	total := b.Bundle.Total()
	if total == 0 {
		return 0
	}
	return b.Valuation / total
}

// ClearingOrder returns bid indices sorted by efficiency descending.
// Ties go to the earlier timestamp, then the lower tenant ID, then the
// earlier submission index, so the order is fully determined by the input.
func ClearingOrder(bids []Bid) []int {
	eff := make([]float64, len(bids))
	order := make([]int, len(bids))
	for i, b := range bids {
		eff[i] = Efficiency(b)
		order[i] = i
	}
	sort.SliceStable(order, func(x, y int) bool {
		i, j := order[x], order[y]
		if eff[i] != eff[j] {
			return eff[i] > eff[j]
		}
		if !bids[i].Timestamp.Equal(bids[j].Timestamp) {
			return bids[i].Timestamp.Before(bids[j].Timestamp)
		}
		if bids[i].TenantID != bids[j].TenantID {
			return bids[i].TenantID < bids[j].TenantID
		}
		return i < j
	})
	return order
}

// DetermineWinners greedily grants bids in ClearingOrder.
//
// A bid is rejected as invalid unless Bid.Valid holds, then for insufficient
// funds if its tenant's balance is below the valuation, otherwise for
// insufficient capacity if any requested kind exceeds what remains. Grants are all-or-nothing. Neither available nor
// balances is modified; the settled balances are returned in the result.
func (a *Auction) DetermineWinners(bids []Bid, available Bundle, balances map[string]float64) ClearingResult {
	remaining := available.Clone()
	settled := make(map[string]float64, len(balances))
	for t, b := range balances {
		settled[t] = b
	}

	result := ClearingResult{
		Allocations: make([]Allocation, 0, len(bids)),
		Rejections:  make([]Rejection, 0),
		Granted:     make([]bool, len(bids)),
		Balances:    settled,
		Remaining:   remaining,
		Order:       ClearingOrder(bids),
	}

	for _, idx := range result.Order {
		bid := bids[idx]
		if !bid.Valid() {
			logrus.Debugf("[auction] reject %s/%s: invalid valuation %v or bundle %v",
				bid.TenantID, bid.OperatorID, bid.Valuation, bid.Bundle)
			result.Rejections = append(result.Rejections, Rejection{Bid: bid, Reason: RejectInvalidBid})
			continue
		}
		if settled[bid.TenantID] < bid.Valuation {
			logrus.Debugf("[auction] reject %s/%s: balance %.4f < valuation %.4f",
				bid.TenantID, bid.OperatorID, settled[bid.TenantID], bid.Valuation)
			result.Rejections = append(result.Rejections, Rejection{Bid: bid, Reason: RejectInsufficientFunds})
			continue
		}
		if !bid.Bundle.Fits(remaining) {
			logrus.Debugf("[auction] reject %s/%s: bundle %v exceeds remaining %v",
				bid.TenantID, bid.OperatorID, bid.Bundle, remaining)
			result.Rejections = append(result.Rejections, Rejection{Bid: bid, Reason: RejectInsufficientCapacity})
			continue
		}

		for kind, amount := range bid.Bundle {
			remaining[kind] -= amount
		}
		settled[bid.TenantID] -= bid.Valuation
		result.Granted[idx] = true
		result.Allocations = append(result.Allocations, Allocation{
			TenantID:   bid.TenantID,
			OperatorID: bid.OperatorID,
			Bundle:     bid.Bundle.Clone(),
			PricePaid:  bid.Valuation,
			Timestamp:  bid.Timestamp,
		})
		logrus.Debugf("[auction] grant %s/%s for %.4f", bid.TenantID, bid.OperatorID, bid.Valuation)
	}
	return result
}
