package market

import (
	"math"
	"time"
)

// DemandSignal is an operator's raw demand as observed by its tenant.
type DemandSignal struct {
	TenantID             string
	OperatorID           string
	BaseResources        Bundle  // resources needed at the reference input rate
	CurrentInputRate     float64 // records/s arriving now
	ReferenceInputRate   float64 // records/s BaseResources was sized for; <= 0 disables scaling
	ProcessingComplexity float64 // sensitivity to input rate, nominally [0,1], not clamped
	CurrentQueueLength   float64 // upstream backlog
	MaxQueueLength       float64 // upstream capacity; <= 0 disables urgency
}

// Auction formulates bids and clears them.
type Auction struct {
	config AuctionConfig
}

// NewAuction validates config and returns an Auction.
func NewAuction(config AuctionConfig) (*Auction, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Auction{config: config}, nil
}

// Config returns the auction parameters.
func (a *Auction) Config() AuctionConfig {
	return a.config
}

// FormulateBid converts a demand signal into a Bid stamped with now.
//
// Each base amount scales by (1 + complexity*rateRatio); the valuation is the
// scaled total weighted by exp(sensitivity*queueRatio), so a backed-up
// operator bids more for the same bundle. Pure; never fails.
func (a *Auction) FormulateBid(sig DemandSignal, now time.Time) Bid {
	rateRatio := 1.0
	if sig.ReferenceInputRate > 0 {
		rateRatio = sig.CurrentInputRate / sig.ReferenceInputRate
	}

	bundle := make(Bundle, len(sig.BaseResources))
	for kind, base := range sig.BaseResources {
		bundle[kind] = base * (1 + sig.ProcessingComplexity*rateRatio)
	}
	baseValuation := bundle.Total()

	queueRatio := 0.0
	if sig.MaxQueueLength > 0 {
		queueRatio = sig.CurrentQueueLength / sig.MaxQueueLength
	}
	urgency := math.Exp(a.config.BackpressureSensitivity * queueRatio)

	return Bid{
		TenantID:   sig.TenantID,
		OperatorID: sig.OperatorID,
		Bundle:     bundle,
		Valuation:  baseValuation * urgency,
		Timestamp:  now,
	}
}
