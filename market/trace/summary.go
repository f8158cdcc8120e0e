package trace

// Summary aggregates a trace into counts for reporting.
type Summary struct {
	Rounds              int
	SkippedRounds       int
	TotalBids           int
	TotalWinners        int
	RejectionsByReason  map[string]int
	WinsByTenant        map[string]int
	SpendByTenant       map[string]float64
	MeanWinnersPerRound float64
}

// Summarize computes a Summary over all recorded rounds.
// A nil or empty trace yields a zero Summary with non-nil maps.
func Summarize(mt *MarketTrace) *Summary {
	s := &Summary{
		RejectionsByReason: make(map[string]int),
		WinsByTenant:       make(map[string]int),
		SpendByTenant:      make(map[string]float64),
	}
	for _, r := range mt.Rounds() {
		s.Rounds++
		if r.Skipped {
			s.SkippedRounds++
			continue
		}
		s.TotalBids += len(r.Bids)
		s.TotalWinners += len(r.Winners)
		for _, w := range r.Winners {
			s.WinsByTenant[w.TenantID]++
			s.SpendByTenant[w.TenantID] += w.PricePaid
		}
		for _, rej := range r.Rejections {
			s.RejectionsByReason[rej.Reason]++
		}
	}
	if committed := s.Rounds - s.SkippedRounds; committed > 0 {
		s.MeanWinnersPerRound = float64(s.TotalWinners) / float64(committed)
	}
	return s
}
