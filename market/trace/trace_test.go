package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidTraceLevel(t *testing.T) {
	assert.True(t, IsValidTraceLevel(""))
	assert.True(t, IsValidTraceLevel("none"))
	assert.True(t, IsValidTraceLevel("rounds"))
	assert.False(t, IsValidTraceLevel("decisions"))
}

func TestMarketTrace_DisabledDropsRecords(t *testing.T) {
	mt := NewMarketTrace(TraceLevelNone)
	mt.RecordRound(RoundRecord{Round: 1})
	assert.Empty(t, mt.Rounds())

	var nilTrace *MarketTrace
	assert.False(t, nilTrace.Enabled())
	nilTrace.RecordRound(RoundRecord{Round: 1})
	assert.Nil(t, nilTrace.Rounds())
}

func TestMarketTrace_RoundsReturnsCopy(t *testing.T) {
	mt := NewMarketTrace(TraceLevelRounds)
	mt.RecordRound(RoundRecord{Round: 1})
	got := mt.Rounds()
	got[0].Round = 99
	assert.Equal(t, 1, mt.Rounds()[0].Round)
}

func TestSummarize(t *testing.T) {
	mt := NewMarketTrace(TraceLevelRounds)
	mt.RecordRound(RoundRecord{
		Round: 1,
		Bids:  []BidRecord{{TenantID: "a"}, {TenantID: "b"}, {TenantID: "b"}},
		Winners: []WinnerRecord{
			{TenantID: "a", PricePaid: 10},
		},
		Rejections: []RejectionRecord{
			{TenantID: "b", Reason: "insufficient_capacity"},
			{TenantID: "b", Reason: "insufficient_funds"},
		},
	})
	mt.RecordRound(RoundRecord{Round: 2, Skipped: true})
	mt.RecordRound(RoundRecord{
		Round:   3,
		Bids:    []BidRecord{{TenantID: "a"}},
		Winners: []WinnerRecord{{TenantID: "a", PricePaid: 5}},
	})

	s := Summarize(mt)
	assert.Equal(t, 3, s.Rounds)
	assert.Equal(t, 1, s.SkippedRounds)
	assert.Equal(t, 4, s.TotalBids)
	assert.Equal(t, 2, s.TotalWinners)
	assert.Equal(t, 2, s.WinsByTenant["a"])
	assert.Equal(t, 15.0, s.SpendByTenant["a"])
	assert.Equal(t, 1, s.RejectionsByReason["insufficient_funds"])
	assert.Equal(t, 1, s.RejectionsByReason["insufficient_capacity"])
	assert.Equal(t, 1.0, s.MeanWinnersPerRound)
}

func TestSummarize_Nil(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, 0, s.Rounds)
	assert.NotNil(t, s.WinsByTenant)
}
