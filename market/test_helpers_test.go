package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestAuction(t *testing.T) *Auction {
	t.Helper()
	a, err := NewAuction(DefaultConfig().Auction)
	require.NoError(t, err)
	return a
}

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := NewLedger(DefaultConfig().Currency)
	require.NoError(t, err)
	return l
}

func bid(tenant string, valuation float64, bundle Bundle) Bid {
	return Bid{TenantID: tenant, Bundle: bundle, Valuation: valuation, Timestamp: t0}
}

func float64Ptr(v float64) *float64 { return &v }
