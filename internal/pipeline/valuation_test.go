package pipeline

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallet-dashboard/internal/types"
)

func TestValuateEmpty(t *testing.T) {
	assert.Empty(t, Valuate(nil))
	assert.Empty(t, Valuate([]types.TokenHolding{}))
}

func TestValuateSingleHolding(t *testing.T) {
	got := Valuate([]types.TokenHolding{{Symbol: "ETH", Balance: "0.25", Price: "1800"}})
	require.Len(t, got, 1)
	assert.Equal(t, "450", got[0].USDValue.String())
	assert.True(t, got[0].Percentage.Equal(decimal.NewFromInt(100)))
}

func TestValuateAbsentPrices(t *testing.T) {
	got := Valuate([]types.TokenHolding{
		{Symbol: "ETH", Balance: "2"},
		{Symbol: "USDC", Balance: "100", Price: ""},
		{Symbol: "BAD", Balance: "x", Price: "1"},
	})
	for _, h := range got {
		assert.True(t, h.USDValue.IsZero(), h.Symbol)
		assert.True(t, h.Percentage.IsZero(), h.Symbol)
	}
}

func TestValuateSharesAndOrder(t *testing.T) {
	got := Valuate([]types.TokenHolding{
		{Symbol: "ETH", Balance: "1.5", Price: "2000"},
		{Symbol: "TKN", Balance: "500", Price: "2"},
		{Symbol: "NOP", Balance: "10"},
	})
	require.Len(t, got, 3)
	assert.Equal(t, []string{"ETH", "TKN", "NOP"}, symbols(got))
	assert.Equal(t, "75.00%", FormatPercent(got[0].Percentage))
	assert.Equal(t, "25.00%", FormatPercent(got[1].Percentage))
	assert.Equal(t, "0.00%", FormatPercent(got[2].Percentage))
	assert.Equal(t, "$4,000.00", FormatUSD(TotalValue(got)))
}
