package pipeline

import (
	"math/big"
	"strconv"

	"github.com/wallet-dashboard/internal/types"
)

// BuildHoldings assembles the portfolio rows: the native asset first, then one row per token
// in the order given. balances[i] belongs to tokens[i]; a nil or missing entry leaves the
// balance absent. Tokens carry no price, so they contribute nothing to the USD total.
func BuildHoldings(
	network types.Network,
	native *types.WalletBalance,
	price *types.PriceQuote,
	tokens []types.TokenTransaction,
	balances []*big.Int,
) []types.TokenHolding {
	holdings := make([]types.TokenHolding, 0, len(tokens)+1)

	nativeRow := types.TokenHolding{
		ContractAddress: types.NativeAssetAddress,
		Symbol:          network.NativeSymbol,
		Name:            network.NativeName,
		Decimals:        network.NativeDecimals,
	}
	if native != nil && native.Value != nil {
		decimals := native.Decimals
		if decimals == 0 {
			decimals = network.NativeDecimals
		}
		nativeRow.Balance = FormatUnits(native.Value, decimals)
	}
	if price != nil {
		nativeRow.Price = price.USD.String()
	}
	holdings = append(holdings, nativeRow)

	for i, tok := range tokens {
		decimals, err := strconv.Atoi(tok.TokenDecimal)
		if err != nil || decimals < 0 {
			decimals = 0
		}
		row := types.TokenHolding{
			ContractAddress: tok.ContractAddress,
			Symbol:          tok.TokenSymbol,
			Name:            tok.TokenName,
			Decimals:        decimals,
		}
		if i < len(balances) && balances[i] != nil {
			row.Balance = FormatUnits(balances[i], decimals)
		}
		holdings = append(holdings, row)
	}

	return holdings
}
