package service

import (
	"context"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/wallet-dashboard/internal/errors"
	"github.com/wallet-dashboard/internal/logging"
	"github.com/wallet-dashboard/internal/pipeline"
	"github.com/wallet-dashboard/internal/types"
)

// NotAvailable is shown for a value that could not be determined
const NotAvailable = "N/A"

// SortField names a sortable holdings column
type SortField string

const (
	SortNone       SortField = ""
	SortPrice      SortField = "price"
	SortBalance    SortField = "balance"
	SortValue      SortField = "value"
	SortPercentage SortField = "percentage"
	SortSymbol     SortField = "symbol"
)

// PortfolioService derives wallet balances and token holdings
type PortfolioService struct {
	src *Sources
}

// NewPortfolioService creates a new portfolio service
func NewPortfolioService(src *Sources) *PortfolioService {
	return &PortfolioService{src: src}
}

// HoldingsInput represents input for a holdings query
type HoldingsInput struct {
	Address   string `json:"address"`
	Network   string `json:"network"`
	SortField string `json:"sort"`
	Direction string `json:"order"`
}

// HoldingRow is one rendered holdings line
type HoldingRow struct {
	ContractAddress string          `json:"contractAddress"`
	Symbol          string          `json:"symbol"`
	Name            string          `json:"name"`
	Native          bool            `json:"native"`
	Balance         string          `json:"balance,omitempty"`
	BalanceText     string          `json:"balanceText"`
	Price           string          `json:"price,omitempty"`
	PriceText       string          `json:"priceText"`
	USDValue        decimal.Decimal `json:"usdValue"`
	ValueText       string          `json:"valueText"`
	Percentage      decimal.Decimal `json:"percentage"`
	PercentageText  string          `json:"percentageText"`
}

// HoldingsView is the portfolio of one address on one network
type HoldingsView struct {
	Network        types.Network   `json:"network"`
	Address        string          `json:"address"`
	Holdings       []HoldingRow    `json:"holdings"`
	TotalUSD       decimal.Decimal `json:"totalUsd"`
	FormattedTotal string          `json:"formattedTotal"`
}

// WalletBalanceView is the headline balance of an address
type WalletBalanceView struct {
	Network      types.Network   `json:"network"`
	Address      string          `json:"address"`
	Balance      string          `json:"balance"`
	Symbol       string          `json:"symbol"`
	USD          decimal.Decimal `json:"usd"`
	FormattedUSD string          `json:"formattedUsd"`
	Formatted    string          `json:"formatted"`
}

// holdingSortKey returns the key extractor for a column
func holdingSortKey(field SortField) (func(types.TokenHolding) pipeline.SortKey, bool) {
	switch field {
	case SortPrice:
		return func(h types.TokenHolding) pipeline.SortKey { return pipeline.DecimalKey(h.Price) }, true
	case SortBalance:
		return func(h types.TokenHolding) pipeline.SortKey { return pipeline.DecimalKey(h.Balance) }, true
	case SortValue:
		return func(h types.TokenHolding) pipeline.SortKey { return pipeline.NumberKey(h.USDValue) }, true
	case SortPercentage:
		return func(h types.TokenHolding) pipeline.SortKey { return pipeline.NumberKey(h.Percentage) }, true
	case SortSymbol:
		return func(h types.TokenHolding) pipeline.SortKey {
			if h.Symbol == "" {
				return pipeline.NullKey()
			}
			return pipeline.StringKey(h.Symbol)
		}, true
	}
	return nil, false
}

func parseSort(field, direction string) (SortField, pipeline.SortDirection, error) {
	f := SortField(strings.ToLower(strings.TrimSpace(field)))
	if f != SortNone {
		if _, ok := holdingSortKey(f); !ok {
			return SortNone, pipeline.Ascending, apperrors.NewInvalidParameterError("sort", "sort must be one of price, balance, value, percentage, symbol")
		}
	}
	dir, ok := pipeline.ParseSortDirection(direction)
	if !ok {
		return SortNone, pipeline.Ascending, apperrors.NewInvalidParameterError("order", "order must be asc or desc")
	}
	return f, dir, nil
}

// GetHoldings returns the valuated holdings of an address: the native asset followed by every
// token the address has transferred, one row per contract
func (s *PortfolioService) GetHoldings(ctx context.Context, input HoldingsInput) (*HoldingsView, error) {
	network, chain, err := s.src.resolve(input.Address, input.Network)
	if err != nil {
		return nil, err
	}
	field, dir, err := parseSort(input.SortField, input.Direction)
	if err != nil {
		return nil, err
	}

	logger := logging.FromContext(ctx).WithFields(map[string]interface{}{
		"address": input.Address,
		"network": network.Key,
	})

	var (
		balanceRes = pipeline.Pending[*types.WalletBalance]()
		priceRes   = pipeline.Pending[*types.PriceQuote]()
		tokensRes  = pipeline.Pending[[]types.TokenTransaction]()
	)

	// each source records its own outcome so one failure does not cancel the others
	var g errgroup.Group
	g.Go(func() error {
		balanceRes = balanceOf(ctx, chain, input.Address)
		return nil
	})
	g.Go(func() error {
		priceRes = s.src.nativePrice(ctx, network)
		return nil
	})
	g.Go(func() error {
		tokensRes = s.src.tokenTransfers(ctx, network, input.Address)
		return nil
	})
	_ = g.Wait()

	if st := pipeline.Join(balanceRes, priceRes, tokensRes); st.State != pipeline.StateReady {
		logger.WithError(st.Err).Warn("Holdings sources not ready")
		return nil, joinError(st, providerRPC, providerPrice, providerExplorer)
	}

	transfers, _ := tokensRes.Value()
	unique := pipeline.UniqueByKey(transfers, func(tx types.TokenTransaction) string {
		return strings.ToLower(tx.ContractAddress)
	})
	contracts := make([]string, len(unique))
	for i, tx := range unique {
		contracts[i] = tx.ContractAddress
	}

	tokenBalances, tbErr := chain.TokenBalances(ctx, input.Address, contracts)
	balancesRes := pipeline.FromPair(tokenBalances, providerError(providerRPC, tbErr))

	viewRes := pipeline.Derive(func() *HoldingsView {
		native, _ := balanceRes.Value()
		price, _ := priceRes.Value()
		balances, _ := balancesRes.Value()

		holdings := pipeline.Valuate(pipeline.BuildHoldings(network, native, price, unique, balances))
		if key, ok := holdingSortKey(field); ok {
			holdings = pipeline.SortBy(holdings, key, dir)
		}
		return newHoldingsView(network, input.Address, holdings)
	}, balanceRes, priceRes, balancesRes)

	view, ok := viewRes.Value()
	if !ok {
		return nil, joinError(pipeline.Join(balancesRes), providerRPC)
	}

	logger.WithFields(map[string]interface{}{
		"holdings": len(view.Holdings),
		"totalUsd": view.TotalUSD.String(),
	}).Debug("Holdings derived")
	return view, nil
}

func newHoldingsView(network types.Network, address string, holdings []types.TokenHolding) *HoldingsView {
	total := pipeline.TotalValue(holdings)
	rows := make([]HoldingRow, len(holdings))
	for i, h := range holdings {
		rows[i] = HoldingRow{
			ContractAddress: h.ContractAddress,
			Symbol:          h.Symbol,
			Name:            h.Name,
			Native:          h.IsNative(),
			Balance:         h.Balance,
			BalanceText:     NotAvailable,
			Price:           h.Price,
			PriceText:       NotAvailable,
			USDValue:        h.USDValue,
			ValueText:       pipeline.FormatUSD(h.USDValue),
			Percentage:      h.Percentage,
			PercentageText:  pipeline.FormatPercent(h.Percentage),
		}
		if h.Balance != "" {
			rows[i].BalanceText = h.Balance + " " + h.Symbol
		}
		if d, err := decimal.NewFromString(h.Price); err == nil {
			rows[i].PriceText = pipeline.FormatUSD(d)
		}
	}

	return &HoldingsView{
		Network:        network,
		Address:        address,
		Holdings:       rows,
		TotalUSD:       total,
		FormattedTotal: pipeline.FormatUSD(total),
	}
}

// GetWalletBalance returns the native balance of an address and its USD value
func (s *PortfolioService) GetWalletBalance(ctx context.Context, address, networkKey string) (*WalletBalanceView, error) {
	network, chain, err := s.src.resolve(address, networkKey)
	if err != nil {
		return nil, err
	}

	var (
		balanceRes = pipeline.Pending[*types.WalletBalance]()
		priceRes   = pipeline.Pending[*types.PriceQuote]()
	)
	var g errgroup.Group
	g.Go(func() error {
		balanceRes = balanceOf(ctx, chain, address)
		return nil
	})
	g.Go(func() error {
		priceRes = s.src.nativePrice(ctx, network)
		return nil
	})
	_ = g.Wait()

	viewRes := pipeline.Derive(func() *WalletBalanceView {
		bal, _ := balanceRes.Value()
		quote, _ := priceRes.Value()
		if bal == nil || bal.Value == nil {
			bal = &types.WalletBalance{Value: new(big.Int), Decimals: network.NativeDecimals}
		}
		if bal.Decimals == 0 {
			bal.Decimals = network.NativeDecimals
		}

		amount := pipeline.FormatUnits(bal.Value, bal.Decimals)
		price := ""
		if quote != nil {
			price = quote.USD.String()
		}
		usd := pipeline.HoldingValue(types.TokenHolding{Balance: amount, Price: price})
		symbol := bal.Symbol
		if symbol == "" {
			symbol = network.NativeSymbol
		}
		return &WalletBalanceView{
			Network:      network,
			Address:      address,
			Balance:      amount,
			Symbol:       symbol,
			USD:          usd,
			FormattedUSD: pipeline.FormatUSD(usd),
			Formatted:    amount + " " + symbol,
		}
	}, balanceRes, priceRes)

	view, ok := viewRes.Value()
	if !ok {
		return nil, joinError(pipeline.Join(balanceRes, priceRes), providerRPC, providerPrice)
	}
	return view, nil
}
