package service

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/wallet-dashboard/internal/adapter"
	apperrors "github.com/wallet-dashboard/internal/errors"
	"github.com/wallet-dashboard/internal/logging"
	"github.com/wallet-dashboard/internal/pipeline"
	"github.com/wallet-dashboard/internal/types"
)

// Field-level messages of the transfer form
const (
	msgAddressLength  = "Address must have 42 characters."
	msgAddressFormat  = "Please input a correct ethereum address."
	msgValueInvalid   = "Please input a correct value."
	msgNotEnough      = "You don't have enough %s."
	msgNotEnoughFees  = "You don't have enough %s to pay the fees."
	addressLength     = 42
	transferValueName = "value"
)

// TransferService quotes native transfers. It never signs or broadcasts.
type TransferService struct {
	src *Sources
}

// NewTransferService creates a new transfer service
func NewTransferService(src *Sources) *TransferService {
	return &TransferService{src: src}
}

// TransferRequest is a prospective native transfer
type TransferRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Value   string `json:"value"`
	Network string `json:"network"`
}

// TransferQuote is the validated transfer with its fee estimate
type TransferQuote struct {
	Network       types.Network   `json:"network"`
	From          string          `json:"from"`
	To            string          `json:"to"`
	Symbol        string          `json:"symbol"`
	Value         string          `json:"value"`
	ValueWei      string          `json:"valueWei"`
	Gas           uint64          `json:"gas"`
	GasPrice      string          `json:"gasPrice"`
	Fee           string          `json:"fee"`
	Total         string          `json:"total"`
	Balance       string          `json:"balance"`
	Price         decimal.Decimal `json:"price"`
	ValueUSD      string          `json:"valueUsd"`
	FeeUSD        string          `json:"feeUsd"`
	TotalUSD      string          `json:"totalUsd"`
	ShortTo       string          `json:"shortTo"`
	ConfirmHeader string          `json:"confirmHeader"`
}

// validateRecipient applies the form's address rules in order
func validateRecipient(to string) error {
	if len(to) != addressLength {
		return apperrors.NewInvalidParameterError("to", msgAddressLength)
	}
	if !strings.HasPrefix(to, "0x") || !adapter.ValidateAddress(to) {
		return apperrors.NewInvalidParameterError("to", msgAddressFormat)
	}
	return nil
}

// parseTransferValue accepts a positive amount of at least one smallest unit
func parseTransferValue(raw string, decimals int) (decimal.Decimal, *big.Int, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || !value.IsPositive() {
		return decimal.Zero, nil, apperrors.NewInvalidParameterError(transferValueName, msgValueInvalid)
	}
	wei := pipeline.ParseUnits(value, decimals)
	if wei.Sign() <= 0 {
		return decimal.Zero, nil, apperrors.NewInvalidParameterError(transferValueName, msgValueInvalid)
	}
	return value, wei, nil
}

// Quote validates a transfer and estimates its fee.
// Checks run in form order: network, recipient, value, balance, then fees.
func (s *TransferService) Quote(ctx context.Context, req TransferRequest) (*TransferQuote, error) {
	network, chain, err := s.src.resolve(req.From, req.Network)
	if err != nil {
		return nil, err
	}
	if !network.TransfersEnabled {
		return nil, apperrors.NewTransfersDisabledError(network.NativeSymbol)
	}
	if err := validateRecipient(req.To); err != nil {
		return nil, err
	}
	value, valueWei, err := parseTransferValue(req.Value, network.NativeDecimals)
	if err != nil {
		return nil, err
	}

	var (
		balanceRes  = pipeline.Pending[*types.WalletBalance]()
		priceRes    = pipeline.Pending[*types.PriceQuote]()
		gasPriceRes = pipeline.Pending[*big.Int]()
		gasRes      = pipeline.Pending[uint64]()
	)
	var g errgroup.Group
	g.Go(func() error {
		balanceRes = balanceOf(ctx, chain, req.From)
		return nil
	})
	g.Go(func() error {
		priceRes = s.src.nativePrice(ctx, network)
		return nil
	})
	g.Go(func() error {
		p, err := chain.SuggestGasPrice(ctx)
		gasPriceRes = pipeline.FromPair(p, providerError(providerRPC, err))
		return nil
	})
	// The estimate carries no value so an overdrawn amount surfaces as the form's balance message
	// instead of the node's insufficient funds error.
	g.Go(func() error {
		gas, err := chain.EstimateGas(ctx, req.From, req.To, nil)
		gasRes = pipeline.FromPair(gas, providerError(providerRPC, err))
		return nil
	})
	_ = g.Wait()

	if st := pipeline.Join(balanceRes, priceRes, gasPriceRes, gasRes); st.State != pipeline.StateReady {
		logging.FromContext(ctx).WithFields(map[string]interface{}{
			"from":    req.From,
			"network": network.Key,
		}).WithError(st.Err).Warn("Transfer quote sources not ready")
		return nil, joinError(st, providerRPC, providerPrice, providerRPC, providerRPC)
	}

	bal, _ := balanceRes.Value()
	quote, _ := priceRes.Value()
	gasPrice, _ := gasPriceRes.Value()
	gas, _ := gasRes.Value()

	if gasPrice == nil {
		gasPrice = new(big.Int)
	}
	balanceWei := new(big.Int)
	if bal != nil && bal.Value != nil {
		balanceWei = bal.Value
	}
	if valueWei.Cmp(balanceWei) > 0 {
		return nil, apperrors.NewInsufficientFundsError(transferValueName, fmt.Sprintf(msgNotEnough, network.NativeSymbol))
	}

	feeWei := new(big.Int).Mul(new(big.Int).SetUint64(gas), gasPrice)
	totalWei := new(big.Int).Add(valueWei, feeWei)
	if totalWei.Cmp(balanceWei) > 0 {
		return nil, apperrors.NewInsufficientFundsError(transferValueName, fmt.Sprintf(msgNotEnoughFees, network.NativeSymbol))
	}

	decimals := network.NativeDecimals
	fee := decimal.NewFromBigInt(feeWei, -int32(decimals))
	price := decimal.Zero
	if quote != nil {
		price = quote.USD
	}

	return &TransferQuote{
		Network:       network,
		From:          req.From,
		To:            req.To,
		Symbol:        network.NativeSymbol,
		Value:         value.String(),
		ValueWei:      valueWei.String(),
		Gas:           gas,
		GasPrice:      gasPrice.String(),
		Fee:           pipeline.FormatUnits(feeWei, decimals),
		Total:         pipeline.FormatUnits(totalWei, decimals),
		Balance:       pipeline.FormatUnits(balanceWei, decimals),
		Price:         price,
		ValueUSD:      pipeline.FormatUSD(value.Mul(price)),
		FeeUSD:        pipeline.FormatUSD(fee.Mul(price)),
		TotalUSD:      pipeline.FormatUSD(value.Add(fee).Mul(price)),
		ShortTo:       pipeline.ShortenAddress(req.To),
		ConfirmHeader: fmt.Sprintf("Send %s %s to %s", value.String(), network.NativeSymbol, pipeline.ShortenAddress(req.To)),
	}, nil
}
