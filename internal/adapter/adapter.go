package adapter

import (
	"context"
	"fmt"
	"math/big"
	"regexp"

	"github.com/wallet-dashboard/internal/types"
)

// TransactionLister lists the most recent transfers of an address from a block explorer
type TransactionLister interface {
	// ListTransactions returns up to one page of native transactions, newest first
	ListTransactions(ctx context.Context, network types.Network, address string) ([]types.NativeTransaction, error)

	// ListTokenTransfers returns up to one page of ERC-20 transfers, newest first
	ListTokenTransfers(ctx context.Context, network types.Network, address string) ([]types.TokenTransaction, error)
}

// ChainReader reads account state from a network's JSON-RPC endpoint
type ChainReader interface {
	// BalanceAt returns the native balance of address at the latest block
	BalanceAt(ctx context.Context, address string) (*types.WalletBalance, error)

	// TokenBalances returns one balance per contract, in request order.
	// A contract whose call failed yields nil in its slot.
	TokenBalances(ctx context.Context, owner string, contracts []string) ([]*big.Int, error)

	// SuggestGasPrice returns the current gas price in wei
	SuggestGasPrice(ctx context.Context) (*big.Int, error)

	// EstimateGas returns the gas a plain value transfer would use
	EstimateGas(ctx context.Context, from, to string, value *big.Int) (uint64, error)

	// ChainID returns the chain identifier reported by the endpoint
	ChainID(ctx context.Context) (types.NetworkID, error)
}

// PriceFeed returns the USD price of a native asset
type PriceFeed interface {
	NativePrice(ctx context.Context, symbol string) (*types.PriceQuote, error)
}

// Common error types for adapters

var (
	// ErrInvalidAddress indicates the address format is invalid
	ErrInvalidAddress = fmt.Errorf("invalid address format")

	// ErrInvalidResponse indicates the upstream payload could not be parsed
	ErrInvalidResponse = fmt.Errorf("invalid upstream response")

	// ErrProviderUnavailable indicates the data provider is unavailable
	ErrProviderUnavailable = fmt.Errorf("data provider unavailable")

	// ErrProviderRateLimit indicates the provider rate limit was exceeded
	ErrProviderRateLimit = fmt.Errorf("provider rate limit exceeded")

	// ErrProviderTimeout indicates the provider request timed out
	ErrProviderTimeout = fmt.Errorf("provider request timeout")

	// ErrChainMismatch indicates an RPC endpoint serves a different network than configured
	ErrChainMismatch = fmt.Errorf("rpc endpoint serves a different network")
)

// AdapterError wraps errors with additional context
type AdapterError struct {
	Network types.NetworkID
	Op      string // Operation that failed (e.g., "ListTransactions", "BalanceAt")
	Err     error
	Details map[string]interface{}
}

func (e *AdapterError) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("adapter error [%d:%s]: %v (details: %+v)", e.Network, e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("adapter error [%d:%s]: %v", e.Network, e.Op, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// NewAdapterError creates a new AdapterError
func NewAdapterError(network types.NetworkID, op string, err error, details map[string]interface{}) *AdapterError {
	return &AdapterError{
		Network: network,
		Op:      op,
		Err:     err,
		Details: details,
	}
}

var addressPattern = regexp.MustCompile("^0x[a-fA-F0-9]{40}$")

// ValidateAddress checks for 0x followed by 40 hex characters
func ValidateAddress(address string) bool {
	return len(address) == 42 && addressPattern.MatchString(address)
}
