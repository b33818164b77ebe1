package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/wallet-dashboard/internal/adapter"
	apperrors "github.com/wallet-dashboard/internal/errors"
	"github.com/wallet-dashboard/internal/logging"
	"github.com/wallet-dashboard/internal/pipeline"
	"github.com/wallet-dashboard/internal/storage"
	"github.com/wallet-dashboard/internal/types"
)

// Provider names used in error details
const (
	providerExplorer = "explorer"
	providerRPC      = "rpc"
	providerPrice    = "price"
)

// Sources bundles the data-acquisition adapters the services read from.
// Cache is optional; without it every call reaches the upstream.
type Sources struct {
	Explorer       adapter.TransactionLister
	Prices         adapter.PriceFeed
	Chains         map[types.NetworkID]adapter.ChainReader
	Cache          *storage.CacheService
	DefaultNetwork types.NetworkID
}

// ResolveNetwork maps a network key ("sepolia"), numeric id ("11155111") or empty string
// (fallback) onto a supported network
func ResolveNetwork(key string, fallback types.NetworkID) (types.Network, error) {
	key = strings.TrimSpace(strings.ToLower(key))
	if key == "" {
		if n, ok := types.LookupNetwork(fallback); ok {
			return n, nil
		}
		return types.Network{}, apperrors.NewUnsupportedNetworkError(strconv.FormatUint(uint64(fallback), 10))
	}
	if id, err := strconv.ParseUint(key, 10, 64); err == nil {
		if n, ok := types.LookupNetwork(types.NetworkID(id)); ok {
			return n, nil
		}
	}
	if n, ok := types.LookupNetworkByKey(key); ok {
		return n, nil
	}
	return types.Network{}, apperrors.NewUnsupportedNetworkError(key)
}

func validateAddress(address string) error {
	if !adapter.ValidateAddress(address) {
		return apperrors.NewInvalidAddressError(address)
	}
	return nil
}

// resolve validates the viewer address and picks the network and its chain reader
func (s *Sources) resolve(address, networkKey string) (types.Network, adapter.ChainReader, error) {
	if err := validateAddress(address); err != nil {
		return types.Network{}, nil, err
	}
	network, err := ResolveNetwork(networkKey, s.DefaultNetwork)
	if err != nil {
		return types.Network{}, nil, err
	}
	chain, ok := s.Chains[network.ID]
	if !ok || chain == nil {
		return types.Network{}, nil, apperrors.NewUnsupportedNetworkError(network.Key)
	}
	return network, chain, nil
}

// providerError turns an adapter failure into a categorized error
func providerError(provider string, err error) error {
	if err == nil {
		return nil
	}
	var catErr *apperrors.CategorizedError
	if errors.As(err, &catErr) {
		return catErr
	}
	switch {
	case errors.Is(err, adapter.ErrProviderRateLimit):
		return apperrors.NewProviderRateLimitError(provider, err)
	case errors.Is(err, adapter.ErrProviderTimeout), errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewProviderTimeoutError(provider, err)
	}
	return apperrors.FromProvider(provider, err)
}

// joinError converts a non-ready join into the error reported to callers
func joinError(st pipeline.Status, sources ...string) error {
	name := "unknown"
	if st.Index >= 0 && st.Index < len(sources) {
		name = sources[st.Index]
	}
	if st.State == pipeline.StateFailed {
		return st.Err
	}
	return apperrors.NewPendingError(name)
}

func (s *Sources) nativePrice(ctx context.Context, network types.Network) pipeline.Result[*types.PriceQuote] {
	if s.Prices == nil {
		return pipeline.Failed[*types.PriceQuote](providerError(providerPrice, fmt.Errorf("no price feed configured")))
	}
	load := func(ctx context.Context) (*types.PriceQuote, error) {
		return s.Prices.NativePrice(ctx, network.NativeSymbol)
	}
	var (
		quote *types.PriceQuote
		err   error
	)
	if s.Cache != nil {
		quote, err = s.Cache.Price(ctx, network.NativeSymbol, load)
	} else {
		quote, err = load(ctx)
	}
	if err != nil {
		logging.FromContext(ctx).WithField("symbol", network.NativeSymbol).WithError(err).Warn("Price feed unavailable")
	}
	return pipeline.FromPair(quote, providerError(providerPrice, err))
}

func (s *Sources) transactions(ctx context.Context, network types.Network, address string) pipeline.Result[[]types.NativeTransaction] {
	load := func(ctx context.Context) ([]types.NativeTransaction, error) {
		return s.Explorer.ListTransactions(ctx, network, address)
	}
	var (
		txs []types.NativeTransaction
		err error
	)
	if s.Cache != nil {
		txs, err = s.Cache.Transactions(ctx, network.ID, address, load)
	} else {
		txs, err = load(ctx)
	}
	return pipeline.FromPair(txs, providerError(providerExplorer, err))
}

func (s *Sources) tokenTransfers(ctx context.Context, network types.Network, address string) pipeline.Result[[]types.TokenTransaction] {
	load := func(ctx context.Context) ([]types.TokenTransaction, error) {
		return s.Explorer.ListTokenTransfers(ctx, network, address)
	}
	var (
		txs []types.TokenTransaction
		err error
	)
	if s.Cache != nil {
		txs, err = s.Cache.TokenTransfers(ctx, network.ID, address, load)
	} else {
		txs, err = load(ctx)
	}
	return pipeline.FromPair(txs, providerError(providerExplorer, err))
}

func balanceOf(ctx context.Context, chain adapter.ChainReader, address string) pipeline.Result[*types.WalletBalance] {
	bal, err := chain.BalanceAt(ctx, address)
	return pipeline.FromPair(bal, providerError(providerRPC, err))
}
