package service

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/wallet-dashboard/internal/adapter"
	"github.com/wallet-dashboard/internal/types"
)

const (
	viewer    = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"
	recipient = "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238"
	usdc      = "0x94a9D9AC8a22534E3FaCa9F4e7F2E2cf85d5E4C8"
	link      = "0x779877A7B0D9E8603169DdbD7836e478b4624789"
)

// Mock adapters for testing

type mockExplorer struct {
	mu         sync.Mutex
	txs        []types.NativeTransaction
	tokens     []types.TokenTransaction
	txErr      error
	tokenErr   error
	txCalls    int
	tokenCalls int
}

func (m *mockExplorer) ListTransactions(ctx context.Context, network types.Network, address string) ([]types.NativeTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txCalls++
	if m.txErr != nil {
		return nil, m.txErr
	}
	return m.txs, nil
}

func (m *mockExplorer) ListTokenTransfers(ctx context.Context, network types.Network, address string) ([]types.TokenTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokenCalls++
	if m.tokenErr != nil {
		return nil, m.tokenErr
	}
	return m.tokens, nil
}

type mockChain struct {
	balance       *big.Int
	balanceErr    error
	tokenBalances map[string]*big.Int
	tokenErr      error
	gasPrice      *big.Int
	gas           uint64
	gasErr        error
	requested     []string
	estimated     []*big.Int
}

func (m *mockChain) BalanceAt(ctx context.Context, address string) (*types.WalletBalance, error) {
	if m.balanceErr != nil {
		return nil, m.balanceErr
	}
	return &types.WalletBalance{Value: m.balance, Decimals: 18, Symbol: "ETH"}, nil
}

func (m *mockChain) TokenBalances(ctx context.Context, owner string, contracts []string) ([]*big.Int, error) {
	if m.tokenErr != nil {
		return nil, m.tokenErr
	}
	m.requested = contracts
	out := make([]*big.Int, len(contracts))
	for i, c := range contracts {
		out[i] = m.tokenBalances[strings.ToLower(c)]
	}
	return out, nil
}

func (m *mockChain) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if m.gasErr != nil {
		return nil, m.gasErr
	}
	return m.gasPrice, nil
}

// EstimateGas rejects a value above the balance the way a node does
func (m *mockChain) EstimateGas(ctx context.Context, from, to string, value *big.Int) (uint64, error) {
	m.estimated = append(m.estimated, value)
	if m.gasErr != nil {
		return 0, m.gasErr
	}
	if value != nil && m.balance != nil && value.Cmp(m.balance) > 0 {
		return 0, errors.New("insufficient funds for transfer")
	}
	return m.gas, nil
}

func (m *mockChain) ChainID(ctx context.Context) (types.NetworkID, error) {
	return types.NetworkSepolia, nil
}

type mockPrices struct {
	usd   decimal.Decimal
	err   error
	calls int
	mu    sync.Mutex
}

func (m *mockPrices) NativePrice(ctx context.Context, symbol string) (*types.PriceQuote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &types.PriceQuote{Symbol: symbol, USD: m.usd}, nil
}

func ether(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad wei literal " + s)
	}
	return v
}

type fixture struct {
	explorer *mockExplorer
	chain    *mockChain
	prices   *mockPrices
	src      *Sources
}

func newFixture() *fixture {
	explorer := &mockExplorer{}
	chain := &mockChain{
		balance:       ether("1500000000000000000"),
		tokenBalances: map[string]*big.Int{},
		gasPrice:      big.NewInt(20_000_000_000),
		gas:           21000,
	}
	prices := &mockPrices{usd: decimal.NewFromInt(2000)}
	return &fixture{
		explorer: explorer,
		chain:    chain,
		prices:   prices,
		src: &Sources{
			Explorer: explorer,
			Prices:   prices,
			Chains: map[types.NetworkID]adapter.ChainReader{
				types.NetworkSepolia: chain,
				types.NetworkMainnet: chain,
			},
			DefaultNetwork: types.NetworkSepolia,
		},
	}
}

func lower(s string) string { return strings.ToLower(s) }
