package adapter

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/wallet-dashboard/internal/metrics"
	"github.com/wallet-dashboard/internal/types"
)

const rpcAdapter = "rpc"

// erc20ABI holds the single read the portfolio needs
const erc20ABI = `[{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"}]`

// RPCClient implements ChainReader on top of a go-ethereum JSON-RPC client
type RPCClient struct {
	network types.Network
	rpc     *rpc.Client
	eth     *ethclient.Client
	erc20   abi.ABI
}

// DialRPC connects to rawURL and wraps the connection for network
func DialRPC(ctx context.Context, network types.Network, rawURL string) (*RPCClient, error) {
	c, err := rpc.DialContext(ctx, rawURL)
	if err != nil {
		return nil, NewAdapterError(network.ID, "DialRPC", err, map[string]interface{}{
			"rpcURL": rawURL,
		})
	}
	return NewRPCClient(network, c)
}

// NewRPCClient wraps an established RPC connection
func NewRPCClient(network types.Network, c *rpc.Client) (*RPCClient, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse erc20 abi: %w", err)
	}
	return &RPCClient{
		network: network,
		rpc:     c,
		eth:     ethclient.NewClient(c),
		erc20:   parsed,
	}, nil
}

// Network returns the network this client reads
func (c *RPCClient) Network() types.Network {
	return c.network
}

// BalanceAt returns the native balance of address at the latest block
func (c *RPCClient) BalanceAt(ctx context.Context, address string) (balance *types.WalletBalance, err error) {
	if !ValidateAddress(address) {
		return nil, NewAdapterError(c.network.ID, "BalanceAt", ErrInvalidAddress, map[string]interface{}{
			"address": address,
		})
	}
	defer func(start time.Time) { metrics.ObserveAdapterCall(rpcAdapter, "eth_getBalance", start, err) }(time.Now())

	wei, err := c.eth.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, NewAdapterError(c.network.ID, "BalanceAt", classifyRPCError(err), map[string]interface{}{
			"address": address,
		})
	}

	return &types.WalletBalance{
		Value:    wei,
		Decimals: c.network.NativeDecimals,
		Symbol:   c.network.NativeSymbol,
	}, nil
}

// TokenBalances reads balanceOf(owner) on every contract in a single JSON-RPC batch
func (c *RPCClient) TokenBalances(ctx context.Context, owner string, contracts []string) (balances []*big.Int, err error) {
	if !ValidateAddress(owner) {
		return nil, NewAdapterError(c.network.ID, "TokenBalances", ErrInvalidAddress, map[string]interface{}{
			"address": owner,
		})
	}
	balances = make([]*big.Int, len(contracts))
	if len(contracts) == 0 {
		return balances, nil
	}
	defer func(start time.Time) { metrics.ObserveAdapterCall(rpcAdapter, "eth_call", start, err) }(time.Now())

	data, err := c.erc20.Pack("balanceOf", common.HexToAddress(owner))
	if err != nil {
		return nil, fmt.Errorf("failed to pack balanceOf: %w", err)
	}

	results := make([]hexutil.Bytes, len(contracts))
	batch := make([]rpc.BatchElem, 0, len(contracts))
	slots := make([]int, 0, len(contracts))
	for i, contract := range contracts {
		if !common.IsHexAddress(contract) {
			continue
		}
		to := common.HexToAddress(contract)
		batch = append(batch, rpc.BatchElem{
			Method: "eth_call",
			Args: []interface{}{
				map[string]interface{}{"to": &to, "data": hexutil.Bytes(data)},
				"latest",
			},
			Result: &results[i],
		})
		slots = append(slots, i)
	}
	if len(batch) == 0 {
		return balances, nil
	}

	if err := c.rpc.BatchCallContext(ctx, batch); err != nil {
		return nil, NewAdapterError(c.network.ID, "TokenBalances", classifyRPCError(err), map[string]interface{}{
			"contracts": len(batch),
		})
	}

	for j, elem := range batch {
		i := slots[j]
		if elem.Error != nil {
			continue
		}
		out, err := c.erc20.Unpack("balanceOf", results[i])
		if err != nil || len(out) == 0 {
			continue
		}
		if v, ok := out[0].(*big.Int); ok {
			balances[i] = v
		}
	}
	return balances, nil
}

// SuggestGasPrice returns the node's gas price suggestion in wei
func (c *RPCClient) SuggestGasPrice(ctx context.Context) (price *big.Int, err error) {
	defer func(start time.Time) { metrics.ObserveAdapterCall(rpcAdapter, "eth_gasPrice", start, err) }(time.Now())

	price, err = c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, NewAdapterError(c.network.ID, "SuggestGasPrice", classifyRPCError(err), nil)
	}
	return price, nil
}

// EstimateGas returns the gas of a plain value transfer
func (c *RPCClient) EstimateGas(ctx context.Context, from, to string, value *big.Int) (gas uint64, err error) {
	if !ValidateAddress(from) || !ValidateAddress(to) {
		return 0, NewAdapterError(c.network.ID, "EstimateGas", ErrInvalidAddress, map[string]interface{}{
			"from": from,
			"to":   to,
		})
	}
	defer func(start time.Time) { metrics.ObserveAdapterCall(rpcAdapter, "eth_estimateGas", start, err) }(time.Now())

	recipient := common.HexToAddress(to)
	gas, err = c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From:  common.HexToAddress(from),
		To:    &recipient,
		Value: value,
	})
	if err != nil {
		return 0, NewAdapterError(c.network.ID, "EstimateGas", classifyRPCError(err), nil)
	}
	return gas, nil
}

// ChainID returns the chain id reported by the endpoint
func (c *RPCClient) ChainID(ctx context.Context) (types.NetworkID, error) {
	id, err := c.eth.ChainID(ctx)
	if err != nil {
		return 0, NewAdapterError(c.network.ID, "ChainID", classifyRPCError(err), nil)
	}
	return types.NetworkID(id.Uint64()), nil
}

// VerifyNetwork checks that the endpoint serves the configured network
func (c *RPCClient) VerifyNetwork(ctx context.Context) error {
	id, err := c.ChainID(ctx)
	if err != nil {
		return err
	}
	if id != c.network.ID {
		return NewAdapterError(c.network.ID, "VerifyNetwork", ErrChainMismatch, map[string]interface{}{
			"reported": uint64(id),
		})
	}
	return nil
}

// Close closes the underlying connection
func (c *RPCClient) Close() {
	if c.rpc != nil {
		c.rpc.Close()
	}
}

// classifyRPCError maps transport failures onto the adapter sentinels
func classifyRPCError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrProviderTimeout, err)
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests"):
		return fmt.Errorf("%w: %v", ErrProviderRateLimit, err)
	case strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded"):
		return fmt.Errorf("%w: %v", ErrProviderTimeout, err)
	case strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host"):
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return err
}
