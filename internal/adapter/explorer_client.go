package adapter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/time/rate"

	"github.com/wallet-dashboard/internal/circuitbreaker"
	"github.com/wallet-dashboard/internal/logging"
	"github.com/wallet-dashboard/internal/metrics"
	"github.com/wallet-dashboard/internal/retry"
	"github.com/wallet-dashboard/internal/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// PageSize is the number of records requested per list call
	PageSize = 10

	explorerAdapter = "explorer"
)

// ExplorerConfig configures the block explorer client
type ExplorerConfig struct {
	APIKey            string
	RequestsPerSecond float64
	Timeout           time.Duration
	Retry             *retry.RetryConfig
	// BaseURLs overrides the per-network API URL from the network registry.
	BaseURLs map[types.NetworkID]string
	// Budget, when set, is consulted before every call so that several
	// processes sharing one API key stay under its quota together.
	Budget Budget
}

// Budget is a quota shared with other processes
type Budget interface {
	Wait(ctx context.Context) error
}

// ExplorerClient fetches transaction lists from an Etherscan-compatible API.
// One limiter is shared by all networks since the API key quota is global.
type ExplorerClient struct {
	apiKey   string
	client   *http.Client
	limiter  *rate.Limiter
	breaker  *circuitbreaker.CircuitBreaker
	retry    *retry.RetryConfig
	baseURLs map[types.NetworkID]string
	budget   Budget
}

// explorerTransaction is a txlist row
type explorerTransaction struct {
	Hash            string `json:"hash"`
	BlockNumber     string `json:"blockNumber"`
	TimeStamp       string `json:"timeStamp"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	Gas             string `json:"gas"`
	GasPrice        string `json:"gasPrice"`
	GasUsed         string `json:"gasUsed"`
	IsError         string `json:"isError"`
	TxReceiptStatus string `json:"txreceipt_status"`
	MethodId        string `json:"methodId"`
	FunctionName    string `json:"functionName"`
	Nonce           string `json:"nonce"`
	Confirmations   string `json:"confirmations"`
}

// explorerTokenTransfer is a tokentx row
type explorerTokenTransfer struct {
	Hash            string `json:"hash"`
	BlockNumber     string `json:"blockNumber"`
	TimeStamp       string `json:"timeStamp"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	ContractAddress string `json:"contractAddress"`
	TokenName       string `json:"tokenName"`
	TokenSymbol     string `json:"tokenSymbol"`
	TokenDecimal    string `json:"tokenDecimal"`
	Gas             string `json:"gas"`
	GasPrice        string `json:"gasPrice"`
	GasUsed         string `json:"gasUsed"`
	Nonce           string `json:"nonce"`
	Confirmations   string `json:"confirmations"`
}

type explorerEnvelope struct {
	Status  string              `json:"status"`
	Message string              `json:"message"`
	Result  jsoniter.RawMessage `json:"result"`
}

// NewExplorerClient creates a new explorer client
func NewExplorerClient(cfg ExplorerConfig) *ExplorerClient {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		// free tier
		rps = 3
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	retryCfg := cfg.Retry
	if retryCfg == nil {
		retryCfg = retry.DefaultRetryConfig()
	}

	return &ExplorerClient{
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Limit(rps), max(1, int(rps))),
		breaker:  circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig(explorerAdapter)),
		retry:    retryCfg,
		baseURLs: cfg.BaseURLs,
		budget:   cfg.Budget,
	}
}

// Breaker exposes the circuit breaker guarding the explorer
func (c *ExplorerClient) Breaker() *circuitbreaker.CircuitBreaker {
	return c.breaker
}

// ListTransactions fetches the latest native transactions of address
func (c *ExplorerClient) ListTransactions(ctx context.Context, network types.Network, address string) ([]types.NativeTransaction, error) {
	if !ValidateAddress(address) {
		return nil, NewAdapterError(network.ID, "ListTransactions", ErrInvalidAddress, map[string]interface{}{
			"address": address,
		})
	}

	raw, err := c.fetch(ctx, network, "txlist", address)
	if err != nil {
		return nil, NewAdapterError(network.ID, "ListTransactions", err, map[string]interface{}{
			"address": address,
		})
	}
	if raw == nil {
		return []types.NativeTransaction{}, nil
	}

	var rows []explorerTransaction
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, NewAdapterError(network.ID, "ListTransactions", fmt.Errorf("%w: %v", ErrInvalidResponse, err), nil)
	}

	txs := make([]types.NativeTransaction, 0, len(rows))
	for _, row := range rows {
		txs = append(txs, convertTransaction(row))
	}
	return txs, nil
}

// ListTokenTransfers fetches the latest ERC-20 transfers of address
func (c *ExplorerClient) ListTokenTransfers(ctx context.Context, network types.Network, address string) ([]types.TokenTransaction, error) {
	if !ValidateAddress(address) {
		return nil, NewAdapterError(network.ID, "ListTokenTransfers", ErrInvalidAddress, map[string]interface{}{
			"address": address,
		})
	}

	raw, err := c.fetch(ctx, network, "tokentx", address)
	if err != nil {
		return nil, NewAdapterError(network.ID, "ListTokenTransfers", err, map[string]interface{}{
			"address": address,
		})
	}
	if raw == nil {
		return []types.TokenTransaction{}, nil
	}

	var rows []explorerTokenTransfer
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, NewAdapterError(network.ID, "ListTokenTransfers", fmt.Errorf("%w: %v", ErrInvalidResponse, err), nil)
	}

	txs := make([]types.TokenTransaction, 0, len(rows))
	for _, row := range rows {
		txs = append(txs, convertTokenTransfer(row))
	}
	return txs, nil
}

func (c *ExplorerClient) baseURL(network types.Network) string {
	if u, ok := c.baseURLs[network.ID]; ok {
		return u
	}
	return network.ExplorerAPIURL
}

// fetch returns the raw result array of an account action, or nil when the explorer reports no records
func (c *ExplorerClient) fetch(ctx context.Context, network types.Network, action, address string) (jsoniter.RawMessage, error) {
	params := url.Values{}
	params.Set("module", "account")
	params.Set("action", action)
	params.Set("address", address)
	params.Set("startblock", "0")
	params.Set("endblock", "99999999")
	params.Set("page", "1")
	params.Set("offset", strconv.Itoa(PageSize))
	params.Set("sort", "desc")
	if c.apiKey != "" {
		params.Set("apikey", c.apiKey)
	}
	reqURL := c.baseURL(network) + "?" + params.Encode()

	start := time.Now()
	var result jsoniter.RawMessage
	err := retry.WithRetry(ctx, c.retry, func(ctx context.Context, attempt int) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}
		if c.budget != nil {
			if err := c.budget.Wait(ctx); err != nil {
				if ctx.Err() != nil {
					return retry.Permanent(err)
				}
				return retry.Permanent(fmt.Errorf("%w: %v", ErrProviderRateLimit, err))
			}
		}
		return c.breaker.Execute(ctx, func(ctx context.Context) error {
			body, err := c.doRequest(ctx, reqURL)
			if err != nil {
				return err
			}
			result, err = parseEnvelope(body)
			return err
		})
	})
	metrics.ObserveAdapterCall(explorerAdapter, action, start, err)

	if err != nil {
		logging.FromContext(ctx).WithFields(map[string]interface{}{
			"network": network.Key,
			"action":  action,
			"address": address,
		}).WithError(err).Warn("Explorer request failed")
		return nil, err
	}
	return result, nil
}

func (c *ExplorerClient) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, retry.Permanent(ctx.Err())
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrProviderRateLimit
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, retry.Permanent(fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 200)))
	}
	return body, nil
}

// parseEnvelope unwraps {status, message, result}. A "no records" answer yields nil, nil.
func parseEnvelope(body []byte) (jsoniter.RawMessage, error) {
	var env explorerEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, retry.Permanent(fmt.Errorf("%w: %v", ErrInvalidResponse, err))
	}

	if env.Status == "1" {
		// some endpoints answer with a string result on empty lists
		if len(env.Result) > 0 && env.Result[0] == '"' {
			return nil, nil
		}
		return env.Result, nil
	}

	if env.Message == "No transactions found" || env.Message == "No records found" {
		return nil, nil
	}

	detail := strings.ToLower(string(env.Result))
	if strings.Contains(detail, "no record") {
		return nil, nil
	}
	if strings.Contains(detail, "rate limit") {
		return nil, ErrProviderRateLimit
	}
	return nil, retry.Permanent(fmt.Errorf("explorer API error: %s: %s", env.Message, truncate(env.Result, 200)))
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n])
	}
	return string(b)
}

func parseTimestamp(s string) int64 {
	ts, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return ts
}

func convertTransaction(tx explorerTransaction) types.NativeTransaction {
	return types.NativeTransaction{
		Hash:            tx.Hash,
		BlockNumber:     tx.BlockNumber,
		From:            tx.From,
		To:              tx.To,
		Value:           tx.Value,
		Timestamp:       parseTimestamp(tx.TimeStamp),
		IsError:         tx.IsError == "1",
		TxReceiptStatus: tx.TxReceiptStatus,
		Gas:             tx.Gas,
		GasPrice:        tx.GasPrice,
		GasUsed:         tx.GasUsed,
		Nonce:           tx.Nonce,
		FunctionName:    tx.FunctionName,
		MethodID:        tx.MethodId,
		Confirmations:   tx.Confirmations,
	}
}

func convertTokenTransfer(tx explorerTokenTransfer) types.TokenTransaction {
	return types.TokenTransaction{
		Hash:            tx.Hash,
		BlockNumber:     tx.BlockNumber,
		From:            tx.From,
		To:              tx.To,
		Value:           tx.Value,
		ContractAddress: tx.ContractAddress,
		TokenName:       tx.TokenName,
		TokenSymbol:     tx.TokenSymbol,
		TokenDecimal:    tx.TokenDecimal,
		Timestamp:       parseTimestamp(tx.TimeStamp),
		Gas:             tx.Gas,
		GasPrice:        tx.GasPrice,
		GasUsed:         tx.GasUsed,
		Nonce:           tx.Nonce,
		Confirmations:   tx.Confirmations,
	}
}
