package adapter

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/valyala/fasthttp"

	"github.com/wallet-dashboard/internal/circuitbreaker"
	"github.com/wallet-dashboard/internal/metrics"
	"github.com/wallet-dashboard/internal/retry"
	"github.com/wallet-dashboard/internal/types"
)

const priceAdapter = "price"

// DefaultPriceFeedURL is the public price API
const DefaultPriceFeedURL = "https://min-api.cryptocompare.com"

// PriceConfig configures the price feed client
type PriceConfig struct {
	BaseURL string
	Timeout time.Duration
	Retry   *retry.RetryConfig
}

// PriceClient fetches spot USD prices from a CryptoCompare-style API
type PriceClient struct {
	baseURL string
	timeout time.Duration
	client  *fasthttp.Client
	breaker *circuitbreaker.CircuitBreaker
	retry   *retry.RetryConfig
	now     func() time.Time
}

type pricePayload struct {
	USD      *decimal.Decimal `json:"USD"`
	Response string           `json:"Response"`
	Message  string           `json:"Message"`
}

// NewPriceClient creates a new price client
func NewPriceClient(cfg PriceConfig) *PriceClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultPriceFeedURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	retryCfg := cfg.Retry
	if retryCfg == nil {
		retryCfg = retry.DefaultRetryConfig()
	}

	return &PriceClient{
		baseURL: baseURL,
		timeout: timeout,
		client: &fasthttp.Client{
			Name:                "wallet-dashboard",
			MaxConnsPerHost:     16,
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: 30 * time.Second,
		},
		breaker: circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig(priceAdapter)),
		retry:   retryCfg,
		now:     time.Now,
	}
}

// NativePrice returns the USD price of symbol
func (c *PriceClient) NativePrice(ctx context.Context, symbol string) (quote *types.PriceQuote, err error) {
	params := url.Values{}
	params.Set("fsym", symbol)
	params.Set("tsyms", "USD")
	reqURL := c.baseURL + "/data/price?" + params.Encode()

	start := time.Now()
	defer func() { metrics.ObserveAdapterCall(priceAdapter, "price", start, err) }()

	var usd decimal.Decimal
	err = retry.WithRetry(ctx, c.retry, func(ctx context.Context, attempt int) error {
		return c.breaker.Execute(ctx, func(ctx context.Context) error {
			v, err := c.fetch(ctx, reqURL)
			if err != nil {
				return err
			}
			usd = v
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("price feed %s: %w", symbol, err)
	}

	return &types.PriceQuote{
		Symbol:    symbol,
		USD:       usd,
		FetchedAt: c.now().UTC(),
	}, nil
}

func (c *PriceClient) fetch(ctx context.Context, reqURL string) (decimal.Decimal, error) {
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return decimal.Zero, retry.Permanent(context.DeadlineExceeded)
		}
		if remaining < timeout {
			timeout = remaining
		}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(reqURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	if err := c.client.DoTimeout(req, resp, timeout); err != nil {
		if err == fasthttp.ErrTimeout {
			return decimal.Zero, fmt.Errorf("%w: %v", ErrProviderTimeout, err)
		}
		return decimal.Zero, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	switch status := resp.StatusCode(); {
	case status == fasthttp.StatusTooManyRequests:
		return decimal.Zero, ErrProviderRateLimit
	case status >= 500:
		return decimal.Zero, fmt.Errorf("%w: status %d", ErrProviderUnavailable, status)
	case status != fasthttp.StatusOK:
		return decimal.Zero, retry.Permanent(fmt.Errorf("unexpected status %d", status))
	}

	var payload pricePayload
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return decimal.Zero, retry.Permanent(fmt.Errorf("%w: %v", ErrInvalidResponse, err))
	}
	if payload.Response == "Error" {
		return decimal.Zero, retry.Permanent(fmt.Errorf("%w: %s", ErrInvalidResponse, payload.Message))
	}
	if payload.USD == nil {
		return decimal.Zero, retry.Permanent(fmt.Errorf("%w: missing USD field", ErrInvalidResponse))
	}
	return *payload.USD, nil
}
