package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/sync/singleflight"

	"github.com/wallet-dashboard/internal/logging"
	"github.com/wallet-dashboard/internal/metrics"
	"github.com/wallet-dashboard/internal/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CacheKeyType represents different types of cache keys
type CacheKeyType string

const (
	// CacheKeyPrice is for native asset prices
	CacheKeyPrice CacheKeyType = "price"
	// CacheKeyTransactions is for native transaction pages
	CacheKeyTransactions CacheKeyType = "txs"
	// CacheKeyTokenTransfers is for token transfer pages
	CacheKeyTokenTransfers CacheKeyType = "tokentx"
)

// sharedLoadTimeout bounds a load that outlives the caller that started it
const sharedLoadTimeout = 30 * time.Second

// TTLs configures how long each payload kind stays fresh
type TTLs struct {
	Price        time.Duration
	Transactions time.Duration
}

// CacheService provides typed caching for adapter responses.
// Concurrent misses on one key share a single load.
type CacheService struct {
	cache  Cache
	ttls   TTLs
	flight singleflight.Group
}

// NewCacheService creates a new cache service
func NewCacheService(cache Cache, ttls TTLs) *CacheService {
	return &CacheService{
		cache: cache,
		ttls:  ttls,
	}
}

// GenerateCacheKey generates a cache key for a given type and parameters
// Format: <type>:<param1>:<param2>:...
func GenerateCacheKey(keyType CacheKeyType, params ...string) string {
	parts := make([]string, 0, len(params)+1)
	parts = append(parts, string(keyType))
	for _, p := range params {
		parts = append(parts, strings.ToLower(p))
	}
	return strings.Join(parts, ":")
}

// PriceKey is price:<symbol>
func PriceKey(symbol string) string {
	return GenerateCacheKey(CacheKeyPrice, symbol)
}

// TransactionsKey is txs:<network>:<address>
func TransactionsKey(network types.NetworkID, address string) string {
	return GenerateCacheKey(CacheKeyTransactions, strconv.FormatUint(uint64(network), 10), address)
}

// TokenTransfersKey is tokentx:<network>:<address>
func TokenTransfersKey(network types.NetworkID, address string) string {
	return GenerateCacheKey(CacheKeyTokenTransfers, strconv.FormatUint(uint64(network), 10), address)
}

// Get retrieves a value from cache and deserializes it.
// An entry that no longer decodes is dropped so the next load replaces it.
func (c *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get from cache: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		if delErr := c.cache.Del(ctx, key); delErr != nil {
			logging.FromContext(ctx).WithField("key", key).WithError(delErr).Warn("Failed to drop corrupt cache entry")
		}
		return false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}
	return true, nil
}

// SetWithTTL stores a value in cache with a custom TTL
func (c *CacheService) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return c.cache.Set(ctx, key, data, ttl)
}

// Ping checks the backing store
func (c *CacheService) Ping(ctx context.Context) error {
	return c.cache.Ping(ctx)
}

// Close closes the backing store
func (c *CacheService) Close() error {
	return c.cache.Close()
}

// getOrLoad serves key from cache or runs load once for all concurrent callers and stores the result.
// Cache failures are logged and never fail the call.
func getOrLoad[T any](ctx context.Context, c *CacheService, kind, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var cached T
	found, err := c.Get(ctx, key, &cached)
	if err != nil {
		logging.FromContext(ctx).WithField("key", key).WithError(err).Warn("Cache read failed")
	}
	metrics.ObserveCacheLookup(kind, found)
	if found {
		return cached, nil
	}

	ch := c.flight.DoChan(key, func() (interface{}, error) {
		// Detached so one caller going away does not fail the others waiting on key.
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLoadTimeout)
		defer cancel()

		fresh, err := load(loadCtx)
		if err != nil {
			return fresh, err
		}
		if ttl > 0 {
			if err := c.SetWithTTL(loadCtx, key, fresh, ttl); err != nil {
				logging.FromContext(ctx).WithField("key", key).WithError(err).Warn("Cache write failed")
			}
		}
		return fresh, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// Price returns the cached quote for symbol or loads it
func (c *CacheService) Price(ctx context.Context, symbol string, load func(context.Context) (*types.PriceQuote, error)) (*types.PriceQuote, error) {
	return getOrLoad(ctx, c, string(CacheKeyPrice), PriceKey(symbol), c.ttls.Price, load)
}

// Transactions returns the cached native transaction page or loads it
func (c *CacheService) Transactions(ctx context.Context, network types.NetworkID, address string, load func(context.Context) ([]types.NativeTransaction, error)) ([]types.NativeTransaction, error) {
	return getOrLoad(ctx, c, string(CacheKeyTransactions), TransactionsKey(network, address), c.ttls.Transactions, load)
}

// TokenTransfers returns the cached token transfer page or loads it
func (c *CacheService) TokenTransfers(ctx context.Context, network types.NetworkID, address string, load func(context.Context) ([]types.TokenTransaction, error)) ([]types.TokenTransaction, error) {
	return getOrLoad(ctx, c, string(CacheKeyTokenTransfers), TokenTransfersKey(network, address), c.ttls.Transactions, load)
}
