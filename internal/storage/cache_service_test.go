package storage

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallet-dashboard/internal/types"
)

func TestGenerateCacheKey(t *testing.T) {
	assert.Equal(t, "price:eth", PriceKey("ETH"))
	assert.Equal(t, "txs:11155111:0xabcd", TransactionsKey(types.NetworkSepolia, "0xABCD"))
	assert.Equal(t, "tokentx:1:0xabcd", TokenTransfersKey(types.NetworkMainnet, "0xAbCd"))
}

func TestCacheServicePriceRoundTrip(t *testing.T) {
	redisCache, mr := newTestRedis(t)
	svc := NewCacheService(redisCache, TTLs{Price: time.Minute, Transactions: 20 * time.Second})
	ctx := testContext(t)

	var loads int32
	load := func(ctx context.Context) (*types.PriceQuote, error) {
		atomic.AddInt32(&loads, 1)
		return &types.PriceQuote{Symbol: "ETH", USD: decimal.RequireFromString("2000.5")}, nil
	}

	first, err := svc.Price(ctx, "ETH", load)
	require.NoError(t, err)
	second, err := svc.Price(ctx, "ETH", load)
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
	assert.True(t, first.USD.Equal(second.USD))
	assert.True(t, mr.Exists("price:eth"))
	assert.Equal(t, time.Minute, mr.TTL("price:eth"))

	mr.FastForward(2 * time.Minute)
	_, err = svc.Price(ctx, "ETH", load)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&loads))
}

func TestCacheServiceDoesNotStoreFailures(t *testing.T) {
	svc := NewCacheService(NewMemoryCache(time.Minute, time.Minute), TTLs{Transactions: time.Minute})
	ctx := testContext(t)
	boom := errors.New("explorer down")

	_, err := svc.Transactions(ctx, types.NetworkSepolia, "0xabc", func(ctx context.Context) ([]types.NativeTransaction, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	txs, err := svc.Transactions(ctx, types.NetworkSepolia, "0xabc", func(ctx context.Context) ([]types.NativeTransaction, error) {
		return []types.NativeTransaction{{Hash: "0x1", Timestamp: 10}}, nil
	})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "0x1", txs[0].Hash)
}

func TestCacheServiceSharesConcurrentLoads(t *testing.T) {
	svc := NewCacheService(NewMemoryCache(time.Minute, time.Minute), TTLs{Transactions: time.Minute})
	ctx := testContext(t)

	var loads int32
	release := make(chan struct{})
	load := func(ctx context.Context) ([]types.TokenTransaction, error) {
		atomic.AddInt32(&loads, 1)
		<-release
		return []types.TokenTransaction{{Hash: "0xt", TokenSymbol: "USDC"}}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := svc.TokenTransfers(ctx, types.NetworkMainnet, "0xabc", load)
			assert.NoError(t, err)
			assert.Len(t, got, 1)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
}

func TestCacheServiceCancelledCallerDoesNotFailSharedLoad(t *testing.T) {
	svc := NewCacheService(NewMemoryCache(time.Minute, time.Minute), TTLs{Transactions: time.Minute})

	started := make(chan struct{})
	release := make(chan struct{})
	load := func(ctx context.Context) ([]types.NativeTransaction, error) {
		close(started)
		select {
		case <-release:
			return []types.NativeTransaction{{Hash: "0x1"}}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.Transactions(firstCtx, types.NetworkSepolia, "0xabc", load)
		firstErr <- err
	}()
	<-started

	secondDone := make(chan struct{})
	var (
		second    []types.NativeTransaction
		secondErr error
	)
	go func() {
		defer close(secondDone)
		second, secondErr = svc.Transactions(testContext(t), types.NetworkSepolia, "0xabc", load)
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	<-secondDone
	require.NoError(t, secondErr)
	require.Len(t, second, 1)
	assert.Equal(t, "0x1", second[0].Hash)
}

func TestCacheServiceCorruptEntryFallsBackToLoad(t *testing.T) {
	redisCache, mr := newTestRedis(t)
	svc := NewCacheService(redisCache, TTLs{Price: time.Minute})
	ctx := testContext(t)

	require.NoError(t, mr.Set("price:eth", "{not json"))

	quote, err := svc.Price(ctx, "ETH", func(ctx context.Context) (*types.PriceQuote, error) {
		return &types.PriceQuote{Symbol: "ETH", USD: decimal.NewFromInt(1)}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "1", quote.USD.String())
}

func TestCacheServiceGetDropsCorruptEntry(t *testing.T) {
	redisCache, mr := newTestRedis(t)
	svc := NewCacheService(redisCache, TTLs{Price: time.Minute})
	ctx := testContext(t)

	require.NoError(t, mr.Set("price:eth", "{not json"))

	var quote types.PriceQuote
	found, err := svc.Get(ctx, "price:eth", &quote)
	require.Error(t, err)
	assert.False(t, found)
	assert.False(t, mr.Exists("price:eth"))
}
