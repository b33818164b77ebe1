// Package app wires configuration into adapters, cache and services. The
// server and the report command share it.
package app

import (
	"context"
	"time"

	"github.com/wallet-dashboard/internal/adapter"
	"github.com/wallet-dashboard/internal/config"
	"github.com/wallet-dashboard/internal/logging"
	"github.com/wallet-dashboard/internal/ratelimit"
	"github.com/wallet-dashboard/internal/service"
	"github.com/wallet-dashboard/internal/storage"
	"github.com/wallet-dashboard/internal/types"
)

const (
	dialTimeout           = 10 * time.Second
	memoryCleanupInterval = time.Minute
)

// App holds the wired services of one process
type App struct {
	Sources   *service.Sources
	Cache     *storage.CacheService
	Portfolio *service.PortfolioService
	Activity  *service.ActivityService
	Transfer  *service.TransferService

	rpcClients []*adapter.RPCClient
	explorer   *adapter.ExplorerClient
	budget     *ratelimit.SharedBudget
}

// New builds the cache, one RPC client per configured network, the explorer
// and price clients and the services on top of them. A network without an
// RPC URL is skipped; requests for it are rejected as unsupported.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.FromContext(ctx)

	cache, redisCache, err := newCache(cfg)
	if err != nil {
		return nil, err
	}
	cacheService := storage.NewCacheService(cache, storage.TTLs{
		Price:        cfg.Cache.PriceTTL,
		Transactions: cfg.Cache.TransactionsTTL,
	})

	a := &App{Cache: cacheService}
	chains := make(map[types.NetworkID]adapter.ChainReader)

	for id, url := range cfg.Networks.RPC {
		network, ok := types.LookupNetwork(id)
		if !ok || url == "" {
			continue
		}
		fields := map[string]interface{}{"network": network.Key}

		dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
		client, err := adapter.DialRPC(dialCtx, network, url)
		if err != nil {
			cancel()
			logger.WithFields(fields).WithError(err).Warn("Skipping network: RPC dial failed")
			continue
		}
		if err := client.VerifyNetwork(dialCtx); err != nil {
			logger.WithFields(fields).WithError(err).Warn("RPC endpoint did not confirm chain id")
		}
		cancel()

		chains[id] = client
		a.rpcClients = append(a.rpcClients, client)
		logger.WithFields(fields).Info("Chain reader initialized")
	}

	if len(chains) == 0 {
		logger.Warn("No RPC endpoints configured - every wallet request will be rejected")
	}

	explorerCfg := adapter.ExplorerConfig{
		APIKey:            cfg.Explorer.APIKey,
		RequestsPerSecond: cfg.Explorer.RequestsPerSecond,
		Timeout:           cfg.Explorer.Timeout,
	}
	// With Redis the explorer quota is shared by every process using the key.
	if redisCache != nil {
		budget, err := ratelimit.NewSharedBudget(&ratelimit.Config{
			Redis: redisCache.Client(),
			Scope: "explorer",
			Limit: max(1, int(cfg.Explorer.RequestsPerSecond)),
		})
		if err != nil {
			return nil, err
		}
		explorerCfg.Budget = budget
		a.budget = budget
	}
	a.explorer = adapter.NewExplorerClient(explorerCfg)

	a.Sources = &service.Sources{
		Explorer: a.explorer,
		Prices: adapter.NewPriceClient(adapter.PriceConfig{
			BaseURL: cfg.PriceFeed.BaseURL,
			Timeout: cfg.PriceFeed.Timeout,
		}),
		Chains:         chains,
		Cache:          cacheService,
		DefaultNetwork: cfg.Networks.Default,
	}
	a.Portfolio = service.NewPortfolioService(a.Sources)
	a.Activity = service.NewActivityService(a.Sources)
	a.Transfer = service.NewTransferService(a.Sources)

	return a, nil
}

// newCache picks Redis when a host is configured, else an in-process cache.
// The Redis cache is also returned so its client can back the shared budget.
func newCache(cfg *config.Config) (storage.Cache, *storage.RedisCache, error) {
	if cfg.Redis.Enabled() {
		redis, err := storage.NewRedisCache(&cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		logging.WithFields(map[string]interface{}{
			"host": cfg.Redis.Host,
			"port": cfg.Redis.Port,
		}).Info("Using Redis cache")
		return redis, redis, nil
	}
	logging.Info("REDIS_HOST not set, using in-memory cache")
	return storage.NewMemoryCache(cfg.Cache.TransactionsTTL, memoryCleanupInterval), nil, nil
}

// Ping checks the cache behind the services
func (a *App) Ping(ctx context.Context) error {
	return a.Cache.Ping(ctx)
}

// Upstreams reports the explorer breaker state and, with Redis, the shared
// quota consumed in the current window.
func (a *App) Upstreams(ctx context.Context) map[string]interface{} {
	explorer := map[string]interface{}{
		"breaker": a.explorer.Breaker().GetState(),
	}
	if a.budget != nil {
		usage, err := a.budget.GetUsage(ctx)
		if err != nil {
			logging.FromContext(ctx).WithError(err).Warn("Failed to read explorer budget usage")
		} else {
			explorer["budgetUsed"] = usage.Used
			explorer["budgetLimit"] = usage.Limit
		}
	}
	return map[string]interface{}{"explorer": explorer}
}

// Close releases RPC connections and the cache
func (a *App) Close() {
	for _, c := range a.rpcClients {
		c.Close()
	}
	if err := a.Cache.Close(); err != nil {
		logging.WithError(err).Warn("Failed to close cache")
	}
}
