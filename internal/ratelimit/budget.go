// Package ratelimit coordinates an upstream request quota across processes using Redis.
//
// The explorer API key allows a fixed number of calls per second no matter how many
// server replicas share it; the in-process limiter of each client only sees its own
// traffic. SharedBudget counts calls in Redis per fixed window so that all replicas
// stay under the key's quota together.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wallet-dashboard/internal/logging"
)

// Default budget configuration values.
const (
	DefaultLimit      = 5               // calls per window, the free explorer tier
	DefaultWindowSize = time.Second     // fixed window
	DefaultKeyTTL     = 2 * time.Second // window + buffer
	DefaultMaxWait    = 10 * time.Second
)

// KeyPrefix namespaces budget counters in Redis.
const KeyPrefix = "budget:"

// ErrBudgetExhausted is returned by Wait when no window within MaxWait had room
var ErrBudgetExhausted = errors.New("shared request budget exhausted")

// consumeScript increments the window counter only when cost still fits.
var consumeScript = redis.NewScript(`
	local key = KEYS[1]
	local cost = tonumber(ARGV[1])
	local limit = tonumber(ARGV[2])
	local ttl = tonumber(ARGV[3])

	local used = tonumber(redis.call('GET', key) or '0')
	if used + cost > limit then
		return {0, used}
	end

	redis.call('INCRBY', key, cost)
	redis.call('EXPIRE', key, ttl)
	return {1, used + cost}
`)

// SharedBudget is a fixed-window call budget stored in Redis.
type SharedBudget struct {
	redis      redis.Cmdable
	scope      string
	limit      int
	windowSize time.Duration
	keyTTL     time.Duration
	maxWait    time.Duration
	now        func() time.Time
}

// Config holds configuration for the shared budget.
type Config struct {
	// Redis is the client used for cross-process coordination. Required.
	Redis redis.Cmdable

	// Scope names the quota, e.g. "explorer".
	Scope string

	// Limit is the number of calls allowed per window. Default: 5.
	Limit int

	// WindowSize is the window duration. Default: 1s.
	WindowSize time.Duration

	// MaxWait bounds how long Wait blocks before giving up. Default: 10s.
	MaxWait time.Duration
}

// Usage is the consumption of the current window.
type Usage struct {
	Used        int
	Limit       int
	WindowStart time.Time
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Redis == nil {
		return errors.New("redis client is required")
	}
	if c.Scope == "" {
		return errors.New("scope is required")
	}
	if c.Limit < 0 {
		return errors.New("limit cannot be negative")
	}
	return nil
}

// NewSharedBudget creates a new budget with the given configuration.
func NewSharedBudget(cfg *Config) (*SharedBudget, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	limit := cfg.Limit
	if limit == 0 {
		limit = DefaultLimit
	}
	windowSize := cfg.WindowSize
	if windowSize == 0 {
		windowSize = DefaultWindowSize
	}
	maxWait := cfg.MaxWait
	if maxWait == 0 {
		maxWait = DefaultMaxWait
	}
	keyTTL := DefaultKeyTTL
	if keyTTL < 2*windowSize {
		keyTTL = 2 * windowSize
	}

	return &SharedBudget{
		redis:      cfg.Redis,
		scope:      cfg.Scope,
		limit:      limit,
		windowSize: windowSize,
		keyTTL:     keyTTL,
		maxWait:    maxWait,
		now:        time.Now,
	}, nil
}

// windowStart returns the start of the window containing now.
func (b *SharedBudget) windowStart() time.Time {
	return b.now().Truncate(b.windowSize)
}

func (b *SharedBudget) key(windowStart time.Time) string {
	return KeyPrefix + b.scope + ":" + strconv.FormatInt(windowStart.UnixMilli(), 10)
}

// TryConsume attempts to take cost calls from the current window.
//
// Returns:
//   - allowed: true if the calls fit in the window
//   - waitTime: time until the next window when not allowed
//   - err: Redis failures; the caller decides whether to proceed
func (b *SharedBudget) TryConsume(ctx context.Context, cost int) (bool, time.Duration, error) {
	if cost <= 0 {
		return true, 0, nil
	}

	start := b.windowStart()
	ttlSeconds := int(b.keyTTL.Seconds())
	if ttlSeconds < 1 {
		ttlSeconds = 1
	}

	result, err := consumeScript.Run(ctx, b.redis, []string{b.key(start)}, cost, b.limit, ttlSeconds).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("budget %s: %w", b.scope, err)
	}
	if result[0] == 1 {
		return true, 0, nil
	}
	return false, b.waitTime(start), nil
}

// waitTime returns the time until the window after start begins.
func (b *SharedBudget) waitTime(start time.Time) time.Duration {
	wait := start.Add(b.windowSize).Sub(b.now())
	if wait < 0 {
		wait = 0
	}
	// land inside the next window
	return wait + time.Millisecond
}

// Wait blocks until one call fits in the budget. A Redis failure does not block
// the caller: the in-process limiter still applies, so the call proceeds.
func (b *SharedBudget) Wait(ctx context.Context) error {
	deadline := b.now().Add(b.maxWait)
	for {
		allowed, wait, err := b.TryConsume(ctx, 1)
		if err != nil {
			logging.FromContext(ctx).WithField("scope", b.scope).WithError(err).Warn("Shared budget unavailable, proceeding")
			return nil
		}
		if allowed {
			return nil
		}
		if b.now().Add(wait).After(deadline) {
			return ErrBudgetExhausted
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// GetUsage returns the consumption of the current window.
func (b *SharedBudget) GetUsage(ctx context.Context) (*Usage, error) {
	start := b.windowStart()
	used, err := b.redis.Get(ctx, b.key(start)).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	return &Usage{Used: used, Limit: b.limit, WindowStart: start}, nil
}

// Limit returns the configured calls per window.
func (b *SharedBudget) Limit() int {
	return b.limit
}
