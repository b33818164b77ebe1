// Package config provides configuration management for the wallet dashboard service.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/wallet-dashboard/internal/types"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Networks  NetworksConfig
	Explorer  ExplorerConfig
	PriceFeed PriceFeedConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
}

// RedisConfig holds Redis configuration. An empty Host disables Redis.
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// Enabled reports whether a Redis host was configured
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

// CacheConfig holds cache TTLs per payload kind
type CacheConfig struct {
	PriceTTL        time.Duration
	TransactionsTTL time.Duration
}

// NetworksConfig holds the default network and per-network RPC endpoints
type NetworksConfig struct {
	Default types.NetworkID
	RPC     map[types.NetworkID]string
}

// ExplorerConfig holds block explorer API configuration
type ExplorerConfig struct {
	APIKey            string
	RequestsPerSecond float64
	Timeout           time.Duration
}

// PriceFeedConfig holds price feed configuration
type PriceFeedConfig struct {
	BaseURL string
	Timeout time.Duration
}

// RateLimitConfig holds inbound API rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			RequestTimeout:  getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 20*time.Second),
		},
		Redis: RedisConfig{
			Host:           getEnv("REDIS_HOST", ""),
			Port:           getEnv("REDIS_PORT", "6379"),
			Password:       getEnv("REDIS_PASSWORD", ""),
			DB:             getEnvAsInt("REDIS_DB", 0),
			MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 20),
		},
		Cache: CacheConfig{
			PriceTTL:        getEnvAsDuration("CACHE_PRICE_TTL", 60*time.Second),
			TransactionsTTL: getEnvAsDuration("CACHE_TRANSACTIONS_TTL", 20*time.Second),
		},
		Explorer: ExplorerConfig{
			APIKey:            getEnv("ETHERSCAN_API_KEY", ""),
			RequestsPerSecond: getEnvAsFloat("ETHERSCAN_RPS", 3),
			Timeout:           getEnvAsDuration("ETHERSCAN_TIMEOUT", 15*time.Second),
		},
		PriceFeed: PriceFeedConfig{
			BaseURL: getEnv("PRICE_FEED_URL", "https://min-api.cryptocompare.com"),
			Timeout: getEnvAsDuration("PRICE_FEED_TIMEOUT", 10*time.Second),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvAsInt("RATE_LIMIT_RPS", 20),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 40),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	config.Networks = loadNetworkConfigs()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks cross-field constraints
func (c *Config) Validate() error {
	if _, ok := types.LookupNetwork(c.Networks.Default); !ok {
		return fmt.Errorf("unsupported default network: %d", c.Networks.Default)
	}
	if c.Explorer.RequestsPerSecond <= 0 {
		return fmt.Errorf("ETHERSCAN_RPS must be positive, got %v", c.Explorer.RequestsPerSecond)
	}
	return nil
}

// loadNetworkConfigs reads <KEY>_RPC_URL for every registered network
func loadNetworkConfigs() NetworksConfig {
	rpc := make(map[types.NetworkID]string)
	for _, n := range types.Networks() {
		if url := getEnv(strings.ToUpper(n.Key)+"_RPC_URL", ""); url != "" {
			rpc[n.ID] = url
		}
	}

	def := types.NetworkSepolia
	if key := getEnv("DEFAULT_NETWORK", ""); key != "" {
		if n, ok := types.LookupNetworkByKey(key); ok {
			def = n.ID
		} else {
			def = types.NetworkID(0)
		}
	}

	return NetworksConfig{
		Default: def,
		RPC:     rpc,
	}
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat gets an environment variable as a float with a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
