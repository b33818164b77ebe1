package config

import (
	"testing"
	"time"

	"github.com/wallet-dashboard/internal/types"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("CACHE_PRICE_TTL", "30s")
	t.Setenv("SEPOLIA_RPC_URL", "https://rpc.sepolia.example")
	t.Setenv("DEFAULT_NETWORK", "mainnet")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %v, want %v", cfg.Server.Port, "9090")
	}
	if cfg.Cache.PriceTTL != 30*time.Second {
		t.Errorf("Cache.PriceTTL = %v, want %v", cfg.Cache.PriceTTL, 30*time.Second)
	}
	if got := cfg.Networks.RPC[types.NetworkSepolia]; got != "https://rpc.sepolia.example" {
		t.Errorf("Networks.RPC[sepolia] = %v", got)
	}
	if _, ok := cfg.Networks.RPC[types.NetworkMainnet]; ok {
		t.Errorf("Networks.RPC[mainnet] should be unset")
	}
	if cfg.Networks.Default != types.NetworkMainnet {
		t.Errorf("Networks.Default = %v, want %v", cfg.Networks.Default, types.NetworkMainnet)
	}
	if cfg.Redis.Enabled() {
		t.Errorf("Redis.Enabled() = true without REDIS_HOST")
	}
}

func TestLoadConfigRejectsUnknownDefaultNetwork(t *testing.T) {
	t.Setenv("DEFAULT_NETWORK", "polygon")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("LoadConfig() expected error for unknown default network")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid",
			cfg: Config{
				Networks: NetworksConfig{Default: types.NetworkSepolia},
				Explorer: ExplorerConfig{RequestsPerSecond: 3},
			},
		},
		{
			name: "zero explorer rate",
			cfg: Config{
				Networks: NetworksConfig{Default: types.NetworkSepolia},
			},
			wantErr: true,
		},
		{
			name: "unknown network",
			cfg: Config{
				Networks: NetworksConfig{Default: 56},
				Explorer: ExplorerConfig{RequestsPerSecond: 3},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetEnvAsInt(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue int
		envValue     string
		want         int
	}{
		{name: "returns integer when valid", key: "TEST_INT", defaultValue: 100, envValue: "200", want: 200},
		{name: "returns default when invalid", key: "TEST_INT_INVALID", defaultValue: 100, envValue: "invalid", want: 100},
		{name: "returns default when not set", key: "TEST_INT_NOTSET", defaultValue: 100, want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			}

			if got := getEnvAsInt(tt.key, tt.defaultValue); got != tt.want {
				t.Errorf("getEnvAsInt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvAsFloat(t *testing.T) {
	t.Setenv("TEST_FLOAT", "2.5")
	t.Setenv("TEST_FLOAT_INVALID", "fast")

	if got := getEnvAsFloat("TEST_FLOAT", 1); got != 2.5 {
		t.Errorf("getEnvAsFloat() = %v, want 2.5", got)
	}
	if got := getEnvAsFloat("TEST_FLOAT_INVALID", 1); got != 1 {
		t.Errorf("getEnvAsFloat() = %v, want 1", got)
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue time.Duration
		envValue     string
		want         time.Duration
	}{
		{name: "returns duration when valid", key: "TEST_DURATION", defaultValue: 10 * time.Second, envValue: "30s", want: 30 * time.Second},
		{name: "returns default when invalid", key: "TEST_DURATION_INVALID", defaultValue: 10 * time.Second, envValue: "invalid", want: 10 * time.Second},
		{name: "returns default when not set", key: "TEST_DURATION_NOTSET", defaultValue: 10 * time.Second, want: 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			}

			if got := getEnvAsDuration(tt.key, tt.defaultValue); got != tt.want {
				t.Errorf("getEnvAsDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}
