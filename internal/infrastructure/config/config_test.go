package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Search.SufficiencyThreshold)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.True(t, cfg.Providers.Free.Enabled)
	assert.False(t, cfg.Providers.Paid.Enabled)
	assert.Equal(t, 300*time.Millisecond, cfg.Generator.CallInterval)
	assert.Equal(t, time.Hour, cfg.Providers.Paid.QuotaCooldown)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SEARCH_SUFFICIENCY_THRESHOLD", "4")
	t.Setenv("SPOONACULAR_API_KEY", "abcd1234efgh5678")
	t.Setenv("PAID_PROVIDER_ENABLED", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Search.SufficiencyThreshold)
	assert.True(t, cfg.Providers.Paid.Enabled)
	assert.Equal(t, "abcd1234efgh5678", cfg.Providers.Paid.APIKey)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfig_PaidWithoutKeyIsRejected(t *testing.T) {
	t.Setenv("PAID_PROVIDER_ENABLED", "true")
	t.Setenv("SPOONACULAR_API_KEY", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key")
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Port: 8080},
			Search: SearchConfig{SufficiencyThreshold: 10},
			Store:  StoreConfig{Driver: "sqlite"},
			Providers: ProvidersConfig{
				Free: FreeProviderConfig{Enabled: true, RequestsPerSecond: 1},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing port", func(c *Config) { c.Server.Port = 0 }, true},
		{"zero threshold", func(c *Config) { c.Search.SufficiencyThreshold = 0 }, true},
		{"unknown driver", func(c *Config) { c.Store.Driver = "mongo" }, true},
		{"postgres driver", func(c *Config) { c.Store.Driver = "postgres" }, false},
		{"free without rate", func(c *Config) { c.Providers.Free.RequestsPerSecond = 0 }, true},
		{"cache without size", func(c *Config) {
			c.Cache = CacheConfig{Enabled: true, TTL: time.Minute, CleanupInterval: time.Minute}
		}, true},
		{"rate limit without window", func(c *Config) {
			c.RateLimit = RateLimitConfig{Enabled: true, Requests: 10}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := validateConfig(cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", MaskAPIKey("short"))
	assert.Equal(t, "abcd...5678", MaskAPIKey("abcd1234efgh5678"))
}
