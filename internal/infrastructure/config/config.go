package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig       `mapstructure:"app"`
	Server      ServerConfig    `mapstructure:"server"`
	Providers   ProvidersConfig `mapstructure:"providers"`
	Search      SearchConfig    `mapstructure:"search"`
	Generator   GeneratorConfig `mapstructure:"generator"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Store       StoreConfig     `mapstructure:"store"`
	Redis       RedisConfig     `mapstructure:"redis"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	DedupWindow time.Duration   `mapstructure:"dedup_window"`
	LogLevel    string          `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
}

// ProvidersConfig 外部食譜來源設定
type ProvidersConfig struct {
	Free FreeProviderConfig `mapstructure:"free"`
	Paid PaidProviderConfig `mapstructure:"paid"`
}

// FreeProviderConfig 免費社群食譜來源（有速率限制）
type FreeProviderConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	MaxDetailFetches  int           `mapstructure:"max_detail_fetches"`
}

// PaidProviderConfig 付費計量食譜來源
type PaidProviderConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	BaseURL       string        `mapstructure:"base_url"`
	APIKey        string        `mapstructure:"api_key"`
	Timeout       time.Duration `mapstructure:"timeout"`
	ResultsNumber int           `mapstructure:"results_number"`
	QuotaCooldown time.Duration `mapstructure:"quota_cooldown"`
}

// SearchConfig 搜尋協調器設定
type SearchConfig struct {
	SufficiencyThreshold int `mapstructure:"sufficiency_threshold"`
	MaxResults           int `mapstructure:"max_results"`
}

// GeneratorConfig 自動菜單產生器設定
type GeneratorConfig struct {
	CallInterval time.Duration `mapstructure:"call_interval"`
	Seed         int64         `mapstructure:"seed"`
	TopMatches   int           `mapstructure:"top_matches"`
}

// CacheConfig 緩存配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// StoreConfig 食譜資料庫設定
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Debug  bool   `mapstructure:"debug"`
}

// RedisConfig 使用者食材選擇儲存設定
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// .env 不存在時僅使用環境變數與預設值
	_ = godotenv.Load()

	v := viper.New()
	// 設置默認值
	setDefaults(v)

	// 環境變量以 APP_ 為前綴，巢狀鍵以底線分隔
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定環境變量
	v.BindEnv("providers.paid.api_key", "SPOONACULAR_API_KEY")
	v.BindEnv("providers.paid.enabled", "PAID_PROVIDER_ENABLED")
	v.BindEnv("providers.free.base_url", "MEALDB_BASE_URL")
	v.BindEnv("store.driver", "STORE_DRIVER")
	v.BindEnv("store.dsn", "STORE_DSN")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("search.sufficiency_threshold", "SEARCH_SUFFICIENCY_THRESHOLD")
	v.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	v.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	v.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	v.BindEnv("dedup_window", "DEDUP_WINDOW")
	v.BindEnv("log_level", "LOG_LEVEL")

	// 讀取配置文件
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// logger 尚未初始化，改用 fmt.Println
	fmt.Println("Loading configuration",
		"paid_enabled:", v.GetBool("providers.paid.enabled"),
		"paid_api_key:", MaskAPIKey(v.GetString("providers.paid.api_key")),
		"store_driver:", v.GetString("store.driver"),
	)

	// 解析配置
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 驗證配置
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// MaskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "recipe-aggregator")

	// 伺服器設定
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "90s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "60s")
	v.SetDefault("server.max_body_bytes", 1<<20)

	// 免費來源
	v.SetDefault("providers.free.enabled", true)
	v.SetDefault("providers.free.base_url", "https://www.themealdb.com/api/json/v1/1")
	v.SetDefault("providers.free.timeout", "10s")
	v.SetDefault("providers.free.requests_per_second", 3.0)
	v.SetDefault("providers.free.burst", 1)
	v.SetDefault("providers.free.max_detail_fetches", 12)

	// 付費來源
	v.SetDefault("providers.paid.enabled", false)
	v.SetDefault("providers.paid.base_url", "https://api.spoonacular.com")
	v.SetDefault("providers.paid.timeout", "15s")
	v.SetDefault("providers.paid.results_number", 10)
	v.SetDefault("providers.paid.quota_cooldown", "1h")

	// 搜尋設定
	v.SetDefault("search.sufficiency_threshold", 10)
	v.SetDefault("search.max_results", 50)

	// 菜單產生器
	v.SetDefault("generator.call_interval", "300ms")
	v.SetDefault("generator.seed", 0)
	v.SetDefault("generator.top_matches", 3)

	// 快取設定
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_size", 500)
	v.SetDefault("cache.ttl", "6h")
	v.SetDefault("cache.cleanup_interval", "10m")

	// 資料庫
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "data/recipes.db")
	v.SetDefault("store.debug", false)

	// Redis
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "720h")

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 60)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("dedup_window", "2s")
	v.SetDefault("log_level", "info")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	if config.Search.SufficiencyThreshold <= 0 {
		return fmt.Errorf("invalid search sufficiency threshold")
	}

	if config.Providers.Paid.Enabled && config.Providers.Paid.APIKey == "" {
		return fmt.Errorf("paid provider enabled without api key")
	}
	if config.Providers.Free.Enabled && config.Providers.Free.RequestsPerSecond <= 0 {
		return fmt.Errorf("invalid free provider request rate")
	}

	switch config.Store.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported store driver %q", config.Store.Driver)
	}

	if config.Cache.Enabled {
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	if config.RateLimit.Enabled && (config.RateLimit.Requests <= 0 || config.RateLimit.Window <= 0) {
		return fmt.Errorf("invalid rate limit settings")
	}

	return nil
}
