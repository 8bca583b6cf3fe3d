package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Log      Logger   `mapstructure:"logger"`
	API      API      `mapstructure:"api"`
	Binance  Binance  `mapstructure:"binance"`
	Cache    Cache    `mapstructure:"cache"`
	Backtest Backtest `mapstructure:"backtest"`
}

type Logger struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type API struct {
	Port int `mapstructure:"port"`
}

type Binance struct {
	BaseURL             string        `mapstructure:"base_url"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
}

type Cache struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

type Backtest struct {
	FeeRate        float64       `mapstructure:"fee_rate"`
	ResultCacheTTL time.Duration `mapstructure:"result_cache_ttl"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
}

func Load() (*Config, error) {
	// .env is optional; environment variables win either way.
	_ = godotenv.Load()

	viper.SetConfigType("yaml")
	viper.SetConfigName("config")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// Defaults plus environment variables are enough to run.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.encoding", "json")
	viper.SetDefault("api.port", 8080)
	viper.SetDefault("binance.base_url", "https://api.binance.com")
	viper.SetDefault("binance.timeout", "10s")
	viper.SetDefault("binance.max_request_per_minute", 1200)
	viper.SetDefault("cache.default_expiration", "10m")
	viper.SetDefault("cache.cleanup_interval", "15m")
	viper.SetDefault("backtest.fee_rate", 0.001)
	viper.SetDefault("backtest.result_cache_ttl", "30m")
	viper.SetDefault("backtest.max_concurrency", 4)
}
