package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Newsflow NewsflowConfig `yaml:"newsflow"`
	Channels ChannelsConfig `yaml:"channels"`
	News     NewsConfig     `yaml:"news"`
	Market   MarketConfig   `yaml:"market"`
	Symbols  SymbolsConfig  `yaml:"symbols"`
	Trading  TradingConfig  `yaml:"trading"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type NewsflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type ChannelsConfig struct {
	RawBuffer int `yaml:"raw_buffer"`
}

type NewsConfig struct {
	FeedURL        string        `yaml:"feed_url"`
	Keepalive      time.Duration `yaml:"keepalive"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	BufferCapacity int           `yaml:"buffer_capacity"`
}

type MarketConfig struct {
	SpotStreamURL    string        `yaml:"spot_stream_url"`
	FuturesStreamURL string        `yaml:"futures_stream_url"`
	Channels         []string      `yaml:"channels"`
	PollInterval     time.Duration `yaml:"poll_interval"`
	TickBuffer       int           `yaml:"tick_buffer"`
	ReconnectDelay   time.Duration `yaml:"reconnect_delay"`
}

type SymbolsConfig struct {
	QuoteAssets       []string `yaml:"quote_assets"`
	RequestsPerSecond int      `yaml:"requests_per_second"`
}

type TradingConfig struct {
	Testnet         bool    `yaml:"testnet"`
	APIKey          string  `yaml:"api_key"`
	APISecret       string  `yaml:"api_secret"`
	DefaultNotional float64 `yaml:"default_notional"`
	DefaultLeverage int     `yaml:"default_leverage"`
}

type MetricsConfig struct {
	CloudWatchEnabled bool   `yaml:"cloudwatch_enabled"`
	Region            string `yaml:"region"`
	Namespace         string `yaml:"namespace"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

// DefaultMarketChannels is the fixed channel set for every market
// subscription: candle closes for the tracked timeframes plus raw trades.
var DefaultMarketChannels = []string{"kline_1m", "kline_5m", "kline_15m", "trade"}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		News: NewsConfig{
			Keepalive:      8 * time.Second,
			ReconnectDelay: 5 * time.Second,
			BufferCapacity: 50,
		},
		Market: MarketConfig{
			Channels:       DefaultMarketChannels,
			PollInterval:   100 * time.Millisecond,
			TickBuffer:     256,
			ReconnectDelay: 5 * time.Second,
		},
		Symbols: SymbolsConfig{
			QuoteAssets:       []string{"USDT", "BUSD"},
			RequestsPerSecond: 5,
		},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Credentials come from the environment when present.
	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		config.Trading.APIKey = strings.TrimSpace(v)
	}
	if v := os.Getenv("BINANCE_API_SECRET"); v != "" {
		config.Trading.APISecret = strings.TrimSpace(v)
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		config.Metrics.Region = strings.TrimSpace(v)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Newsflow.Name == "" {
		return fmt.Errorf("newsflow.name is required")
	}

	if cfg.Newsflow.Version == "" {
		return fmt.Errorf("newsflow.version is required")
	}

	if cfg.Channels.RawBuffer <= 0 {
		return fmt.Errorf("channels.raw_buffer must be greater than 0")
	}

	if cfg.News.FeedURL == "" {
		return fmt.Errorf("news.feed_url is required")
	}
	if !strings.HasPrefix(cfg.News.FeedURL, "wss://") && !strings.HasPrefix(cfg.News.FeedURL, "ws://") {
		return fmt.Errorf("news.feed_url '%s' must be a websocket URL", cfg.News.FeedURL)
	}
	if cfg.News.Keepalive <= 0 {
		return fmt.Errorf("news.keepalive must be greater than 0")
	}
	if cfg.News.ReconnectDelay <= 0 {
		return fmt.Errorf("news.reconnect_delay must be greater than 0")
	}
	if cfg.News.BufferCapacity <= 0 {
		return fmt.Errorf("news.buffer_capacity must be greater than 0")
	}

	if cfg.Market.SpotStreamURL == "" || cfg.Market.FuturesStreamURL == "" {
		return fmt.Errorf("market.spot_stream_url and market.futures_stream_url are required")
	}
	if cfg.Market.PollInterval <= 0 {
		return fmt.Errorf("market.poll_interval must be greater than 0")
	}
	if cfg.Market.TickBuffer <= 0 {
		return fmt.Errorf("market.tick_buffer must be greater than 0")
	}
	if len(cfg.Market.Channels) == 0 {
		return fmt.Errorf("market.channels must not be empty")
	}

	if len(cfg.Symbols.QuoteAssets) == 0 {
		return fmt.Errorf("symbols.quote_assets must not be empty")
	}
	if cfg.Symbols.RequestsPerSecond <= 0 {
		return fmt.Errorf("symbols.requests_per_second must be greater than 0")
	}

	// Plaintext websocket endpoints are only acceptable in development.
	if env := AppEnvironment(); IsProductionLike(env) {
		for name, url := range map[string]string{
			"news.feed_url":             cfg.News.FeedURL,
			"market.spot_stream_url":    cfg.Market.SpotStreamURL,
			"market.futures_stream_url": cfg.Market.FuturesStreamURL,
		} {
			if !strings.HasPrefix(url, "wss://") {
				return fmt.Errorf("%s '%s' must use wss:// in the %s environment", name, url, env)
			}
		}
	}

	return nil
}
