// Package config defines the top-level configuration for the TWAP engine and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by TWAP_* environment variables.
type Config struct {
	Chain    ChainConfig    `toml:"chain"`
	Exchange ExchangeConfig `toml:"exchange"`
	Engine   EngineConfig   `toml:"engine"`
	Indexer  IndexerConfig  `toml:"indexer"`
	Wallet   WalletConfig   `toml:"wallet"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// ChainConfig holds RPC and chain identity parameters.
type ChainConfig struct {
	ID            int64  `toml:"id"`
	RPCURL        string `toml:"rpc_url"`
	WrappedNative string `toml:"wrapped_native"`
}

// ExchangeConfig holds the per-dapp TWAP exchange deployment parameters.
type ExchangeConfig struct {
	Address                 string   `toml:"address"`
	LegacyAddresses         []string `toml:"legacy_addresses"`
	TWAPVersion             int      `toml:"twap_version"`
	MinChunkSizeUSD         string   `toml:"min_chunk_size_usd"`
	BidDelaySeconds         int64    `toml:"bid_delay_seconds"`
	FeeOnTransferTokens     []string `toml:"fee_on_transfer_tokens"`
}

// EngineConfig holds derivation defaults and bounds.
type EngineConfig struct {
	DefaultFillDelayMinutes int `toml:"default_fill_delay_minutes"`
	MinFillDelaySeconds     int `toml:"min_fill_delay_seconds"`
	MaxFillDelayDays        int `toml:"max_fill_delay_days"`
	PriceTTLSeconds         int `toml:"price_ttl_seconds"`
	HistoryPollSeconds      int `toml:"history_poll_seconds"`
	ArchiveIntervalMinutes  int `toml:"archive_interval_minutes"`
}

// IndexerConfig holds the subgraph endpoint parameters.
type IndexerConfig struct {
	GraphQLURL string `toml:"graphql_url"`
	APIKey     string `toml:"api_key"`
	PageSize   int    `toml:"page_size"`
}

// WalletConfig holds the submitter key material.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for history
// archival.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ServerConfig holds the HTTP API parameters.
type ServerConfig struct {
	Port               int      `toml:"port"`
	CORSOrigins        []string `toml:"cors_origins"`
	APIKey             string   `toml:"api_key"`
	RateLimitPerMinute int      `toml:"rate_limit_per_minute"`
}

// NotifyConfig holds notification channel parameters.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns the built-in configuration a TOML file is merged over.
func Defaults() Config {
	return Config{
		Chain: ChainConfig{
			ID: 137,
		},
		Exchange: ExchangeConfig{
			MinChunkSizeUSD: "50",
			BidDelaySeconds: 60,
			TWAPVersion:     4,
		},
		Engine: EngineConfig{
			DefaultFillDelayMinutes: 5,
			MinFillDelaySeconds:     60,
			MaxFillDelayDays:        30,
			PriceTTLSeconds:         30,
			HistoryPollSeconds:      30,
			ArchiveIntervalMinutes:  60,
		},
		Indexer: IndexerConfig{
			PageSize: 200,
		},
		Postgres: PostgresConfig{
			Port:         5432,
			SSLMode:      "disable",
			PoolMaxConns: 8,
			PoolMinConns: 2,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 8,
		},
		Server: ServerConfig{
			Port:               8080,
			RateLimitPerMinute: 120,
		},
		Mode:     "serve",
		LogLevel: "info",
	}
}

// DefaultFillDelay returns the configured default per-chunk delay.
func (c EngineConfig) DefaultFillDelay() time.Duration {
	return time.Duration(c.DefaultFillDelayMinutes) * time.Minute
}

// MinFillDelay returns the configured lower fill-delay bound.
func (c EngineConfig) MinFillDelay() time.Duration {
	return time.Duration(c.MinFillDelaySeconds) * time.Second
}

// MaxFillDelay returns the configured upper fill-delay bound.
func (c EngineConfig) MaxFillDelay() time.Duration {
	return time.Duration(c.MaxFillDelayDays) * 24 * time.Hour
}

// Validate checks the configuration for the selected mode and returns a
// descriptive error on the first problem found.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Mode) {
	case "serve", "track", "full":
	default:
		return fmt.Errorf("config: unsupported mode %q", c.Mode)
	}

	if c.Chain.ID <= 0 {
		return fmt.Errorf("config: chain.id must be positive")
	}
	if c.Exchange.Address == "" {
		return fmt.Errorf("config: exchange.address is required")
	}
	if c.Exchange.BidDelaySeconds <= 0 {
		return fmt.Errorf("config: exchange.bid_delay_seconds must be positive")
	}
	if c.Exchange.MinChunkSizeUSD == "" {
		return fmt.Errorf("config: exchange.min_chunk_size_usd is required")
	}
	if c.Indexer.GraphQLURL == "" {
		return fmt.Errorf("config: indexer.graphql_url is required")
	}
	if c.Engine.MinFillDelaySeconds <= 0 {
		return fmt.Errorf("config: engine.min_fill_delay_seconds must be positive")
	}
	if c.Engine.MaxFillDelay() <= c.Engine.MinFillDelay() {
		return fmt.Errorf("config: engine fill-delay bounds are inverted")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	if c.Chain.RPCURL == "" {
		return fmt.Errorf("config: chain.rpc_url is required")
	}

	mode := strings.ToLower(c.Mode)
	if mode == "serve" || mode == "full" {
		if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
			return fmt.Errorf("config: mode %q requires wallet.private_key or wallet.encrypted_key_path", c.Mode)
		}
	}
	if mode == "track" || mode == "full" {
		if c.Postgres.DSN == "" && c.Postgres.Host == "" {
			return fmt.Errorf("config: mode %q requires postgres connection settings", c.Mode)
		}
	}
	return nil
}
