package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies TWAP_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known TWAP_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Chain.RPCURL, "TWAP_CHAIN_RPC_URL")
	setInt64(&cfg.Chain.ID, "TWAP_CHAIN_ID")

	setStr(&cfg.Exchange.Address, "TWAP_EXCHANGE_ADDRESS")

	setStr(&cfg.Indexer.GraphQLURL, "TWAP_INDEXER_GRAPHQL_URL")
	setStr(&cfg.Indexer.APIKey, "TWAP_INDEXER_API_KEY")

	setStr(&cfg.Wallet.PrivateKey, "TWAP_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "TWAP_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "TWAP_WALLET_KEY_PASSWORD")

	setStr(&cfg.Postgres.DSN, "TWAP_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "TWAP_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "TWAP_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "TWAP_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "TWAP_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "TWAP_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "TWAP_POSTGRES_SSLMODE")
	setBool(&cfg.Postgres.RunMigrations, "TWAP_POSTGRES_RUN_MIGRATIONS")

	setStr(&cfg.Redis.Addr, "TWAP_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "TWAP_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "TWAP_REDIS_DB")
	setBool(&cfg.Redis.TLSEnabled, "TWAP_REDIS_TLS_ENABLED")

	setStr(&cfg.S3.Endpoint, "TWAP_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "TWAP_S3_REGION")
	setStr(&cfg.S3.Bucket, "TWAP_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "TWAP_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "TWAP_S3_SECRET_KEY")

	setInt(&cfg.Server.Port, "TWAP_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "TWAP_SERVER_API_KEY")

	setStr(&cfg.Notify.TelegramToken, "TWAP_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "TWAP_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "TWAP_NOTIFY_DISCORD_WEBHOOK_URL")

	setStr(&cfg.Mode, "TWAP_MODE")
	setStr(&cfg.LogLevel, "TWAP_LOG_LEVEL")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
