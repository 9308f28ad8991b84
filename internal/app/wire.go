package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"

	s3blob "github.com/orbs-network/twap-engine/internal/blob/s3"
	"github.com/orbs-network/twap-engine/internal/cache/redis"
	"github.com/orbs-network/twap-engine/internal/config"
	"github.com/orbs-network/twap-engine/internal/domain"
	"github.com/orbs-network/twap-engine/internal/notify"
	"github.com/orbs-network/twap-engine/internal/platform/chain"
	"github.com/orbs-network/twap-engine/internal/platform/prices"
	"github.com/orbs-network/twap-engine/internal/platform/subgraph"
	"github.com/orbs-network/twap-engine/internal/service"
	"github.com/orbs-network/twap-engine/internal/store/postgres"
)

// Dependencies bundles every platform-level collaborator the services need.
// They are constructed by Wire and torn down by the returned cleanup
// function. Fields are nil when the selected mode does not need them.
type Dependencies struct {
	OrderStore domain.OrderStore
	FillStore  domain.FillStore

	PriceCache      domain.PriceCache
	OptimisticCache domain.OptimisticCache
	LockManager     domain.LockManager
	RateLimiter     domain.RateLimiter
	SignalBus       domain.SignalBus

	Indexer   domain.Indexer
	Submitter *chain.Submitter
	Balances  domain.BalanceReader
	Decimals  *chain.DecimalsResolver

	PriceFeed domain.PriceFeed

	BlobWriter domain.BlobWriter
	Archiver   *s3blob.HistoryArchiver

	Notifier *notify.Notifier
}

// needsPostgres reports whether the mode persists orders and fills.
func needsPostgres(mode string) bool {
	switch strings.ToLower(mode) {
	case "track", "full":
		return true
	default:
		return false
	}
}

// needsS3 reports whether the mode runs the history archive loop.
func needsS3(mode string) bool {
	return needsPostgres(mode)
}

// needsWallet reports whether the mode submits transactions.
func needsWallet(mode string) bool {
	switch strings.ToLower(mode) {
	case "serve", "full":
		return true
	default:
		return false
	}
}

// Wire constructs all external dependencies for the given configuration. It
// returns the dependency bundle and a cleanup function that closes
// connections in reverse construction order. On error the partially wired
// resources are already released.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	deps := &Dependencies{}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// --- Postgres ---
	if needsPostgres(cfg.Mode) {
		pg, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pg.Close)

		if cfg.Postgres.RunMigrations {
			if err := pg.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: migrations: %w", err)
			}
		}

		deps.OrderStore = postgres.NewOrderStore(pg.Pool(), cfg.Chain.ID)
		deps.FillStore = postgres.NewFillStore(pg.Pool(), cfg.Chain.ID)
	}

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.PriceCache = redis.NewPriceCache(redisClient)
	deps.OptimisticCache = redis.NewOptimisticCache(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	// --- Indexer ---
	deps.Indexer = subgraph.NewClient(cfg.Indexer.GraphQLURL, cfg.Indexer.APIKey, cfg.Chain.ID)

	// --- Price feed (DefiLlama behind the Redis cache) ---
	feed, err := prices.NewClient("", cfg.Chain.ID)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: price feed: %w", err)
	}
	priceTTL := time.Duration(cfg.Engine.PriceTTLSeconds) * time.Second
	deps.PriceFeed = service.NewPriceService(feed, deps.PriceCache, priceTTL, logger)

	// --- Chain access ---
	// The submitter owns the RPC connection in wallet modes; read-only modes
	// dial their own.
	var ethClient *ethclient.Client
	if needsWallet(cfg.Mode) {
		key, err := chain.LoadKey(chain.KeyConfig{
			RawPrivateKey:    cfg.Wallet.PrivateKey,
			EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
			KeyPassword:      cfg.Wallet.KeyPassword,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: wallet key: %w", err)
		}
		submitter, err := chain.NewSubmitter(ctx, chain.SubmitterConfig{
			RPCURL:          cfg.Chain.RPCURL,
			ChainID:         cfg.Chain.ID,
			TWAPAddress:     cfg.Exchange.Address,
			WrappedNative:   cfg.Chain.WrappedNative,
			BidDelaySeconds: cfg.Exchange.BidDelaySeconds,
		}, key, logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: submitter: %w", err)
		}
		closers = append(closers, submitter.Close)
		deps.Submitter = submitter
		ethClient = submitter.Client()
	} else {
		ethClient, err = ethclient.DialContext(ctx, cfg.Chain.RPCURL)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: dial rpc: %w", err)
		}
		closers = append(closers, ethClient.Close)
	}

	deps.Balances, err = chain.NewBalanceReader(ethClient)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: balance reader: %w", err)
	}
	deps.Decimals, err = chain.NewDecimalsResolver(ethClient)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: decimals resolver: %w", err)
	}

	// --- S3 blob storage ---
	if needsS3(cfg.Mode) && cfg.S3.Bucket != "" {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.Archiver = s3blob.NewHistoryArchiver(deps.BlobWriter, cfg.Chain.ID)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
