package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/orbs-network/twap-engine/internal/domain"
	"github.com/redis/go-redis/v9"
)

// priceTTL bounds how long a USD quote may serve derivations before the feed
// must be consulted again.
const priceTTL = 2 * time.Minute

// PriceCache implements domain.PriceCache using Redis hashes.
// Each token's USD quote is stored at key "twap:price:{address}" with fields
// "usd" and "ts" (Unix nanosecond timestamp).
type PriceCache struct {
	rdb *redis.Client
}

// NewPriceCache creates a PriceCache backed by the given Client.
func NewPriceCache(c *Client) *PriceCache {
	return &PriceCache{rdb: c.Underlying()}
}

func priceKey(tokenAddress string) string {
	return "twap:price:" + strings.ToLower(tokenAddress)
}

// SetUSD stores the latest USD quote and timestamp for a token.
func (pc *PriceCache) SetUSD(ctx context.Context, tokenAddress, value string, ts time.Time) error {
	key := priceKey(tokenAddress)
	fields := map[string]interface{}{
		"usd": value,
		"ts":  strconv.FormatInt(ts.UnixNano(), 10),
	}

	pipe := pc.rdb.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, priceTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set price %s: %w", tokenAddress, err)
	}
	return nil
}

// GetUSD retrieves the latest USD quote and timestamp for a token.
// It returns domain.ErrNotFound when the key does not exist.
func (pc *PriceCache) GetUSD(ctx context.Context, tokenAddress string) (string, time.Time, error) {
	key := priceKey(tokenAddress)
	vals, err := pc.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("redis: get price %s: %w", tokenAddress, err)
	}
	if len(vals) == 0 {
		return "", time.Time{}, domain.ErrNotFound
	}

	value, ok := vals["usd"]
	if !ok || value == "" {
		return "", time.Time{}, domain.ErrNotFound
	}

	tsStr, ok := vals["ts"]
	if !ok {
		return "", time.Time{}, domain.ErrNotFound
	}
	tsNano, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("redis: parse ts %s: %w", tokenAddress, err)
	}

	return value, time.Unix(0, tsNano), nil
}

// Compile-time interface check.
var _ domain.PriceCache = (*PriceCache)(nil)
