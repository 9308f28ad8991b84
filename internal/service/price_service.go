// Package service coordinates the derivation engine, the chain and indexer
// collaborators, and the stores behind the API surface.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/orbs-network/twap-engine/internal/domain"
)

// PriceService serves USD quotes to derivations. It reads the Redis cache
// first and falls through to the upstream feed, collapsing concurrent
// fetches for the same token into one upstream call.
type PriceService struct {
	feed   domain.PriceFeed
	cache  domain.PriceCache
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

// NewPriceService creates a PriceService. ttl bounds how long a cached quote
// may serve before the feed is consulted again.
func NewPriceService(feed domain.PriceFeed, cache domain.PriceCache, ttl time.Duration, logger *slog.Logger) *PriceService {
	return &PriceService{
		feed:   feed,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

// USDPrice returns the current USD quote for a token. A quote that cannot be
// resolved yet is reported as loading so derivations go pending instead of
// computing against zero.
func (s *PriceService) USDPrice(ctx context.Context, tokenAddress string) (domain.USDPrice, error) {
	value, ts, err := s.cache.GetUSD(ctx, tokenAddress)
	if err == nil && time.Since(ts) < s.ttl {
		return domain.USDPrice{Value: value}, nil
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.WarnContext(ctx, "price_service: cache read failed",
			slog.String("token", tokenAddress),
			slog.String("error", err.Error()),
		)
	}

	fresh, fetchErr, _ := s.group.Do(tokenAddress, func() (any, error) {
		p, err := s.feed.USDPrice(ctx, tokenAddress)
		if err != nil {
			return domain.USDPrice{}, err
		}
		if cacheErr := s.cache.SetUSD(ctx, tokenAddress, p.Value, time.Now()); cacheErr != nil {
			s.logger.WarnContext(ctx, "price_service: cache write failed",
				slog.String("token", tokenAddress),
				slog.String("error", cacheErr.Error()),
			)
		}
		return p, nil
	})
	if fetchErr != nil {
		// Serve the stale cached quote over failing the derivation outright.
		if err == nil && value != "" {
			s.logger.WarnContext(ctx, "price_service: feed failed, serving stale quote",
				slog.String("token", tokenAddress),
				slog.String("error", fetchErr.Error()),
			)
			return domain.USDPrice{Value: value}, nil
		}
		if errors.Is(fetchErr, domain.ErrNetwork) {
			return domain.USDPrice{Loading: true}, nil
		}
		return domain.USDPrice{}, fmt.Errorf("price_service: quote %s: %w", tokenAddress, fetchErr)
	}

	return fresh.(domain.USDPrice), nil
}

// Compile-time interface check.
var _ domain.PriceFeed = (*PriceService)(nil)
