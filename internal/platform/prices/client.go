// Package prices implements the USD price feed over the DefiLlama coins API.
package prices

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/orbs-network/twap-engine/internal/domain"
)

const defaultBaseURL = "https://coins.llama.fi"

// chainSlugs maps chain ids to the DefiLlama chain identifiers used in the
// coins API path.
var chainSlugs = map[int64]string{
	1:     "ethereum",
	10:    "optimism",
	56:    "bsc",
	137:   "polygon",
	250:   "fantom",
	8453:  "base",
	42161: "arbitrum",
	43114: "avax",
}

// Client fetches spot USD prices from the DefiLlama coins API.
type Client struct {
	baseURL    string
	chainSlug  string
	httpClient *http.Client
}

// NewClient creates a price feed for one chain. baseURL may be empty to use
// the public endpoint.
func NewClient(baseURL string, chainID int64) (*Client, error) {
	slug, ok := chainSlugs[chainID]
	if !ok {
		return nil, fmt.Errorf("prices: unsupported chain id %d", chainID)
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		chainSlug: slug,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

// USDPrice returns the current USD quote for a token. A feed miss returns
// domain.ErrNotFound; transport failures wrap domain.ErrNetwork so callers
// can keep serving the last cached quote.
func (c *Client) USDPrice(ctx context.Context, tokenAddress string) (domain.USDPrice, error) {
	coin := c.chainSlug + ":" + strings.ToLower(tokenAddress)
	url := c.baseURL + "/prices/current/" + coin

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.USDPrice{}, fmt.Errorf("prices: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.USDPrice{}, fmt.Errorf("prices: fetch %s: %v: %w", coin, err, domain.ErrNetwork)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.USDPrice{}, fmt.Errorf("prices: read response: %v: %w", err, domain.ErrNetwork)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.USDPrice{}, fmt.Errorf("prices: HTTP %d for %s: %w", resp.StatusCode, coin, domain.ErrNetwork)
	}

	var decoded struct {
		Coins map[string]struct {
			Price float64 `json:"price"`
		} `json:"coins"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return domain.USDPrice{}, fmt.Errorf("prices: decode response: %w", err)
	}

	entry, ok := decoded.Coins[coin]
	if !ok || entry.Price <= 0 {
		return domain.USDPrice{}, fmt.Errorf("prices: no quote for %s: %w", coin, domain.ErrNotFound)
	}

	return domain.USDPrice{
		Value: strconv.FormatFloat(entry.Price, 'f', -1, 64),
	}, nil
}

// Compile-time interface check.
var _ domain.PriceFeed = (*Client)(nil)
