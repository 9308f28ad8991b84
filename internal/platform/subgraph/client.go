// Package subgraph implements the indexer collaborator as a GraphQL client
// for the TWAP subgraph, used to query order creations, aggregated fills, and
// raw status markers.
package subgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/orbs-network/twap-engine/internal/domain"
)

// Client is a GraphQL client for the TWAP subgraph indexer.
type Client struct {
	graphqlURL string
	apiKey     string
	chainID    int64
	httpClient *http.Client
}

// NewClient creates a new subgraph client for one chain's endpoint, e.g.
// "https://hub.orbs.network/subgraphs/twap-polygon".
func NewClient(graphqlURL, apiKey string, chainID int64) *Client {
	return &Client{
		graphqlURL: graphqlURL,
		apiKey:     strings.TrimSpace(apiKey),
		chainID:    chainID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// graphqlRequest is the standard GraphQL request envelope.
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// graphqlResponse is the standard GraphQL response envelope.
type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// FetchOrders queries order-creation records for a maker across the given
// exchange contracts, most recent first, paginated with first/skip.
func (c *Client) FetchOrders(ctx context.Context, exchanges []string, maker string, first, skip int) ([]domain.RawOrderCreated, error) {
	query := `
		query Orders($exchanges: [String!]!, $maker: String!, $first: Int!, $skip: Int!) {
			orderCreateds(
				first: $first
				skip: $skip
				orderBy: timestamp
				orderDirection: desc
				where: { exchange_in: $exchanges, maker: $maker }
			) {
				Contract_id
				exchange
				maker
				ask_srcToken
				ask_dstToken
				ask_srcAmount
				ask_srcBidAmount
				ask_dstMinAmount
				ask_fillDelay
				ask_deadline
				timestamp
				transactionHash
			}
		}
	`

	lowered := make([]string, len(exchanges))
	for i, e := range exchanges {
		lowered[i] = strings.ToLower(e)
	}
	variables := map[string]any{
		"exchanges": lowered,
		"maker":     strings.ToLower(maker),
		"first":     first,
		"skip":      skip,
	}

	respData, err := c.doQuery(ctx, query, variables)
	if err != nil {
		return nil, fmt.Errorf("subgraph: fetch orders: %w", err)
	}

	var result struct {
		OrderCreateds []struct {
			ContractID      string `json:"Contract_id"`
			Exchange        string `json:"exchange"`
			Maker           string `json:"maker"`
			AskSrcToken     string `json:"ask_srcToken"`
			AskDstToken     string `json:"ask_dstToken"`
			AskSrcAmount    string `json:"ask_srcAmount"`
			AskSrcBidAmount string `json:"ask_srcBidAmount"`
			AskDstMinAmount string `json:"ask_dstMinAmount"`
			AskFillDelay    string `json:"ask_fillDelay"`
			AskDeadline     string `json:"ask_deadline"`
			Timestamp       string `json:"timestamp"`
			TransactionHash string `json:"transactionHash"`
		} `json:"orderCreateds"`
	}
	if err := json.Unmarshal(respData, &result); err != nil {
		return nil, fmt.Errorf("subgraph: decode orders: %w", err)
	}

	orders := make([]domain.RawOrderCreated, 0, len(result.OrderCreateds))
	for _, e := range result.OrderCreateds {
		orders = append(orders, domain.RawOrderCreated{
			ID:               parseInt(e.ContractID),
			ChainID:          c.chainID,
			Exchange:         e.Exchange,
			Maker:            e.Maker,
			SrcTokenAddress:  e.AskSrcToken,
			DstTokenAddress:  e.AskDstToken,
			SrcAmount:        e.AskSrcAmount,
			SrcBidAmount:     e.AskSrcBidAmount,
			DstMinAmount:     e.AskDstMinAmount,
			FillDelaySeconds: parseInt(e.AskFillDelay),
			Deadline:         parseInt(e.AskDeadline),
			CreatedAt:        parseInt(e.Timestamp),
			TxHash:           e.TransactionHash,
		})
	}
	return orders, nil
}

// FetchFillTotals queries the aggregated fill totals for the given order ids.
func (c *Client) FetchFillTotals(ctx context.Context, orderIDs []int64) ([]domain.RawFillTotals, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}

	query := `
		query Fills($ids: [BigInt!]!) {
			orderFilleds(first: 1000, where: { TWAP_id_in: $ids }) {
				TWAP_id
				srcAmountIn
				dstAmountOut
				timestamp
			}
		}
	`
	variables := map[string]any{"ids": idStrings(orderIDs)}

	respData, err := c.doQuery(ctx, query, variables)
	if err != nil {
		return nil, fmt.Errorf("subgraph: fetch fills: %w", err)
	}

	var result struct {
		OrderFilleds []struct {
			TWAPID       string `json:"TWAP_id"`
			SrcAmountIn  string `json:"srcAmountIn"`
			DstAmountOut string `json:"dstAmountOut"`
			Timestamp    string `json:"timestamp"`
		} `json:"orderFilleds"`
	}
	if err := json.Unmarshal(respData, &result); err != nil {
		return nil, fmt.Errorf("subgraph: decode fills: %w", err)
	}

	// The subgraph reports individual fill events; accumulate running totals
	// per order the same way the indexer's own aggregation does.
	byOrder := make(map[int64]*domain.RawFillTotals)
	for _, e := range result.OrderFilleds {
		id := parseInt(e.TWAPID)
		t, ok := byOrder[id]
		if !ok {
			t = &domain.RawFillTotals{OrderID: id, SrcFilledAmount: "0", DstAmountOut: "0"}
			byOrder[id] = t
		}
		t.SrcFilledAmount = addInt(t.SrcFilledAmount, e.SrcAmountIn)
		t.DstAmountOut = addInt(t.DstAmountOut, e.DstAmountOut)
		if ts := parseInt(e.Timestamp); ts > t.LastFillAt {
			t.LastFillAt = ts
		}
	}

	totals := make([]domain.RawFillTotals, 0, len(byOrder))
	for _, t := range byOrder {
		totals = append(totals, *t)
	}
	return totals, nil
}

// FetchStatuses queries raw canceled/completed markers for the given order
// ids. Orders without a marker are omitted from the result map.
func (c *Client) FetchStatuses(ctx context.Context, orderIDs []int64) (map[int64]domain.RawStatus, error) {
	if len(orderIDs) == 0 {
		return map[int64]domain.RawStatus{}, nil
	}

	query := `
		query Statuses($ids: [BigInt!]!) {
			statuses(first: 1000, where: { TWAP_id_in: $ids }) {
				TWAP_id
				status
			}
		}
	`
	variables := map[string]any{"ids": idStrings(orderIDs)}

	respData, err := c.doQuery(ctx, query, variables)
	if err != nil {
		return nil, fmt.Errorf("subgraph: fetch statuses: %w", err)
	}

	var result struct {
		Statuses []struct {
			TWAPID string `json:"TWAP_id"`
			Status string `json:"status"`
		} `json:"statuses"`
	}
	if err := json.Unmarshal(respData, &result); err != nil {
		return nil, fmt.Errorf("subgraph: decode statuses: %w", err)
	}

	statuses := make(map[int64]domain.RawStatus, len(result.Statuses))
	for _, e := range result.Statuses {
		switch strings.ToLower(e.Status) {
		case "canceled", "cancelled":
			statuses[parseInt(e.TWAPID)] = domain.RawStatusCanceled
		case "completed":
			statuses[parseInt(e.TWAPID)] = domain.RawStatusCompleted
		case "open":
			statuses[parseInt(e.TWAPID)] = domain.RawStatusOpen
		}
	}
	return statuses, nil
}

// LatestBlock returns the latest block number indexed by the subgraph. This
// is useful for monitoring indexing lag.
func (c *Client) LatestBlock(ctx context.Context) (int64, error) {
	query := `
		query LatestBlock {
			_meta {
				block {
					number
				}
			}
		}
	`

	respData, err := c.doQuery(ctx, query, nil)
	if err != nil {
		return 0, fmt.Errorf("subgraph: fetch latest block: %w", err)
	}

	var result struct {
		Meta struct {
			Block struct {
				Number int64 `json:"number"`
			} `json:"block"`
		} `json:"_meta"`
	}
	if err := json.Unmarshal(respData, &result); err != nil {
		return 0, fmt.Errorf("subgraph: decode latest block: %w", err)
	}
	return result.Meta.Block.Number, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doQuery executes a GraphQL query against the subgraph endpoint and returns
// the raw "data" field from the response.
func (c *Client) doQuery(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	reqBody := graphqlRequest{
		Query:     query,
		Variables: variables,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var gqlResp graphqlResponse
	if err := json.Unmarshal(body, &gqlResp); err != nil {
		return nil, fmt.Errorf("decode graphql response: %w", err)
	}

	if len(gqlResp.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %s", gqlResp.Errors[0].Message)
	}

	return gqlResp.Data, nil
}

// addInt adds two base-unit amounts expressed as decimal strings. Unparsable
// operands count as zero.
func addInt(a, b string) string {
	x, ok := new(big.Int).SetString(strings.TrimSpace(a), 10)
	if !ok {
		x = big.NewInt(0)
	}
	y, ok := new(big.Int).SetString(strings.TrimSpace(b), 10)
	if !ok {
		y = big.NewInt(0)
	}
	return x.Add(x, y).String()
}

func parseInt(s string) int64 {
	n, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return n
}

func idStrings(ids []int64) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = strconv.FormatInt(id, 10)
	}
	return out
}

// Compile-time interface check.
var _ domain.Indexer = (*Client)(nil)
