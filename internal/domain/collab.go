package domain

import (
	"context"
	"time"
)

// USDPrice is one price-feed readout. Loading means the feed has not resolved
// yet; derivations must treat it as "pending", never as zero.
type USDPrice struct {
	Value   string
	Loading bool
}

// PriceFeed supplies USD prices for tokens.
type PriceFeed interface {
	USDPrice(ctx context.Context, tokenAddress string) (USDPrice, error)
}

// BalanceReader supplies wallet balances in base units.
type BalanceReader interface {
	Balance(ctx context.Context, tokenAddress, wallet string) (string, error)
}

// SubmitReceipt is returned by the contract-call collaborator on success.
type SubmitReceipt struct {
	TxHash  string
	OrderID int64
}

// OrderSubmitter is the contract-call collaborator. It accepts the exact
// SubmitParams tuple and runs the sequential wrap -> approve -> create flow.
// Failures map to the typed sentinels ErrUserRejected, ErrReverted, and
// ErrNetwork.
type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, p SubmitParams) (SubmitReceipt, error)
	CancelOrder(ctx context.Context, orderID int64) (txHash string, err error)
}

// Indexer reads raw order-creation and fill records from the subgraph.
type Indexer interface {
	FetchOrders(ctx context.Context, exchanges []string, maker string, first, skip int) ([]RawOrderCreated, error)
	FetchFillTotals(ctx context.Context, orderIDs []int64) ([]RawFillTotals, error)
	FetchStatuses(ctx context.Context, orderIDs []int64) (map[int64]RawStatus, error)
	LatestBlock(ctx context.Context) (int64, error)
}

// PriceCache stores the latest known USD price per token address.
type PriceCache interface {
	SetUSD(ctx context.Context, tokenAddress, value string, ts time.Time) error
	GetUSD(ctx context.Context, tokenAddress string) (value string, ts time.Time, err error)
}

// OptimisticCache holds locally created orders the indexer has not ingested
// yet, keyed by chain id. Delete is idempotent.
type OptimisticCache interface {
	Put(ctx context.Context, chainID int64, order HistoryOrder) error
	List(ctx context.Context, chainID int64) ([]HistoryOrder, error)
	Delete(ctx context.Context, chainID, orderID int64) error
}

// LockManager provides mutual exclusion for the at-most-one in-flight
// submission rule.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// RateLimiter throttles requests per key under a sliding window. Allow
// counts the request when it is permitted.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// SignalBus provides pub/sub fan-out for order lifecycle events.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
