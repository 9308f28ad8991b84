package domain

import "time"

// OrderStatus is the derived lifecycle state of a historical order. It is
// computed from progress, raw indexer markers, and the deadline; it is never
// stored authoritatively.
type OrderStatus string

const (
	StatusOpen      OrderStatus = "open"
	StatusCompleted OrderStatus = "completed"
	StatusCanceled  OrderStatus = "canceled"
	StatusExpired   OrderStatus = "expired"
)

// RawStatus is the unprocessed status marker reported by the indexer.
type RawStatus string

const (
	RawStatusNone      RawStatus = ""
	RawStatusOpen      RawStatus = "open"
	RawStatusCompleted RawStatus = "completed"
	RawStatusCanceled  RawStatus = "canceled"
)

// RawOrderCreated is one order-creation record as read from the indexer.
// Amounts are integer base-unit decimal strings.
type RawOrderCreated struct {
	ID               int64
	ChainID          int64
	Exchange         string
	Maker            string
	SrcTokenAddress  string
	DstTokenAddress  string
	SrcAmount        string
	SrcBidAmount     string
	DstMinAmount     string
	FillDelaySeconds int64
	Deadline         int64 // unix seconds
	CreatedAt        int64 // unix seconds
	TxHash           string
}

// RawFillTotals aggregates the fill events of one order into running totals.
type RawFillTotals struct {
	OrderID         int64
	SrcFilledAmount string
	DstAmountOut    string
	LastFillAt      int64 // unix seconds
}

// HistoryOrder is one on-chain order merged with its fills, rebuilt on every
// indexer poll. It is read-only: updates replace the whole value.
type HistoryOrder struct {
	ID               int64     `json:"id"`
	ChainID          int64     `json:"chain_id"`
	Exchange         string    `json:"exchange"`
	Maker            string    `json:"maker"`
	SrcTokenAddress  string    `json:"src_token"`
	DstTokenAddress  string    `json:"dst_token"`
	SrcAmount        string    `json:"src_amount"`
	SrcBidAmount     string    `json:"src_bid_amount"`
	DstMinAmount     string    `json:"dst_min_amount"`
	FillDelaySeconds int64     `json:"fill_delay_seconds"`
	Deadline         time.Time `json:"deadline"`
	CreatedAt        time.Time `json:"created_at"`
	TxHash           string    `json:"tx_hash"`

	SrcFilledAmount string `json:"src_filled_amount"`
	DstAmountOut    string `json:"dst_amount_out"`

	TotalChunks    int64       `json:"total_chunks"`
	Progress       float64     `json:"progress"`
	Status         OrderStatus `json:"status"`
	ExecutionPrice string      `json:"execution_price,omitempty"`
	LimitPrice     string      `json:"limit_price,omitempty"`

	// Optimistic marks a locally created order the indexer has not reported
	// yet.
	Optimistic bool `json:"optimistic,omitempty"`
}

// StatusBuckets partitions orders by derived status. All is the union sorted
// by creation time descending.
type StatusBuckets struct {
	All       []HistoryOrder `json:"all"`
	Open      []HistoryOrder `json:"open"`
	Completed []HistoryOrder `json:"completed"`
	Canceled  []HistoryOrder `json:"canceled"`
	Expired   []HistoryOrder `json:"expired"`
}
