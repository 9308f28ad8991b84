package domain

import (
	"context"
	"io"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// OrderStore persists orders created through this engine.
type OrderStore interface {
	Create(ctx context.Context, order HistoryOrder) error
	UpdateStatus(ctx context.Context, id int64, status OrderStatus) error
	GetByID(ctx context.Context, id int64) (HistoryOrder, error)
	ListByMaker(ctx context.Context, maker string, opts ListOpts) ([]HistoryOrder, error)
	ListByStatus(ctx context.Context, status OrderStatus, opts ListOpts) ([]HistoryOrder, error)
}

// FillStore persists per-order running fill totals.
type FillStore interface {
	UpsertTotals(ctx context.Context, totals RawFillTotals) error
	GetTotals(ctx context.Context, orderID int64) (RawFillTotals, error)
}

// BlobWriter uploads history snapshots to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, body io.Reader, contentType string) error
}
