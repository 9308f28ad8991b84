package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orbs-network/twap-engine/internal/domain"
)

// FillStore implements domain.FillStore using PostgreSQL. Like OrderStore it
// is scoped to one chain.
type FillStore struct {
	pool    *pgxpool.Pool
	chainID int64
}

// NewFillStore creates a new FillStore backed by the given connection pool.
func NewFillStore(pool *pgxpool.Pool, chainID int64) *FillStore {
	return &FillStore{pool: pool, chainID: chainID}
}

// UpsertTotals replaces the running fill totals for an order. Totals are
// monotonically non-decreasing on chain, so a plain overwrite is correct.
func (s *FillStore) UpsertTotals(ctx context.Context, t domain.RawFillTotals) error {
	const query = `
		INSERT INTO order_fills (order_id, chain_id, src_filled_amount, dst_amount_out, last_fill_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (chain_id, order_id) DO UPDATE SET
			src_filled_amount = EXCLUDED.src_filled_amount,
			dst_amount_out = EXCLUDED.dst_amount_out,
			last_fill_at = EXCLUDED.last_fill_at,
			updated_at = NOW()`

	var lastFill *time.Time
	if t.LastFillAt > 0 {
		v := time.Unix(t.LastFillAt, 0).UTC()
		lastFill = &v
	}

	_, err := s.pool.Exec(ctx, query,
		t.OrderID, s.chainID, t.SrcFilledAmount, t.DstAmountOut, lastFill,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert fills %d: %w", t.OrderID, err)
	}
	return nil
}

// GetTotals retrieves the running fill totals for an order.
// It returns domain.ErrNotFound when no fills have been recorded.
func (s *FillStore) GetTotals(ctx context.Context, orderID int64) (domain.RawFillTotals, error) {
	const query = `
		SELECT order_id, src_filled_amount::TEXT, dst_amount_out::TEXT, last_fill_at
		FROM order_fills
		WHERE chain_id = $1 AND order_id = $2`

	var t domain.RawFillTotals
	var lastFill *time.Time
	err := s.pool.QueryRow(ctx, query, s.chainID, orderID).Scan(
		&t.OrderID, &t.SrcFilledAmount, &t.DstAmountOut, &lastFill,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.RawFillTotals{}, domain.ErrNotFound
		}
		return domain.RawFillTotals{}, fmt.Errorf("postgres: get fills %d: %w", orderID, err)
	}

	if lastFill != nil {
		t.LastFillAt = lastFill.Unix()
	}
	return t, nil
}

// Compile-time interface check.
var _ domain.FillStore = (*FillStore)(nil)
