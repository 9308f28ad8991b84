package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orbs-network/twap-engine/internal/domain"
)

// OrderStore implements domain.OrderStore using PostgreSQL. Each store is
// scoped to one chain; order ids are only unique per chain.
type OrderStore struct {
	pool    *pgxpool.Pool
	chainID int64
}

// NewOrderStore creates a new OrderStore backed by the given connection pool.
func NewOrderStore(pool *pgxpool.Pool, chainID int64) *OrderStore {
	return &OrderStore{pool: pool, chainID: chainID}
}

// Create inserts a new order. Re-inserting an existing id returns
// domain.ErrAlreadyExists.
func (s *OrderStore) Create(ctx context.Context, o domain.HistoryOrder) error {
	const query = `
		INSERT INTO orders (
			id, chain_id, exchange, maker, src_token, dst_token,
			src_amount, src_bid_amount, dst_min_amount,
			fill_delay_seconds, deadline, tx_hash, total_chunks,
			status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9,
			$10, $11, $12, $13,
			$14, $15, NOW()
		)
		ON CONFLICT (chain_id, id) DO NOTHING`

	tag, err := s.pool.Exec(ctx, query,
		o.ID, s.chainID, o.Exchange, o.Maker, o.SrcTokenAddress, o.DstTokenAddress,
		o.SrcAmount, o.SrcBidAmount, o.DstMinAmount,
		o.FillDelaySeconds, o.Deadline, o.TxHash, o.TotalChunks,
		string(o.Status), o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create order %d: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

// UpdateStatus changes the stored status of an existing order.
func (s *OrderStore) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error {
	const query = `UPDATE orders SET status = $1, updated_at = NOW() WHERE chain_id = $2 AND id = $3`

	tag, err := s.pool.Exec(ctx, query, string(status), s.chainID, id)
	if err != nil {
		return fmt.Errorf("postgres: update order status %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// orderSelectCols lists the columns selected when reading orders, including
// the joined fill totals.
const orderSelectCols = `
	o.id, o.chain_id, o.exchange, o.maker, o.src_token, o.dst_token,
	o.src_amount::TEXT, o.src_bid_amount::TEXT, o.dst_min_amount::TEXT,
	o.fill_delay_seconds, o.deadline, o.tx_hash, o.total_chunks,
	o.status, o.created_at,
	COALESCE(f.src_filled_amount, 0)::TEXT, COALESCE(f.dst_amount_out, 0)::TEXT`

const orderFrom = `
	FROM orders o
	LEFT JOIN order_fills f ON f.chain_id = o.chain_id AND f.order_id = o.id`

func scanOrder(scanner interface{ Scan(dest ...any) error }) (domain.HistoryOrder, error) {
	var o domain.HistoryOrder
	var status string

	err := scanner.Scan(
		&o.ID, &o.ChainID, &o.Exchange, &o.Maker, &o.SrcTokenAddress, &o.DstTokenAddress,
		&o.SrcAmount, &o.SrcBidAmount, &o.DstMinAmount,
		&o.FillDelaySeconds, &o.Deadline, &o.TxHash, &o.TotalChunks,
		&status, &o.CreatedAt,
		&o.SrcFilledAmount, &o.DstAmountOut,
	)
	if err != nil {
		return domain.HistoryOrder{}, err
	}

	o.Status = domain.OrderStatus(status)
	return o, nil
}

// GetByID retrieves a single order with its fill totals.
// It returns domain.ErrNotFound when no row exists.
func (s *OrderStore) GetByID(ctx context.Context, id int64) (domain.HistoryOrder, error) {
	query := `SELECT` + orderSelectCols + orderFrom + ` WHERE o.chain_id = $1 AND o.id = $2`

	o, err := scanOrder(s.pool.QueryRow(ctx, query, s.chainID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.HistoryOrder{}, domain.ErrNotFound
		}
		return domain.HistoryOrder{}, fmt.Errorf("postgres: get order %d: %w", id, err)
	}
	return o, nil
}

// ListByMaker returns a maker's orders, most recent first.
func (s *OrderStore) ListByMaker(ctx context.Context, maker string, opts domain.ListOpts) ([]domain.HistoryOrder, error) {
	query := `SELECT` + orderSelectCols + orderFrom + `
		WHERE o.chain_id = $1 AND LOWER(o.maker) = LOWER($2)`
	args := []any{s.chainID, maker}
	query, args = applyListOpts(query, args, opts, "o.created_at")

	return s.queryOrders(ctx, query, args)
}

// ListByStatus returns orders with the given stored status, most recent first.
func (s *OrderStore) ListByStatus(ctx context.Context, status domain.OrderStatus, opts domain.ListOpts) ([]domain.HistoryOrder, error) {
	query := `SELECT` + orderSelectCols + orderFrom + `
		WHERE o.chain_id = $1 AND o.status = $2`
	args := []any{s.chainID, string(status)}
	query, args = applyListOpts(query, args, opts, "o.created_at")

	return s.queryOrders(ctx, query, args)
}

func (s *OrderStore) queryOrders(ctx context.Context, query string, args []any) ([]domain.HistoryOrder, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.HistoryOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list orders: %w", err)
	}
	return orders, nil
}

// applyListOpts appends time-window filters, ordering, and pagination to a
// list query. timeCol must be a trusted column reference, never user input.
func applyListOpts(query string, args []any, opts domain.ListOpts, timeCol string) (string, []any) {
	if opts.Since != nil {
		args = append(args, *opts.Since)
		query += fmt.Sprintf(" AND %s >= $%d", timeCol, len(args))
	}
	if opts.Until != nil {
		args = append(args, *opts.Until)
		query += fmt.Sprintf(" AND %s < $%d", timeCol, len(args))
	}

	query += fmt.Sprintf(" ORDER BY %s DESC", timeCol)

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}

// Compile-time interface check.
var _ domain.OrderStore = (*OrderStore)(nil)
