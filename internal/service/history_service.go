package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/orbs-network/twap-engine/internal/domain"
	"github.com/orbs-network/twap-engine/internal/history"
)

// FillsChannel is the signal-bus channel fill-progress events are published
// on.
const FillsChannel = "fills"

// EventOrderCompleted fires when a tracked order's derived status reaches
// completed.
const EventOrderCompleted = "order_completed"

// Archiver is the slice of the blob archival flow the history service needs.
type Archiver interface {
	ArchiveCompleted(ctx context.Context, orders []domain.HistoryOrder, asOf time.Time) (string, error)
}

// HistoryService rebuilds order history from the indexer on demand and, in
// tracking mode, polls it continuously to persist fills and statuses.
type HistoryService struct {
	indexer    domain.Indexer
	optimistic domain.OptimisticCache
	orders     domain.OrderStore
	fills      domain.FillStore
	archiver   Archiver
	bus        domain.SignalBus
	notifier   Notifier

	chainID  int64
	exchange string
	legacy   []string
	policy   history.Policy
	pageSize int
	decimals func(ctx context.Context) history.DecimalsFunc

	logger *slog.Logger
}

// HistoryConfig carries the per-exchange parameters of the history rebuild.
type HistoryConfig struct {
	ChainID  int64
	Exchange string
	Legacy   []string
	Policy   history.Policy
	PageSize int
}

// NewHistoryService creates a HistoryService. orders, fills, archiver, and
// notifier may be nil when the process runs without persistence, archival,
// or alerting.
func NewHistoryService(
	indexer domain.Indexer,
	optimistic domain.OptimisticCache,
	orders domain.OrderStore,
	fills domain.FillStore,
	archiver Archiver,
	bus domain.SignalBus,
	notifier Notifier,
	cfg HistoryConfig,
	decimals func(ctx context.Context) history.DecimalsFunc,
	logger *slog.Logger,
) *HistoryService {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 200
	}
	return &HistoryService{
		indexer:    indexer,
		optimistic: optimistic,
		orders:     orders,
		fills:      fills,
		archiver:   archiver,
		bus:        bus,
		notifier:   notifier,
		chainID:    cfg.ChainID,
		exchange:   cfg.Exchange,
		legacy:     cfg.Legacy,
		policy:     cfg.Policy,
		pageSize:   pageSize,
		decimals:   decimals,
		logger:     logger,
	}
}

// OrdersFor rebuilds a maker's full order history: indexer records merged
// with pending local orders, partitioned by derived status. Optimistic
// entries the indexer now reports are confirmed and dropped from the cache.
func (s *HistoryService) OrdersFor(ctx context.Context, maker string) (domain.StatusBuckets, error) {
	indexed, err := s.rebuild(ctx, maker)
	if err != nil {
		return domain.StatusBuckets{}, err
	}

	pending, err := s.optimistic.List(ctx, s.chainID)
	if err != nil {
		s.logger.WarnContext(ctx, "history_service: optimistic list failed",
			slog.String("error", err.Error()),
		)
		pending = nil
	}
	pending = filterMaker(pending, maker)

	merged, confirmed := history.Merge(indexed, pending)
	for _, id := range confirmed {
		if err := s.optimistic.Delete(ctx, s.chainID, id); err != nil {
			s.logger.WarnContext(ctx, "history_service: optimistic delete failed",
				slog.Int64("order_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	return history.Buckets(merged), nil
}

// rebuild pulls all of a maker's raw records from the indexer and
// reconstructs them against fills and status markers.
func (s *HistoryService) rebuild(ctx context.Context, maker string) ([]domain.HistoryOrder, error) {
	exchanges := append([]string{s.exchange}, s.legacy...)

	var raw []domain.RawOrderCreated
	for skip := 0; ; skip += s.pageSize {
		page, err := s.indexer.FetchOrders(ctx, exchanges, maker, s.pageSize, skip)
		if err != nil {
			return nil, fmt.Errorf("history_service: fetch orders: %w", err)
		}
		raw = append(raw, page...)
		if len(page) < s.pageSize {
			break
		}
	}
	if len(raw) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(raw))
	for i, r := range raw {
		ids[i] = r.ID
	}

	totals, err := s.indexer.FetchFillTotals(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("history_service: fetch fills: %w", err)
	}
	totalsByID := make(map[int64]domain.RawFillTotals, len(totals))
	for _, t := range totals {
		totalsByID[t.OrderID] = t
	}

	statuses, err := s.indexer.FetchStatuses(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("history_service: fetch statuses: %w", err)
	}

	dec := s.decimals(ctx)
	now := time.Now()

	orders := make([]domain.HistoryOrder, 0, len(raw))
	for _, r := range raw {
		orders = append(orders, history.Reconstruct(r, totalsByID[r.ID], statuses[r.ID], dec, s.policy, now))
	}

	return history.FilterByExchange(orders, s.exchange, s.legacy), nil
}

// RunLoop polls the indexer on a ticker and persists fill totals and status
// transitions for every stored open order. It runs until ctx is cancelled.
func (s *HistoryService) RunLoop(ctx context.Context, interval time.Duration) error {
	if s.orders == nil || s.fills == nil {
		return errors.New("history_service: tracking requires the order and fill stores")
	}

	s.logger.Info("history tracking loop starting", slog.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := s.syncOpenOrders(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.ErrorContext(ctx, "history_service: sync failed",
				slog.String("error", err.Error()),
			)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// syncOpenOrders refreshes every stored open order against the indexer:
// fill totals are upserted, derived status transitions are recorded, and
// newly completed orders raise events.
func (s *HistoryService) syncOpenOrders(ctx context.Context) error {
	open, err := s.orders.ListByStatus(ctx, domain.StatusOpen, domain.ListOpts{Limit: 1000})
	if err != nil {
		return fmt.Errorf("list open orders: %w", err)
	}
	if len(open) == 0 {
		return nil
	}

	ids := make([]int64, len(open))
	for i, o := range open {
		ids[i] = o.ID
	}

	totals, err := s.indexer.FetchFillTotals(ctx, ids)
	if err != nil {
		return fmt.Errorf("fetch fills: %w", err)
	}
	totalsByID := make(map[int64]domain.RawFillTotals, len(totals))
	for _, t := range totals {
		totalsByID[t.OrderID] = t
	}

	statuses, err := s.indexer.FetchStatuses(ctx, ids)
	if err != nil {
		return fmt.Errorf("fetch statuses: %w", err)
	}

	now := time.Now()
	for _, o := range open {
		t, hasFills := totalsByID[o.ID]
		if hasFills {
			if err := s.fills.UpsertTotals(ctx, t); err != nil {
				s.logger.ErrorContext(ctx, "history_service: upsert fills failed",
					slog.Int64("order_id", o.ID),
					slog.String("error", err.Error()),
				)
				continue
			}
			if t.SrcFilledAmount != o.SrcFilledAmount {
				s.publishFill(ctx, o.ID, t)
			}
		}

		progress := history.Progress(t.SrcFilledAmount, o.SrcAmount)
		status := history.DeriveStatus(statuses[o.ID], progress, o.Deadline, now, s.policy)
		if status == domain.StatusOpen {
			continue
		}

		if err := s.orders.UpdateStatus(ctx, o.ID, status); err != nil {
			s.logger.ErrorContext(ctx, "history_service: update status failed",
				slog.Int64("order_id", o.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		s.logger.InfoContext(ctx, "history_service: order closed",
			slog.Int64("order_id", o.ID),
			slog.String("status", string(status)),
		)

		if status == domain.StatusCompleted {
			s.notify(ctx, EventOrderCompleted, "Order completed",
				fmt.Sprintf("Order %d fully filled (%s -> %s)", o.ID, o.SrcTokenAddress, o.DstTokenAddress))
		}
	}

	return nil
}

// RunArchiveLoop periodically snapshots completed orders to object storage.
func (s *HistoryService) RunArchiveLoop(ctx context.Context, interval time.Duration) error {
	if s.archiver == nil || s.orders == nil {
		return errors.New("history_service: archival requires the archiver and order store")
	}

	s.logger.Info("history archive loop starting", slog.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		completed, err := s.orders.ListByStatus(ctx, domain.StatusCompleted, domain.ListOpts{Limit: 5000})
		if err != nil {
			s.logger.ErrorContext(ctx, "history_service: list completed failed",
				slog.String("error", err.Error()),
			)
			continue
		}
		if len(completed) == 0 {
			continue
		}

		key, err := s.archiver.ArchiveCompleted(ctx, completed, time.Now().UTC())
		if err != nil {
			s.logger.ErrorContext(ctx, "history_service: archive failed",
				slog.String("error", err.Error()),
			)
			continue
		}

		s.logger.Info("history archived",
			slog.Int("orders", len(completed)),
			slog.String("key", key),
		)
	}
}

func (s *HistoryService) publishFill(ctx context.Context, orderID int64, t domain.RawFillTotals) {
	payload, _ := json.Marshal(map[string]any{
		"event":             "order_filled",
		"order_id":          orderID,
		"src_filled_amount": t.SrcFilledAmount,
		"dst_amount_out":    t.DstAmountOut,
		"last_fill_at":      t.LastFillAt,
	})
	if err := s.bus.Publish(ctx, FillsChannel, payload); err != nil {
		s.logger.WarnContext(ctx, "history_service: publish fill failed",
			slog.Int64("order_id", orderID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *HistoryService) notify(ctx context.Context, event, title, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event, title, message); err != nil {
		s.logger.WarnContext(ctx, "history_service: notify failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

func filterMaker(orders []domain.HistoryOrder, maker string) []domain.HistoryOrder {
	if maker == "" {
		return orders
	}
	out := orders[:0]
	for _, o := range orders {
		if strings.EqualFold(o.Maker, maker) {
			out = append(out, o)
		}
	}
	return out
}
