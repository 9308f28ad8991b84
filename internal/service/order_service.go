package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/orbs-network/twap-engine/internal/domain"
	"github.com/orbs-network/twap-engine/internal/twap"
)

// OrdersChannel is the signal-bus channel order lifecycle events are
// published on.
const OrdersChannel = "orders"

// Lifecycle event names.
const (
	EventOrderCreated  = "order_created"
	EventOrderCanceled = "order_canceled"
)

// submitLockTTL caps how long a maker's submission lock can outlive a
// crashed submission.
const submitLockTTL = 5 * time.Minute

// Notifier is the slice of the notification dispatcher the order flow needs.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// OrderService owns the quote and submission flows: it gathers readouts,
// runs the derivation, and drives the sequential on-chain submission with
// the single-submission lock held.
type OrderService struct {
	params     twap.Params
	chainID    int64
	prices     domain.PriceFeed
	balances   domain.BalanceReader
	submitter  domain.OrderSubmitter
	orders     domain.OrderStore
	optimistic domain.OptimisticCache
	locks      domain.LockManager
	bus        domain.SignalBus
	notifier   Notifier
	logger     *slog.Logger

	feeOnTransfer map[string]bool
}

// NewOrderService creates an OrderService. orders and notifier may be nil
// when the process runs without persistence or alerting.
func NewOrderService(
	params twap.Params,
	chainID int64,
	prices domain.PriceFeed,
	balances domain.BalanceReader,
	submitter domain.OrderSubmitter,
	orders domain.OrderStore,
	optimistic domain.OptimisticCache,
	locks domain.LockManager,
	bus domain.SignalBus,
	notifier Notifier,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		params:     params,
		chainID:    chainID,
		prices:     prices,
		balances:   balances,
		submitter:  submitter,
		orders:     orders,
		optimistic: optimistic,
		locks:      locks,
		bus:        bus,
		notifier:   notifier,
		logger:     logger,
	}
}

// WithFeeOnTransferTokens marks token addresses whose transfers take a fee,
// so quotes for them carry the corresponding warning.
func (s *OrderService) WithFeeOnTransferTokens(addrs []string) *OrderService {
	if len(addrs) == 0 {
		return s
	}
	s.feeOnTransfer = make(map[string]bool, len(addrs))
	for _, a := range addrs {
		s.feeOnTransfer[strings.ToLower(a)] = true
	}
	return s
}

// Quote recomputes the full derived-values record for a draft snapshot.
func (s *OrderService) Quote(ctx context.Context, draft domain.OrderDraft) (domain.DerivedOrder, error) {
	r, err := s.readouts(ctx, draft)
	if err != nil {
		return domain.DerivedOrder{}, err
	}
	p := s.params
	if s.feeOnTransfer[strings.ToLower(draft.SrcToken.Address)] ||
		s.feeOnTransfer[strings.ToLower(draft.DstToken.Address)] {
		p.FeeOnTransfer = true
	}
	return twap.Derive(draft, r, p, time.Now()), nil
}

// Submit validates a draft and runs the on-chain submission flow. The
// disclaimer gate and the per-maker submission lock are enforced here, not
// in the transport layer.
func (s *OrderService) Submit(ctx context.Context, draft domain.OrderDraft) (domain.SubmitReceipt, error) {
	if !draft.DisclaimerAccepted {
		return domain.SubmitReceipt{}, fmt.Errorf("order_service: %w", domain.ErrDisclaimer)
	}

	derived, err := s.Quote(ctx, draft)
	if err != nil {
		return domain.SubmitReceipt{}, err
	}
	if derived.State != domain.StateValid || derived.Submit == nil {
		return domain.SubmitReceipt{}, fmt.Errorf("order_service: draft not submittable (%s): %w",
			derived.Invalid, domain.ErrInvalidOrder)
	}

	unlock, err := s.locks.Acquire(ctx, "submit:"+draft.Maker, submitLockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			return domain.SubmitReceipt{}, fmt.Errorf("order_service: %w", domain.ErrSubmissionInFlight)
		}
		return domain.SubmitReceipt{}, fmt.Errorf("order_service: acquire submit lock: %w", err)
	}
	defer unlock()

	receipt, err := s.submitter.SubmitOrder(ctx, *derived.Submit)
	if err != nil {
		return domain.SubmitReceipt{}, fmt.Errorf("order_service: submit: %w", err)
	}

	order := s.buildOptimistic(draft, derived, receipt)

	if s.orders != nil {
		if err := s.orders.Create(ctx, order); err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
			s.logger.ErrorContext(ctx, "order_service: persist order failed",
				slog.Int64("order_id", order.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.optimistic.Put(ctx, s.chainID, order); err != nil {
		s.logger.WarnContext(ctx, "order_service: optimistic cache put failed",
			slog.Int64("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	s.publish(ctx, EventOrderCreated, order.ID, receipt.TxHash, draft.Maker)
	s.notify(ctx, EventOrderCreated, "Order created",
		fmt.Sprintf("Order %d created by %s (%s -> %s, %d chunks)",
			order.ID, draft.Maker, draft.SrcToken.Symbol, draft.DstToken.Symbol, derived.Chunks))

	s.logger.InfoContext(ctx, "order_service: order submitted",
		slog.Int64("order_id", order.ID),
		slog.String("tx", receipt.TxHash),
		slog.String("maker", draft.Maker),
		slog.Int64("chunks", derived.Chunks),
	)

	return receipt, nil
}

// Cancel cancels an open order on chain and records the canceled status.
func (s *OrderService) Cancel(ctx context.Context, orderID int64, maker string) (string, error) {
	unlock, err := s.locks.Acquire(ctx, "submit:"+maker, submitLockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			return "", fmt.Errorf("order_service: %w", domain.ErrSubmissionInFlight)
		}
		return "", fmt.Errorf("order_service: acquire submit lock: %w", err)
	}
	defer unlock()

	txHash, err := s.submitter.CancelOrder(ctx, orderID)
	if err != nil {
		return "", fmt.Errorf("order_service: cancel %d: %w", orderID, err)
	}

	if s.orders != nil {
		if err := s.orders.UpdateStatus(ctx, orderID, domain.StatusCanceled); err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.ErrorContext(ctx, "order_service: record cancel failed",
				slog.Int64("order_id", orderID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.publish(ctx, EventOrderCanceled, orderID, txHash, maker)
	s.notify(ctx, EventOrderCanceled, "Order canceled",
		fmt.Sprintf("Order %d canceled by %s", orderID, maker))

	return txHash, nil
}

// readouts gathers the asynchronous external inputs one derivation needs.
// Feed misses surface as loading readouts so the derivation goes pending.
func (s *OrderService) readouts(ctx context.Context, draft domain.OrderDraft) (twap.Readouts, error) {
	var r twap.Readouts

	if draft.SrcToken.IsZero() || draft.DstToken.IsZero() {
		return r, nil
	}

	srcUSD, err := s.prices.USDPrice(ctx, s.priceAddress(draft.SrcToken))
	if err != nil {
		return r, fmt.Errorf("order_service: src price: %w", err)
	}
	dstUSD, err := s.prices.USDPrice(ctx, s.priceAddress(draft.DstToken))
	if err != nil {
		return r, fmt.Errorf("order_service: dst price: %w", err)
	}
	r.SrcUSD = srcUSD
	r.DstUSD = dstUSD
	r.MarketPrice = marketPrice(srcUSD, dstUSD)

	if draft.Maker != "" {
		balance, err := s.balances.Balance(ctx, draft.SrcToken.Address, draft.Maker)
		if err != nil {
			// A balance that cannot be read keeps the derivation pending
			// rather than failing the whole quote.
			s.logger.WarnContext(ctx, "order_service: balance read failed",
				slog.String("token", draft.SrcToken.Address),
				slog.String("error", err.Error()),
			)
		} else {
			r.SrcBalance = balance
		}
	}

	return r, nil
}

// priceAddress substitutes the wrapped-native address for the native
// placeholder, since feeds quote the wrapped token.
func (s *OrderService) priceAddress(t domain.Token) string {
	if t.IsNative() {
		return s.params.WrappedNative
	}
	return t.Address
}

// marketPrice computes dst per one src from the two USD quotes.
func marketPrice(src, dst domain.USDPrice) string {
	if src.Loading || dst.Loading {
		return ""
	}
	s, err1 := decimal.NewFromString(src.Value)
	d, err2 := decimal.NewFromString(dst.Value)
	if err1 != nil || err2 != nil || d.IsZero() {
		return ""
	}
	return s.DivRound(d, 18).String()
}

// buildOptimistic shapes the just-created order the way the indexer will
// eventually report it, so it can stand in until ingested.
func (s *OrderService) buildOptimistic(draft domain.OrderDraft, derived domain.DerivedOrder, receipt domain.SubmitReceipt) domain.HistoryOrder {
	p := derived.Submit
	return domain.HistoryOrder{
		ID:               receipt.OrderID,
		ChainID:          s.chainID,
		Exchange:         p.Exchange,
		Maker:            draft.Maker,
		SrcTokenAddress:  p.SrcToken,
		DstTokenAddress:  p.DstToken,
		SrcAmount:        p.SrcAmount,
		SrcBidAmount:     p.SrcChunkAmount,
		DstMinAmount:     p.DstMinChunkAmountOut,
		FillDelaySeconds: p.FillDelaySeconds,
		Deadline:         p.Deadline,
		CreatedAt:        time.Now().UTC(),
		TxHash:           receipt.TxHash,
		SrcFilledAmount:  "0",
		DstAmountOut:     "0",
		TotalChunks:      derived.Chunks,
		Progress:         0,
		Status:           domain.StatusOpen,
		Optimistic:       true,
	}
}

func (s *OrderService) publish(ctx context.Context, event string, orderID int64, txHash, maker string) {
	payload, _ := json.Marshal(map[string]any{
		"event":    event,
		"order_id": orderID,
		"tx_hash":  txHash,
		"maker":    maker,
		"ts":       time.Now().UTC().Format(time.RFC3339),
	})
	if err := s.bus.Publish(ctx, OrdersChannel, payload); err != nil {
		s.logger.WarnContext(ctx, "order_service: publish event failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

func (s *OrderService) notify(ctx context.Context, event, title, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event, title, message); err != nil {
		s.logger.WarnContext(ctx, "order_service: notify failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
