package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/orbs-network/twap-engine/internal/domain"
	"github.com/orbs-network/twap-engine/internal/service"
)

// HistoryHandler serves the order-history endpoints.
type HistoryHandler struct {
	history *service.HistoryService
	orders  domain.OrderStore
	logger  *slog.Logger
}

// NewHistoryHandler creates a HistoryHandler. orders may be nil when the
// process runs without persistence; GetOrder then returns 404 for all ids.
func NewHistoryHandler(history *service.HistoryService, orders domain.OrderStore, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{history: history, orders: orders, logger: logger}
}

// ListOrders rebuilds a maker's order history, partitioned by status.
// GET /api/orders?maker=0x...
func (h *HistoryHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	maker := r.URL.Query().Get("maker")
	if maker == "" {
		writeError(w, http.StatusBadRequest, "maker is required")
		return
	}

	buckets, err := h.history.OrdersFor(r.Context(), maker)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "history rebuild failed",
			slog.String("maker", maker),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "history rebuild failed")
		return
	}

	writeJSON(w, http.StatusOK, buckets)
}

// GetOrder retrieves one stored order with its fill totals.
// GET /api/orders/{id}
func (h *HistoryHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	if h.orders == nil {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	order, err := h.orders.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "get order failed",
			slog.Int64("order_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "get order failed")
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// ListStored lists persisted orders by maker with pagination, serving the
// tracker's database rather than the live indexer.
// GET /api/orders/stored?maker=0x...
func (h *HistoryHandler) ListStored(w http.ResponseWriter, r *http.Request) {
	maker := r.URL.Query().Get("maker")
	if maker == "" {
		writeError(w, http.StatusBadRequest, "maker is required")
		return
	}
	if h.orders == nil {
		writeJSON(w, http.StatusOK, []domain.HistoryOrder{})
		return
	}

	orders, err := h.orders.ListByMaker(r.Context(), maker, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list stored orders failed",
			slog.String("maker", maker),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "list orders failed")
		return
	}
	if orders == nil {
		orders = []domain.HistoryOrder{}
	}

	writeJSON(w, http.StatusOK, orders)
}
