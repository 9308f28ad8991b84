package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/orbs-network/twap-engine/internal/domain"
	"github.com/orbs-network/twap-engine/internal/service"
)

// OrderHandler serves the quote, submission, and cancel endpoints.
type OrderHandler struct {
	orders *service.OrderService
	logger *slog.Logger
}

// NewOrderHandler creates an OrderHandler.
func NewOrderHandler(orders *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, logger: logger}
}

// Quote recomputes the derived-values record for a draft snapshot.
// POST /api/quote
func (h *OrderHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var draft domain.OrderDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, "invalid draft payload")
		return
	}

	derived, err := h.orders.Quote(r.Context(), draft)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "quote failed", slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "quote failed")
		return
	}

	writeJSON(w, http.StatusOK, derived)
}

// Submit validates a draft and runs the on-chain submission flow.
// POST /api/orders
func (h *OrderHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var draft domain.OrderDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, "invalid draft payload")
		return
	}

	receipt, err := h.orders.Submit(r.Context(), draft)
	if err != nil {
		h.writeSubmitError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, receipt)
}

// Cancel cancels an open order.
// DELETE /api/orders/{id}
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	maker := r.URL.Query().Get("maker")
	if maker == "" {
		writeError(w, http.StatusBadRequest, "maker is required")
		return
	}

	txHash, err := h.orders.Cancel(r.Context(), id, maker)
	if err != nil {
		h.writeSubmitError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"tx_hash": txHash})
}

// writeSubmitError maps the typed submission errors onto HTTP statuses.
func (h *OrderHandler) writeSubmitError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrDisclaimer):
		writeError(w, http.StatusPreconditionFailed, "disclaimer not accepted")
	case errors.Is(err, domain.ErrInvalidOrder):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrSubmissionInFlight):
		writeError(w, http.StatusConflict, "a submission is already in flight")
	case errors.Is(err, domain.ErrUserRejected):
		writeError(w, http.StatusBadRequest, "submission aborted")
	case errors.Is(err, domain.ErrReverted):
		writeError(w, http.StatusUnprocessableEntity, "transaction reverted")
	case errors.Is(err, domain.ErrNetwork):
		writeError(w, http.StatusBadGateway, "chain unreachable")
	default:
		h.logger.ErrorContext(r.Context(), "submission failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "submission failed")
	}
}
