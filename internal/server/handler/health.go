package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// HealthHandler serves the health-check endpoint, including indexing lag.
type HealthHandler struct {
	latestBlock func(ctx context.Context) (int64, error)
	logger      *slog.Logger
}

// NewHealthHandler creates a HealthHandler. latestBlock may be nil when no
// indexer is wired.
func NewHealthHandler(latestBlock func(ctx context.Context) (int64, error), logger *slog.Logger) *HealthHandler {
	return &HealthHandler{latestBlock: latestBlock, logger: logger}
}

// HealthCheck responds with a JSON status and, when available, the latest
// indexed block.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if h.latestBlock != nil {
		block, err := h.latestBlock(r.Context())
		if err != nil {
			h.logger.WarnContext(r.Context(), "health: indexer unreachable",
				slog.String("error", err.Error()),
			)
			resp["indexer"] = "unreachable"
		} else {
			resp["indexer"] = "ok"
			resp["latest_block"] = block
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
