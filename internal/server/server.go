// Package server wires the HTTP API: routes, middleware chain, and the
// WebSocket endpoint.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/orbs-network/twap-engine/internal/domain"
	"github.com/orbs-network/twap-engine/internal/server/handler"
	"github.com/orbs-network/twap-engine/internal/server/middleware"
	"github.com/orbs-network/twap-engine/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// RateLimitPerMinute throttles the quote and order endpoints per client
	// IP. Zero disables throttling.
	RateLimitPerMinute int
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health  *handler.HealthHandler
	Orders  *handler.OrderHandler
	History *handler.HistoryHandler
}

// Server is the headless HTTP + WebSocket API for the TWAP engine.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers all routes on a ServeMux and builds the middleware
// chain (auth, logging, CORS, outermost last). limiter may be nil to run
// without throttling.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required by convention, but the auth middleware
	// wraps everything; operators scraping health should send the key).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// The quote and order-flow endpoints each cost upstream price fetches
	// and RPC calls, so they get a per-client sliding window.
	throttle := middleware.RateLimit(limiter, cfg.RateLimitPerMinute, time.Minute)

	// Quote endpoint: recompute derived values for a draft snapshot.
	mux.Handle("POST /api/quote", throttle(http.HandlerFunc(handlers.Orders.Quote)))

	// Order endpoints.
	mux.Handle("POST /api/orders", throttle(http.HandlerFunc(handlers.Orders.Submit)))
	mux.HandleFunc("GET /api/orders", handlers.History.ListOrders)
	mux.HandleFunc("GET /api/orders/stored", handlers.History.ListStored)
	mux.HandleFunc("GET /api/orders/{id}", handlers.History.GetOrder)
	mux.Handle("DELETE /api/orders/{id}", throttle(http.HandlerFunc(handlers.Orders.Cancel)))

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
