package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/orbs-network/twap-engine/internal/server"
	"github.com/orbs-network/twap-engine/internal/server/handler"
	"github.com/orbs-network/twap-engine/internal/server/ws"
	"github.com/orbs-network/twap-engine/internal/service"
	"github.com/orbs-network/twap-engine/internal/twap"
)

// ServeMode runs the HTTP API and WebSocket hub: quote, submit, cancel, and
// on-demand history rebuilds. No persistence loops run in this mode.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)

	orderSvc := a.buildOrderService(deps)
	historySvc := a.buildHistoryService(deps)
	a.startHTTPServer(ctx, g, deps, orderSvc, historySvc)

	return g.Wait()
}

// TrackMode runs the indexer polling loop that persists fill totals and
// derived statuses, plus the periodic archive snapshot when object storage
// is configured. No HTTP API is exposed.
func (a *App) TrackMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting track mode")

	g, ctx := errgroup.WithContext(ctx)

	historySvc := a.buildHistoryService(deps)
	a.startTrackingLoops(ctx, g, deps, historySvc)

	return g.Wait()
}

// FullMode runs everything: the HTTP API, the WebSocket hub, and the
// tracking and archive loops.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	orderSvc := a.buildOrderService(deps)
	historySvc := a.buildHistoryService(deps)
	a.startHTTPServer(ctx, g, deps, orderSvc, historySvc)
	a.startTrackingLoops(ctx, g, deps, historySvc)

	return g.Wait()
}

func (a *App) buildOrderService(deps *Dependencies) *service.OrderService {
	params := twap.Params{
		Exchange:         a.cfg.Exchange.Address,
		WrappedNative:    a.cfg.Chain.WrappedNative,
		MinChunkSizeUSD:  a.cfg.Exchange.MinChunkSizeUSD,
		BidDelaySeconds:  a.cfg.Exchange.BidDelaySeconds,
		DefaultFillDelay: a.cfg.Engine.DefaultFillDelay(),
		MinFillDelay:     a.cfg.Engine.MinFillDelay(),
		MaxFillDelay:     a.cfg.Engine.MaxFillDelay(),
	}
	return service.NewOrderService(
		params,
		a.cfg.Chain.ID,
		deps.PriceFeed,
		deps.Balances,
		deps.Submitter,
		deps.OrderStore,
		deps.OptimisticCache,
		deps.LockManager,
		deps.SignalBus,
		deps.Notifier,
		a.logger,
	).WithFeeOnTransferTokens(a.cfg.Exchange.FeeOnTransferTokens)
}

func (a *App) buildHistoryService(deps *Dependencies) *service.HistoryService {
	var archiver service.Archiver
	if deps.Archiver != nil {
		archiver = deps.Archiver
	}
	return service.NewHistoryService(
		deps.Indexer,
		deps.OptimisticCache,
		deps.OrderStore,
		deps.FillStore,
		archiver,
		deps.SignalBus,
		deps.Notifier,
		service.HistoryConfig{
			ChainID:  a.cfg.Chain.ID,
			Exchange: a.cfg.Exchange.Address,
			Legacy:   a.cfg.Exchange.LegacyAddresses,
			Policy:   a.cfg.PolicyFor(a.cfg.Chain.ID),
			PageSize: a.cfg.Indexer.PageSize,
		},
		deps.Decimals.Func,
		a.logger,
	)
}

// startHTTPServer adds the HTTP server and WebSocket hub goroutines to the
// given errgroup. The server is shut down gracefully when the context is
// cancelled.
func (a *App) startHTTPServer(
	ctx context.Context,
	g *errgroup.Group,
	deps *Dependencies,
	orderSvc *service.OrderService,
	historySvc *service.HistoryService,
) {
	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		ChainID:   a.cfg.Chain.ID,
		StartedAt: time.Now().UTC(),
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	srv := server.NewServer(
		server.Config{
			Port:               a.cfg.Server.Port,
			CORSOrigins:        a.cfg.Server.CORSOrigins,
			APIKey:             a.cfg.Server.APIKey,
			RateLimitPerMinute: a.cfg.Server.RateLimitPerMinute,
		},
		server.Handlers{
			Health:  handler.NewHealthHandler(deps.Indexer.LatestBlock, a.logger),
			Orders:  handler.NewOrderHandler(orderSvc, a.logger),
			History: handler.NewHistoryHandler(historySvc, deps.OrderStore, a.logger),
		},
		hub,
		deps.RateLimiter,
		a.logger,
	)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// startTrackingLoops adds the fill-tracking poll loop and, when an archiver
// is wired, the archive snapshot loop.
func (a *App) startTrackingLoops(
	ctx context.Context,
	g *errgroup.Group,
	deps *Dependencies,
	historySvc *service.HistoryService,
) {
	pollInterval := time.Duration(a.cfg.Engine.HistoryPollSeconds) * time.Second
	g.Go(func() error {
		return historySvc.RunLoop(ctx, pollInterval)
	})

	if deps.Archiver != nil {
		archiveInterval := time.Duration(a.cfg.Engine.ArchiveIntervalMinutes) * time.Minute
		g.Go(func() error {
			return historySvc.RunArchiveLoop(ctx, archiveInterval)
		})
	}
}
