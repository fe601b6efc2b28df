// Package app owns the application lifecycle: it wires the stores, caches,
// services, and HTTP front end together and runs them until shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/propchain/marketd/internal/config"
	"github.com/propchain/marketd/internal/crypto"
	"github.com/propchain/marketd/internal/server"
	"github.com/propchain/marketd/internal/server/handler"
	"github.com/propchain/marketd/internal/server/ws"
)

// App is the root application object. It owns the configuration, logger, and
// cleanup functions called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates an App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies, starts the HTTP server, the WebSocket hub, and
// the archive ticker, and blocks until the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	verifier := crypto.NewVerifier(a.cfg.Auth.MaxSkew.Duration)

	handlers := server.Handlers{
		Marketplace: handler.NewMarketplaceHandler(deps.Admin, a.logger),
		Property:    handler.NewPropertyHandler(deps.Listing, a.logger),
		Auction:     handler.NewAuctionHandler(deps.Auction, a.logger),
		Escrow:      handler.NewEscrowHandler(deps.Escrow, a.logger),
		Account:     handler.NewAccountHandler(deps.Admin, a.logger),
		Archive:     handler.NewArchiveHandler(deps.Archiver, a.logger),
		Events:      handler.NewEventsHandler(deps.Bus, a.logger),
		Health:      handler.NewHealthHandler(deps.DBPinger, deps.CachePinger),
	}

	g, gctx := errgroup.WithContext(ctx)

	// The ws hub needs the event bus; without Redis the endpoint is absent.
	if deps.Bus != nil {
		hub := ws.NewHub(deps.Bus, a.logger)
		handlers.WS = http.HandlerFunc(hub.ServeWS)
		g.Go(func() error {
			if err := hub.Run(gctx); err != nil && err != context.Canceled {
				return fmt.Errorf("app: ws hub: %w", err)
			}
			return nil
		})
	}

	httpd := server.New(
		server.Config{
			Addr:            a.cfg.Server.Addr,
			ReadTimeout:     a.cfg.Server.ReadTimeout.Duration,
			WriteTimeout:    a.cfg.Server.WriteTimeout.Duration,
			IdleTimeout:     a.cfg.Server.IdleTimeout.Duration,
			ShutdownTimeout: a.cfg.Server.ShutdownTimeout.Duration,
			AllowedOrigins:  a.cfg.Server.CORSOrigins,
			RateLimit:       a.cfg.Server.RateLimit,
			RateWindow:      a.cfg.Server.RateWindow.Duration,
		},
		handlers,
		verifier,
		a.cfg.Auth.OpsKeyHash,
		deps.RateLimiter,
		a.logger,
	)
	g.Go(func() error {
		return httpd.Start(gctx)
	})

	if a.cfg.Archive.Enabled && deps.Archiver != nil {
		g.Go(func() error {
			a.runArchiveLoop(gctx, deps)
			return nil
		})
	}

	return g.Wait()
}

// runArchiveLoop periodically exports settled records older than the
// retention window. Failures are logged and retried on the next tick.
func (a *App) runArchiveLoop(ctx context.Context, deps *Dependencies) {
	interval := a.cfg.Archive.Interval.Duration
	retention := time.Duration(a.cfg.Archive.RetentionDays) * 24 * time.Hour

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			before := time.Now().UTC().Add(-retention)

			auctions, err := deps.Archiver.ArchiveAuctions(ctx, before)
			if err != nil {
				a.logger.ErrorContext(ctx, "auction archive failed",
					slog.String("error", err.Error()))
				continue
			}
			escrows, err := deps.Archiver.ArchiveEscrows(ctx, before)
			if err != nil {
				a.logger.ErrorContext(ctx, "escrow archive failed",
					slog.String("error", err.Error()))
				continue
			}
			if auctions > 0 || escrows > 0 {
				a.logger.InfoContext(ctx, "archive cycle complete",
					slog.Int64("auctions", auctions),
					slog.Int64("escrows", escrows),
				)
			}
		}
	}
}

// Close tears down all resources in reverse registration order. Safe to call
// multiple times.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
