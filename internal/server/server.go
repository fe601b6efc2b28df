// Package server assembles the HTTP API: routing, middleware, and lifecycle.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/propchain/marketd/internal/crypto"
	"github.com/propchain/marketd/internal/domain"
	"github.com/propchain/marketd/internal/server/handler"
	"github.com/propchain/marketd/internal/server/middleware"
)

// Config holds the HTTP server settings.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string

	// RateLimit of zero disables per-client limiting.
	RateLimit  int
	RateWindow time.Duration
}

// Handlers collects the per-resource handlers the server routes to.
type Handlers struct {
	Marketplace *handler.MarketplaceHandler
	Property    *handler.PropertyHandler
	Auction     *handler.AuctionHandler
	Escrow      *handler.EscrowHandler
	Account     *handler.AccountHandler
	Archive     *handler.ArchiveHandler
	Events      *handler.EventsHandler
	Health      *handler.HealthHandler

	// WS serves the event stream upgrade; nil disables the endpoint.
	WS http.HandlerFunc
}

// Server is the marketplace HTTP front end.
type Server struct {
	cfg    Config
	httpd  *http.Server
	logger *slog.Logger
}

// New builds the server. The verifier authenticates signed participant
// requests; opsKeyHash guards the operator endpoints; a nil limiter disables
// rate limiting.
func New(
	cfg Config,
	h Handlers,
	verifier *crypto.Verifier,
	opsKeyHash string,
	limiter domain.RateLimiter,
	logger *slog.Logger,
) *Server {
	mux := http.NewServeMux()
	opsOnly := middleware.OpsAuth(opsKeyHash)

	// Marketplace state and settings.
	mux.HandleFunc("POST /api/marketplace/init", h.Marketplace.Initialize)
	mux.HandleFunc("GET /api/marketplace", h.Marketplace.Get)
	mux.HandleFunc("PUT /api/marketplace/settings", h.Marketplace.UpdateSettings)
	mux.Handle("GET /api/marketplace/audit", opsOnly(http.HandlerFunc(h.Marketplace.AuditLog)))

	// Properties and direct sales.
	mux.HandleFunc("POST /api/properties", h.Property.Create)
	mux.HandleFunc("GET /api/properties", h.Property.List)
	mux.HandleFunc("GET /api/properties/{id}", h.Property.Get)
	mux.HandleFunc("POST /api/properties/{id}/list", h.Property.ListForSale)
	mux.HandleFunc("DELETE /api/properties/{id}/listing", h.Property.CancelListing)
	mux.HandleFunc("POST /api/properties/{id}/buy", h.Property.Buy)

	// Auctions.
	mux.HandleFunc("POST /api/auctions", h.Auction.Create)
	mux.HandleFunc("GET /api/auctions", h.Auction.List)
	mux.HandleFunc("GET /api/auctions/{id}", h.Auction.Get)
	mux.HandleFunc("GET /api/auctions/{id}/bids", h.Auction.ListBids)
	mux.HandleFunc("POST /api/auctions/{id}/bids", h.Auction.PlaceBid)
	mux.HandleFunc("POST /api/auctions/{id}/end", h.Auction.End)

	// Escrows.
	mux.HandleFunc("POST /api/escrows", h.Escrow.Create)
	mux.HandleFunc("GET /api/escrows/{id}", h.Escrow.Get)
	mux.HandleFunc("POST /api/escrows/{id}/deposit", h.Escrow.Deposit)
	mux.HandleFunc("POST /api/escrows/{id}/release", h.Escrow.Release)

	// Ledger accounts. Credits are operator only.
	mux.HandleFunc("GET /api/accounts/{address}", h.Account.Get)
	mux.Handle("POST /api/accounts/{address}/credit", opsOnly(http.HandlerFunc(h.Account.Credit)))

	// Event replay from the durable streams.
	mux.HandleFunc("GET /api/events/{channel}", h.Events.List)

	// Operations.
	mux.Handle("POST /api/archive/trigger", opsOnly(http.HandlerFunc(h.Archive.Trigger)))
	mux.HandleFunc("GET /api/health", h.Health.Get)

	if h.WS != nil {
		mux.HandleFunc("GET /ws", h.WS)
	}

	// Innermost to outermost: signature auth, rate limiting, logging, CORS.
	var root http.Handler = mux
	root = middleware.SignatureAuth(verifier)(root)
	if limiter != nil && cfg.RateLimit > 0 {
		root = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateWindow)(root)
	}
	root = middleware.Logging(logger)(root)
	root = middleware.CORS(cfg.AllowedOrigins)(root)

	return &Server{
		cfg: cfg,
		httpd: &http.Server{
			Addr:         cfg.Addr,
			Handler:      root,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		logger: logger,
	}
}

// Start serves until the context is cancelled, then drains in-flight requests
// within the shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", slog.String("addr", s.cfg.Addr))
		if err := s.httpd.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("http server shutting down")
	return s.httpd.Shutdown(shutdownCtx)
}
