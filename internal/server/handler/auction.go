package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/propchain/marketd/internal/domain"
)

// AuctionService is the slice of the auction service this handler needs.
type AuctionService interface {
	CreateAuction(ctx context.Context, caller domain.ActorID, propertyID, startingPrice, reservePrice uint64, duration time.Duration) (domain.Auction, error)
	GetAuction(ctx context.Context, id uint64) (domain.Auction, error)
	ListOpen(ctx context.Context, opts domain.ListOpts) ([]domain.Auction, error)
	ListBids(ctx context.Context, auctionID uint64) ([]domain.Bid, error)
	PlaceBid(ctx context.Context, bidder domain.ActorID, auctionID, amount uint64) (domain.Auction, error)
	EndAuction(ctx context.Context, auctionID uint64) (domain.Auction, error)
}

// AuctionHandler serves auction creation, bidding, and settlement.
type AuctionHandler struct {
	svc    AuctionService
	logger *slog.Logger
}

func NewAuctionHandler(svc AuctionService, logger *slog.Logger) *AuctionHandler {
	return &AuctionHandler{svc: svc, logger: logger}
}

// Create handles POST /api/auctions. Duration arrives in seconds.
func (h *AuctionHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req struct {
		PropertyID      uint64 `json:"property_id"`
		StartingPrice   uint64 `json:"starting_price"`
		ReservePrice    uint64 `json:"reserve_price"`
		DurationSeconds int64  `json:"duration_seconds"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	a, err := h.svc.CreateAuction(r.Context(), caller, req.PropertyID,
		req.StartingPrice, req.ReservePrice, time.Duration(req.DurationSeconds)*time.Second)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// Get handles GET /api/auctions/{id}.
func (h *AuctionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	a, err := h.svc.GetAuction(r.Context(), id)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// List handles GET /api/auctions, returning open auctions only.
func (h *AuctionHandler) List(w http.ResponseWriter, r *http.Request) {
	auctions, err := h.svc.ListOpen(r.Context(), parseListOpts(r))
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"auctions": auctions, "count": len(auctions)})
}

// ListBids handles GET /api/auctions/{id}/bids, oldest first.
func (h *AuctionHandler) ListBids(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	bids, err := h.svc.ListBids(r.Context(), id)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bids": bids, "count": len(bids)})
}

// PlaceBid handles POST /api/auctions/{id}/bids.
func (h *AuctionHandler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	bidder, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Amount uint64 `json:"amount"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	a, err := h.svc.PlaceBid(r.Context(), bidder, id, req.Amount)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// End handles POST /api/auctions/{id}/end. Anyone may crank settlement once
// the end time has passed.
func (h *AuctionHandler) End(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireActor(w, r); !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	a, err := h.svc.EndAuction(r.Context(), id)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
