package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/propchain/marketd/internal/domain"
)

// MarketplaceService is the slice of the admin service this handler needs.
type MarketplaceService interface {
	Initialize(ctx context.Context, caller, treasury domain.ActorID, feeBps uint64) (domain.MarketplaceState, error)
	GetState(ctx context.Context) (domain.MarketplaceState, error)
	UpdateSettings(ctx context.Context, caller domain.ActorID, feeBps *uint64, treasury *domain.ActorID) (domain.MarketplaceState, error)
	ListAuditLog(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error)
}

// MarketplaceHandler serves marketplace state, settings, and the audit log.
type MarketplaceHandler struct {
	svc    MarketplaceService
	logger *slog.Logger
}

func NewMarketplaceHandler(svc MarketplaceService, logger *slog.Logger) *MarketplaceHandler {
	return &MarketplaceHandler{svc: svc, logger: logger}
}

// Initialize handles POST /api/marketplace/init.
func (h *MarketplaceHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req struct {
		Treasury string `json:"treasury"`
		FeeBps   uint64 `json:"fee_bps"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	st, err := h.svc.Initialize(r.Context(), caller, normalizeActor(req.Treasury), req.FeeBps)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

// Get handles GET /api/marketplace.
func (h *MarketplaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.GetState(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// UpdateSettings handles PUT /api/marketplace/settings. Omitted fields are
// left unchanged.
func (h *MarketplaceHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req struct {
		FeeBps   *uint64 `json:"fee_bps"`
		Treasury *string `json:"treasury"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var treasury *domain.ActorID
	if req.Treasury != nil {
		t := normalizeActor(*req.Treasury)
		treasury = &t
	}

	st, err := h.svc.UpdateSettings(r.Context(), caller, req.FeeBps, treasury)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type auditEntryResponse struct {
	ID        int64          `json:"id"`
	Event     string         `json:"event"`
	Detail    map[string]any `json:"detail"`
	CreatedAt time.Time      `json:"created_at"`
}

// AuditLog handles GET /api/marketplace/audit, newest entries first.
func (h *MarketplaceHandler) AuditLog(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.ListAuditLog(r.Context(), parseListOpts(r))
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}

	out := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditEntryResponse{
			ID:        e.ID,
			Event:     e.Event,
			Detail:    e.Detail,
			CreatedAt: e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": out, "count": len(out)})
}
