package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/propchain/marketd/internal/domain"
)

// PropertyService is the slice of the listing service this handler needs.
type PropertyService interface {
	CreateProperty(ctx context.Context, owner domain.ActorID, attrs domain.PropertyAttributes) (domain.Property, error)
	GetProperty(ctx context.Context, id uint64) (domain.Property, error)
	ListProperties(ctx context.Context, opts domain.ListOpts) ([]domain.Property, error)
	ListByOwner(ctx context.Context, owner domain.ActorID, opts domain.ListOpts) ([]domain.Property, error)
	ListProperty(ctx context.Context, caller domain.ActorID, id uint64, mode domain.ListingMode, price uint64) (domain.Property, error)
	CancelListing(ctx context.Context, caller domain.ActorID, id uint64) (domain.Property, error)
	BuyDirect(ctx context.Context, buyer domain.ActorID, id uint64) (domain.Property, error)
}

// PropertyHandler serves property registration, listings, and direct sales.
type PropertyHandler struct {
	svc    PropertyService
	logger *slog.Logger
}

func NewPropertyHandler(svc PropertyService, logger *slog.Logger) *PropertyHandler {
	return &PropertyHandler{svc: svc, logger: logger}
}

// Create handles POST /api/properties.
func (h *PropertyHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireActor(w, r)
	if !ok {
		return
	}

	var attrs domain.PropertyAttributes
	if err := decodeJSON(w, r, &attrs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.svc.CreateProperty(r.Context(), owner, attrs)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// Get handles GET /api/properties/{id}.
func (h *PropertyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	p, err := h.svc.GetProperty(r.Context(), id)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// List handles GET /api/properties, optionally filtered by ?owner=.
func (h *PropertyHandler) List(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	var (
		props []domain.Property
		err   error
	)
	if owner := r.URL.Query().Get("owner"); owner != "" {
		props, err = h.svc.ListByOwner(r.Context(), normalizeActor(owner), opts)
	} else {
		props, err = h.svc.ListProperties(r.Context(), opts)
	}
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"properties": props, "count": len(props)})
}

// ListForSale handles POST /api/properties/{id}/list.
func (h *PropertyHandler) ListForSale(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Mode  string `json:"mode"`
		Price uint64 `json:"price"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.svc.ListProperty(r.Context(), caller, id, domain.ListingMode(req.Mode), req.Price)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// CancelListing handles DELETE /api/properties/{id}/listing.
func (h *PropertyHandler) CancelListing(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	p, err := h.svc.CancelListing(r.Context(), caller, id)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Buy handles POST /api/properties/{id}/buy.
func (h *PropertyHandler) Buy(w http.ResponseWriter, r *http.Request) {
	buyer, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	p, err := h.svc.BuyDirect(r.Context(), buyer, id)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
