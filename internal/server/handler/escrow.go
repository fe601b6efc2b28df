package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/propchain/marketd/internal/domain"
)

// EscrowService is the slice of the escrow service this handler needs.
type EscrowService interface {
	CreateEscrow(ctx context.Context, caller domain.ActorID, propertyID uint64, buyer domain.ActorID, amount uint64, conditions string) (domain.Escrow, error)
	GetEscrow(ctx context.Context, id uint64) (domain.Escrow, error)
	Deposit(ctx context.Context, caller domain.ActorID, escrowID, amount uint64) (domain.Escrow, error)
	Release(ctx context.Context, caller domain.ActorID, escrowID uint64, releaseToSeller bool) (domain.Escrow, error)
}

// EscrowHandler serves escrow creation, deposits, and release.
type EscrowHandler struct {
	svc    EscrowService
	logger *slog.Logger
}

func NewEscrowHandler(svc EscrowService, logger *slog.Logger) *EscrowHandler {
	return &EscrowHandler{svc: svc, logger: logger}
}

// Create handles POST /api/escrows. The caller is the seller.
func (h *EscrowHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req struct {
		PropertyID uint64 `json:"property_id"`
		Buyer      string `json:"buyer"`
		Amount     uint64 `json:"amount"`
		Conditions string `json:"conditions"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	e, err := h.svc.CreateEscrow(r.Context(), caller, req.PropertyID,
		normalizeActor(req.Buyer), req.Amount, req.Conditions)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// Get handles GET /api/escrows/{id}.
func (h *EscrowHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	e, err := h.svc.GetEscrow(r.Context(), id)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// Deposit handles POST /api/escrows/{id}/deposit.
func (h *EscrowHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireActor(w, r)
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

	e, err := h.svc.Deposit(r.Context(), caller, id, req.Amount)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// Release handles POST /api/escrows/{id}/release. to_seller selects between
// settlement and refund.
func (h *EscrowHandler) Release(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		ToSeller bool `json:"to_seller"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	e, err := h.svc.Release(r.Context(), caller, id, req.ToSeller)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}
