package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/propchain/marketd/internal/domain"
)

// AccountService is the slice of the admin service this handler needs.
type AccountService interface {
	GetBalance(ctx context.Context, account domain.ActorID) (uint64, error)
	CreditAccount(ctx context.Context, account domain.ActorID, amount uint64) error
}

// AccountHandler serves ledger balances and operator-funded credits.
type AccountHandler struct {
	svc    AccountService
	logger *slog.Logger
}

func NewAccountHandler(svc AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{svc: svc, logger: logger}
}

// Get handles GET /api/accounts/{address}. Unknown accounts report zero.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	account := normalizeActor(r.PathValue("address"))
	if account.IsZero() {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}

	balance, err := h.svc.GetBalance(r.Context(), account)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"address": account,
		"balance": balance,
	})
}

// Credit handles POST /api/accounts/{address}/credit. Reached only through
// the operator key; this is how participant balances are funded.
func (h *AccountHandler) Credit(w http.ResponseWriter, r *http.Request) {
	account := normalizeActor(r.PathValue("address"))
	if account.IsZero() {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}

	var req struct {
		Amount uint64 `json:"amount"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.CreditAccount(r.Context(), account, req.Amount); err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}

	balance, err := h.svc.GetBalance(r.Context(), account)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"address": account,
		"balance": balance,
	})
}
