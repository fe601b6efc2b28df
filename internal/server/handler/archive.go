package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/propchain/marketd/internal/domain"
)

// ArchiveHandler triggers an export of settled records to object storage.
type ArchiveHandler struct {
	archiver domain.Archiver
	logger   *slog.Logger
}

func NewArchiveHandler(archiver domain.Archiver, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{archiver: archiver, logger: logger}
}

// Trigger handles POST /api/archive/trigger. The optional before field (RFC
// 3339) bounds the export; it defaults to the current time. Operator only.
func (h *ArchiveHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if h.archiver == nil {
		writeError(w, http.StatusServiceUnavailable, "archival is not configured")
		return
	}

	var req struct {
		Before string `json:"before"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	before := time.Now().UTC()
	if req.Before != "" {
		t, err := time.Parse(time.RFC3339, req.Before)
		if err != nil {
			writeError(w, http.StatusBadRequest, "before must be RFC 3339")
			return
		}
		before = t
	}

	auctions, err := h.archiver.ArchiveAuctions(r.Context(), before)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	escrows, err := h.archiver.ArchiveEscrows(r.Context(), before)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "archive triggered",
		slog.Time("before", before),
		slog.Int64("auctions", auctions),
		slog.Int64("escrows", escrows),
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"before":   before,
		"auctions": auctions,
		"escrows":  escrows,
	})
}
