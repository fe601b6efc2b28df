package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/propchain/marketd/internal/domain"
	"github.com/propchain/marketd/internal/server/middleware"
)

const maxBodyBytes = 1 << 20

// errorBody is the JSON shape of every error response. Code carries the
// machine-readable failure class; Field and Limit are present on validation
// failures only.
type errorBody struct {
	Error string           `json:"error"`
	Code  domain.ErrorCode `json:"code,omitempty"`
	Field string           `json:"field,omitempty"`
	Limit uint64           `json:"limit,omitempty"`
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError sends a plain JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeDomainError maps a service error to an HTTP response. Typed domain
// errors become client errors with their code and context; anything else is
// logged and reported as a 500.
func writeDomainError(w http.ResponseWriter, logger *slog.Logger, r *http.Request, err error) {
	var de *domain.Error
	if errors.As(err, &de) {
		writeJSON(w, statusForCode(de.Code), errorBody{
			Error: de.Error(),
			Code:  de.Code,
			Field: de.Field,
			Limit: de.Limit,
		})
		return
	}

	logger.ErrorContext(r.Context(), "request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	writeError(w, http.StatusInternalServerError, "internal error")
}

// statusForCode maps the error taxonomy to HTTP statuses. Validation errors
// are 400s, authorization errors 403s, and state errors 409s: the request was
// well formed but lost a race with the current state of the record.
func statusForCode(code domain.ErrorCode) int {
	switch code {
	case domain.CodeFieldTooLong, domain.CodeInvalidPrice, domain.CodeInvalidMode,
		domain.CodeInvalidDuration, domain.CodeInvalidAmount, domain.CodeInvalidFee,
		domain.CodeOverflow:
		return http.StatusBadRequest
	case domain.CodeUnauthorized, domain.CodeNotOwner, domain.CodeSelfTrade:
		return http.StatusForbidden
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeAlreadyInitialized, domain.CodeAlreadyListed, domain.CodeNotListed,
		domain.CodeAuctionEnded, domain.CodeAuctionNotEnded, domain.CodeEscrowCompleted,
		domain.CodeConflict, domain.CodeBidTooLow, domain.CodeInsufficientFunds:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a size-limited JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// requireActor extracts the verified caller from the request context. Writes
// a 401 and returns false when the request was not signed.
func requireActor(w http.ResponseWriter, r *http.Request) (domain.ActorID, bool) {
	actor, ok := middleware.Actor(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "request must be signed")
		return "", false
	}
	return actor, true
}

// pathID parses the named path segment as a numeric record id.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uint64, bool) {
	id, err := strconv.ParseUint(r.PathValue(name), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// parseListOpts reads pagination parameters from the query string, with a
// default limit of 50 capped at 500.
func parseListOpts(r *http.Request) domain.ListOpts {
	opts := domain.ListOpts{Limit: 50}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.Limit = min(n, 500)
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			opts.Offset = n
		}
	}
	return opts
}

// normalizeActor lowercases a caller-supplied address so ledger keys stay
// consistent with what signature recovery produces.
func normalizeActor(s string) domain.ActorID {
	return domain.ActorID(strings.ToLower(strings.TrimSpace(s)))
}
