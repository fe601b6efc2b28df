package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/propchain/marketd/internal/crypto"
	"github.com/propchain/marketd/internal/domain"
)

// Request signature headers. The signature covers the timestamp, method, and
// path of the request; the recovered address becomes the caller identity.
const (
	HeaderAddress   = "X-Auth-Address"
	HeaderTimestamp = "X-Auth-Timestamp"
	HeaderSignature = "X-Auth-Signature"
)

type ctxKey int

const actorKey ctxKey = iota

// SignatureAuth returns middleware that verifies signed requests and attaches
// the recovered caller address to the request context. Unsigned requests pass
// through without an identity; handlers that need one reject those with 401.
func SignatureAuth(verifier *crypto.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sig := r.Header.Get(HeaderSignature)
			if sig == "" {
				next.ServeHTTP(w, r)
				return
			}

			addr, err := verifier.Verify(r.Header.Get(HeaderTimestamp), r.Method, r.URL.Path, sig)
			if err != nil {
				writeUnauthorized(w, "invalid request signature")
				return
			}

			// The address header is advisory; when present it must agree with
			// what the signature recovers.
			if claimed := r.Header.Get(HeaderAddress); claimed != "" && !strings.EqualFold(claimed, addr.Hex()) {
				writeUnauthorized(w, "signature does not match address")
				return
			}

			actor := domain.ActorID(strings.ToLower(addr.Hex()))
			ctx := context.WithValue(r.Context(), actorKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Actor returns the verified caller identity attached by SignatureAuth.
func Actor(ctx context.Context) (domain.ActorID, bool) {
	actor, ok := ctx.Value(actorKey).(domain.ActorID)
	return actor, ok
}

// WithActor returns a context carrying the given caller identity. Used by
// tests to exercise handlers without signing requests.
func WithActor(ctx context.Context, actor domain.ActorID) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// OpsAuth returns middleware that guards operator endpoints with an API key,
// checked against its PBKDF2 hash. The key arrives as a Bearer token or in
// the X-API-Key header. If hashedKey is empty, the endpoints are disabled
// rather than open.
func OpsAuth(hashedKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hashedKey == "" {
				writeUnauthorized(w, "operator endpoints are disabled")
				return
			}

			key := extractToken(r)
			if key == "" {
				writeUnauthorized(w, "missing operator key")
				return
			}
			if !crypto.CheckAPIKey(key, hashedKey) {
				writeUnauthorized(w, "invalid operator key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// extractToken looks for a token in the Authorization header (Bearer scheme)
// or in the X-API-Key header.
func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return strings.TrimSpace(key)
	}
	return ""
}

// writeUnauthorized sends a 401 response with a JSON error body.
func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
