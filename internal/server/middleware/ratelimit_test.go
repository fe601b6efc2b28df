package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// denyLimiter rejects every request and records the keys it was asked about.
type denyLimiter struct {
	keys []string
}

func (l *denyLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	l.keys = append(l.keys, key)
	return false, nil
}

func TestRateLimitExemptsHealthAndWS(t *testing.T) {
	lim := &denyLimiter{}
	h := RateLimit(lim, 1, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range []string{"/api/health", "/ws"} {
		r := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if w.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", path, w.Code)
		}
	}
	if len(lim.keys) != 0 {
		t.Errorf("limiter consulted for exempt paths: %v", lim.keys)
	}

	r := httptest.NewRequest(http.MethodGet, "/api/auctions", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("limited path: status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("429 response missing Retry-After")
	}
}
