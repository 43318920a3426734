package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/procurio/procurio/internal/config"
)

func TestRateLimitBlocksAfterBudget(t *testing.T) {
	limiter := RateLimit(RateLimitConfig{Requests: 2, Window: time.Minute})
	handler := limiter(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/invites/accept", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/invites/accept", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("over-budget request: status = %d, want 429", rec.Code)
	}
}

func TestNoRateLimitPassesThrough(t *testing.T) {
	handler := NoRateLimit()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/tenant", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rec.Code)
		}
	}
}

func TestCreateRateLimiters(t *testing.T) {
	keys := []string{"accept", "api", "admin"}

	t.Run("enabled", func(t *testing.T) {
		limiters := CreateRateLimiters(config.RateLimitConfig{
			Enabled:                 true,
			AcceptRequestsPerWindow: 10,
			AcceptWindowMinutes:     5,
			APIRequestsPerMinute:    120,
			AdminRequestsPerMinute:  30,
		}, nil)
		for _, key := range keys {
			if limiters[key] == nil {
				t.Errorf("missing %q limiter", key)
			}
		}
	})

	t.Run("disabled", func(t *testing.T) {
		limiters := CreateRateLimiters(config.RateLimitConfig{Enabled: false}, nil)
		for _, key := range keys {
			if limiters[key] == nil {
				t.Errorf("missing %q limiter", key)
			}
		}
	})
}
