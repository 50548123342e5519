// Package middleware provides HTTP middleware for the trading desk API.
package middleware

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/qoricash/tradingdesk/internal/errors"
	"github.com/qoricash/tradingdesk/internal/logging"
)

// RateLimiter throttles requests per authenticated user, falling back to the
// remote address for anonymous requests.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
	logger   *logging.Logger
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(requestsPerSecond int, burst int, logger *logging.Logger) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		logger:   logger,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	return limiter
}

// Handler returns the rate limiting middleware handler.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := logging.GetUserID(r.Context())
		if key == "" {
			key = r.RemoteAddr
		}

		if !rl.getLimiter(key).Allow() {
			rl.logger.LogSecurityEvent(r.Context(), "rate_limit_exceeded", map[string]any{
				"key":    key,
				"path":   r.URL.Path,
				"method": r.Method,
			})

			serviceErr := errors.RateLimitExceeded(int(rl.rate), "1s")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(serviceErr.HTTPStatus)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": false,
				"error": map[string]any{
					"code":    serviceErr.Code,
					"message": serviceErr.Message,
				},
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Cleanup drops accumulated limiters once the map grows past a sanity bound.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if len(rl.limiters) > 10000 {
		rl.limiters = make(map[string]*rate.Limiter)
	}
}

// StartCleanup runs Cleanup on the given interval until the process exits.
func (rl *RateLimiter) StartCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			rl.Cleanup()
		}
	}()
}
