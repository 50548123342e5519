// Package middleware provides HTTP middleware for the trading desk API.
package middleware

import (
	"net/http"
	"time"

	"github.com/qoricash/tradingdesk/internal/logging"
)

// TracingMiddleware stamps every request with a trace id and logs it.
type TracingMiddleware struct {
	logger *logging.Logger
}

// NewTracingMiddleware creates a new tracing middleware.
func NewTracingMiddleware(logger *logging.Logger) *TracingMiddleware {
	return &TracingMiddleware{logger: logger}
}

// Handler returns the tracing middleware handler.
func (m *TracingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get("X-Trace-ID")
		if traceID == "" {
			traceID = logging.NewTraceID()
		}

		ctx := logging.WithTraceID(r.Context(), traceID)
		w.Header().Set("X-Trace-ID", traceID)

		// Websocket upgrades need the raw writer for hijacking.
		if r.Header.Get("Upgrade") == "websocket" {
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		start := time.Now()
		next.ServeHTTP(rw, r.WithContext(ctx))

		m.logger.LogRequest(ctx, r.Method, r.URL.Path, rw.statusCode, time.Since(start))
	})
}
