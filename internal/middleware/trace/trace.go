// Package trace assigns request ids and logs request completion.
package trace

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/google/uuid"

	"budget/internal/log"
)

const HeaderRequestID = "X-Request-ID"

type contextKey struct{}

var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// Middleware tags every request with an id (reusing a sane incoming
// X-Request-ID), stores a request-scoped logger in the context and logs the
// outcome once the handler returns.
func Middleware(logger *log.Logger, extractIP func(*http.Request) string) func(http.Handler) http.Handler {
	structured := log.NewStructuredLogger(logger.WithComponent(log.ComponentHTTP))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get(HeaderRequestID)
			if !validRequestID.MatchString(requestID) {
				requestID = uuid.NewString()
			}
			w.Header().Set(HeaderRequestID, requestID)

			clientIP := ""
			if extractIP != nil {
				clientIP = extractIP(r)
			}

			ctx := context.WithValue(r.Context(), contextKey{}, requestID)
			ctx = log.NewContext(ctx, logger.With(log.FieldRequestID, requestID))
			r = r.WithContext(ctx)

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			structured.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
		})
	}
}

// RequestID returns the id assigned by Middleware, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	wrote      bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wrote {
		rw.statusCode = code
		rw.wrote = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wrote = true
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
