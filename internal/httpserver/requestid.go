package httpserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"threadscraper/pkg/logger"
)

// RequestIDHeader carries the request ID in requests and responses
const RequestIDHeader = "X-Request-Id"

// RequestIDFromContext returns the request ID set by RequestIDMiddleware
func RequestIDFromContext(ctx context.Context) string {
	return logger.RequestIDFromContext(ctx)
}

// RequestIDMiddleware propagates the incoming request ID or assigns a new
// one, and stores it where the logger picks it up
func RequestIDMiddleware(headerName string) func(next http.Handler) http.Handler {
	if strings.TrimSpace(headerName) == "" {
		headerName = RequestIDHeader
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := strings.TrimSpace(r.Header.Get(headerName))
			if rid == "" {
				rid = uuid.NewString()
			}
			w.Header().Set(headerName, rid)
			ctx := logger.ContextWithRequestID(r.Context(), rid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
