package http

import (
	"net/http"

	"github.com/google/uuid"

	context_ "github.com/jlenhardt/gatehouse/internal/infra/context"
)

const TraceIDHeader = "X-Request-ID"

// TracingMiddleware creates middleware that adds request tracing.
// It uses the X-Request-ID header if present, otherwise generates a new UUID.
// The trace ID is added to the request context.
func TracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context_.WithTraceID(r.Context(), getTraceID(r))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getTraceID(r *http.Request) string {
	if traceID := r.Header.Get(TraceIDHeader); traceID != "" {
		return traceID
	}

	return uuid.NewString()
}
