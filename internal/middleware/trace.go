package middleware

import (
	"context"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/ayush/exercise-tracker/internal/logger"
)

const TraceIDHeader = "X-Trace-ID"

// TraceID reuses the caller's X-Trace-ID or generates one, echoes it on the
// response and stores it on the request context. The same id is registered
// as chi's request id so the access log and application log agree.
func TraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(TraceIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(TraceIDHeader, id)
		ctx := logger.WithTraceID(r.Context(), id)
		ctx = context.WithValue(ctx, chimw.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
