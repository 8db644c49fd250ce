package web

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Esaslow/datasette/internal/logutil"
)

// statusWriter captures the HTTP status for logging, same shape as the
// teacher's internal/api/middleware.go.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

// RequestID returns the correlation id the logging middleware attached
// to ctx, or "" if none is present (e.g. in a unit test that calls a
// handler directly).
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// LoggingMiddleware replaces the teacher's log.Printf call with
// structured zap fields, and stamps each request with a correlation id
// the teacher's internal/api/ws.go generated per-connection via
// google/uuid.
func LoggingMiddleware(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := uuid.NewString()
			ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(ww, r.WithContext(ctx))

			log.Info("request",
				zap.String("request_id", reqID),
				zap.Int("status", ww.status),
				zap.Duration("duration", time.Since(start)),
				logutil.Values(
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
				),
			)
		})
	}
}
