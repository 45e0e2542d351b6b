package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const REQUEST_ID_HEADER = "X-Request-ID"

type requestIDKey struct{}

type MiddlewareFunc func(next http.HandlerFunc) http.HandlerFunc

func Chain(mws ...MiddlewareFunc) MiddlewareFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// WithIncomingRequestLogging logs each request under the id sent by the
// client, or a new one when the client sent none.
func WithIncomingRequestLogging(logger *slog.Logger) MiddlewareFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			parent := r.Context() // re-use request context

			id := r.Header.Get(REQUEST_ID_HEADER)
			if id == "" {
				if generated, err := uuid.NewV7(); err == nil {
					id = generated.String()
				} else {
					id = "N/A"
				}
			}
			r = r.WithContext(context.WithValue(parent, requestIDKey{}, id))
			w.Header().Set(REQUEST_ID_HEADER, id)

			logger.Info("incoming request",
				slog.GroupAttrs(
					"meta_data",
					slog.String("request_id", id),
					slog.String("method", r.Method),
					slog.String("remote_host", r.RemoteAddr),
					slog.String("route", r.URL.Path),
					slog.String("query", r.URL.RawQuery),
					slog.String("user_agent", r.UserAgent()),
				),
			)

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			logger.Debug("request handled",
				slog.String("request_id", id),
				slog.Int("status_code", rec.status),
				slog.Duration("took", time.Since(start)),
			)
		}
	}
}
