package server

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime"
	"time"
)

// ErrPanicRecovered indicates an HTTP handler panicked and was recovered.
var ErrPanicRecovered = errors.New("panic recovered in admin handler")

// Middleware wraps an http.Handler with cross-cutting behavior (logging,
// recovery, ...), applied by New in the order given.
type Middleware func(http.Handler) http.Handler

// statusRecorder captures the status code written by the wrapped handler so
// LoggingMiddleware can log it after the fact.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// LoggingMiddleware logs every admin request with its method, path,
// duration and resulting status code. Log level is Info for responses
// under 400 and Warn otherwise.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("duration", time.Since(start)),
			}

			if rec.status >= 400 {
				logger.LogAttrs(r.Context(), slog.LevelWarn, "admin request completed with error", attrs...)
			} else {
				logger.LogAttrs(r.Context(), slog.LevelInfo, "admin request completed", attrs...)
			}
		})
	}
}

// RecoveryMiddleware recovers from panics in handlers, logging the panic
// value and stack trace at Error level and returning 500 to the client.
func RecoveryMiddleware(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					buf := make([]byte, 4096)
					n := runtime.Stack(buf, false)

					logger.ErrorContext(r.Context(), "panic recovered in admin handler",
						slog.String("path", r.URL.Path),
						slog.Any("panic", rec),
						slog.String("stack", string(buf[:n])),
					)

					writeError(w, http.StatusInternalServerError, ErrPanicRecovered)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
