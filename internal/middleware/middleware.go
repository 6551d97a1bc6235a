package middleware

import (
	"net/http"
	"time"

	"github.com/mirkobrombin/dnsforge/internal/logger"
)

// LoggingMiddleware logs API requests.
func LoggingMiddleware(l *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			remoteAddr := r.RemoteAddr
			if ip := r.Header.Get("X-Real-IP"); ip != "" {
				remoteAddr = ip
			} else if ips := r.Header.Get("X-Forwarded-For"); ips != "" {
				remoteAddr = ips
			}
			l.WithFields(logger.Fields{
				"method":       r.Method,
				"url":          r.URL.String(),
				"remote_addr":  remoteAddr,
				"status_code":  rw.statusCode,
				"duration_sec": time.Since(start).Seconds(),
			}).Debug("Handled request")
		})
	}
}

// ConcurrencyMiddleware limits the number of requests served at once.
// Requests over the limit are rejected instead of queued.
func ConcurrencyMiddleware(maxConcurrent int) func(http.Handler) http.Handler {
	sem := make(chan struct{}, maxConcurrent)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
				next.ServeHTTP(w, r)
			default:
				http.Error(w, "Another change is in progress", http.StatusConflict)
			}
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
