package middle

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ordermesh/paygate/infra/logger"
)

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	startTime  time.Time
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
		startTime:      time.Now(),
	}
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

// RequestLoggingMiddleware assigns a request ID and logs every request
// with its status and processing time.
func RequestLoggingMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
				r.Header.Set("X-Request-ID", requestID)
			}
			w.Header().Set("X-Request-ID", requestID)

			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r)

			logCtx := logger.LogContext{
				RequestID: requestID,
				Provider:  extractProviderFromURL(r.URL.Path),
				Fields: map[string]any{
					"method":        r.Method,
					"path":          r.URL.Path,
					"status":        rw.statusCode,
					"client_ip":     GetClientIP(r),
					"processing_ms": time.Since(rw.startTime).Milliseconds(),
				},
			}

			if rw.statusCode >= 500 {
				logger.Warn("HTTP request failed", logCtx)
			} else {
				logger.Info("HTTP request", logCtx)
			}
		})
	}
}

// extractProviderFromURL pulls the gateway selector out of callback
// and payment paths, e.g. /callback/ecpay or /v1/payments/linepay.
func extractProviderFromURL(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")

	for i, part := range parts {
		if (part == "callback" || part == "payments") && i+1 < len(parts) {
			return parts[i+1]
		}
	}

	return ""
}
