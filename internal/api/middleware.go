package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/turnitos/turnitos-backend/internal/business"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	businessKey  contextKey = "business"
)

// RequestIDMiddleware adds a unique request ID to each request context.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoggingMiddleware logs each request with method, path, status, duration
// and request ID.
func LoggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", wrapped.statusCode),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", GetRequestID(r.Context())),
			)
		})
	}
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
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

// requireAuth resolves the bearer token to a business and stores it in the
// request context.
func (h *Handlers) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenString == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}

		businessID, err := h.tokens.Verify(tokenString)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}

		b, err := h.businesses.Get(r.Context(), businessID)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "unknown business")
			return
		}

		ctx := context.WithValue(r.Context(), businessKey, b)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireActive rejects admin operations once both trial and subscription
// have lapsed. Subscription status and payment routes stay reachable so the
// owner can reactivate.
func (h *Handlers) requireActive(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b := businessFrom(r.Context())
		if b == nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing business context")
			return
		}
		if !b.Bookable(time.Now().UTC()) {
			writeError(w, http.StatusForbidden, "subscription_expired", "trial or subscription has expired")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func businessFrom(ctx context.Context) *business.Business {
	b, _ := ctx.Value(businessKey).(*business.Business)
	return b
}
