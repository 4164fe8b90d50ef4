package http

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"atmnet.com/internal/domain/port"
	"atmnet.com/internal/infrastructure/logger"
)

const maxBodyBytes = 1 << 20

type ctxKey struct{}

var loggerKey ctxKey

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// RequestIDMiddleware adds a request ID and a request-scoped logger to each request
func RequestIDMiddleware(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
			}

			w.Header().Set("X-Request-ID", requestID)

			ctx := context.WithValue(r.Context(), loggerKey, log.WithRequestID(requestID))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoggingMiddleware logs request details
func LoggingMiddleware(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestLogger := requestLogger(r.Context(), log)

			requestLogger.LogInfo(r.Context(), "Incoming request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr)

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			requestLogger.LogInfo(r.Context(), "Request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration_ms", time.Since(start).Milliseconds())
		})
	}
}

// SignatureMiddleware rejects requests whose signing headers do not match their body.
// The body is buffered and handed on unchanged.
func SignatureMiddleware(validator port.RequestValidator, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
			if err != nil {
				requestLogger(ctx, log).LogError(ctx, "Failed to read request body", err)
				writeError(w, http.StatusBadRequest, "failed to read request body")
				return
			}

			if err := validator.ValidateRequest(ctx, r, body); err != nil {
				requestLogger(ctx, log).LogWarning(ctx, "Request signature rejected", "error", err.Error())
				writeError(w, http.StatusUnauthorized, "signature validation failed: "+err.Error())
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger returns the request-scoped logger, or fallback outside the middleware chain
func requestLogger(ctx context.Context, fallback logger.Logger) logger.Logger {
	if l, ok := ctx.Value(loggerKey).(logger.Logger); ok {
		return l
	}
	return fallback
}
