// Package logger wraps slog with the handful of structured log shapes the
// service emits. Development gets readable text at debug level, everything
// else JSON at info.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

type Logger struct {
	*slog.Logger
}

func New(env string) *Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	var handler slog.Handler
	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{Logger: slog.New(handler)}
}

// HTTPRequest logs one handled request.
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// GeocodeFailure logs a failed call to the address API. Geocoding failures
// are soft by contract, so they are logged and never surfaced to the client.
func (l *Logger) GeocodeFailure(operation, detail string, err error) {
	l.Warn("geocode_failure",
		slog.String("operation", operation),
		slog.String("detail", detail),
		slog.String("error", err.Error()),
	)
}

// AccessDenied logs an authorization refusal that reached the server even
// though the UI hides forbidden affordances.
func (l *Logger) AccessDenied(role, action, entity string) {
	l.Warn("access_denied",
		slog.String("role", role),
		slog.String("action", action),
		slog.String("entity", entity),
	)
}

// RateLimitExceeded logs a request dropped by the per-IP limiter.
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
