// Package logging provides the structured logger used across the service,
// backed by zerolog, plus the request-scoped context keys (user, role, trace)
// that middleware propagates into it.
package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

// Context keys populated by the auth and tracing middleware.
const (
	UserIDKey  contextKey = "user_id"
	RoleKey    contextKey = "role"
	TraceIDKey contextKey = "trace_id"
)

// Logger wraps a zerolog.Logger with a fixed component field.
type Logger struct {
	zl zerolog.Logger
}

// New creates a logger for the named component writing JSON to stderr.
func New(component string) *Logger {
	zl := zerolog.New(os.Stderr).With().
		Timestamp().
		Str("component", component).
		Logger()
	return &Logger{zl: zl}
}

// NewDefault is New with the package's default settings; services use it when
// handed a nil logger.
func NewDefault(component string) *Logger {
	return New(component)
}

// SetOutput redirects log output, primarily for tests.
func (l *Logger) SetOutput(w io.Writer) {
	l.zl = l.zl.Output(w)
}

// WithField returns a logger carrying an extra field.
func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{zl: l.zl.With().Interface(key, value).Logger()}
}

// WithFields returns a logger carrying all given fields.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	ctx := l.zl.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{zl: ctx.Logger()}
}

// WithError returns a logger carrying the error field.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{zl: l.zl.With().Err(err).Logger()}
}

// WithContext returns a logger carrying the request-scoped identity and trace
// fields present in ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	zctx := l.zl.With()
	if v := GetTraceID(ctx); v != "" {
		zctx = zctx.Str("trace_id", v)
	}
	if v := GetUserID(ctx); v != "" {
		zctx = zctx.Str("user_id", v)
	}
	if v := GetRole(ctx); v != "" {
		zctx = zctx.Str("role", v)
	}
	return &Logger{zl: zctx.Logger()}
}

func (l *Logger) Debug(msg string) { l.zl.Debug().Msg(msg) }
func (l *Logger) Info(msg string)  { l.zl.Info().Msg(msg) }
func (l *Logger) Warn(msg string)  { l.zl.Warn().Msg(msg) }
func (l *Logger) Error(msg string) { l.zl.Error().Msg(msg) }

// LogSecurityEvent records a security-relevant event (failed auth, rate limit)
// at warn level with a stable event field.
func (l *Logger) LogSecurityEvent(ctx context.Context, event string, fields map[string]any) {
	l.WithContext(ctx).WithFields(fields).
		WithField("security_event", event).
		WithField("at", time.Now().UTC()).
		Warn("security event")
}

// LogRequest records one handled HTTP request at info level.
func (l *Logger) LogRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	l.WithContext(ctx).WithFields(map[string]any{
		"method":      method,
		"path":        path,
		"status":      status,
		"duration_ms": duration.Milliseconds(),
	}).Info("request handled")
}

// NewTraceID produces a fresh trace identifier.
func NewTraceID() string {
	return uuid.NewString()
}

// WithTraceID stores a trace id in the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	if traceID == "" {
		return ctx
	}
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID returns the trace id stored in ctx, if any.
func GetTraceID(ctx context.Context) string {
	v, _ := ctx.Value(TraceIDKey).(string)
	return v
}

// WithUserID stores the acting user id in the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserID returns the acting user id stored in ctx, if any.
func GetUserID(ctx context.Context) string {
	v, _ := ctx.Value(UserIDKey).(string)
	return v
}

// GetRole returns the acting role stored in ctx, if any.
func GetRole(ctx context.Context) string {
	v, _ := ctx.Value(RoleKey).(string)
	return v
}
