// Package logging configures the process-wide zap logger and carries a
// per-run logger through contexts.
package logging

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type contextKey int

const (
	loggerKey contextKey = iota
	runIDKey
)

var (
	mu     sync.Mutex
	base   *zap.Logger // used by components
	helper *zap.Logger // base with one extra caller frame, used by Info etc.
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// Config holds logging configuration.
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json or console
	OutputPath string // default stderr; stdout stays free for the report
}

// Init replaces the global logger.
func Init(cfg Config) error {
	zc := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	zc.OutputPaths = []string{"stderr"}
	if cfg.OutputPath != "" {
		zc.OutputPaths = []string{cfg.OutputPath}
	}
	SetLevel(cfg.Level)

	logger, err := zc.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return err
	}
	set(logger)
	return nil
}

func set(logger *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	base = logger
	helper = logger.WithOptions(zap.AddCallerSkip(1))
}

func current() (*zap.Logger, *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	if base == nil {
		logger, _ := zap.NewProduction()
		base = logger
		helper = logger.WithOptions(zap.AddCallerSkip(1))
	}
	return base, helper
}

// Sync flushes buffered entries.
func Sync() error {
	l, _ := current()
	return l.Sync()
}

// SetLevel changes the level at runtime. Unknown names select info.
func SetLevel(name string) {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		l = zapcore.InfoLevel
	}
	level.SetLevel(l)
}

// L returns the global logger.
func L() *zap.Logger {
	l, _ := current()
	return l
}

// Or returns l, or the global logger when l is nil.
func Or(l *zap.Logger) *zap.Logger {
	if l != nil {
		return l
	}
	return L()
}

// NewContext returns ctx carrying l.
func NewContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// WithContext returns the logger carried by ctx, or the global logger.
func WithContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return L()
}

// WithRunID tags the context logger with a fresh run id.
func WithRunID(ctx context.Context) (context.Context, string) {
	id := uuid.NewString()
	ctx = NewContext(ctx, WithContext(ctx).With(zap.String("run_id", id)))
	return context.WithValue(ctx, runIDKey, id), id
}

// GetRunID returns the run id from ctx, or "".
func GetRunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey).(string)
	return id
}

// Debug, Info and Warn log through the global logger.
func Debug(msg string, fields ...zap.Field) { _, h := current(); h.Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { _, h := current(); h.Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { _, h := current(); h.Warn(msg, fields...) }

// Fatal logs and exits with status 1.
func Fatal(msg string, fields ...zap.Field) { _, h := current(); h.Fatal(msg, fields...) }

type transport struct {
	next http.RoundTripper
}

// Transport wraps next so every API call is logged at debug level with
// the logger carried by the request context.
func Transport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &transport{next: next}
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	logger := WithContext(req.Context()).With(zap.String("path", req.URL.Path))
	logger.Debug("api request started", zap.String("method", req.Method))

	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	elapsed := time.Since(start)
	if err != nil {
		logger.Debug("api request failed", zap.Duration("duration", elapsed), zap.Error(err))
		return nil, err
	}
	logger.Debug("api request completed",
		zap.Int("status", resp.StatusCode),
		zap.Int64("size", resp.ContentLength),
		zap.Duration("duration", elapsed),
	)
	return resp, nil
}
