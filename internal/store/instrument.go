package store

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fruitsalade/slackfiles/internal/logging"
	"github.com/fruitsalade/slackfiles/internal/metrics"
	"github.com/fruitsalade/slackfiles/internal/tracing"
)

// instrumented records metrics and spans around every backend call.
type instrumented struct {
	Backend
	tracer trace.Tracer
}

// Instrument wraps b with metrics and tracing.
func Instrument(b Backend) Backend {
	return &instrumented{Backend: b, tracer: tracing.Tracer("slackfiles/store")}
}

func (s *instrumented) observe(ctx context.Context, op, key string) (context.Context, func(error)) {
	start := time.Now()
	runID := logging.GetRunID(ctx)
	attrs := []attribute.KeyValue{
		attribute.String("backend", s.Type()),
		attribute.String("key", key),
	}
	if runID != "" {
		attrs = append(attrs, attribute.String("run_id", runID))
	}
	ctx, span := s.tracer.Start(ctx, "store."+op, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		fields := []zap.Field{
			zap.String("backend", s.Type()),
			zap.String("op", op),
			zap.String("key", key),
			zap.String("run_id", runID),
		}
		// A miss is a normal outcome, not a failure.
		ok := err == nil || errors.Is(err, ErrNotFound)
		switch {
		case !ok:
			span.RecordError(err)
			logging.Warn("store operation failed", append(fields, zap.Error(err))...)
		case err != nil:
			logging.Debug("store miss", fields...)
		}
		span.End()
		metrics.RecordStoreOperation(s.Type(), op, time.Since(start), ok)
	}
}

func (s *instrumented) GetObject(ctx context.Context, key string) ([]byte, error) {
	ctx, done := s.observe(ctx, "get", key)
	data, err := s.Backend.GetObject(ctx, key)
	done(err)
	return data, err
}

func (s *instrumented) PutObject(ctx context.Context, key string, data []byte) error {
	ctx, done := s.observe(ctx, "put", key)
	err := s.Backend.PutObject(ctx, key, data)
	done(err)
	return err
}

func (s *instrumented) DeleteObject(ctx context.Context, key string) error {
	ctx, done := s.observe(ctx, "delete", key)
	err := s.Backend.DeleteObject(ctx, key)
	done(err)
	return err
}
