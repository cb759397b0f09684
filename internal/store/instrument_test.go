package store

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/fruitsalade/slackfiles/internal/logging"
)

// memBackend keeps blobs in a map and fails puts when putErr is set.
type memBackend struct {
	blobs  map[string][]byte
	putErr error
}

func (m *memBackend) GetObject(_ context.Context, key string) ([]byte, error) {
	data, ok := m.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func (m *memBackend) PutObject(_ context.Context, key string, data []byte) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.blobs[key] = data
	return nil
}

func (m *memBackend) DeleteObject(_ context.Context, key string) error {
	delete(m.blobs, key)
	return nil
}

func (m *memBackend) Type() string { return "mem" }
func (m *memBackend) Close() error { return nil }

func TestInstrument_SpansCarryRunID(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)))
	defer otel.SetTracerProvider(prev)

	inner := &memBackend{blobs: map[string][]byte{}, putErr: errors.New("disk full")}
	b := Instrument(inner)
	ctx, runID := logging.WithRunID(context.Background())

	if _, err := b.GetObject(ctx, "session"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetObject err = %v, want ErrNotFound", err)
	}
	if err := b.PutObject(ctx, "session", []byte("{}")); err == nil {
		t.Fatal("PutObject succeeded, want error")
	}

	spans := sr.Ended()
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}
	for _, span := range spans {
		attrs := map[string]string{}
		for _, kv := range span.Attributes() {
			attrs[string(kv.Key)] = kv.Value.Emit()
		}
		if attrs["run_id"] != runID {
			t.Errorf("%s run_id = %q, want %q", span.Name(), attrs["run_id"], runID)
		}
		if attrs["backend"] != "mem" || attrs["key"] != "session" {
			t.Errorf("%s attrs = %v", span.Name(), attrs)
		}
	}

	if spans[0].Name() != "store.get" || len(spans[0].Events()) != 0 {
		t.Errorf("miss recorded as error: %s events=%v", spans[0].Name(), spans[0].Events())
	}
	if spans[1].Name() != "store.put" || len(spans[1].Events()) != 1 {
		t.Errorf("failure not recorded: %s events=%v", spans[1].Name(), spans[1].Events())
	}
}

func TestInstrument_NoRunID(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)))
	defer otel.SetTracerProvider(prev)

	b := Instrument(&memBackend{blobs: map[string][]byte{}})
	if err := b.DeleteObject(context.Background(), "session"); err != nil {
		t.Fatalf("DeleteObject: %v", err)
	}

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	for _, kv := range spans[0].Attributes() {
		if kv.Key == "run_id" {
			t.Errorf("unexpected run_id attribute %q", kv.Value.Emit())
		}
	}
}
