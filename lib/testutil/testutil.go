package testutil

import (
	"context"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// RecordSpans creates a tracer provider that keeps every span in memory, it
// is shut down when the test ends.
func RecordSpans(t testing.TB) (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() {
		provider.Shutdown(context.Background())
	})
	return provider, recorder
}

// EndedSpan finds the first ended span with the given name.
func EndedSpan(recorder *tracetest.SpanRecorder, name string) (sdktrace.ReadOnlySpan, bool) {
	for _, span := range recorder.Ended() {
		if span.Name() == name {
			return span, true
		}
	}
	return nil, false
}
