package tracing

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestSetup_Disabled(t *testing.T) {
	origTP := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(origTP) })

	sentinel := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = sentinel.Shutdown(context.Background()) })
	otel.SetTracerProvider(sentinel)

	for _, cfg := range []*Config{nil, {Enabled: false, Endpoint: "localhost:4318"}} {
		shutdown, err := Setup(context.Background(), cfg)
		if err != nil {
			t.Fatalf("Setup(%+v) error: %v", cfg, err)
		}
		if err := shutdown(context.Background()); err != nil {
			t.Fatalf("shutdown error: %v", err)
		}
		if otel.GetTracerProvider() != sentinel {
			t.Fatal("tracer provider changed while disabled")
		}
	}
}

func TestSetup_EnabledRestoresProvider(t *testing.T) {
	origTP := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(origTP) })

	sentinel := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = sentinel.Shutdown(context.Background()) })
	otel.SetTracerProvider(sentinel)

	// The exporter connects lazily, so no collector is needed until spans
	// are flushed.
	shutdown, err := Setup(context.Background(), &Config{Enabled: true, Endpoint: "127.0.0.1:1", Insecure: true, Version: "test"})
	if err != nil {
		t.Fatalf("Setup error: %v", err)
	}
	if otel.GetTracerProvider() == sentinel {
		t.Fatal("tracer provider not installed")
	}

	_ = shutdown(context.Background())
	if otel.GetTracerProvider() != sentinel {
		t.Error("tracer provider not restored after shutdown")
	}
}

func TestEnabledFromEnv(t *testing.T) {
	tests := map[string]bool{"": false, "1": true, "TRUE": true, " yes ": true, "no": false, "0": false}
	for value, want := range tests {
		t.Setenv("OTEL_ENABLED", value)
		if got := EnabledFromEnv(); got != want {
			t.Errorf("OTEL_ENABLED=%q: EnabledFromEnv() = %v, want %v", value, got, want)
		}
	}
}
