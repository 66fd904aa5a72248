package telemetry

import (
	"context"
	"testing"
)

func TestInit_Disabled(t *testing.T) {
	p, err := Init(context.Background(), Config{
		ServiceName: "lobbylog-test",
		Enabled:     false,
	})
	if err != nil {
		t.Fatalf("Init returned error: %v", err)
	}
	if p.TracerProvider != nil {
		t.Error("expected nil TracerProvider when telemetry is disabled")
	}
	if p.MeterProvider != nil {
		t.Error("expected nil MeterProvider when telemetry is disabled")
	}
	if p.Tracer == nil {
		t.Error("expected a no-op Tracer when telemetry is disabled")
	}
	if p.Meter == nil {
		t.Error("expected a no-op Meter when telemetry is disabled")
	}
}

func TestProvider_Shutdown_NilProviders(t *testing.T) {
	p := &Provider{}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown with nil providers returned error: %v", err)
	}
}
