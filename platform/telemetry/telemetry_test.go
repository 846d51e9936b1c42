package telemetry

import (
	"context"
	"testing"

	"agency_os_backend/platform/config"
)

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	cfg := &config.Config{ServiceName: "agency-os-api"}

	shutdown, err := Init(context.Background(), cfg, "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown returned %v", err)
	}

	counter, err := Meter("test").Int64Counter("noop.count")
	if err != nil {
		t.Fatalf("expected no-op counter, got %v", err)
	}
	counter.Add(context.Background(), 1)

	_, span := Tracer("test").Start(context.Background(), "noop")
	span.End()
}
