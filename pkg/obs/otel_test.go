package obs

import (
	"context"
	"testing"
)

func TestInitTracer_NoEndpointIsNoop(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), "test", "0.0.0", "", "test")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if shutdown == nil {
		t.Fatal("Expected a shutdown function")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("Expected no-op shutdown, got %v", err)
	}
}
