package trace

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestInitDisabled(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Init(context.Background(), false, "test", &buf)
	if err != nil {
		t.Fatalf("Init error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown error: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("disabled tracing wrote output: %q", buf.String())
	}
}

func TestInitExportsSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	defer otel.SetTracerProvider(prev)

	var buf bytes.Buffer
	shutdown, err := Init(context.Background(), true, "test", &buf)
	if err != nil {
		t.Fatalf("Init error: %v", err)
	}
	_, span := otel.Tracer("test").Start(context.Background(), "unit-span")
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
	if !strings.Contains(buf.String(), "unit-span") {
		t.Errorf("exported spans missing unit-span: %q", buf.String())
	}
}
