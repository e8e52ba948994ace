package tracing

import (
	"testing"

	"github.com/opentracing/opentracing-go"
)

func TestDisabledTracerIsNoop(t *testing.T) {
	tr, closeFn, err := InitTracer(Config{})
	if err != nil {
		t.Fatalf("InitTracer: %v", err)
	}
	defer closeFn()
	if _, ok := tr.(opentracing.NoopTracer); !ok {
		t.Fatalf("tracer = %T, want NoopTracer", tr)
	}
}

func TestEnabledTracer(t *testing.T) {
	old := SetServiceName("flow_bot_test")
	defer SetServiceName(old)

	tr, closeFn, err := InitTracer(Config{Enabled: true, Host: "127.0.0.1", Port: 6831})
	if err != nil {
		t.Fatalf("InitTracer: %v", err)
	}
	defer closeFn()
	span := tr.StartSpan("test")
	span.Finish()
}
