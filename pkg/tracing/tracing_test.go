package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func TestInitTracer_Disabled(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), Options{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestStartSpan(t *testing.T) {
	sr := setupRecorder(t)

	ctx, parent := StartSpan(context.Background(), "test", "CreateUserWithBooks",
		attribute.Int("book_count", 2))
	assert.NotEmpty(t, ExtractTraceID(ctx))
	assert.NotEmpty(t, ExtractSpanID(ctx))

	_, child := StartSpan(ctx, "test", "CreateBook")
	EndSpan(child, nil)
	EndSpan(parent, nil)

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "CreateBook", spans[0].Name())
	assert.Equal(t, "CreateUserWithBooks", spans[1].Name())
	assert.Equal(t, spans[1].SpanContext().TraceID(), spans[0].SpanContext().TraceID())
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
	assert.Contains(t, spans[1].Attributes(), attribute.Int("book_count", 2))
}

func TestEndSpan_Error(t *testing.T) {
	sr := setupRecorder(t)

	_, span := StartSpan(context.Background(), "test", "DeleteUserWithBooks")
	EndSpan(span, errors.New("用户不存在"))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "用户不存在", spans[0].Status().Description)
	assert.Len(t, spans[0].Events(), 1)
}

func TestExtractTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, ExtractTraceID(context.Background()))
	assert.Empty(t, ExtractSpanID(context.Background()))
}
