package tracer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordingTracer(t *testing.T) (*OtelTracer, *tracetest.InMemoryExporter, *sdktrace.TracerProvider) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	return NewOtelTracer(tp.Tracer("test")), exporter, tp
}

func attributesOf(span tracetest.SpanStub) map[string]any {
	attrs := make(map[string]any)
	for _, attr := range span.Attributes {
		attrs[string(attr.Key)] = attr.Value.AsInterface()
	}
	return attrs
}

func TestNoopTracer(t *testing.T) {
	ctx := context.Background()
	got, span := NoopTracer{}.StartSpan(ctx, "sqlrow.query")
	assert.Equal(t, ctx, got)

	// Should not panic
	span.SetAttributes(attribute.String("key", "value"))
	span.RecordError(errors.New("boom"))
	span.SetStatus(codes.Error, "boom")
	span.End()
}

func TestOtelTracer(t *testing.T) {
	tr, exporter, tp := newRecordingTracer(t)

	ctx, span := tr.StartSpan(context.Background(), "sqlrow.query")
	span.SetAttributes(attribute.String("key", "value"))
	span.End()
	require.NoError(t, tp.ForceFlush(ctx))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "sqlrow.query", spans[0].Name)
	assert.Equal(t, "value", attributesOf(spans[0])["key"])
}

func TestAddQueryAttributes_Success(t *testing.T) {
	tr, exporter, tp := newRecordingTracer(t)

	ctx, span := tr.StartSpan(context.Background(), "sqlrow.exec")
	AddQueryAttributes(span, &QueryMetadata{
		SQL:          `UPDATE "users" SET "name" = ? WHERE id = ?`,
		Duration:     15 * time.Millisecond,
		RowsAffected: 1,
		Database:     "sqlite",
		Operation:    "UPDATE",
		TxID:         "tx-1",
	})
	span.End()
	require.NoError(t, tp.ForceFlush(ctx))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	attrs := attributesOf(spans[0])

	assert.Equal(t, "sqlite", attrs["db.system"])
	assert.Equal(t, "UPDATE", attrs["db.operation"])
	assert.Equal(t, int64(1), attrs["db.rows_affected"])
	assert.Equal(t, "tx-1", attrs["db.transaction.id"])
	assert.InDelta(t, 15.0, attrs["db.duration_ms"], 0.1)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
}

func TestAddQueryAttributes_WithError(t *testing.T) {
	tr, exporter, tp := newRecordingTracer(t)

	ctx, span := tr.StartSpan(context.Background(), "sqlrow.query")
	AddQueryAttributes(span, &QueryMetadata{
		SQL:       "SELECT * FORM users",
		Error:     errors.New("syntax error"),
		Database:  "postgres",
		Operation: "SELECT",
	})
	span.End()
	require.NoError(t, tp.ForceFlush(ctx))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "syntax error", spans[0].Status.Description)
	assert.Len(t, spans[0].Events, 1)
	_, hasTx := attributesOf(spans[0])["db.transaction.id"]
	assert.False(t, hasTx)
}

func TestDetectOperation(t *testing.T) {
	tests := []struct {
		sql  string
		want string
	}{
		{"SELECT * FROM users", "SELECT"},
		{"  \n select name FROM users", "SELECT"},
		{"WITH s AS (SELECT 1) SELECT * FROM s", "SELECT"},
		{"INSERT INTO users (name) VALUES (?)", "INSERT"},
		{"UPDATE users SET name = ?", "UPDATE"},
		{"DELETE FROM users", "DELETE"},
		{"EXPLAIN SELECT 1", "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectOperation(tt.sql))
		})
	}
}
