// Package observability traces plan runs and steps with OpenTelemetry.
package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	stringpool "github.com/ajitpratap0/nebulaframe/pkg/strings"
)

// Attribute keys set on step spans.
const (
	AttrRunID   = "nebulaframe.run_id"
	AttrStep    = "nebulaframe.step"
	AttrOp      = "nebulaframe.op"
	AttrRowsIn  = "nebulaframe.rows_in"
	AttrRowsOut = "nebulaframe.rows_out"
)

// Tracer starts spans for runs and steps. The zero value is not usable;
// build one with New.
type Tracer struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
}

// Span wraps a trace span, batching attributes until End.
type Span struct {
	span       trace.Span
	startTime  time.Time
	attributes []attribute.KeyValue
}

// Start begins a span named name as a child of any span in ctx.
func (t *Tracer) Start(ctx context.Context, name string) (context.Context, *Span) {
	ctx, span := t.tracer.Start(ctx, name)
	return ctx, &Span{
		span:      span,
		startTime: time.Now(),
	}
}

// SetAttribute adds an attribute to the span.
func (s *Span) SetAttribute(key string, value interface{}) {
	var attr attribute.KeyValue

	switch v := value.(type) {
	case string:
		attr = attribute.String(key, v)
	case int:
		attr = attribute.Int(key, v)
	case int64:
		attr = attribute.Int64(key, v)
	case float64:
		attr = attribute.Float64(key, v)
	case bool:
		attr = attribute.Bool(key, v)
	default:
		attr = attribute.String(key, stringpool.ValueToString(v))
	}

	s.attributes = append(s.attributes, attr)
}

// AddEvent adds an event to the span
func (s *Span) AddEvent(name string, attrs ...attribute.KeyValue) {
	s.span.AddEvent(name, trace.WithAttributes(attrs...))
}

// Finish records err as the span status and ends the span.
func (s *Span) Finish(err error) {
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.End()
}

// End flushes the batched attributes and ends the span.
func (s *Span) End() {
	s.SetAttribute("duration_ms", float64(time.Since(s.startTime).Microseconds())/1000)
	s.span.SetAttributes(s.attributes...)
	s.span.End()
}

// StepResult is what a traced step reports back to its span.
type StepResult struct {
	RowsIn   int
	RowsOut  int
	Warnings int
}

// TraceStep runs fn inside a span for step index of a run. The row counts
// returned by fn are attached to the span.
func (t *Tracer) TraceStep(ctx context.Context, runID string, index int, op string, fn func(context.Context) (StepResult, error)) (StepResult, error) {
	ctx, span := t.Start(ctx, "step."+op)
	span.SetAttribute(AttrRunID, runID)
	span.SetAttribute(AttrStep, index)
	span.SetAttribute(AttrOp, op)

	res, err := fn(ctx)
	span.SetAttribute(AttrRowsIn, res.RowsIn)
	span.SetAttribute(AttrRowsOut, res.RowsOut)
	if res.Warnings > 0 {
		span.AddEvent("warnings", attribute.Int("count", res.Warnings))
	}
	span.Finish(err)
	return res, err
}
