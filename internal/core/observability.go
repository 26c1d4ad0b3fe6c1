package core

import (
	"context"
	"time"
)

// MetricsRecorder aggregates service operation outcomes. Implementations must
// be safe for concurrent use.
type MetricsRecorder interface {
	// Observe records one completed operation with its outcome and duration.
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer creates spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan finishes a traced operation.
type TraceSpan interface {
	End(err error)
}

// NopMetricsRecorder discards all observations.
type NopMetricsRecorder struct{}

// Observe implements MetricsRecorder.
func (NopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

// NopTracer produces spans that do nothing.
type NopTracer struct{}

// Start implements Tracer.
func (NopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, nopSpan{}
}

type nopSpan struct{}

func (nopSpan) End(error) {}
