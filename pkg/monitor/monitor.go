// Package monitor instruments the execution step: wall-clock timing,
// process resource snapshots, and OpenTelemetry spans and metrics
// around a pass-through call. It never swallows a failure.
package monitor

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/castellan-io/castellan/pkg/contracts"
)

const instrumentationName = "github.com/castellan-io/castellan/pkg/monitor"

// Sample captures one monitored execution.
type Sample struct {
	Operation string
	Start     time.Time
	End       time.Time
	Duration  time.Duration

	HeapBefore       uint64
	HeapAfter        uint64
	GoroutinesBefore int
	GoroutinesAfter  int

	Failed bool
}

// Monitor wraps operation execution with instrumentation.
type Monitor struct {
	tracer   trace.Tracer
	duration metric.Float64Histogram
	onSample func(Sample)
}

// New builds a Monitor on the global OpenTelemetry providers.
// onSample, if non-nil, receives every sample including the ones taken
// on failure and panic.
func New(onSample func(Sample)) *Monitor {
	m := &Monitor{
		tracer:   otel.Tracer(instrumentationName),
		onSample: onSample,
	}

	hist, err := otel.Meter(instrumentationName).Float64Histogram(
		"castellan.operation.duration",
		metric.WithDescription("Monitored operation duration"),
		metric.WithUnit("ms"),
	)
	if err == nil {
		m.duration = hist
	}
	return m
}

// Wrap runs fn with timing and resource snapshots. Errors pass through
// untouched; a panic is recorded as a failure sample and re-raised.
func (m *Monitor) Wrap(ctx context.Context, name string, fn func(context.Context) (*contracts.OperationResult, error)) (*contracts.OperationResult, Sample, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	sample := Sample{
		Operation:        name,
		Start:            time.Now(),
		HeapBefore:       ms.HeapAlloc,
		GoroutinesBefore: runtime.NumGoroutine(),
	}

	ctx, span := m.tracer.Start(ctx, "castellan.execute",
		trace.WithAttributes(attribute.String("operation.id", name)))

	defer func() {
		if r := recover(); r != nil {
			m.finish(ctx, span, &sample, fmt.Errorf("panic: %v", r))
			panic(r)
		}
	}()

	res, err := fn(ctx)
	m.finish(ctx, span, &sample, err)
	return res, sample, err
}

func (m *Monitor) finish(ctx context.Context, span trace.Span, sample *Sample, err error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	sample.End = time.Now()
	sample.Duration = sample.End.Sub(sample.Start)
	sample.HeapAfter = ms.HeapAlloc
	sample.GoroutinesAfter = runtime.NumGoroutine()
	sample.Failed = err != nil

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "execution failed")
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.SetAttributes(
		attribute.Int64("operation.duration_ms", sample.Duration.Milliseconds()),
		attribute.Int64("operation.heap_delta", int64(sample.HeapAfter)-int64(sample.HeapBefore)), //nolint:gosec // heap sizes fit int64
	)
	span.End()

	if m.duration != nil {
		m.duration.Record(ctx, float64(sample.Duration)/float64(time.Millisecond),
			metric.WithAttributes(
				attribute.String("operation.id", sample.Operation),
				attribute.Bool("failed", sample.Failed),
			))
	}

	if m.onSample != nil {
		m.onSample(*sample)
	}
}
