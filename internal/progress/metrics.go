package progress

import (
	"context"

	"github.com/metalagman/questline/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = telemetry.Scope + "/progress"

type instruments struct {
	tracer      trace.Tracer
	transitions metric.Int64Counter
	rejected    metric.Int64Counter
	unlocked    metric.Int64Counter
	relocked    metric.Int64Counter
	catchUps    metric.Int64Counter
}

func newInstruments() *instruments {
	m := telemetry.Meter(scopeName)
	transitions, _ := m.Int64Counter("questline.progress.transitions",
		metric.WithDescription("Task status changes written"),
	)
	rejected, _ := m.Int64Counter("questline.progress.rejected",
		metric.WithDescription("Status change requests rejected by the transition table"),
	)
	unlocked, _ := m.Int64Counter("questline.progress.unlocked",
		metric.WithDescription("Tasks unlocked by the cascade"),
	)
	relocked, _ := m.Int64Counter("questline.progress.relocked",
		metric.WithDescription("Tasks relocked after a prerequisite regressed"),
	)
	catchUps, _ := m.Int64Counter("questline.progress.catch_up.tasks",
		metric.WithDescription("Tasks written by catch-up batches"),
	)
	return &instruments{
		tracer:      telemetry.Tracer(scopeName),
		transitions: transitions,
		rejected:    rejected,
		unlocked:    unlocked,
		relocked:    relocked,
		catchUps:    catchUps,
	}
}

func (in *instruments) start(ctx context.Context, op, userID string) (context.Context, trace.Span) {
	return in.tracer.Start(ctx, "progress."+op,
		trace.WithAttributes(attribute.String("questline.user_id", userID)),
	)
}

func (in *instruments) end(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
