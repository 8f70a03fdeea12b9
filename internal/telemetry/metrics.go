package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

type Metrics struct {
	promptsFired     metric.Int64Counter
	newDayFired      metric.Int64Counter
	sessionsFinished metric.Int64Counter
	storeFailures    metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	promptsFired, err := meter.Int64Counter("pulse.prompts.fired",
		metric.WithDescription("Intraday check-in prompts emitted"))
	if err != nil {
		return nil, fmt.Errorf("create prompts counter: %w", err)
	}
	newDayFired, err := meter.Int64Counter("pulse.new_day.fired",
		metric.WithDescription("Start-of-day events emitted"))
	if err != nil {
		return nil, fmt.Errorf("create new day counter: %w", err)
	}
	sessionsFinished, err := meter.Int64Counter("pulse.sessions.finished",
		metric.WithDescription("Pomodoro work sessions finalized"))
	if err != nil {
		return nil, fmt.Errorf("create sessions counter: %w", err)
	}
	storeFailures, err := meter.Int64Counter("pulse.store.failures",
		metric.WithDescription("Best-effort persistence calls that failed"))
	if err != nil {
		return nil, fmt.Errorf("create store failures counter: %w", err)
	}

	return &Metrics{
		promptsFired:     promptsFired,
		newDayFired:      newDayFired,
		sessionsFinished: sessionsFinished,
		storeFailures:    storeFailures,
	}, nil
}

func NopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter(serviceName))
	return m
}

func (m *Metrics) PromptFired(ctx context.Context) {
	m.promptsFired.Add(ctx, 1)
}

func (m *Metrics) NewDayFired(ctx context.Context) {
	m.newDayFired.Add(ctx, 1)
}

func (m *Metrics) SessionFinished(ctx context.Context, completed bool) {
	m.sessionsFinished.Add(ctx, 1, metric.WithAttributes(attribute.Bool("completed", completed)))
}

func (m *Metrics) StoreFailed(ctx context.Context, op string) {
	m.storeFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}
