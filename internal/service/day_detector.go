package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"pulse/internal/clock"
	"pulse/internal/events"
	"pulse/internal/repository"
	"pulse/internal/telemetry"
	"pulse/internal/wake"
)

// morningCutoffHour is the first hour at which the start-of-day prompt is no longer offered.
const morningCutoffHour = 12

// DayDetector emits new_day on the first qualifying check of a calendar day.
type DayDetector struct {
	mu       sync.Mutex
	clock    clock.Clock
	bus      *events.Bus
	markers  MarkerStore
	suppress func() bool
	logger   *slog.Logger
	metrics  *telemetry.Metrics
}

// NewDayDetector builds a detector. suppress is queried on every check; when it
// returns true the check is vetoed (e.g. while a pomodoro is running).
func NewDayDetector(
	clk clock.Clock,
	bus *events.Bus,
	markers MarkerStore,
	suppress func() bool,
	logger *slog.Logger,
	metrics *telemetry.Metrics,
) *DayDetector {
	return &DayDetector{
		clock:    clk,
		bus:      bus,
		markers:  markers,
		suppress: suppress,
		logger:   logger.With("component", "day_detector"),
		metrics:  metrics,
	}
}

// CheckForNewDay emits new_day and returns true when it is morning, the user
// has not been prompted today and nothing suppresses the prompt.
func (d *DayDetector) CheckForNewDay() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock.Now()
	if now.Hour() >= morningCutoffHour {
		return false
	}

	ctx, cancel := storeContext()
	defer cancel()

	last, err := d.markers.GetLastPrompted(ctx)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		// An unreadable marker is treated like a missing one.
		d.logger.Error("read last prompted marker", "error", err)
		d.metrics.StoreFailed(ctx, "get_last_prompted")
	default:
		if sameCalendarDay(last, now) {
			return false
		}
	}

	if d.suppress != nil && d.suppress() {
		d.logger.Info("new day prompt suppressed")
		return false
	}

	d.bus.Publish(events.Event{Kind: events.KindNewDay, At: now})
	d.metrics.NewDayFired(ctx)
	d.logger.Info("new day detected", "at", now)
	return true
}

// MarkPromptedToday records that the start-of-day prompt was answered.
func (d *DayDetector) MarkPromptedToday(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.markers.SetLastPrompted(ctx, d.clock.Now())
}

// Reset forgets the marker so the next check behaves as if never prompted.
func (d *DayDetector) Reset(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.markers.ClearLastPrompted(ctx)
}

// LastPrompted returns the stored marker, if any.
func (d *DayDetector) LastPrompted(ctx context.Context) (time.Time, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	last, err := d.markers.GetLastPrompted(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return last, true, nil
}

// Watch runs one eager check, then one check per wake signal until ctx is
// done or the source closes. beforeCheck hooks run on every signal ahead of
// the check, so state that feeds the suppression predicate is current.
func (d *DayDetector) Watch(ctx context.Context, src wake.Source, beforeCheck ...func()) {
	d.CheckForNewDay()

	signals := src.Signals()
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			d.logger.Debug("wake signal", "reason", sig.Reason)
			for _, hook := range beforeCheck {
				hook()
			}
			d.CheckForNewDay()
		}
	}
}
