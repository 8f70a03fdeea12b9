package service

import (
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"pulse/internal/clock"
	"pulse/internal/events"
	"pulse/internal/telemetry"
)

// PromptScheduler emits prompt_triggered at random instants inside working
// hours. Each fire re-arms the next one until Stop.
type PromptScheduler struct {
	mu       sync.Mutex
	clock    clock.Clock
	bus      *events.Bus
	settings SettingsProvider
	logger   *slog.Logger
	metrics  *telemetry.Metrics
	uniform  func() float64

	running  bool
	gen      uint64
	timer    clock.Timer
	nextFire time.Time
	prompt   bool
}

func NewPromptScheduler(
	clk clock.Clock,
	bus *events.Bus,
	settings SettingsProvider,
	logger *slog.Logger,
	metrics *telemetry.Metrics,
) *PromptScheduler {
	return &PromptScheduler{
		clock:    clk,
		bus:      bus,
		settings: settings,
		logger:   logger.With("component", "prompt_scheduler"),
		metrics:  metrics,
		uniform:  rand.Float64,
	}
}

// Start arms a fresh schedule, discarding any timer already armed.
func (s *PromptScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.running = true
	s.armLocked()
}

func (s *PromptScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *PromptScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextFire reports when the armed timer is due and whether it will prompt
// (false means it is only waiting for working hours to begin).
func (s *PromptScheduler) NextFire() (time.Time, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return time.Time{}, false, false
	}
	return s.nextFire, s.prompt, true
}

func (s *PromptScheduler) stopLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.running = false
	s.nextFire = time.Time{}
}

func (s *PromptScheduler) armLocked() {
	ctx, cancel := storeContext()
	settings := s.settings.Settings(ctx)
	cancel()

	now := s.clock.Now()
	gen := s.gen

	var wait time.Duration
	prompt := withinWorkingHours(now, settings)
	if prompt {
		wait = PromptInterval(s.uniform(), settings)
	} else {
		if settings.WorkingHoursEnd <= settings.WorkingHoursStart {
			s.logger.Warn("working hours are empty, waiting for next start hour",
				"start", settings.WorkingHoursStart, "end", settings.WorkingHoursEnd)
		}
		wait = nextHourOccurrence(now, settings.WorkingHoursStart).Sub(now)
	}

	s.nextFire = now.Add(wait)
	s.prompt = prompt
	s.timer = s.clock.AfterFunc(wait, func() {
		s.fire(gen, prompt)
	})
	s.logger.Debug("prompt timer armed", "wait", wait.String(), "prompt", prompt)
}

func (s *PromptScheduler) fire(gen uint64, prompt bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || !s.running {
		return
	}
	s.timer = nil

	if prompt {
		now := s.clock.Now()
		s.bus.Publish(events.Event{Kind: events.KindPromptTriggered, At: now})
		ctx, cancel := storeContext()
		s.metrics.PromptFired(ctx)
		cancel()
		s.logger.Info("intraday prompt triggered", "at", now)
	}
	s.armLocked()
}
