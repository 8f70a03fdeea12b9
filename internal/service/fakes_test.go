package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pulse/internal/clock"
	"pulse/internal/events"
	"pulse/internal/model"
	"pulse/internal/repository"
	"pulse/internal/telemetry"
)

type memorySessions struct {
	mu       sync.Mutex
	sessions []model.PomodoroSession
	failAdd  bool
}

func (m *memorySessions) AddSession(_ context.Context, session *model.PomodoroSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAdd {
		return errors.New("disk full")
	}
	m.sessions = append(m.sessions, *session)
	return nil
}

func (m *memorySessions) FinishSession(_ context.Context, id string, endedAt time.Time, completed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.sessions {
		if m.sessions[i].ID != id {
			continue
		}
		if m.sessions[i].EndedAt != nil {
			return repository.ErrAlreadyFinished
		}
		m.sessions[i].EndedAt = &endedAt
		m.sessions[i].Completed = completed
		return nil
	}
	return repository.ErrNotFound
}

func (m *memorySessions) UpdateLastSession(_ context.Context, endedAt time.Time, completed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sessions) - 1; i >= 0; i-- {
		if m.sessions[i].EndedAt == nil {
			m.sessions[i].EndedAt = &endedAt
			m.sessions[i].Completed = completed
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memorySessions) all() []model.PomodoroSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.PomodoroSession(nil), m.sessions...)
}

type memoryState struct {
	mu           sync.Mutex
	checkpoint   *model.Checkpoint
	lastPrompted *time.Time
	markerErr    error
}

func (m *memoryState) GetCheckpoint(context.Context) (*model.Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.checkpoint == nil {
		return nil, repository.ErrNotFound
	}
	cp := *m.checkpoint
	return &cp, nil
}

func (m *memoryState) SetCheckpoint(_ context.Context, checkpoint model.Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkpoint = &checkpoint
	return nil
}

func (m *memoryState) ClearCheckpoint(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkpoint = nil
	return nil
}

func (m *memoryState) hasCheckpoint() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checkpoint != nil
}

func (m *memoryState) GetLastPrompted(context.Context) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markerErr != nil {
		return time.Time{}, m.markerErr
	}
	if m.lastPrompted == nil {
		return time.Time{}, repository.ErrNotFound
	}
	return *m.lastPrompted, nil
}

func (m *memoryState) SetLastPrompted(_ context.Context, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastPrompted = &at
	return nil
}

func (m *memoryState) ClearLastPrompted(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastPrompted = nil
	return nil
}

// recorder collects bus events in delivery order.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func newRecorder(bus *events.Bus, kinds ...events.Kind) *recorder {
	r := &recorder{}
	for _, kind := range kinds {
		bus.Subscribe(kind, func(e events.Event) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, e)
		})
	}
	return r
}

func (r *recorder) of(kind events.Kind) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

var allKinds = []events.Kind{
	events.KindPromptTriggered,
	events.KindNewDay,
	events.KindTimerTick,
	events.KindWorkSessionEnded,
	events.KindBreakEnded,
	events.KindSnoozeEnded,
	events.KindBreakSnoozeEnded,
}

type engineFixture struct {
	clock    *clock.Fake
	bus      *events.Bus
	sessions *memorySessions
	state    *memoryState
	engine   *PomodoroEngine
	events   *recorder
}

func newEngineFixture(t *testing.T, now time.Time) *engineFixture {
	t.Helper()

	f := &engineFixture{
		clock:    clock.NewFake(now),
		bus:      events.NewBus(),
		sessions: &memorySessions{},
		state:    &memoryState{},
	}
	t.Cleanup(f.bus.Close)

	f.events = newRecorder(f.bus, allKinds...)
	f.engine = NewPomodoroEngine(
		f.clock,
		f.bus,
		f.sessions,
		f.state,
		StaticSettings{},
		telemetry.NopLogger(),
		telemetry.NopMetrics(),
	)
	t.Cleanup(f.engine.Close)
	return f
}

func at(hour, minute int) time.Time {
	return time.Date(2026, time.March, 10, hour, minute, 0, 0, time.UTC)
}
