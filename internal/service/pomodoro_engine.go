package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"pulse/internal/clock"
	"pulse/internal/events"
	"pulse/internal/model"
	"pulse/internal/repository"
	"pulse/internal/telemetry"
)

var ErrInvalidTransition = errors.New("invalid pomodoro transition")

type EngineState struct {
	Phase              model.Phase `json:"phase"`
	RemainingSeconds   int         `json:"remainingSeconds"`
	DurationSeconds    int         `json:"durationSeconds"`
	Task               string      `json:"task,omitempty"`
	Cycle              int         `json:"cycle"`
	LongBreakDue       bool        `json:"longBreakDue"`
	SessionID          string      `json:"sessionId,omitempty"`
	PhaseStartedAt     *time.Time  `json:"phaseStartedAt,omitempty"`
	SnoozePending      bool        `json:"snoozePending"`
	BreakSnoozePending bool        `json:"breakSnoozePending"`
}

// PomodoroEngine drives the idle/work/break cycle. Every transition happens
// under mu; timers carry a generation so a fire that lost a race with a
// transition is dropped.
type PomodoroEngine struct {
	mu          sync.Mutex
	clock       clock.Clock
	bus         *events.Bus
	sessions    SessionStore
	checkpoints CheckpointStore
	settings    SettingsProvider
	logger      *slog.Logger
	metrics     *telemetry.Metrics

	phase          model.Phase
	remaining      int
	task           string
	cycle          int
	phaseStartedAt time.Time
	phaseDuration  int
	sessionID      string

	ticker         clock.Timer
	tickGen        uint64
	snooze         clock.Timer
	snoozeGen      uint64
	breakSnooze    clock.Timer
	breakSnoozeGen uint64
}

func NewPomodoroEngine(
	clk clock.Clock,
	bus *events.Bus,
	sessions SessionStore,
	checkpoints CheckpointStore,
	settings SettingsProvider,
	logger *slog.Logger,
	metrics *telemetry.Metrics,
) *PomodoroEngine {
	return &PomodoroEngine{
		clock:       clk,
		bus:         bus,
		sessions:    sessions,
		checkpoints: checkpoints,
		settings:    settings,
		logger:      logger.With("component", "pomodoro_engine"),
		metrics:     metrics,
		phase:       model.PhaseIdle,
	}
}

func (e *PomodoroEngine) StartWork(task string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != model.PhaseIdle {
		return fmt.Errorf("%w: start work while %s", ErrInvalidTransition, e.phase)
	}

	ctx, cancel := storeContext()
	defer cancel()

	settings := e.settings.Settings(ctx)
	now := e.clock.Now()
	task = strings.TrimSpace(task)

	e.cancelSnoozesLocked()
	e.cycle = e.cycle%model.CyclesPerLongBreak + 1

	session := model.PomodoroSession{
		ID:        uuid.NewString(),
		Task:      task,
		Cycle:     e.cycle,
		StartedAt: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.sessions.AddSession(ctx, &session); err != nil {
		e.storeFailedLocked(ctx, "add_session", err)
	}
	e.sessionID = session.ID

	e.beginPhaseLocked(ctx, model.PhaseWork, settings.PhaseSeconds(model.PhaseWork), task, now)
	e.logger.Info("work started", "task", task, "cycle", e.cycle, "session_id", session.ID)
	return nil
}

// StartBreak begins a short or long break. Which one is the caller's call;
// IsLongBreakDue is the usual input.
func (e *PomodoroEngine) StartBreak(long bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != model.PhaseIdle {
		return fmt.Errorf("%w: start break while %s", ErrInvalidTransition, e.phase)
	}

	ctx, cancel := storeContext()
	defer cancel()

	phase := model.PhaseShortBreak
	if long {
		phase = model.PhaseLongBreak
	}
	settings := e.settings.Settings(ctx)

	e.cancelSnoozesLocked()
	e.beginPhaseLocked(ctx, phase, settings.PhaseSeconds(phase), "", e.clock.Now())
	e.logger.Info("break started", "phase", phase)
	return nil
}

// Abandon stops the running phase. An abandoned work session is finalized as
// not completed.
func (e *PomodoroEngine) Abandon() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase == model.PhaseIdle {
		return fmt.Errorf("%w: abandon while idle", ErrInvalidTransition)
	}

	ctx, cancel := storeContext()
	defer cancel()

	now := e.clock.Now()
	phase := e.phase

	e.stopCountdownLocked()
	e.cancelSnoozesLocked()
	e.clearCheckpointLocked(ctx)
	if phase == model.PhaseWork {
		e.finalizeSessionLocked(ctx, now, false)
	}
	e.resetPhaseLocked()

	e.bus.Publish(events.Event{Kind: events.KindTimerTick, At: now, Seconds: 0, Phase: model.PhaseIdle})
	e.logger.Info("phase abandoned", "phase", phase)
	return nil
}

func (e *PomodoroEngine) ScheduleSnooze() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != model.PhaseIdle {
		return fmt.Errorf("%w: snooze while %s", ErrInvalidTransition, e.phase)
	}

	ctx, cancel := storeContext()
	defer cancel()
	wait := e.settings.Settings(ctx).SnoozeDuration()

	if e.snooze != nil {
		e.snooze.Stop()
	}
	e.snoozeGen++
	gen := e.snoozeGen
	e.snooze = e.clock.AfterFunc(wait, func() {
		e.onSnooze(gen)
	})
	e.logger.Info("task prompt snoozed", "wait", wait.String())
	return nil
}

func (e *PomodoroEngine) ScheduleBreakSnooze() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != model.PhaseIdle {
		return fmt.Errorf("%w: break snooze while %s", ErrInvalidTransition, e.phase)
	}

	ctx, cancel := storeContext()
	defer cancel()
	wait := e.settings.Settings(ctx).BreakSnoozeDuration()

	if e.breakSnooze != nil {
		e.breakSnooze.Stop()
	}
	e.breakSnoozeGen++
	gen := e.breakSnoozeGen
	e.breakSnooze = e.clock.AfterFunc(wait, func() {
		e.onBreakSnooze(gen)
	})
	e.logger.Info("break snoozed", "wait", wait.String())
	return nil
}

func (e *PomodoroEngine) IsLongBreakDue() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cycle == model.CyclesPerLongBreak
}

func (e *PomodoroEngine) IsActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase != model.PhaseIdle
}

func (e *PomodoroEngine) State() EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()

	state := EngineState{
		Phase:              e.phase,
		RemainingSeconds:   e.remaining,
		DurationSeconds:    e.phaseDuration,
		Task:               e.task,
		Cycle:              e.cycle,
		LongBreakDue:       e.cycle == model.CyclesPerLongBreak,
		SessionID:          e.sessionID,
		SnoozePending:      e.snooze != nil,
		BreakSnoozePending: e.breakSnooze != nil,
	}
	if e.phase != model.PhaseIdle {
		startedAt := e.phaseStartedAt
		state.PhaseStartedAt = &startedAt
	}
	return state
}

// RestoreState reconciles a checkpoint left by a previous process. A phase
// that would still be running resumes with the remaining time; one that ran
// out meanwhile ends now, with the end event it would have produced live.
func (e *PomodoroEngine) RestoreState(ctx context.Context) error {
	ctx, span := otel.Tracer("pulse/service").Start(ctx, "PomodoroEngine.RestoreState")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != model.PhaseIdle {
		return fmt.Errorf("%w: restore while %s", ErrInvalidTransition, e.phase)
	}

	checkpoint, err := e.checkpoints.GetCheckpoint(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		span.SetAttributes(attribute.String("restore.outcome", "none"))
		return nil
	}
	if err != nil {
		e.storeFailedLocked(ctx, "get_checkpoint", err)
		return fmt.Errorf("read checkpoint: %w", err)
	}

	if !checkpoint.Phase.Valid() || checkpoint.Phase == model.PhaseIdle {
		e.logger.Warn("discarding unusable checkpoint", "phase", checkpoint.Phase)
		e.clearCheckpointLocked(ctx)
		span.SetAttributes(attribute.String("restore.outcome", "discarded"))
		return nil
	}

	now := e.clock.Now()
	elapsed := int(now.Sub(checkpoint.PhaseStartedAt) / time.Second)
	remaining := checkpoint.PhaseDurationSeconds - elapsed

	e.phase = checkpoint.Phase
	e.task = checkpoint.Task
	e.cycle = checkpoint.Cycle
	e.phaseStartedAt = checkpoint.PhaseStartedAt
	e.phaseDuration = checkpoint.PhaseDurationSeconds
	if checkpoint.Phase == model.PhaseWork {
		e.sessionID = checkpoint.SessionID
	}

	if remaining > 0 {
		e.remaining = remaining
		e.startCountdownLocked()
		e.bus.Publish(events.Event{Kind: events.KindTimerTick, At: now, Seconds: remaining, Phase: e.phase})
		e.logger.Info("phase resumed", "phase", e.phase, "remaining_seconds", remaining)
		span.SetAttributes(attribute.String("restore.outcome", "resumed"))
		return nil
	}

	e.remaining = 0
	e.logger.Info("phase ended while away", "phase", e.phase, "ended_at", checkpoint.Deadline())
	e.finishPhaseLocked(ctx, checkpoint.Deadline())
	span.SetAttributes(attribute.String("restore.outcome", "finished"))
	return nil
}

// Close stops every timer. The checkpoint is kept so the next process can restore.
func (e *PomodoroEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopCountdownLocked()
	e.cancelSnoozesLocked()
}

func (e *PomodoroEngine) beginPhaseLocked(ctx context.Context, phase model.Phase, seconds int, task string, now time.Time) {
	e.phase = phase
	e.task = task
	e.remaining = seconds
	e.phaseDuration = seconds
	e.phaseStartedAt = now

	checkpoint := model.Checkpoint{
		Phase:                phase,
		PhaseStartedAt:       now,
		PhaseDurationSeconds: seconds,
		Task:                 task,
		Cycle:                e.cycle,
	}
	if phase == model.PhaseWork {
		checkpoint.SessionID = e.sessionID
	}
	if err := e.checkpoints.SetCheckpoint(ctx, checkpoint); err != nil {
		e.storeFailedLocked(ctx, "set_checkpoint", err)
	}

	e.startCountdownLocked()
}

func (e *PomodoroEngine) startCountdownLocked() {
	e.stopCountdownLocked()
	e.armTickLocked(e.tickGen, e.clock.Now())
}

// armTickLocked schedules the next tick for the instant the remaining time
// drops by one whole second, so late fires do not accumulate drift.
func (e *PomodoroEngine) armTickLocked(gen uint64, now time.Time) {
	wait := e.deadlineLocked().Sub(now) - time.Duration(e.remaining-1)*time.Second
	if wait <= 0 || wait > time.Second {
		wait = time.Second
	}
	e.ticker = e.clock.AfterFunc(wait, func() {
		e.onTick(gen)
	})
}

// deadlineLocked is the wall-clock end of the running phase. The start carries
// no monotonic reading, so subtractions against it include time spent suspended.
func (e *PomodoroEngine) deadlineLocked() time.Time {
	return e.phaseStartedAt.Round(0).Add(time.Duration(e.phaseDuration) * time.Second)
}

// wallRemainingLocked is the whole seconds left until the deadline, rounded up.
func (e *PomodoroEngine) wallRemainingLocked(now time.Time) int {
	left := e.deadlineLocked().Sub(now)
	if left <= 0 {
		return 0
	}
	return int((left + time.Second - 1) / time.Second)
}

func (e *PomodoroEngine) stopCountdownLocked() {
	e.tickGen++
	if e.ticker != nil {
		e.ticker.Stop()
		e.ticker = nil
	}
}

func (e *PomodoroEngine) onTick(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.tickGen || e.phase == model.PhaseIdle {
		return
	}

	now := e.clock.Now()
	remaining := e.wallRemainingLocked(now)
	if remaining >= e.remaining {
		remaining = e.remaining - 1
	}
	if remaining < 0 {
		remaining = 0
	}
	e.remaining = remaining
	e.bus.Publish(events.Event{Kind: events.KindTimerTick, At: now, Seconds: e.remaining, Phase: e.phase})

	if e.remaining > 0 {
		e.armTickLocked(gen, now)
		return
	}

	ctx, cancel := storeContext()
	defer cancel()
	e.finishPhaseLocked(ctx, e.endInstantLocked(now))
}

// endInstantLocked caps the end of a phase at its deadline. Past the deadline
// means the machine was asleep when the phase ran out.
func (e *PomodoroEngine) endInstantLocked(now time.Time) time.Time {
	if deadline := e.deadlineLocked(); now.After(deadline) {
		return deadline
	}
	return now
}

// Reconcile re-reads the wall clock after a resume. A phase whose deadline
// passed while suspended ends at its deadline; otherwise the countdown is
// corrected to the real remaining time. It reports whether a phase ended.
func (e *PomodoroEngine) Reconcile() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase == model.PhaseIdle {
		return false
	}

	now := e.clock.Now()
	remaining := e.wallRemainingLocked(now)
	if remaining > 0 {
		if remaining != e.remaining {
			e.logger.Info("countdown corrected after resume", "phase", e.phase,
				"remaining_seconds", remaining, "was", e.remaining)
			e.remaining = remaining
			e.startCountdownLocked()
			e.bus.Publish(events.Event{Kind: events.KindTimerTick, At: now, Seconds: remaining, Phase: e.phase})
		}
		return false
	}

	ctx, cancel := storeContext()
	defer cancel()
	e.remaining = 0
	e.logger.Info("phase ended while suspended", "phase", e.phase, "ended_at", e.deadlineLocked())
	e.finishPhaseLocked(ctx, e.deadlineLocked())
	return true
}

// finishPhaseLocked handles natural expiry of the current phase at endedAt.
func (e *PomodoroEngine) finishPhaseLocked(ctx context.Context, endedAt time.Time) {
	phase := e.phase

	e.stopCountdownLocked()
	e.clearCheckpointLocked(ctx)

	if phase == model.PhaseWork {
		session := e.finalizeSessionLocked(ctx, endedAt, true)
		e.resetPhaseLocked()
		e.bus.Publish(events.Event{
			Kind:    events.KindWorkSessionEnded,
			At:      endedAt,
			Phase:   model.PhaseWork,
			Session: session,
		})
		e.logger.Info("work session ended", "session_id", session.ID, "cycle", session.Cycle)
		return
	}

	e.resetPhaseLocked()
	e.bus.Publish(events.Event{Kind: events.KindBreakEnded, At: endedAt, Phase: phase})
	e.logger.Info("break ended", "phase", phase)
}

func (e *PomodoroEngine) finalizeSessionLocked(ctx context.Context, endedAt time.Time, completed bool) *model.PomodoroSession {
	session := &model.PomodoroSession{
		ID:        e.sessionID,
		Task:      e.task,
		Cycle:     e.cycle,
		StartedAt: e.phaseStartedAt,
		EndedAt:   &endedAt,
		Completed: completed,
	}

	var err error
	if e.sessionID != "" {
		err = e.sessions.FinishSession(ctx, e.sessionID, endedAt, completed)
	} else {
		// Checkpoints written before session ids were recorded.
		err = e.sessions.UpdateLastSession(ctx, endedAt, completed)
	}
	if err != nil {
		e.storeFailedLocked(ctx, "finish_session", err)
	}
	e.metrics.SessionFinished(ctx, completed)
	return session
}

func (e *PomodoroEngine) clearCheckpointLocked(ctx context.Context) {
	if err := e.checkpoints.ClearCheckpoint(ctx); err != nil {
		e.storeFailedLocked(ctx, "clear_checkpoint", err)
	}
}

func (e *PomodoroEngine) resetPhaseLocked() {
	e.phase = model.PhaseIdle
	e.remaining = 0
	e.task = ""
	e.sessionID = ""
	e.phaseStartedAt = time.Time{}
	e.phaseDuration = 0
}

func (e *PomodoroEngine) cancelSnoozesLocked() {
	e.snoozeGen++
	if e.snooze != nil {
		e.snooze.Stop()
		e.snooze = nil
	}
	e.breakSnoozeGen++
	if e.breakSnooze != nil {
		e.breakSnooze.Stop()
		e.breakSnooze = nil
	}
}

func (e *PomodoroEngine) onSnooze(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.snoozeGen {
		return
	}
	e.snooze = nil
	e.bus.Publish(events.Event{Kind: events.KindSnoozeEnded, At: e.clock.Now()})
}

func (e *PomodoroEngine) onBreakSnooze(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.breakSnoozeGen {
		return
	}
	e.breakSnooze = nil
	e.bus.Publish(events.Event{Kind: events.KindBreakSnoozeEnded, At: e.clock.Now()})
}

func (e *PomodoroEngine) storeFailedLocked(ctx context.Context, op string, err error) {
	e.logger.Error("store call failed", "op", op, "error", err)
	e.metrics.StoreFailed(ctx, op)
}
