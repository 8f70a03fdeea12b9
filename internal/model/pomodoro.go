package model

import "time"

type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseWork       Phase = "work"
	PhaseShortBreak Phase = "short_break"
	PhaseLongBreak  Phase = "long_break"
)

// CyclesPerLongBreak is the number of work sessions after which the next break is long.
const CyclesPerLongBreak = 4

func (p Phase) IsBreak() bool {
	return p == PhaseShortBreak || p == PhaseLongBreak
}

func (p Phase) Valid() bool {
	switch p {
	case PhaseIdle, PhaseWork, PhaseShortBreak, PhaseLongBreak:
		return true
	}
	return false
}

type PomodoroSession struct {
	ID        string     `json:"id"`
	Task      string     `json:"task"`
	Cycle     int        `json:"cycle"`
	StartedAt time.Time  `json:"startedAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
	Completed bool       `json:"completed"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Checkpoint is the persisted snapshot of a running phase. It exists only while
// the engine is outside the idle phase.
type Checkpoint struct {
	Phase                Phase     `json:"phase"`
	PhaseStartedAt       time.Time `json:"phaseStartedAt"`
	PhaseDurationSeconds int       `json:"phaseDurationSeconds"`
	Task                 string    `json:"task,omitempty"`
	Cycle                int       `json:"cycle"`
	SessionID            string    `json:"sessionId,omitempty"`
}

// Deadline is the instant the checkpointed phase ends.
func (c Checkpoint) Deadline() time.Time {
	return c.PhaseStartedAt.Add(time.Duration(c.PhaseDurationSeconds) * time.Second)
}
