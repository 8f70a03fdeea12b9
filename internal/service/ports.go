package service

import (
	"context"
	"time"

	"pulse/internal/model"
)

// SessionStore persists pomodoro session records for the engine.
type SessionStore interface {
	AddSession(ctx context.Context, session *model.PomodoroSession) error
	FinishSession(ctx context.Context, id string, endedAt time.Time, completed bool) error
	UpdateLastSession(ctx context.Context, endedAt time.Time, completed bool) error
}

// CheckpointStore holds the single in-flight phase record.
// GetCheckpoint returns repository.ErrNotFound when none is stored.
type CheckpointStore interface {
	GetCheckpoint(ctx context.Context) (*model.Checkpoint, error)
	SetCheckpoint(ctx context.Context, checkpoint model.Checkpoint) error
	ClearCheckpoint(ctx context.Context) error
}

// MarkerStore holds the last start-of-day prompt timestamp.
// GetLastPrompted returns repository.ErrNotFound when none is stored.
type MarkerStore interface {
	GetLastPrompted(ctx context.Context) (time.Time, error)
	SetLastPrompted(ctx context.Context, at time.Time) error
	ClearLastPrompted(ctx context.Context) error
}

// SettingsProvider never fails; missing or zero values come back as defaults.
type SettingsProvider interface {
	Settings(ctx context.Context) model.Settings
}

type StaticSettings model.Settings

func (s StaticSettings) Settings(context.Context) model.Settings {
	return model.Settings(s).WithDefaults()
}

const storeTimeout = 5 * time.Second

func storeContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), storeTimeout)
}
