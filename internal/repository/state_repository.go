package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pulse/internal/model"
)

const (
	keyCheckpoint   = "pomodoro.checkpoint"
	keyLastPrompted = "day.last_prompted"
)

// StateRepository stores single-key records that must survive restarts: the
// pomodoro checkpoint and the last start-of-day prompt marker.
type StateRepository struct {
	db *sql.DB
}

func NewStateRepository(db *sql.DB) *StateRepository {
	return &StateRepository{db: db}
}

func (r *StateRepository) GetCheckpoint(ctx context.Context) (*model.Checkpoint, error) {
	var checkpoint model.Checkpoint
	if err := r.getJSON(ctx, keyCheckpoint, &checkpoint); err != nil {
		return nil, err
	}
	return &checkpoint, nil
}

func (r *StateRepository) SetCheckpoint(ctx context.Context, checkpoint model.Checkpoint) error {
	return r.setJSON(ctx, keyCheckpoint, checkpoint)
}

func (r *StateRepository) ClearCheckpoint(ctx context.Context) error {
	return r.delete(ctx, keyCheckpoint)
}

func (r *StateRepository) GetLastPrompted(ctx context.Context) (time.Time, error) {
	var raw string
	if err := r.getJSON(ctx, keyLastPrompted, &raw); err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse last prompted: %w", err)
	}
	return t, nil
}

// SetLastPrompted keeps the caller's zone offset so calendar-day comparisons
// happen in the zone the prompt was shown in.
func (r *StateRepository) SetLastPrompted(ctx context.Context, at time.Time) error {
	return r.setJSON(ctx, keyLastPrompted, at.Format(time.RFC3339Nano))
}

func (r *StateRepository) ClearLastPrompted(ctx context.Context) error {
	return r.delete(ctx, keyLastPrompted)
}

func (r *StateRepository) getJSON(ctx context.Context, key string, dest interface{}) error {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM app_state WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(value), dest); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (r *StateRepository) setJSON(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	_, err = r.db.ExecContext(
		ctx,
		`INSERT INTO app_state (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key,
		string(raw),
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (r *StateRepository) delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM app_state WHERE key = ?`, key); err != nil {
		return fmt.Errorf("clear %s: %w", key, err)
	}
	return nil
}
