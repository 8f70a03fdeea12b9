package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pulse/internal/model"
)

type PomodoroRepository struct {
	db *sql.DB
}

func NewPomodoroRepository(db *sql.DB) *PomodoroRepository {
	return &PomodoroRepository{db: db}
}

func (r *PomodoroRepository) AddSession(ctx context.Context, session *model.PomodoroSession) error {
	var endedAt interface{}
	if session.EndedAt != nil {
		endedAt = formatTime(*session.EndedAt)
	}

	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO pomodoro_sessions (
			id, task, cycle, started_at, ended_at, completed, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.Task,
		session.Cycle,
		formatTime(session.StartedAt),
		endedAt,
		session.Completed,
		formatTime(session.CreatedAt),
		formatTime(session.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// FinishSession sets the terminal fields of the session with the given id.
// A session can be finished only once.
func (r *PomodoroRepository) FinishSession(ctx context.Context, id string, endedAt time.Time, completed bool) error {
	result, err := r.db.ExecContext(
		ctx,
		`UPDATE pomodoro_sessions
		 SET ended_at = ?,
		     completed = ?,
		     updated_at = ?
		 WHERE id = ? AND ended_at IS NULL`,
		formatTime(endedAt),
		completed,
		formatTime(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish session rows: %w", err)
	}
	if affected > 0 {
		return nil
	}

	if _, err := r.GetSession(ctx, id); err != nil {
		return err
	}
	return ErrAlreadyFinished
}

// UpdateLastSession finalizes the most recently created session if it is still open.
func (r *PomodoroRepository) UpdateLastSession(ctx context.Context, endedAt time.Time, completed bool) error {
	result, err := r.db.ExecContext(
		ctx,
		`UPDATE pomodoro_sessions
		 SET ended_at = ?,
		     completed = ?,
		     updated_at = ?
		 WHERE id = (SELECT id FROM pomodoro_sessions ORDER BY created_at DESC LIMIT 1)
		   AND ended_at IS NULL`,
		formatTime(endedAt),
		completed,
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("update last session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update last session rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PomodoroRepository) GetSession(ctx context.Context, id string) (*model.PomodoroSession, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT id, task, cycle, started_at, ended_at, completed, created_at, updated_at
		 FROM pomodoro_sessions
		 WHERE id = ?`,
		id,
	)
	return scanPomodoroSession(row)
}

func (r *PomodoroRepository) ListRecentSessions(ctx context.Context, limit int) ([]model.PomodoroSession, error) {
	limit = normalizeLimit(limit)
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT id, task, cycle, started_at, ended_at, completed, created_at, updated_at
		 FROM pomodoro_sessions
		 ORDER BY started_at DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]model.PomodoroSession, 0, limit)
	for rows.Next() {
		session, scanErr := scanPomodoroSession(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		sessions = append(sessions, *session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

// CountCompletedSessionsToday counts completed sessions started on now's calendar day.
func (r *PomodoroRepository) CountCompletedSessionsToday(ctx context.Context, now time.Time) (int, error) {
	start, end := dayBounds(now)
	var count int
	err := r.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM pomodoro_sessions
		 WHERE completed = 1 AND started_at >= ? AND started_at < ?`,
		formatTime(start),
		formatTime(end),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count completed sessions: %w", err)
	}
	return count, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPomodoroSession(s scanner) (*model.PomodoroSession, error) {
	session := model.PomodoroSession{}
	var startedAt string
	var endedAt sql.NullString
	var createdAt string
	var updatedAt string
	err := s.Scan(
		&session.ID,
		&session.Task,
		&session.Cycle,
		&startedAt,
		&endedAt,
		&session.Completed,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	parsedStartedAt, err := parseTime(startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse session started_at: %w", err)
	}
	session.StartedAt = parsedStartedAt

	if endedAt.Valid {
		parsedEndedAt, parseErr := parseTime(endedAt.String)
		if parseErr != nil {
			return nil, fmt.Errorf("parse session ended_at: %w", parseErr)
		}
		session.EndedAt = &parsedEndedAt
	}

	parsedCreatedAt, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse session created_at: %w", err)
	}
	session.CreatedAt = parsedCreatedAt

	parsedUpdatedAt, err := parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse session updated_at: %w", err)
	}
	session.UpdatedAt = parsedUpdatedAt

	return &session, nil
}
