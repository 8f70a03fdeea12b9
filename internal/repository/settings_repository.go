package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pulse/internal/model"
)

type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the stored settings as-is; zero values are not defaulted here.
func (r *SettingsRepository) Get(ctx context.Context) (*model.Settings, error) {
	var settings model.Settings
	var updatedAt string
	err := r.db.QueryRowContext(
		ctx,
		`SELECT working_hours_start, working_hours_end, average_prompts_per_day,
		        work_minutes, short_break_minutes, long_break_minutes,
		        snooze_minutes, break_snooze_minutes, updated_at
		 FROM settings WHERE id = 1`,
	).Scan(
		&settings.WorkingHoursStart,
		&settings.WorkingHoursEnd,
		&settings.AveragePromptsPerDay,
		&settings.WorkMinutes,
		&settings.ShortBreakMinutes,
		&settings.LongBreakMinutes,
		&settings.SnoozeMinutes,
		&settings.BreakSnoozeMinutes,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get settings: %w", err)
	}

	parsedUpdatedAt, err := parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse settings updated_at: %w", err)
	}
	settings.UpdatedAt = parsedUpdatedAt
	return &settings, nil
}

func (r *SettingsRepository) Save(ctx context.Context, settings *model.Settings) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO settings (
			id, working_hours_start, working_hours_end, average_prompts_per_day,
			work_minutes, short_break_minutes, long_break_minutes,
			snooze_minutes, break_snooze_minutes, updated_at
		) VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			working_hours_start = excluded.working_hours_start,
			working_hours_end = excluded.working_hours_end,
			average_prompts_per_day = excluded.average_prompts_per_day,
			work_minutes = excluded.work_minutes,
			short_break_minutes = excluded.short_break_minutes,
			long_break_minutes = excluded.long_break_minutes,
			snooze_minutes = excluded.snooze_minutes,
			break_snooze_minutes = excluded.break_snooze_minutes,
			updated_at = excluded.updated_at`,
		settings.WorkingHoursStart,
		settings.WorkingHoursEnd,
		settings.AveragePromptsPerDay,
		settings.WorkMinutes,
		settings.ShortBreakMinutes,
		settings.LongBreakMinutes,
		settings.SnoozeMinutes,
		settings.BreakSnoozeMinutes,
		formatTime(settings.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
