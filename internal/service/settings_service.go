package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	apperrors "pulse/internal/errors"
	"pulse/internal/model"
	"pulse/internal/repository"
)

// SettingsService is the SettingsProvider backed by the settings table.
type SettingsService struct {
	repo   *repository.SettingsRepository
	logger *slog.Logger
}

func NewSettingsService(repo *repository.SettingsRepository, logger *slog.Logger) *SettingsService {
	return &SettingsService{repo: repo, logger: logger.With("component", "settings")}
}

// Settings returns the stored settings with defaults applied. Read failures
// fall back to defaults.
func (s *SettingsService) Settings(ctx context.Context) model.Settings {
	stored, err := s.repo.Get(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return model.DefaultSettings()
	}
	if err != nil {
		s.logger.Error("read settings", "error", err)
		return model.DefaultSettings()
	}
	return stored.WithDefaults()
}

func (s *SettingsService) Update(ctx context.Context, input model.Settings) (*model.Settings, *apperrors.APIError) {
	if apiErr := validateSettings(input); apiErr != nil {
		return nil, apiErr
	}

	input.UpdatedAt = time.Now().UTC()
	if err := s.repo.Save(ctx, &input); err != nil {
		s.logger.Error("save settings", "error", err)
		return nil, apperrors.Internal("failed to save settings", err)
	}

	effective := input.WithDefaults()
	return &effective, nil
}

func validateSettings(s model.Settings) *apperrors.APIError {
	if s.WorkingHoursStart < 0 || s.WorkingHoursStart > 23 || s.WorkingHoursEnd < 0 || s.WorkingHoursEnd > 23 {
		return apperrors.BadRequest("invalid_working_hours", "working hours must be between 0 and 23")
	}
	effective := s.WithDefaults()
	if effective.WorkingHoursEnd <= effective.WorkingHoursStart {
		return apperrors.BadRequest("invalid_working_hours", "working hours must end after they start")
	}
	if s.AveragePromptsPerDay < 0 {
		return apperrors.BadRequest("invalid_prompts_per_day", "average prompts per day must be positive")
	}
	if s.WorkMinutes < 0 || s.ShortBreakMinutes < 0 || s.LongBreakMinutes < 0 ||
		s.SnoozeMinutes < 0 || s.BreakSnoozeMinutes < 0 {
		return apperrors.BadRequest("invalid_duration", "all durations must be positive minutes")
	}
	return nil
}
