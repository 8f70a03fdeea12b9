package service

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"pulse/internal/clock"
	apperrors "pulse/internal/errors"
	"pulse/internal/model"
	"pulse/internal/repository"
)

type SubmitResponseInput struct {
	Kind       model.ResponseKind
	Excitement int
	Activity   string
}

type TodayStats struct {
	Date              string `json:"date"`
	CompletedSessions int    `json:"completedSessions"`
	Responses         int    `json:"responses"`
}

// ResponseService records check-in answers and serves history.
type ResponseService struct {
	responses *repository.ResponseRepository
	sessions  *repository.PomodoroRepository
	detector  *DayDetector
	clock     clock.Clock
	logger    *slog.Logger
}

func NewResponseService(
	responses *repository.ResponseRepository,
	sessions *repository.PomodoroRepository,
	detector *DayDetector,
	clk clock.Clock,
	logger *slog.Logger,
) *ResponseService {
	return &ResponseService{
		responses: responses,
		sessions:  sessions,
		detector:  detector,
		clock:     clk,
		logger:    logger.With("component", "responses"),
	}
}

// Submit stores a response. A start-of-day answer also marks today as prompted.
func (s *ResponseService) Submit(ctx context.Context, input SubmitResponseInput) (*model.Response, *apperrors.APIError) {
	ctx, span := otel.Tracer("pulse/service").Start(ctx, "ResponseService.Submit")
	defer span.End()

	if !input.Kind.Valid() {
		return nil, apperrors.BadRequest("invalid_response", "kind must be one of start_of_day, intraday")
	}
	if input.Excitement < model.MinExcitement || input.Excitement > model.MaxExcitement {
		return nil, apperrors.BadRequest("invalid_response", "excitement must be between 1 and 7")
	}

	response := model.Response{
		ID:         uuid.NewString(),
		Kind:       input.Kind,
		Excitement: input.Excitement,
		CreatedAt:  s.clock.Now(),
	}
	activity := strings.TrimSpace(input.Activity)
	if utf8.RuneCountInString(activity) > model.MaxActivityLength {
		return nil, apperrors.BadRequest("invalid_response", "activity must be at most 30 characters")
	}
	if activity != "" {
		response.Activity = &activity
	}

	if err := s.responses.AddResponse(ctx, &response); err != nil {
		s.logger.Error("add response", "error", err)
		return nil, apperrors.Internal("failed to store response", err)
	}

	if response.Kind == model.ResponseStartOfDay {
		if err := s.detector.MarkPromptedToday(ctx); err != nil {
			// The response is stored; a missing marker only means the prompt may repeat.
			s.logger.Error("mark prompted today", "error", err)
		}
	}
	return &response, nil
}

func (s *ResponseService) ListResponses(ctx context.Context, limit int) ([]model.Response, *apperrors.APIError) {
	responses, err := s.responses.ListRecentResponses(ctx, limit)
	if err != nil {
		s.logger.Error("list responses", "error", err)
		return nil, apperrors.Internal("failed to get responses", err)
	}
	return responses, nil
}

func (s *ResponseService) ListSessions(ctx context.Context, limit int) ([]model.PomodoroSession, *apperrors.APIError) {
	sessions, err := s.sessions.ListRecentSessions(ctx, limit)
	if err != nil {
		s.logger.Error("list sessions", "error", err)
		return nil, apperrors.Internal("failed to get sessions", err)
	}
	return sessions, nil
}

func (s *ResponseService) Today(ctx context.Context) (*TodayStats, *apperrors.APIError) {
	now := s.clock.Now()
	completed, err := s.sessions.CountCompletedSessionsToday(ctx, now)
	if err != nil {
		s.logger.Error("count sessions", "error", err)
		return nil, apperrors.Internal("failed to count sessions", err)
	}
	responses, err := s.responses.CountResponsesToday(ctx, now)
	if err != nil {
		s.logger.Error("count responses", "error", err)
		return nil, apperrors.Internal("failed to count responses", err)
	}
	return &TodayStats{
		Date:              now.Format(time.DateOnly),
		CompletedSessions: completed,
		Responses:         responses,
	}, nil
}
