package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pulse/internal/model"
)

type ResponseRepository struct {
	db *sql.DB
}

func NewResponseRepository(db *sql.DB) *ResponseRepository {
	return &ResponseRepository{db: db}
}

func (r *ResponseRepository) AddResponse(ctx context.Context, response *model.Response) error {
	var activity interface{}
	if response.Activity != nil {
		activity = *response.Activity
	}

	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO responses (id, kind, excitement, activity, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		response.ID,
		string(response.Kind),
		response.Excitement,
		activity,
		formatTime(response.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert response: %w", err)
	}
	return nil
}

func (r *ResponseRepository) ListRecentResponses(ctx context.Context, limit int) ([]model.Response, error) {
	limit = normalizeLimit(limit)
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT id, kind, excitement, activity, created_at
		 FROM responses
		 ORDER BY created_at DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer rows.Close()

	responses := make([]model.Response, 0, limit)
	for rows.Next() {
		response, scanErr := scanResponse(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		responses = append(responses, *response)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate responses: %w", err)
	}
	return responses, nil
}

func (r *ResponseRepository) CountResponsesToday(ctx context.Context, now time.Time) (int, error) {
	start, end := dayBounds(now)
	var count int
	err := r.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM responses WHERE created_at >= ? AND created_at < ?`,
		formatTime(start),
		formatTime(end),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count responses: %w", err)
	}
	return count, nil
}

func scanResponse(s scanner) (*model.Response, error) {
	var response model.Response
	var kind string
	var activity sql.NullString
	var createdAt string
	if err := s.Scan(&response.ID, &kind, &response.Excitement, &activity, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan response: %w", err)
	}

	response.Kind = model.ResponseKind(kind)
	if activity.Valid {
		value := activity.String
		response.Activity = &value
	}

	parsedCreatedAt, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse response created_at: %w", err)
	}
	response.CreatedAt = parsedCreatedAt
	return &response, nil
}
