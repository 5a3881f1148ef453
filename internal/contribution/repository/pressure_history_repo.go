package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/itss-pm/contribution-engine/internal/contribution/domain"
)

// PressureHistoryRepository stores periodic pressure snapshots.
type PressureHistoryRepository struct {
	db *sql.DB
}

// NewPressureHistoryRepository creates a new PressureHistoryRepository
func NewPressureHistoryRepository(db *sql.DB) *PressureHistoryRepository {
	return &PressureHistoryRepository{db: db}
}

// InsertBatch writes all snapshots in a single transaction.
func (r *PressureHistoryRepository) InsertBatch(ctx context.Context, snapshots []domain.PressureSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pressure_score_history (
			project_id, group_id, user_id, pressure_score,
			threshold_percentage, status, recorded_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, s := range snapshots {
		if s.RecordedAt.IsZero() {
			s.RecordedAt = time.Now().UTC()
		}
		_, err := stmt.ExecContext(ctx,
			s.ProjectID, s.GroupID, s.UserID, s.PressureScore,
			s.ThresholdPercentage, string(s.Status), s.RecordedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert pressure snapshot: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListByUser returns the most recent snapshots of a student, newest first.
func (r *PressureHistoryRepository) ListByUser(ctx context.Context, projectID, userID int64, limit int) ([]domain.PressureSnapshot, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT project_id, group_id, user_id, pressure_score,
		       threshold_percentage, status, recorded_at
		FROM pressure_score_history
		WHERE project_id = $1 AND user_id = $2
		ORDER BY recorded_at DESC
		LIMIT $3
	`, projectID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pressure history: %w", err)
	}
	defer rows.Close()

	history := []domain.PressureSnapshot{}
	for rows.Next() {
		var (
			s      domain.PressureSnapshot
			status string
		)
		if err := rows.Scan(&s.ProjectID, &s.GroupID, &s.UserID, &s.PressureScore,
			&s.ThresholdPercentage, &status, &s.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pressure snapshot: %w", err)
		}
		s.Status = domain.PressureStatus(status)
		history = append(history, s)
	}
	return history, rows.Err()
}
