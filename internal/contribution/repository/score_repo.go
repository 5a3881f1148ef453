package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/itss-pm/contribution-engine/internal/contribution/domain"
	"github.com/lib/pq"
)

const scoreColumns = `
	id, project_id, user_id, task_completion_score, peer_review_score,
	code_contribution_score, late_task_count, total_additions, total_deletions,
	calculated_score, adjusted_score, adjustment_reason, is_final, updated_at`

// ScoreRepository persists contribution scores and the per-project assessment
// status in PostgreSQL.
type ScoreRepository struct {
	db *sql.DB
}

// NewScoreRepository creates a new ScoreRepository
func NewScoreRepository(db *sql.DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// GetProjectConfig loads the project weights together with its assessment state.
// A project without an assessment row is a draft.
func (r *ScoreRepository) GetProjectConfig(ctx context.Context, projectID int64) (*domain.ProjectConfig, error) {
	const q = `
SELECT p.id, p.name,
       p.weight_w1, p.weight_w2, p.weight_w3, p.weight_w4,
       p.freerider_threshold, p.pressure_threshold,
       COALESCE(a.status, 'DRAFT'),
       a.task_weight, a.peer_weight, a.code_weight, a.late_penalty_weight,
       a.freerider_threshold, a.pressure_threshold,
       a.finalized_at, COALESCE(a.finalized_by, '')
FROM projects p
LEFT JOIN contribution_assessments a ON a.project_id = p.id
WHERE p.id = $1;
`
	var (
		cfg                                       domain.ProjectConfig
		status                                    string
		fTask, fPeer, fCode, fLate, fFree, fPress sql.NullFloat64
		finalizedAt                               sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, q, projectID).Scan(
		&cfg.ProjectID, &cfg.Name,
		&cfg.Weights.TaskWeight, &cfg.Weights.PeerWeight, &cfg.Weights.CodeWeight, &cfg.Weights.LatePenaltyWeight,
		&cfg.Weights.FreeriderThreshold, &cfg.Weights.PressureThreshold,
		&status,
		&fTask, &fPeer, &fCode, &fLate, &fFree, &fPress,
		&finalizedAt, &cfg.FinalizedBy,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load project config: %w", err)
	}

	cfg.Status = domain.AssessmentStatus(status)
	if fTask.Valid {
		cfg.FrozenWeights = &domain.WeightConfig{
			TaskWeight:         fTask.Float64,
			PeerWeight:         fPeer.Float64,
			CodeWeight:         fCode.Float64,
			LatePenaltyWeight:  fLate.Float64,
			FreeriderThreshold: fFree.Float64,
			PressureThreshold:  fPress.Float64,
		}
	}
	if finalizedAt.Valid {
		t := finalizedAt.Time
		cfg.FinalizedAt = &t
	}
	return &cfg, nil
}

// UpdateWeights replaces the live weights of a project.
func (r *ScoreRepository) UpdateWeights(ctx context.Context, projectID int64, w domain.WeightConfig) error {
	const q = `
UPDATE projects
SET weight_w1 = $2, weight_w2 = $3, weight_w3 = $4, weight_w4 = $5,
    freerider_threshold = $6, pressure_threshold = $7, updated_at = NOW()
WHERE id = $1;
`
	res, err := r.db.ExecContext(ctx, q, projectID,
		w.TaskWeight, w.PeerWeight, w.CodeWeight, w.LatePenaltyWeight,
		w.FreeriderThreshold, w.PressureThreshold)
	if err != nil {
		return fmt.Errorf("failed to update weights: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update weights: %w", err)
	}
	if n == 0 {
		return domain.ErrProjectNotFound
	}
	return nil
}

// ListByProject returns every score of a project ordered by user.
func (r *ScoreRepository) ListByProject(ctx context.Context, projectID int64) ([]domain.ContributionScore, error) {
	q := `SELECT ` + scoreColumns + `
FROM contribution_scores
WHERE project_id = $1
ORDER BY user_id ASC;`

	rows, err := r.db.QueryContext(ctx, q, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query scores: %w", err)
	}
	defer rows.Close()

	scores := []domain.ContributionScore{}
	for rows.Next() {
		s, err := scanScore(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		scores = append(scores, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scores: %w", err)
	}
	return scores, nil
}

// GetByID returns one score or domain.ErrScoreNotFound.
func (r *ScoreRepository) GetByID(ctx context.Context, id string) (*domain.ContributionScore, error) {
	q := `SELECT ` + scoreColumns + ` FROM contribution_scores WHERE id = $1;`

	s, err := scanScore(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrScoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get score: %w", err)
	}
	return s, nil
}

// SaveCalculated upserts the calculated fields of every score in one
// transaction. The assessment row is locked first so a concurrent finalize
// cannot interleave; rows already final are left untouched and manual
// adjustments are never overwritten.
func (r *ScoreRepository) SaveCalculated(ctx context.Context, projectID int64, scores []domain.ContributionScore) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	status, err := lockAssessment(ctx, tx, projectID)
	if err != nil {
		return err
	}
	if status.IsFinal() {
		return domain.ErrProjectLocked
	}

	if len(scores) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO contribution_scores (
	id, project_id, user_id, task_completion_score, peer_review_score,
	code_contribution_score, late_task_count, total_additions, total_deletions,
	calculated_score, is_final, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, false, $11)
ON CONFLICT (project_id, user_id) DO UPDATE SET
	task_completion_score = EXCLUDED.task_completion_score,
	peer_review_score = EXCLUDED.peer_review_score,
	code_contribution_score = EXCLUDED.code_contribution_score,
	late_task_count = EXCLUDED.late_task_count,
	total_additions = EXCLUDED.total_additions,
	total_deletions = EXCLUDED.total_deletions,
	calculated_score = EXCLUDED.calculated_score,
	updated_at = EXCLUDED.updated_at
WHERE contribution_scores.is_final = false
`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, s := range scores {
			id := s.ID
			if id == "" {
				id = uuid.New().String()
			}
			_, err := stmt.ExecContext(ctx,
				id, projectID, s.UserID,
				s.TaskCompletionScore, s.PeerReviewScore, s.CodeContributionScore,
				s.LateTaskCount, s.TotalAdditions, s.TotalDeletions,
				s.CalculatedScore, s.UpdatedAt,
			)
			if err != nil {
				return mapWriteError(fmt.Errorf("failed to upsert score for user %d: %w", s.UserID, err))
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SetAdjustment records (adj != nil) or clears (adj == nil) the manual
// override of a score. It fails with domain.ErrProjectLocked once the
// project's assessment is finalized.
func (r *ScoreRepository) SetAdjustment(ctx context.Context, id string, adj *domain.Adjustment, now time.Time) (*domain.ContributionScore, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var projectID int64
	err = tx.QueryRowContext(ctx, `SELECT project_id FROM contribution_scores WHERE id = $1;`, id).Scan(&projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrScoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load score: %w", err)
	}

	status, err := lockAssessment(ctx, tx, projectID)
	if err != nil {
		return nil, err
	}
	if status.IsFinal() {
		return nil, domain.ErrProjectLocked
	}

	var (
		score  sql.NullFloat64
		reason sql.NullString
	)
	if adj != nil {
		score = sql.NullFloat64{Float64: adj.Score, Valid: true}
		reason = sql.NullString{String: adj.Reason, Valid: true}
	}

	q := `UPDATE contribution_scores
SET adjusted_score = $2, adjustment_reason = $3, updated_at = $4
WHERE id = $1
RETURNING ` + scoreColumns + `;`

	s, err := scanScore(tx.QueryRowContext(ctx, q, id, score, reason, now))
	if err != nil {
		return nil, fmt.Errorf("failed to update adjustment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return s, nil
}

// Finalize locks the project's assessment with the given weight snapshot.
// It reports alreadyFinal=true without writing when the assessment was
// finalized before.
func (r *ScoreRepository) Finalize(ctx context.Context, projectID int64, snapshot domain.WeightConfig, by string, now time.Time) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	status, err := lockAssessment(ctx, tx, projectID)
	if err != nil {
		return false, err
	}
	if status.IsFinal() {
		return true, nil
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE contribution_scores SET is_final = true, updated_at = $2
WHERE project_id = $1;
`, projectID, now); err != nil {
		return false, fmt.Errorf("failed to finalize scores: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE contribution_assessments
SET status = 'FINALIZED',
    task_weight = $2, peer_weight = $3, code_weight = $4, late_penalty_weight = $5,
    freerider_threshold = $6, pressure_threshold = $7,
    finalized_at = $8, finalized_by = $9
WHERE project_id = $1;
`, projectID,
		snapshot.TaskWeight, snapshot.PeerWeight, snapshot.CodeWeight, snapshot.LatePenaltyWeight,
		snapshot.FreeriderThreshold, snapshot.PressureThreshold,
		now, by); err != nil {
		return false, fmt.Errorf("failed to finalize assessment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return false, nil
}

// ListDraftProjects returns the ids of projects whose assessment is not finalized.
func (r *ScoreRepository) ListDraftProjects(ctx context.Context) ([]int64, error) {
	const q = `
SELECT p.id
FROM projects p
LEFT JOIN contribution_assessments a ON a.project_id = p.id
WHERE COALESCE(a.status, 'DRAFT') = 'DRAFT'
ORDER BY p.id;
`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query draft projects: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan project id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// lockAssessment makes sure the assessment row exists and locks it for the
// rest of the transaction, returning the current status.
func lockAssessment(ctx context.Context, tx *sql.Tx, projectID int64) (domain.AssessmentStatus, error) {
	if _, err := tx.ExecContext(ctx, `
INSERT INTO contribution_assessments (project_id, status)
VALUES ($1, 'DRAFT')
ON CONFLICT (project_id) DO NOTHING;
`, projectID); err != nil {
		return "", mapWriteError(fmt.Errorf("failed to ensure assessment: %w", err))
	}

	var status string
	err := tx.QueryRowContext(ctx,
		`SELECT status FROM contribution_assessments WHERE project_id = $1 FOR UPDATE;`, projectID).
		Scan(&status)
	if err != nil {
		return "", fmt.Errorf("failed to lock assessment: %w", err)
	}
	return domain.AssessmentStatus(status), nil
}

// mapWriteError turns a foreign key violation (the project or user was
// removed from the CRUD store) into a not-found error.
func mapWriteError(err error) error {
	var pgErr *pq.Error
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return fmt.Errorf("%w: %s", domain.ErrProjectNotFound, pgErr.Message)
	}
	return err
}

func scanScore(row rowScanner) (*domain.ContributionScore, error) {
	var (
		s        domain.ContributionScore
		adjusted sql.NullFloat64
		reason   sql.NullString
	)
	err := row.Scan(
		&s.ID, &s.ProjectID, &s.UserID,
		&s.TaskCompletionScore, &s.PeerReviewScore, &s.CodeContributionScore,
		&s.LateTaskCount, &s.TotalAdditions, &s.TotalDeletions,
		&s.CalculatedScore, &adjusted, &reason, &s.IsFinal, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if adjusted.Valid {
		s.Adjustment = &domain.Adjustment{Score: adjusted.Float64, Reason: reason.String}
	}
	return &s, nil
}
