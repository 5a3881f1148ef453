package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates the tables this service owns. The project, group, task,
// review and commit tables belong to the project management service; they are
// created here only when missing so a fresh database is usable for local runs
// and integration tests.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		full_name TEXT,
		email TEXT,
		role TEXT NOT NULL DEFAULT 'STUDENT'
	)`,
	`CREATE TABLE IF NOT EXISTS projects (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		owner_id BIGINT REFERENCES users(id),
		weight_w1 DOUBLE PRECISION NOT NULL DEFAULT 0.5,
		weight_w2 DOUBLE PRECISION NOT NULL DEFAULT 0.3,
		weight_w3 DOUBLE PRECISION NOT NULL DEFAULT 0.2,
		weight_w4 DOUBLE PRECISION NOT NULL DEFAULT 0.1,
		freerider_threshold DOUBLE PRECISION NOT NULL DEFAULT 0.3,
		pressure_threshold DOUBLE PRECISION NOT NULL DEFAULT 15,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS project_students (
		project_id BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		student_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		PRIMARY KEY (project_id, student_id)
	)`,
	`CREATE TABLE IF NOT EXISTS groups (
		id BIGSERIAL PRIMARY KEY,
		project_id BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		leader_id BIGINT REFERENCES users(id)
	)`,
	`CREATE TABLE IF NOT EXISTS group_members (
		group_id BIGINT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		PRIMARY KEY (group_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id BIGSERIAL PRIMARY KEY,
		group_id BIGINT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
		assignee_id BIGINT REFERENCES users(id),
		title TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'NOT_STARTED',
		difficulty INTEGER,
		deadline TIMESTAMPTZ,
		completed_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS peer_reviews (
		id BIGSERIAL PRIMARY KEY,
		project_id BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		reviewer_id BIGINT NOT NULL REFERENCES users(id),
		reviewee_id BIGINT NOT NULL REFERENCES users(id),
		score DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS commit_records (
		id BIGSERIAL PRIMARY KEY,
		task_id BIGINT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		sha TEXT NOT NULL,
		additions INTEGER NOT NULL DEFAULT 0,
		deletions INTEGER NOT NULL DEFAULT 0,
		valid BOOLEAN NOT NULL DEFAULT true,
		committed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS contribution_assessments (
		project_id BIGINT PRIMARY KEY REFERENCES projects(id) ON DELETE CASCADE,
		status TEXT NOT NULL DEFAULT 'DRAFT' CHECK (status IN ('DRAFT', 'FINALIZED')),
		task_weight DOUBLE PRECISION,
		peer_weight DOUBLE PRECISION,
		code_weight DOUBLE PRECISION,
		late_penalty_weight DOUBLE PRECISION,
		freerider_threshold DOUBLE PRECISION,
		pressure_threshold DOUBLE PRECISION,
		finalized_at TIMESTAMPTZ,
		finalized_by TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS contribution_scores (
		id UUID PRIMARY KEY,
		project_id BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		task_completion_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		peer_review_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		code_contribution_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		late_task_count INTEGER NOT NULL DEFAULT 0,
		total_additions BIGINT NOT NULL DEFAULT 0,
		total_deletions BIGINT NOT NULL DEFAULT 0,
		calculated_score DOUBLE PRECISION NOT NULL DEFAULT 0
			CHECK (calculated_score >= 0 AND calculated_score <= 10),
		adjusted_score DOUBLE PRECISION
			CHECK (adjusted_score IS NULL OR (adjusted_score >= 0 AND adjusted_score <= 10)),
		adjustment_reason TEXT,
		is_final BOOLEAN NOT NULL DEFAULT false,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (project_id, user_id),
		CHECK (adjusted_score IS NULL OR length(trim(adjustment_reason)) > 0)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_contribution_scores_project ON contribution_scores (project_id)`,
	`CREATE TABLE IF NOT EXISTS pressure_score_history (
		id BIGSERIAL PRIMARY KEY,
		project_id BIGINT NOT NULL,
		group_id BIGINT NOT NULL,
		user_id BIGINT NOT NULL,
		pressure_score DOUBLE PRECISION NOT NULL,
		threshold_percentage DOUBLE PRECISION NOT NULL,
		status TEXT NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pressure_history_user ON pressure_score_history (project_id, user_id, recorded_at DESC)`,
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d: %w", i+1, err)
		}
	}
	return nil
}
