package service

import (
	"context"
	"time"

	"github.com/itss-pm/contribution-engine/internal/contribution/domain"
)

// ScoreStore is the durable store of scores and assessment state.
type ScoreStore interface {
	GetProjectConfig(ctx context.Context, projectID int64) (*domain.ProjectConfig, error)
	UpdateWeights(ctx context.Context, projectID int64, w domain.WeightConfig) error
	ListByProject(ctx context.Context, projectID int64) ([]domain.ContributionScore, error)
	GetByID(ctx context.Context, id string) (*domain.ContributionScore, error)
	SaveCalculated(ctx context.Context, projectID int64, scores []domain.ContributionScore) error
	SetAdjustment(ctx context.Context, id string, adj *domain.Adjustment, now time.Time) (*domain.ContributionScore, error)
	Finalize(ctx context.Context, projectID int64, snapshot domain.WeightConfig, by string, now time.Time) (bool, error)
	ListDraftProjects(ctx context.Context) ([]int64, error)
}

// SignalSource reads membership and activity from the project management store.
type SignalSource interface {
	Members(ctx context.Context, projectID int64) ([]domain.Member, error)
	GroupMembers(ctx context.Context, projectID, groupID int64) ([]domain.Member, error)
	Groups(ctx context.Context, projectID int64) ([]int64, error)
	RawSignals(ctx context.Context, projectID int64, userIDs []int64, asOf time.Time) ([]domain.RawSignals, error)
	ActiveTasks(ctx context.Context, projectID int64, userIDs []int64) ([]domain.ActiveTask, error)
}

// Locker serializes writers of the same project. The returned func releases the lock.
type Locker interface {
	Lock(ctx context.Context, projectID int64) (func(), error)
}

// Publisher delivers events to other services. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// HistoryStore keeps pressure snapshots.
type HistoryStore interface {
	InsertBatch(ctx context.Context, snapshots []domain.PressureSnapshot) error
	ListByUser(ctx context.Context, projectID, userID int64, limit int) ([]domain.PressureSnapshot, error)
}
