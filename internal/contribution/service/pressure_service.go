package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/itss-pm/contribution-engine/internal/contribution/domain"
	"github.com/itss-pm/contribution-engine/internal/contribution/scoring"
	"github.com/itss-pm/contribution-engine/internal/logging"
)

// PressureService reports live workload pressure and records its history.
type PressureService struct {
	scores    ScoreStore
	signals   SignalSource
	history   HistoryStore
	publisher Publisher
	model     scoring.PressureModel
	now       func() time.Time
}

// NewPressureService creates a new PressureService
func NewPressureService(scores ScoreStore, signals SignalSource, history HistoryStore, publisher Publisher, model scoring.PressureModel) *PressureService {
	return &PressureService{
		scores:    scores,
		signals:   signals,
		history:   history,
		publisher: publisher,
		model:     model,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// GroupPressure computes the current pressure of every member of a group.
func (s *PressureService) GroupPressure(ctx context.Context, projectID, groupID int64) ([]domain.PressureScore, error) {
	cfg, err := s.scores.GetProjectConfig(ctx, projectID)
	if err != nil {
		return nil, err
	}

	members, err := s.signals.GroupMembers(ctx, projectID, groupID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrSignalsUnavailable, err)
	}
	return s.evaluate(ctx, projectID, groupID, members, cfg.Weights.PressureThreshold)
}

func (s *PressureService) evaluate(ctx context.Context, projectID, groupID int64, members []domain.Member, threshold float64) ([]domain.PressureScore, error) {
	userIDs := make([]int64, len(members))
	for i, m := range members {
		userIDs[i] = m.UserID
	}

	tasks, err := s.signals.ActiveTasks(ctx, projectID, userIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSignalsUnavailable, err)
	}
	byUser := make(map[int64][]domain.ActiveTask, len(members))
	for _, t := range tasks {
		byUser[t.AssigneeID] = append(byUser[t.AssigneeID], t)
	}

	now := s.now()
	out := make([]domain.PressureScore, len(members))
	for i, m := range members {
		m.GroupID = groupID
		out[i] = s.model.Evaluate(m, byUser[m.UserID], threshold, now)
	}
	return out, nil
}

// SnapshotAll records the pressure of every member of every group of every
// draft project and publishes an alert per overloaded member. A failing
// project is logged and skipped; the joined errors are returned at the end.
func (s *PressureService) SnapshotAll(ctx context.Context) (int, error) {
	log := logging.New(ctx)

	projectIDs, err := s.scores.ListDraftProjects(ctx)
	if err != nil {
		return 0, err
	}

	var (
		recorded int
		errs     []error
	)
	for _, projectID := range projectIDs {
		if err := ctx.Err(); err != nil {
			return recorded, err
		}
		n, err := s.snapshotProject(ctx, projectID)
		if err != nil {
			log.Errorf("pressure_snapshot", "project_id=%d error=%v", projectID, err)
			errs = append(errs, fmt.Errorf("project %d: %w", projectID, err))
			continue
		}
		recorded += n
	}

	log.Infof("pressure_snapshot", "projects=%d snapshots=%d failures=%d", len(projectIDs), recorded, len(errs))
	return recorded, errors.Join(errs...)
}

func (s *PressureService) snapshotProject(ctx context.Context, projectID int64) (int, error) {
	cfg, err := s.scores.GetProjectConfig(ctx, projectID)
	if err != nil {
		return 0, err
	}
	groupIDs, err := s.signals.Groups(ctx, projectID)
	if err != nil {
		return 0, err
	}

	now := s.now()
	var (
		snapshots  []domain.PressureSnapshot
		overloaded []domain.PressureScore
	)
	for _, groupID := range groupIDs {
		members, err := s.signals.GroupMembers(ctx, projectID, groupID)
		if err != nil {
			return 0, err
		}
		scores, err := s.evaluate(ctx, projectID, groupID, members, cfg.Weights.PressureThreshold)
		if err != nil {
			return 0, err
		}
		for _, p := range scores {
			snapshots = append(snapshots, domain.PressureSnapshot{
				ProjectID:           projectID,
				GroupID:             groupID,
				UserID:              p.UserID,
				PressureScore:       p.PressureScore,
				ThresholdPercentage: p.ThresholdPercentage,
				Status:              p.Status,
				RecordedAt:          now,
			})
			if p.Status == domain.PressureOverloaded {
				overloaded = append(overloaded, p)
			}
		}
	}

	if err := s.history.InsertBatch(ctx, snapshots); err != nil {
		return 0, err
	}

	for _, p := range overloaded {
		if s.publisher == nil {
			break
		}
		err := s.publisher.Publish(ctx, domain.Event{
			Type:      domain.EventMemberOverloaded,
			ProjectID: projectID,
			UserID:    p.UserID,
			At:        now,
			Data: map[string]interface{}{
				"group_id":             p.GroupID,
				"pressure_score":       p.PressureScore,
				"threshold_percentage": p.ThresholdPercentage,
			},
		})
		if err != nil {
			logging.New(ctx).Warnf("pressure_alert", "project_id=%d user_id=%d error=%v", projectID, p.UserID, err)
		}
	}
	return len(snapshots), nil
}

// History returns the recorded pressure of one student, newest first.
func (s *PressureService) History(ctx context.Context, projectID, userID int64, limit int) ([]domain.PressureSnapshot, error) {
	if _, err := s.scores.GetProjectConfig(ctx, projectID); err != nil {
		return nil, err
	}
	return s.history.ListByUser(ctx, projectID, userID, limit)
}
