package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/itss-pm/contribution-engine/internal/contribution/domain"
	"github.com/itss-pm/contribution-engine/internal/contribution/scoring"
	"github.com/itss-pm/contribution-engine/internal/logging"
)

// ContributionService orchestrates score calculation, manual adjustment and
// finalization of a project's contribution assessment.
type ContributionService struct {
	scores    ScoreStore
	signals   SignalSource
	locker    Locker
	publisher Publisher
	now       func() time.Time
}

// NewContributionService creates a new ContributionService
func NewContributionService(scores ScoreStore, signals SignalSource, locker Locker, publisher Publisher) *ContributionService {
	return &ContributionService{
		scores:    scores,
		signals:   signals,
		locker:    locker,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Calculate recomputes every student's score of the project from fresh
// signals and returns the stored scores. Manual adjustments survive.
func (s *ContributionService) Calculate(ctx context.Context, projectID int64) ([]domain.ContributionScore, error) {
	log := logging.New(ctx)

	unlock, err := s.locker.Lock(ctx, projectID)
	if err != nil {
		log.Error("calculate", err)
		return nil, err
	}
	defer unlock()

	cfg, err := s.scores.GetProjectConfig(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if cfg.Status.IsFinal() {
		return nil, domain.ErrProjectLocked
	}
	if err := cfg.Weights.Validate(); err != nil {
		log.Errorf("calculate", "project_id=%d error=%v", projectID, err)
		return nil, err
	}

	members, err := s.signals.Members(ctx, projectID)
	if err != nil {
		log.Errorf("calculate", "project_id=%d members error=%v", projectID, err)
		return nil, fmt.Errorf("%w: %v", domain.ErrSignalsUnavailable, err)
	}
	userIDs := make([]int64, len(members))
	for i, m := range members {
		userIDs[i] = m.UserID
	}

	now := s.now()
	raw, err := s.signals.RawSignals(ctx, projectID, userIDs, now)
	if err != nil {
		log.Errorf("calculate", "project_id=%d signals error=%v", projectID, err)
		return nil, fmt.Errorf("%w: %v", domain.ErrSignalsUnavailable, err)
	}

	results, err := scoring.Calculate(cfg.Weights, raw)
	if err != nil {
		return nil, err
	}

	scores := make([]domain.ContributionScore, len(results))
	for i, r := range results {
		scores[i] = domain.ContributionScore{
			ProjectID:             projectID,
			UserID:                r.UserID,
			TaskCompletionScore:   r.Components.Task,
			PeerReviewScore:       r.Components.Peer,
			CodeContributionScore: r.Components.Code,
			LateTaskCount:         r.LateTaskCount,
			TotalAdditions:        r.Additions,
			TotalDeletions:        r.Deletions,
			CalculatedScore:       r.CalculatedScore,
			UpdatedAt:             now,
		}
	}

	if err := s.scores.SaveCalculated(ctx, projectID, scores); err != nil {
		log.Errorf("calculate", "project_id=%d save error=%v", projectID, err)
		return nil, err
	}
	log.Infof("calculate", "project_id=%d students=%d", projectID, len(scores))

	s.publish(ctx, domain.Event{
		Type:      domain.EventScoresRecalculated,
		ProjectID: projectID,
		At:        now,
		Data:      map[string]interface{}{"students": len(scores)},
	})

	return s.ListScores(ctx, projectID)
}

// ListScores returns the stored scores of the project's current students
// without recalculating. Rows of students who left the project are skipped.
func (s *ContributionService) ListScores(ctx context.Context, projectID int64) ([]domain.ContributionScore, error) {
	if _, err := s.scores.GetProjectConfig(ctx, projectID); err != nil {
		return nil, err
	}
	scores, err := s.scores.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	members, err := s.signals.Members(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSignalsUnavailable, err)
	}

	byUser := membersByUser(members)
	out := make([]domain.ContributionScore, 0, len(scores))
	for _, sc := range scores {
		if _, ok := byUser[sc.UserID]; ok {
			out = append(out, sc)
		}
	}
	return out, nil
}

func membersByUser(members []domain.Member) map[int64]domain.Member {
	byUser := make(map[int64]domain.Member, len(members))
	for _, m := range members {
		byUser[m.UserID] = m
	}
	return byUser
}

// checkScoreID rejects ids that cannot name a stored score.
func checkScoreID(scoreID string) error {
	if _, err := uuid.Parse(scoreID); err != nil {
		return domain.ErrScoreNotFound
	}
	return nil
}

// Assessment builds the aggregate view of a project: the stored score of every
// current student with identity, effective score and free-rider flag. Students
// who left the project are not part of the view or of any team average.
// Finalized projects are classified with their frozen weights.
func (s *ContributionService) Assessment(ctx context.Context, projectID int64) (*domain.ProjectAssessment, error) {
	cfg, err := s.scores.GetProjectConfig(ctx, projectID)
	if err != nil {
		return nil, err
	}
	scores, err := s.scores.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	members, err := s.signals.Members(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSignalsUnavailable, err)
	}

	byUser := membersByUser(members)

	students := make([]domain.StudentAssessment, 0, len(scores))
	for _, sc := range scores {
		m, ok := byUser[sc.UserID]
		if !ok {
			continue
		}
		students = append(students, domain.StudentAssessment{
			ContributionScore: sc,
			Username:          m.Username,
			FullName:          m.FullName,
			Email:             m.Email,
			GroupID:           m.GroupID,
			GroupName:         m.GroupName,
		})
	}

	weights := cfg.EffectiveWeights()
	scoring.ClassifyFreeRiders(students, weights.FreeriderThreshold)

	return &domain.ProjectAssessment{
		ProjectID:   cfg.ProjectID,
		ProjectName: cfg.Name,
		Status:      cfg.Status,
		Weights:     weights,
		FinalizedAt: cfg.FinalizedAt,
		Students:    students,
	}, nil
}

// Adjust records a manual override of a score.
func (s *ContributionService) Adjust(ctx context.Context, scoreID string, score float64, reason, actor string) (*domain.ContributionScore, error) {
	log := logging.New(ctx)

	if err := checkScoreID(scoreID); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if math.IsNaN(score) || score < 0 || score > 10 {
		return nil, fmt.Errorf("%w: adjusted score must be between 0 and 10", domain.ErrValidation)
	}
	if reason == "" {
		return nil, fmt.Errorf("%w: adjustment reason is required", domain.ErrValidation)
	}

	before, err := s.scores.GetByID(ctx, scoreID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	updated, err := s.scores.SetAdjustment(ctx, scoreID, &domain.Adjustment{Score: score, Reason: reason}, now)
	if err != nil {
		log.Errorf("adjust", "score_id=%s error=%v", scoreID, err)
		return nil, err
	}

	log.Infof("adjust", "score_id=%s project_id=%d user_id=%d calculated=%.2f previous=%.2f adjusted=%.2f reason=%q actor=%s",
		scoreID, updated.ProjectID, updated.UserID, updated.CalculatedScore, before.EffectiveScore(), score, reason, actor)

	s.publish(ctx, domain.Event{
		Type:      domain.EventScoreAdjusted,
		ProjectID: updated.ProjectID,
		UserID:    updated.UserID,
		ScoreID:   scoreID,
		Actor:     actor,
		At:        now,
		Data:      map[string]interface{}{"adjusted_score": score, "reason": reason},
	})
	return updated, nil
}

// ClearAdjustment removes a manual override so the calculated score applies again.
func (s *ContributionService) ClearAdjustment(ctx context.Context, scoreID, actor string) (*domain.ContributionScore, error) {
	log := logging.New(ctx)

	if err := checkScoreID(scoreID); err != nil {
		return nil, err
	}

	now := s.now()
	updated, err := s.scores.SetAdjustment(ctx, scoreID, nil, now)
	if err != nil {
		log.Errorf("clear_adjustment", "score_id=%s error=%v", scoreID, err)
		return nil, err
	}

	log.Infof("clear_adjustment", "score_id=%s project_id=%d user_id=%d calculated=%.2f actor=%s",
		scoreID, updated.ProjectID, updated.UserID, updated.CalculatedScore, actor)

	s.publish(ctx, domain.Event{
		Type:      domain.EventAdjustmentCleared,
		ProjectID: updated.ProjectID,
		UserID:    updated.UserID,
		ScoreID:   scoreID,
		Actor:     actor,
		At:        now,
	})
	return updated, nil
}

// Finalize locks the project's assessment and returns the final view.
// Finalizing an already finalized project succeeds without changes.
func (s *ContributionService) Finalize(ctx context.Context, projectID int64, actor string) (*domain.ProjectAssessment, error) {
	if err := s.finalize(ctx, projectID, actor); err != nil {
		return nil, err
	}
	return s.Assessment(ctx, projectID)
}

func (s *ContributionService) finalize(ctx context.Context, projectID int64, actor string) error {
	log := logging.New(ctx)

	unlock, err := s.locker.Lock(ctx, projectID)
	if err != nil {
		log.Error("finalize", err)
		return err
	}
	defer unlock()

	cfg, err := s.scores.GetProjectConfig(ctx, projectID)
	if err != nil {
		return err
	}
	if cfg.Status.IsFinal() {
		log.Infof("finalize", "project_id=%d already finalized", projectID)
		return nil
	}

	now := s.now()
	already, err := s.scores.Finalize(ctx, projectID, cfg.Weights, actor, now)
	if err != nil {
		log.Errorf("finalize", "project_id=%d error=%v", projectID, err)
		return err
	}
	if already {
		return nil
	}

	log.Infof("finalize", "project_id=%d actor=%s", projectID, actor)
	s.publish(ctx, domain.Event{
		Type:      domain.EventAssessmentFinalized,
		ProjectID: projectID,
		Actor:     actor,
		At:        now,
	})
	return nil
}

// GetWeights returns the project's scoring configuration and assessment state.
func (s *ContributionService) GetWeights(ctx context.Context, projectID int64) (*domain.ProjectConfig, error) {
	return s.scores.GetProjectConfig(ctx, projectID)
}

// UpdateWeights validates and stores new live weights. A finalized assessment
// keeps the weights it was frozen with.
func (s *ContributionService) UpdateWeights(ctx context.Context, projectID int64, w domain.WeightConfig, actor string) (*domain.ProjectConfig, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if err := s.scores.UpdateWeights(ctx, projectID, w); err != nil {
		return nil, err
	}
	logging.New(ctx).Infof("update_weights", "project_id=%d task=%.3f peer=%.3f code=%.3f late=%.3f freerider=%.3f pressure=%.1f actor=%s",
		projectID, w.TaskWeight, w.PeerWeight, w.CodeWeight, w.LatePenaltyWeight, w.FreeriderThreshold, w.PressureThreshold, actor)
	return s.scores.GetProjectConfig(ctx, projectID)
}

func (s *ContributionService) publish(ctx context.Context, event domain.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		logging.New(ctx).Warnf("publish", "type=%s project_id=%d error=%v", event.Type, event.ProjectID, err)
	}
}
