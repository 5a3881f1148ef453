package http

import (
	"math"
	"time"

	"github.com/itss-pm/contribution-engine/internal/contribution/domain"
)

// AdjustRequest is the body of PUT /contribution-scores/:id/adjust.
type AdjustRequest struct {
	AdjustedScore    *float64 `json:"adjustedScore" binding:"required,gte=0,lte=10"`
	AdjustmentReason string   `json:"adjustmentReason" binding:"required"`
}

// WeightsRequest carries weights and the free-rider threshold as percentages.
type WeightsRequest struct {
	WeightW1           *float64 `json:"weightW1" binding:"required,gte=0,lte=100"`
	WeightW2           *float64 `json:"weightW2" binding:"required,gte=0,lte=100"`
	WeightW3           *float64 `json:"weightW3" binding:"required,gte=0,lte=100"`
	WeightW4           *float64 `json:"weightW4" binding:"required,gte=0,lte=100"`
	FreeriderThreshold *float64 `json:"freeriderThreshold" binding:"required,gte=0,lte=100"`
	PressureThreshold  *float64 `json:"pressureThreshold" binding:"required,gt=0"`
}

func (r WeightsRequest) toDomain() domain.WeightConfig {
	return domain.WeightConfig{
		TaskWeight:         *r.WeightW1 / 100,
		PeerWeight:         *r.WeightW2 / 100,
		CodeWeight:         *r.WeightW3 / 100,
		LatePenaltyWeight:  *r.WeightW4 / 100,
		FreeriderThreshold: *r.FreeriderThreshold / 100,
		PressureThreshold:  *r.PressureThreshold,
	}
}

// WeightsView is the percentage form of a WeightConfig.
type WeightsView struct {
	WeightW1           float64 `json:"weightW1"`
	WeightW2           float64 `json:"weightW2"`
	WeightW3           float64 `json:"weightW3"`
	WeightW4           float64 `json:"weightW4"`
	FreeriderThreshold float64 `json:"freeriderThreshold"`
	PressureThreshold  float64 `json:"pressureThreshold"`
}

func newWeightsView(w domain.WeightConfig) WeightsView {
	return WeightsView{
		WeightW1:           percent(w.TaskWeight),
		WeightW2:           percent(w.PeerWeight),
		WeightW3:           percent(w.CodeWeight),
		WeightW4:           percent(w.LatePenaltyWeight),
		FreeriderThreshold: percent(w.FreeriderThreshold),
		PressureThreshold:  w.PressureThreshold,
	}
}

// WeightsResponse describes a project's live weights and, once finalized,
// the weights its assessment was frozen with.
type WeightsResponse struct {
	ProjectID        int64                   `json:"projectId"`
	AssessmentStatus domain.AssessmentStatus `json:"assessmentStatus"`
	WeightsView
	FrozenWeights *WeightsView `json:"frozenWeights,omitempty"`
	FinalizedAt   *time.Time   `json:"finalizedAt,omitempty"`
	FinalizedBy   string       `json:"finalizedBy,omitempty"`
}

func newWeightsResponse(cfg *domain.ProjectConfig) WeightsResponse {
	resp := WeightsResponse{
		ProjectID:        cfg.ProjectID,
		AssessmentStatus: cfg.Status,
		WeightsView:      newWeightsView(cfg.Weights),
		FinalizedAt:      cfg.FinalizedAt,
		FinalizedBy:      cfg.FinalizedBy,
	}
	if cfg.FrozenWeights != nil {
		frozen := newWeightsView(*cfg.FrozenWeights)
		resp.FrozenWeights = &frozen
	}
	return resp
}

// ScoreResponse is a stored score on the wire. The override is flattened into
// adjustedScore/adjustmentReason, both null when no override exists.
type ScoreResponse struct {
	ID                    string    `json:"id"`
	ProjectID             int64     `json:"projectId"`
	UserID                int64     `json:"userId"`
	TaskCompletionScore   float64   `json:"taskCompletionScore"`
	PeerReviewScore       float64   `json:"peerReviewScore"`
	CodeContributionScore float64   `json:"codeContributionScore"`
	LateTaskCount         int       `json:"lateTaskCount"`
	TotalAdditions        int64     `json:"totalAdditions"`
	TotalDeletions        int64     `json:"totalDeletions"`
	CalculatedScore       float64   `json:"calculatedScore"`
	AdjustedScore         *float64  `json:"adjustedScore"`
	AdjustmentReason      *string   `json:"adjustmentReason"`
	EffectiveScore        float64   `json:"effectiveScore"`
	IsFinal               bool      `json:"isFinal"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

func newScoreResponse(s domain.ContributionScore) ScoreResponse {
	resp := ScoreResponse{
		ID:                    s.ID,
		ProjectID:             s.ProjectID,
		UserID:                s.UserID,
		TaskCompletionScore:   s.TaskCompletionScore,
		PeerReviewScore:       s.PeerReviewScore,
		CodeContributionScore: s.CodeContributionScore,
		LateTaskCount:         s.LateTaskCount,
		TotalAdditions:        s.TotalAdditions,
		TotalDeletions:        s.TotalDeletions,
		CalculatedScore:       s.CalculatedScore,
		EffectiveScore:        s.EffectiveScore(),
		IsFinal:               s.IsFinal,
		UpdatedAt:             s.UpdatedAt,
	}
	if s.Adjustment != nil {
		score, reason := s.Adjustment.Score, s.Adjustment.Reason
		resp.AdjustedScore = &score
		resp.AdjustmentReason = &reason
	}
	return resp
}

// StudentResponse is one row of an assessment.
type StudentResponse struct {
	ScoreResponse
	Username    string  `json:"username"`
	FullName    string  `json:"fullName"`
	Email       string  `json:"email"`
	GroupID     int64   `json:"groupId,omitempty"`
	GroupName   string  `json:"groupName,omitempty"`
	TeamAverage float64 `json:"teamAverage"`
	IsFreeRider bool    `json:"isFreeRider"`
}

// AssessmentResponse is a project assessment with weights as percentages.
type AssessmentResponse struct {
	ProjectID        int64                   `json:"projectId"`
	ProjectName      string                  `json:"projectName"`
	AssessmentStatus domain.AssessmentStatus `json:"assessmentStatus"`
	Weights          WeightsView             `json:"weights"`
	FinalizedAt      *time.Time              `json:"finalizedAt,omitempty"`
	Students         []StudentResponse       `json:"students"`
}

func newAssessmentResponse(a *domain.ProjectAssessment) AssessmentResponse {
	students := make([]StudentResponse, len(a.Students))
	for i, st := range a.Students {
		students[i] = StudentResponse{
			ScoreResponse: newScoreResponse(st.ContributionScore),
			Username:      st.Username,
			FullName:      st.FullName,
			Email:         st.Email,
			GroupID:       st.GroupID,
			GroupName:     st.GroupName,
			TeamAverage:   st.TeamAverage,
			IsFreeRider:   st.IsFreeRider,
		}
	}
	return AssessmentResponse{
		ProjectID:        a.ProjectID,
		ProjectName:      a.ProjectName,
		AssessmentStatus: a.Status,
		Weights:          newWeightsView(a.Weights),
		FinalizedAt:      a.FinalizedAt,
		Students:         students,
	}
}

// PressureHistoryEntry is one recorded pressure snapshot.
type PressureHistoryEntry struct {
	GroupID             int64                 `json:"groupId"`
	PressureScore       float64               `json:"pressureScore"`
	ThresholdPercentage float64               `json:"thresholdPercentage"`
	Status              domain.PressureStatus `json:"status"`
	RecordedAt          time.Time             `json:"recordedAt"`
}

func percent(fraction float64) float64 {
	return math.Round(fraction*10000) / 100
}
