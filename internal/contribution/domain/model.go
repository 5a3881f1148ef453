package domain

import "time"

// AssessmentStatus is the lifecycle state of a project's contribution assessment.
// The only transition is DRAFT -> FINALIZED.
type AssessmentStatus string

const (
	StatusDraft     AssessmentStatus = "DRAFT"
	StatusFinalized AssessmentStatus = "FINALIZED"
)

// IsFinal reports whether the assessment is locked.
func (s AssessmentStatus) IsFinal() bool {
	return s == StatusFinalized
}

// ProjectConfig is the scoring view of a project.
type ProjectConfig struct {
	ProjectID     int64            `json:"projectId"`
	Name          string           `json:"name"`
	Weights       WeightConfig     `json:"weights"`
	Status        AssessmentStatus `json:"assessmentStatus"`
	FrozenWeights *WeightConfig    `json:"frozenWeights,omitempty"`
	FinalizedAt   *time.Time       `json:"finalizedAt,omitempty"`
	FinalizedBy   string           `json:"finalizedBy,omitempty"`
}

// EffectiveWeights returns the weights a finalized assessment was locked with,
// or the live project weights while the assessment is still a draft.
func (p *ProjectConfig) EffectiveWeights() WeightConfig {
	if p.Status.IsFinal() && p.FrozenWeights != nil {
		return *p.FrozenWeights
	}
	return p.Weights
}

// Adjustment is a manual override of a calculated score.
type Adjustment struct {
	Score  float64 `json:"adjustedScore"`
	Reason string  `json:"adjustmentReason"`
}

// ContributionScore is the persisted per-student score for one project.
type ContributionScore struct {
	ID                    string      `json:"id"`
	ProjectID             int64       `json:"projectId"`
	UserID                int64       `json:"userId"`
	TaskCompletionScore   float64     `json:"taskCompletionScore"`
	PeerReviewScore       float64     `json:"peerReviewScore"`
	CodeContributionScore float64     `json:"codeContributionScore"`
	LateTaskCount         int         `json:"lateTaskCount"`
	TotalAdditions        int64       `json:"totalAdditions"`
	TotalDeletions        int64       `json:"totalDeletions"`
	CalculatedScore       float64     `json:"calculatedScore"`
	Adjustment            *Adjustment `json:"-"`
	IsFinal               bool        `json:"isFinal"`
	UpdatedAt             time.Time   `json:"updatedAt"`
}

// EffectiveScore is the score used for classification: the override when present,
// otherwise the system-calculated value.
func (s *ContributionScore) EffectiveScore() float64 {
	if s.Adjustment != nil {
		return s.Adjustment.Score
	}
	return s.CalculatedScore
}

// IsAdjusted reports whether a manual override is recorded.
func (s *ContributionScore) IsAdjusted() bool {
	return s.Adjustment != nil
}

// Member is a student of a project as seen by the external project/group store.
// GroupID is zero when the student has no group.
type Member struct {
	UserID    int64  `json:"userId"`
	Username  string `json:"username"`
	FullName  string `json:"fullName"`
	Email     string `json:"email"`
	GroupID   int64  `json:"groupId,omitempty"`
	GroupName string `json:"groupName,omitempty"`
}

// StudentAssessment joins a score with identity and the derived free-rider flag.
type StudentAssessment struct {
	ContributionScore
	Username       string  `json:"username"`
	FullName       string  `json:"fullName"`
	Email          string  `json:"email"`
	GroupID        int64   `json:"groupId,omitempty"`
	GroupName      string  `json:"groupName,omitempty"`
	EffectiveScore float64 `json:"effectiveScore"`
	TeamAverage    float64 `json:"teamAverage"`
	IsFreeRider    bool    `json:"isFreeRider"`
}

// ProjectAssessment is the aggregate view rendered by the UI and the report.
type ProjectAssessment struct {
	ProjectID   int64               `json:"projectId"`
	ProjectName string              `json:"projectName"`
	Status      AssessmentStatus    `json:"assessmentStatus"`
	Weights     WeightConfig        `json:"weights"`
	FinalizedAt *time.Time          `json:"finalizedAt,omitempty"`
	Students    []StudentAssessment `json:"students"`
}
