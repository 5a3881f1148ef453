package domain

import "time"

const (
	EventScoresRecalculated  = "scores.recalculated"
	EventScoreAdjusted       = "score.adjusted"
	EventAdjustmentCleared   = "score.adjustment_cleared"
	EventAssessmentFinalized = "assessment.finalized"
	EventMemberOverloaded    = "pressure.overloaded"
)

// Event is published after a successful write so other services (notifications,
// dashboards) can react. Delivery is best effort.
type Event struct {
	Type      string                 `json:"type"`
	ProjectID int64                  `json:"project_id"`
	UserID    int64                  `json:"user_id,omitempty"`
	ScoreID   string                 `json:"score_id,omitempty"`
	Actor     string                 `json:"actor,omitempty"`
	At        time.Time              `json:"at"`
	Data      map[string]interface{} `json:"data,omitempty"`
}
