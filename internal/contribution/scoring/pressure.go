package scoring

import (
	"math"
	"time"

	"github.com/itss-pm/contribution-engine/internal/contribution/domain"
)

// DefaultAtRiskRatio is the share of the pressure threshold at which a member
// is reported AT_RISK.
const DefaultAtRiskRatio = 0.8

// PressureModel computes workload pressure. With Weighted false the score is
// the plain active task count; with Weighted true every task contributes its
// difficulty times a deadline urgency factor.
type PressureModel struct {
	AtRiskRatio float64
	Weighted    bool
}

// NewPressureModel returns a model with the given ratio, falling back to
// DefaultAtRiskRatio when the ratio is outside (0,1).
func NewPressureModel(atRiskRatio float64, weighted bool) PressureModel {
	if atRiskRatio <= 0 || atRiskRatio >= 1 {
		atRiskRatio = DefaultAtRiskRatio
	}
	return PressureModel{AtRiskRatio: atRiskRatio, Weighted: weighted}
}

// Score returns the pressure contributed by the given active tasks at now.
func (m PressureModel) Score(tasks []domain.ActiveTask, now time.Time) float64 {
	if !m.Weighted {
		return float64(len(tasks))
	}

	var total float64
	for _, t := range tasks {
		difficulty := t.Difficulty
		if difficulty <= 0 {
			difficulty = 1
		}
		factor := 1.0
		if t.Deadline != nil {
			factor = TimeUrgencyFactor(daysBetween(now, *t.Deadline))
		}
		total += float64(difficulty) * factor
	}
	return total
}

// Classify maps a threshold percentage to a status. First match wins:
// >= 100 OVERLOADED, >= AtRiskRatio*100 AT_RISK, otherwise SAFE.
// The comparisons are tolerant, not exact: a percentage within epsilon below a
// boundary counts as reaching it, so 0.7*100 still counts as 70 and
// 99.9999999995 counts as OVERLOADED.
func (m PressureModel) Classify(thresholdPercentage float64) domain.PressureStatus {
	switch {
	case thresholdPercentage >= 100-epsilon:
		return domain.PressureOverloaded
	case thresholdPercentage >= m.AtRiskRatio*100-epsilon:
		return domain.PressureAtRisk
	default:
		return domain.PressureSafe
	}
}

// Evaluate builds the PressureScore of one member.
func (m PressureModel) Evaluate(member domain.Member, tasks []domain.ActiveTask, threshold float64, now time.Time) domain.PressureScore {
	score := m.Score(tasks, now)
	pct := ThresholdPercentage(score, threshold)
	return domain.PressureScore{
		UserID:              member.UserID,
		GroupID:             member.GroupID,
		Username:            member.Username,
		FullName:            member.FullName,
		TaskCount:           len(tasks),
		PressureScore:       score,
		Threshold:           threshold,
		ThresholdPercentage: pct,
		Status:              m.Classify(pct),
	}
}

// ThresholdPercentage is score / threshold * 100. A non-positive threshold
// yields 0; WeightConfig.Validate rejects such thresholds before they get here.
func ThresholdPercentage(score, threshold float64) float64 {
	if threshold <= 0 {
		return 0
	}
	return score / threshold * 100
}

// TimeUrgencyFactor weights a task by how close its deadline is.
func TimeUrgencyFactor(daysRemaining int) float64 {
	switch {
	case daysRemaining < 0:
		return 3.5
	case daysRemaining <= 1:
		return 3.0
	case daysRemaining <= 3:
		return 2.0
	case daysRemaining <= 7:
		return 1.5
	default:
		return 1.0
	}
}

// daysBetween counts calendar days from now to deadline in UTC.
func daysBetween(now, deadline time.Time) int {
	now, deadline = now.UTC(), deadline.UTC()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(deadline.Year(), deadline.Month(), deadline.Day(), 0, 0, 0, 0, time.UTC)
	return int(math.Round(to.Sub(from).Hours() / 24))
}
