package scoring

import (
	"github.com/itss-pm/contribution-engine/internal/contribution/domain"
)

// Components are the three normalized inputs of a contribution score.
type Components struct {
	Task float64
	Peer float64
	Code float64
}

// Result is the calculated outcome for one student.
type Result struct {
	UserID          int64
	Components      Components
	LateTaskCount   int
	Additions       int64
	Deletions       int64
	CalculatedScore float64
}

// Contribution combines normalized components into a score clamped to [0,10]:
// task*W1 + peer*W2 + code*W3 - late*W4.
func Contribution(w domain.WeightConfig, c Components, lateTasks int) float64 {
	weighted := w.TaskWeight*c.Task + w.PeerWeight*c.Peer + w.CodeWeight*c.Code
	return clamp(weighted-w.LatePenaltyWeight*float64(lateTasks), scaleMin, scaleMax)
}

// Calculate normalizes each signal dimension over all students of the project and
// scores every student. Results are returned in input order.
func Calculate(w domain.WeightConfig, signals []domain.RawSignals) ([]Result, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	tasks := make([]float64, len(signals))
	peers := make([]float64, len(signals))
	code := make([]float64, len(signals))
	for i, s := range signals {
		tasks[i] = s.TaskCompletionRaw
		peers[i] = s.PeerReviewRaw
		code[i] = s.CodeRaw()
	}

	nTasks, nPeers, nCode := Normalize(tasks), Normalize(peers), Normalize(code)

	results := make([]Result, len(signals))
	for i, s := range signals {
		late := s.LateTaskCount
		if late < 0 {
			late = 0
		}
		c := Components{Task: nTasks[i], Peer: nPeers[i], Code: nCode[i]}
		results[i] = Result{
			UserID:          s.UserID,
			Components:      c,
			LateTaskCount:   late,
			Additions:       s.Additions,
			Deletions:       s.Deletions,
			CalculatedScore: Contribution(w, c, late),
		}
	}
	return results, nil
}
