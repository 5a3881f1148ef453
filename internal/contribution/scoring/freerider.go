package scoring

import "github.com/itss-pm/contribution-engine/internal/contribution/domain"

// ClassifyFreeRiders fills EffectiveScore, TeamAverage and IsFreeRider for every
// student. The peer set is the student's group; a student without a group
// (GroupID 0) is compared against the whole project.
func ClassifyFreeRiders(students []domain.StudentAssessment, threshold float64) {
	if len(students) == 0 {
		return
	}

	type acc struct {
		sum   float64
		count int
	}
	groups := make(map[int64]*acc)
	var project acc

	for i := range students {
		s := &students[i]
		s.EffectiveScore = s.ContributionScore.EffectiveScore()

		project.sum += s.EffectiveScore
		project.count++

		if s.GroupID == 0 {
			continue
		}
		g, ok := groups[s.GroupID]
		if !ok {
			g = &acc{}
			groups[s.GroupID] = g
		}
		g.sum += s.EffectiveScore
		g.count++
	}

	for i := range students {
		s := &students[i]
		peers := &project
		if g, ok := groups[s.GroupID]; ok {
			peers = g
		}
		s.TeamAverage = peers.sum / float64(peers.count)
		s.IsFreeRider = IsFreeRider(s.EffectiveScore, s.TeamAverage, threshold)
	}
}

// IsFreeRider applies the relative cutoff: effective < teamAverage * threshold.
func IsFreeRider(effective, teamAverage, threshold float64) bool {
	return effective < teamAverage*threshold
}
