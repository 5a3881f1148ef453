package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/itss-pm/contribution-engine/internal/contribution/domain"
)

// AssessmentSource provides the aggregate view a report is rendered from.
type AssessmentSource interface {
	Assessment(ctx context.Context, projectID int64) (*domain.ProjectAssessment, error)
}

// ReportService exports assessments as spreadsheets.
type ReportService struct {
	assessments AssessmentSource
}

// NewReportService creates a new ReportService
func NewReportService(assessments AssessmentSource) *ReportService {
	return &ReportService{assessments: assessments}
}

var reportHeader = []string{
	"Student ID", "Username", "Full Name", "Email", "Group",
	"Task Completion", "Peer Review", "Code Contribution", "Late Tasks",
	"Lines Added", "Lines Deleted", "Calculated Score", "Adjusted Score",
	"Adjustment Reason", "Effective Score", "Team Average", "Free Rider", "Final",
}

// WriteCSV writes one row per student. Scores use two decimals; the adjusted
// columns are empty when no override exists.
func (s *ReportService) WriteCSV(ctx context.Context, projectID int64, w io.Writer) (*domain.ProjectAssessment, error) {
	a, err := s.assessments.Assessment(ctx, projectID)
	if err != nil {
		return nil, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(reportHeader); err != nil {
		return nil, fmt.Errorf("write report header: %w", err)
	}

	for _, st := range a.Students {
		adjusted, reason := "", ""
		if st.Adjustment != nil {
			adjusted = formatScore(st.Adjustment.Score)
			reason = st.Adjustment.Reason
		}
		record := []string{
			strconv.FormatInt(st.UserID, 10),
			st.Username,
			st.FullName,
			st.Email,
			st.GroupName,
			formatScore(st.TaskCompletionScore),
			formatScore(st.PeerReviewScore),
			formatScore(st.CodeContributionScore),
			strconv.Itoa(st.LateTaskCount),
			strconv.FormatInt(st.TotalAdditions, 10),
			strconv.FormatInt(st.TotalDeletions, 10),
			formatScore(st.CalculatedScore),
			adjusted,
			reason,
			formatScore(st.EffectiveScore),
			formatScore(st.TeamAverage),
			yesNo(st.IsFreeRider),
			yesNo(st.IsFinal),
		}
		if err := cw.Write(record); err != nil {
			return nil, fmt.Errorf("write report row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("flush report: %w", err)
	}
	return a, nil
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
