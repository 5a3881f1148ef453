package http

import (
	"context"
	"io"

	"github.com/itss-pm/contribution-engine/internal/contribution/domain"
)

// ContributionAPI is the scoring surface the handler drives.
type ContributionAPI interface {
	Calculate(ctx context.Context, projectID int64) ([]domain.ContributionScore, error)
	Assessment(ctx context.Context, projectID int64) (*domain.ProjectAssessment, error)
	Adjust(ctx context.Context, scoreID string, score float64, reason, actor string) (*domain.ContributionScore, error)
	ClearAdjustment(ctx context.Context, scoreID, actor string) (*domain.ContributionScore, error)
	Finalize(ctx context.Context, projectID int64, actor string) (*domain.ProjectAssessment, error)
	GetWeights(ctx context.Context, projectID int64) (*domain.ProjectConfig, error)
	UpdateWeights(ctx context.Context, projectID int64, w domain.WeightConfig, actor string) (*domain.ProjectConfig, error)
}

// PressureAPI reports workload pressure.
type PressureAPI interface {
	GroupPressure(ctx context.Context, projectID, groupID int64) ([]domain.PressureScore, error)
	History(ctx context.Context, projectID, userID int64, limit int) ([]domain.PressureSnapshot, error)
}

// ReportAPI renders assessments for download.
type ReportAPI interface {
	WriteCSV(ctx context.Context, projectID int64, w io.Writer) (*domain.ProjectAssessment, error)
}

// Handler handles HTTP requests for contribution scores, pressure and reports
type Handler struct {
	contributions ContributionAPI
	pressure      PressureAPI
	reports       ReportAPI
}

// New creates a new Handler
func New(contributions ContributionAPI, pressure PressureAPI, reports ReportAPI) *Handler {
	return &Handler{
		contributions: contributions,
		pressure:      pressure,
		reports:       reports,
	}
}
