package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/itss-pm/contribution-engine/internal/auth"
)

// Calculate recomputes the scores of every student of a project
func (h *Handler) Calculate(c *gin.Context) {
	projectID, ok := parseID(c, "projectId", c.Query("projectId"))
	if !ok {
		return
	}

	scores, err := h.contributions.Calculate(c.Request.Context(), projectID)
	if err != nil {
		writeError(c, "calculate", err)
		return
	}

	out := make([]ScoreResponse, len(scores))
	for i, s := range scores {
		out[i] = newScoreResponse(s)
	}
	c.JSON(http.StatusOK, gin.H{"projectId": projectID, "scores": out})
}

// GetProjectScores returns the assessment of a project with free-rider flags
func (h *Handler) GetProjectScores(c *gin.Context) {
	projectID, ok := int64Param(c, "projectId")
	if !ok {
		return
	}

	a, err := h.contributions.Assessment(c.Request.Context(), projectID)
	if err != nil {
		writeError(c, "list_scores", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assessment": newAssessmentResponse(a)})
}

// Adjust overrides a calculated score
func (h *Handler) Adjust(c *gin.Context) {
	scoreID, ok := scoreIDParam(c)
	if !ok {
		return
	}

	var req AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	updated, err := h.contributions.Adjust(c.Request.Context(), scoreID, *req.AdjustedScore, req.AdjustmentReason, auth.Actor(c))
	if err != nil {
		writeError(c, "adjust", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"score": newScoreResponse(*updated)})
}

// ClearAdjustment removes a manual override
func (h *Handler) ClearAdjustment(c *gin.Context) {
	scoreID, ok := scoreIDParam(c)
	if !ok {
		return
	}

	updated, err := h.contributions.ClearAdjustment(c.Request.Context(), scoreID, auth.Actor(c))
	if err != nil {
		writeError(c, "clear_adjustment", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"score": newScoreResponse(*updated)})
}

// Finalize locks the project's assessment
func (h *Handler) Finalize(c *gin.Context) {
	projectID, ok := int64Param(c, "projectId")
	if !ok {
		return
	}

	a, err := h.contributions.Finalize(c.Request.Context(), projectID, auth.Actor(c))
	if err != nil {
		writeError(c, "finalize", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assessment": newAssessmentResponse(a)})
}
