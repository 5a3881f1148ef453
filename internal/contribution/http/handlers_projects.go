package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/itss-pm/contribution-engine/internal/auth"
)

const (
	defaultHistoryLimit = 30
	maxHistoryLimit     = 365
)

// GroupPressure returns the live workload pressure of a group's members
func (h *Handler) GroupPressure(c *gin.Context) {
	projectID, ok := int64Param(c, "projectId")
	if !ok {
		return
	}
	groupID, ok := int64Param(c, "groupId")
	if !ok {
		return
	}

	scores, err := h.pressure.GroupPressure(c.Request.Context(), projectID, groupID)
	if err != nil {
		writeError(c, "group_pressure", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projectId": projectID, "groupId": groupID, "members": scores})
}

// PressureHistory returns the recorded pressure snapshots of one student
func (h *Handler) PressureHistory(c *gin.Context) {
	projectID, ok := int64Param(c, "projectId")
	if !ok {
		return
	}
	userID, ok := int64Param(c, "userId")
	if !ok {
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxHistoryLimit {
			c.JSON(http.StatusBadRequest, errorBody(fmt.Sprintf("limit must be between 1 and %d", maxHistoryLimit), codeValidation))
			return
		}
		limit = n
	}

	snapshots, err := h.pressure.History(c.Request.Context(), projectID, userID, limit)
	if err != nil {
		writeError(c, "pressure_history", err)
		return
	}

	out := make([]PressureHistoryEntry, len(snapshots))
	for i, s := range snapshots {
		out[i] = PressureHistoryEntry{
			GroupID:             s.GroupID,
			PressureScore:       s.PressureScore,
			ThresholdPercentage: s.ThresholdPercentage,
			Status:              s.Status,
			RecordedAt:          s.RecordedAt,
		}
	}
	c.JSON(http.StatusOK, gin.H{"projectId": projectID, "userId": userID, "history": out})
}

// Report downloads the assessment as CSV
func (h *Handler) Report(c *gin.Context) {
	projectID, ok := int64Param(c, "projectId")
	if !ok {
		return
	}

	var buf bytes.Buffer
	if _, err := h.reports.WriteCSV(c.Request.Context(), projectID, &buf); err != nil {
		writeError(c, "report", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="contribution-report-project-%d.csv"`, projectID))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// GetWeights returns the project's weights as percentages
func (h *Handler) GetWeights(c *gin.Context) {
	projectID, ok := int64Param(c, "projectId")
	if !ok {
		return
	}

	cfg, err := h.contributions.GetWeights(c.Request.Context(), projectID)
	if err != nil {
		writeError(c, "get_weights", err)
		return
	}
	c.JSON(http.StatusOK, newWeightsResponse(cfg))
}

// UpdateWeights stores new weights given as percentages
func (h *Handler) UpdateWeights(c *gin.Context) {
	projectID, ok := int64Param(c, "projectId")
	if !ok {
		return
	}

	var req WeightsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	cfg, err := h.contributions.UpdateWeights(c.Request.Context(), projectID, req.toDomain(), auth.Actor(c))
	if err != nil {
		writeError(c, "update_weights", err)
		return
	}
	c.JSON(http.StatusOK, newWeightsResponse(cfg))
}
