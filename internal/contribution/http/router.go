package http

import "github.com/gin-gonic/gin"

// Register registers the contribution routes. The write middlewares (role
// checks, rate limiting) run in front of every mutating route only.
func (h *Handler) Register(rg *gin.RouterGroup, write ...gin.HandlerFunc) {
	guarded := func(fn gin.HandlerFunc) []gin.HandlerFunc {
		chain := make([]gin.HandlerFunc, 0, len(write)+1)
		chain = append(chain, write...)
		return append(chain, fn)
	}

	scores := rg.Group("/contribution-scores")
	scores.POST("/calculate", guarded(h.Calculate)...)
	scores.GET("/projects/:projectId", h.GetProjectScores)
	scores.PUT("/projects/:projectId/finalize", guarded(h.Finalize)...)
	scores.PUT("/:id/adjust", guarded(h.Adjust)...)
	scores.DELETE("/:id/adjust", guarded(h.ClearAdjustment)...)

	projects := rg.Group("/projects/:projectId")
	projects.GET("/groups/:groupId/pressure-scores", h.GroupPressure)
	projects.GET("/users/:userId/pressure-history", h.PressureHistory)
	projects.GET("/report", h.Report)
	projects.GET("/weights", h.GetWeights)
	projects.PUT("/weights", guarded(h.UpdateWeights)...)
}
