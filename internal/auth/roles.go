package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireRole aborts with 403 unless the caller holds one of the roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := allowed[Role(c)]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "insufficient role for this operation",
				"code":  "FORBIDDEN",
			})
			return
		}
		c.Next()
	}
}

// RequireAssessor allows the roles that may modify an assessment.
func RequireAssessor() gin.HandlerFunc {
	return RequireRole(RoleOwner, RoleInstructor, RoleAdmin)
}
