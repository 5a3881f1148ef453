package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// OptionalUser sets the caller identity from headers without enforcing auth.
// - If X-User-Id is missing, it falls back to "demo-user".
// - X-User-Role defaults to "student"; send "instructor" to reach write routes.
// - Use this ONLY for development/testing. config.Validate refuses it in production.
func OptionalUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := strings.TrimSpace(c.GetHeader("X-User-Id"))
		if uid == "" {
			uid = "demo-user"
		}
		role := strings.TrimSpace(c.GetHeader("X-User-Role"))
		if role == "" {
			role = RoleStudent
		}

		SetIdentity(c, uid, role)
		c.Next()
	}
}
