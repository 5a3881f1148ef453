package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	CtxUserID = "user_id"
	CtxRole   = "user_role"
	CtxEmail  = "email"
)

// Roles allowed to change an assessment.
const (
	RoleOwner      = "owner"
	RoleInstructor = "instructor"
	RoleAdmin      = "admin"
	RoleStudent    = "student"
)

// SetIdentity stores the authenticated caller in the Gin context.
func SetIdentity(c *gin.Context, userID, role string) {
	c.Set(CtxUserID, strings.TrimSpace(userID))
	c.Set(CtxRole, strings.ToLower(strings.TrimSpace(role)))
}

// Actor returns the caller's id as recorded in audit logs, or "anonymous".
func Actor(c *gin.Context) string {
	if uid := strings.TrimSpace(c.GetString(CtxUserID)); uid != "" {
		return uid
	}
	return "anonymous"
}

// Role returns the caller's role, empty when unknown.
func Role(c *gin.Context) string {
	return c.GetString(CtxRole)
}
