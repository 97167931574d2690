package rmiddleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kulupsoft/klub/internal/middleware"
)

// RoleMiddleware gates a route group to the given staff roles. The role is
// read from the verified JWT claims placed in context by AuthMiddleware.
func RoleMiddleware(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := middleware.GetRoleFromContext(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: " + err.Error()})
			return
		}

		for _, required := range requiredRoles {
			if strings.EqualFold(role, required) {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":    "Forbidden",
			"message":  "You don't have permission to access this resource",
			"required": requiredRoles,
		})
	}
}

// AdminMiddleware is a convenience middleware for admin-only access
func AdminMiddleware() gin.HandlerFunc {
	return RoleMiddleware("admin")
}

// StaffMiddleware allows any club staff member (admin or coach).
func StaffMiddleware() gin.HandlerFunc {
	return RoleMiddleware("admin", "coach")
}
