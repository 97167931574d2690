package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kulupsoft/klub/pkg/token"
)

const (
	AuthUserIDKey   = "auth_user_id"
	AuthRoleKey     = "auth_role"
	AuthUsernameKey = "auth_username"
)

func AuthMiddleware(jwtSecret string, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}

		bearerToken := strings.Split(authHeader, " ")
		if len(bearerToken) != 2 || strings.ToLower(bearerToken[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid Authorization header format. Expected: Bearer <token>"})
			return
		}

		claims, err := token.ValidateJWT(bearerToken[1], jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token: " + err.Error()})
			return
		}

		var username string
		err = db.Table("users").Select("username").Where("id = ? AND deleted_at IS NULL", claims.UserID).Scan(&username).Error
		if err != nil || username == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found or inactive"})
			return
		}

		c.Set(AuthUserIDKey, claims.UserID)
		c.Set(AuthRoleKey, claims.Role)
		c.Set(AuthUsernameKey, username)
		c.Next()
	}
}

// GetUserIDFromContext extracts the user ID from the context
func GetUserIDFromContext(c *gin.Context) (uint, error) {
	userID, exists := c.Get(AuthUserIDKey)
	if !exists {
		return 0, errors.New("user ID not found in context")
	}

	uid, ok := userID.(uint)
	if !ok {
		return 0, fmt.Errorf("user ID has unexpected type: %T", userID)
	}

	return uid, nil
}

// ActorFromContext returns the authenticated username for audit trails, or a
// "user#<id>" fallback when only the ID is known. Empty for system actions.
func ActorFromContext(c *gin.Context) string {
	if name, exists := c.Get(AuthUsernameKey); exists {
		if s, ok := name.(string); ok {
			return s
		}
	}
	if id, err := GetUserIDFromContext(c); err == nil {
		return fmt.Sprintf("user#%d", id)
	}
	return ""
}

// GetRoleFromContext extracts the authenticated user's role from the context.
func GetRoleFromContext(c *gin.Context) (string, error) {
	role, exists := c.Get(AuthRoleKey)
	if !exists {
		return "", errors.New("role not found in context")
	}

	r, ok := role.(string)
	if !ok {
		return "", fmt.Errorf("role has unexpected type: %T", role)
	}

	return r, nil
}
