package auth

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kulupsoft/klub/config"
	"github.com/kulupsoft/klub/pkg/rmiddleware"
)

// RegisterAuthRoutes wires the login endpoint on the public group and the
// profile/account endpoints on the authenticated group.
func RegisterAuthRoutes(public *gin.RouterGroup, authed *gin.RouterGroup, db *gorm.DB, appConfig *config.Config) {
	repo := NewAuthRepository(db)
	controller := NewAuthController(repo, appConfig)

	public.POST("/auth/login", controller.Login)

	authRoutes := authed.Group("/auth")
	{
		authRoutes.GET("/me", controller.Me)
		authRoutes.POST("/change-password", controller.ChangePassword)
	}

	adminRoutes := authed.Group("/auth")
	adminRoutes.Use(rmiddleware.AdminMiddleware())
	{
		adminRoutes.POST("/users", controller.CreateUser)
	}
}
