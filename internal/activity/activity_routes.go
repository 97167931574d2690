package activity

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kulupsoft/klub/pkg/rmiddleware"
)

func RegisterActivityRoutes(router *gin.RouterGroup, db *gorm.DB) {
	repo := NewActivityRepository(db)
	controller := NewActivityController(repo)

	logs := router.Group("/activity")
	logs.Use(rmiddleware.AdminMiddleware())
	{
		logs.GET("", controller.GetLogs)
	}
}
