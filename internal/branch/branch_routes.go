package branch

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kulupsoft/klub/internal/activity"
	"github.com/kulupsoft/klub/pkg/rmiddleware"
)

func RegisterBranchRoutes(router *gin.RouterGroup, db *gorm.DB, audit activity.Writer) {
	repo := NewBranchRepository(db)
	controller := NewBranchController(repo, audit)

	branches := router.Group("/branches")
	{
		branches.GET("", controller.GetAllBranches)
		branches.GET("/:branch_id", controller.GetBranchByID)
	}

	// Branch management - Admin only
	adminBranches := router.Group("/branches")
	adminBranches.Use(rmiddleware.AdminMiddleware())
	{
		adminBranches.POST("", controller.CreateBranch)
		adminBranches.PUT("/:branch_id", controller.UpdateBranch)
		adminBranches.DELETE("/:branch_id", controller.DeleteBranch)
	}
}
