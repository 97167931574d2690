package training

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kulupsoft/klub/internal/activity"
	"github.com/kulupsoft/klub/internal/branch"
	"github.com/kulupsoft/klub/pkg/rmiddleware"
)

func RegisterTrainingRoutes(router *gin.RouterGroup, db *gorm.DB, audit activity.Writer) {
	repo := NewTrainingRepository(db)
	branchRepo := branch.NewBranchRepository(db)
	controller := NewTrainingController(repo, branchRepo, audit)

	trainings := router.Group("/trainings")
	trainings.Use(rmiddleware.StaffMiddleware())
	{
		trainings.GET("", controller.GetTrainings)
		trainings.POST("", controller.CreateTraining)
		trainings.GET("/attendance", controller.GetStudentAttendance)
		trainings.PUT("/:training_id", controller.UpdateTraining)
		trainings.DELETE("/:training_id", controller.DeleteTraining)
		trainings.GET("/:training_id/attendance", controller.GetAttendance)
		trainings.POST("/:training_id/attendance", controller.TakeAttendance)
	}
}
