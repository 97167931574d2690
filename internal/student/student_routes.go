package student

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kulupsoft/klub/internal/activity"
	"github.com/kulupsoft/klub/internal/branch"
	"github.com/kulupsoft/klub/pkg/rmiddleware"
)

func RegisterStudentRoutes(router *gin.RouterGroup, db *gorm.DB, audit activity.Writer) {
	repo := NewStudentRepository(db)
	branchRepo := branch.NewBranchRepository(db)
	controller := NewStudentController(repo, branchRepo, audit)

	students := router.Group("/students")
	students.Use(rmiddleware.StaffMiddleware())
	{
		students.GET("", controller.GetAllStudents)
		students.GET("/:student_id", controller.GetStudentByID)
		students.POST("", controller.CreateStudent)
		students.PUT("/:student_id", controller.UpdateStudent)
		students.POST("/:student_id/deactivate", controller.DeactivateStudent)
		students.POST("/:student_id/reactivate", controller.ReactivateStudent)
	}
}
