package equipment

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kulupsoft/klub/config"
	"github.com/kulupsoft/klub/internal/activity"
	"github.com/kulupsoft/klub/internal/branch"
	"github.com/kulupsoft/klub/internal/payment"
	"github.com/kulupsoft/klub/internal/student"
	"github.com/kulupsoft/klub/pkg/rmiddleware"
)

func RegisterEquipmentRoutes(router *gin.RouterGroup, db *gorm.DB, appConfig *config.Config, audit activity.Writer) {
	repo := NewEquipmentRepository(db)
	studentRepo := student.NewStudentRepository(db)
	paymentRepo := payment.NewPaymentRepository(db)
	branchRepo := branch.NewBranchRepository(db)
	fees := payment.NewFeeEngine(paymentRepo, studentRepo, branchRepo, appConfig.Fees.DefaultMonthly, appConfig.Fees.GenerationWorkers)
	controller := NewEquipmentController(repo, studentRepo, fees, audit)

	equipment := router.Group("/equipment")
	equipment.Use(rmiddleware.StaffMiddleware())
	{
		equipment.GET("", controller.GetAllVariants)
		equipment.GET("/:equipment_id/available", controller.GetAvailableQuantity)
		equipment.GET("/assignments", controller.GetAssignments)
		equipment.POST("/assignments", controller.AssignEquipment)
		equipment.POST("/assignments/:assignment_id/return", controller.ReturnEquipment)
		equipment.POST("/assignments/:assignment_id/close", controller.CloseAssignment)
	}

	// Variant and stock management - Admin only
	adminEquipment := router.Group("/equipment")
	adminEquipment.Use(rmiddleware.AdminMiddleware())
	{
		adminEquipment.POST("", controller.CreateVariant)
		adminEquipment.POST("/:equipment_id/stock", controller.AddStock)
	}
}
