package payment

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kulupsoft/klub/config"
	"github.com/kulupsoft/klub/internal/activity"
	"github.com/kulupsoft/klub/internal/branch"
	"github.com/kulupsoft/klub/internal/student"
	"github.com/kulupsoft/klub/pkg/rmiddleware"
)

func RegisterPaymentRoutes(router *gin.RouterGroup, db *gorm.DB, appConfig *config.Config, audit activity.Writer) {
	repo := NewPaymentRepository(db)
	studentRepo := student.NewStudentRepository(db)
	branchRepo := branch.NewBranchRepository(db)
	engine := NewFeeEngine(repo, studentRepo, branchRepo, appConfig.Fees.DefaultMonthly, appConfig.Fees.GenerationWorkers)
	controller := NewPaymentController(engine, repo, audit)

	payments := router.Group("/payments")
	payments.Use(rmiddleware.StaffMiddleware())
	{
		payments.GET("", controller.GetPayments)
		payments.GET("/:payment_id", controller.GetPaymentByID)
		payments.POST("/:payment_id/pay", controller.MarkPaid)
		payments.POST("/:payment_id/unpay", controller.MarkUnpaid)
	}

	// Bulk generation and amount corrections - Admin only
	adminPayments := router.Group("/payments")
	adminPayments.Use(rmiddleware.AdminMiddleware())
	{
		adminPayments.POST("/generate", controller.GeneratePayments)
		adminPayments.PATCH("/:payment_id", controller.CorrectAmount)
	}
}
