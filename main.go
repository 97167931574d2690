package main

import (
	"context"
	"log"
	"time"

	"github.com/kulupsoft/klub/config"
	_ "github.com/kulupsoft/klub/docs"
	"github.com/kulupsoft/klub/internal/activity"
	"github.com/kulupsoft/klub/internal/branch"
	"github.com/kulupsoft/klub/internal/equipment"
	"github.com/kulupsoft/klub/internal/payment"
	"github.com/kulupsoft/klub/internal/student"
	"github.com/kulupsoft/klub/internal/training"
	"github.com/kulupsoft/klub/internal/user"
	"github.com/kulupsoft/klub/routes"
)

// @title Klub REST API
// @version 1.0
// @description Management server for a youth sports club: students, monthly dues, equipment stock and trainings.
// @host localhost:8088
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := config.Initialize(); err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	cfg := config.GetConfig()

	err := config.DB.AutoMigrate(
		&user.User{},
		&branch.SportBranch{},
		&student.Student{},
		&payment.Payment{}, &payment.FeeRun{},
		&equipment.EquipmentType{}, &equipment.EquipmentAssignment{},
		&training.Training{}, &training.TrainingAttendance{},
		&activity.ActivityLog{},
	)
	if err != nil {
		log.Fatalf("AutoMigrate failed: %v", err)
	}

	// One recurring dues row per student and period. Partial index because
	// one-off equipment charges share the payments table.
	err = config.DB.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_recurring_dues
		ON payments (student_id, payment_period)
		WHERE equipment_assignment_id IS NULL AND deleted_at IS NULL`).Error
	if err != nil {
		log.Fatalf("Failed to create recurring dues index: %v", err)
	}
	log.Println("AutoMigrate successful")

	if cfg.Fees.AutoGenerate {
		generateCurrentPeriodDues(cfg)
	}

	r := routes.SetupRoutes(config.DB, cfg)

	// Use port from loaded configuration
	log.Printf("Starting server on port %s in %s mode\n", cfg.App.Port, cfg.App.Env)
	if err := r.Run(":" + cfg.App.Port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}

// generateCurrentPeriodDues runs dues generation for the current month at
// startup, skipping months that already have a completed run. Failures are
// logged only; staff can retry through POST /api/payments/generate.
func generateCurrentPeriodDues(cfg *config.Config) {
	engine := payment.NewFeeEngine(
		payment.NewPaymentRepository(config.DB),
		student.NewStudentRepository(config.DB),
		branch.NewBranchRepository(config.DB),
		cfg.Fees.DefaultMonthly,
		cfg.Fees.GenerationWorkers,
	)

	period := payment.CurrentPeriod(time.Now())
	done, err := engine.HasRunForPeriod(period)
	if err != nil {
		log.Printf("Dues generation check failed for %s: %v", period, err)
		return
	}
	if done {
		log.Printf("Dues for %s already generated, skipping", period)
		return
	}

	summary, err := engine.GenerateForPeriod(context.Background(), period)
	if err != nil {
		log.Printf("Dues generation failed for %s: %v", period, err)
		return
	}
	log.Printf("Dues generated for %s: %d inserted, %d updated, %d unchanged, %d skipped (paid), %d failed",
		period, summary.Inserted, summary.Updated, summary.Unchanged, summary.SkippedPaid, summary.Failed)
}
