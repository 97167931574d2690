package payment

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kulupsoft/klub/internal/activity"
	"github.com/kulupsoft/klub/internal/middleware"
	"github.com/kulupsoft/klub/pkg/responses"
	"github.com/kulupsoft/klub/pkg/validator"
)

// PaymentController handles the dues ledger API.
type PaymentController struct {
	engine *FeeEngine
	repo   PaymentRepository
	audit  activity.Writer
}

// NewPaymentController creates a new PaymentController.
func NewPaymentController(engine *FeeEngine, repo PaymentRepository, audit activity.Writer) *PaymentController {
	return &PaymentController{
		engine: engine,
		repo:   repo,
		audit:  audit,
	}
}

type GenerateRequest struct {
	Period string `json:"period" binding:"required" example:"2025-03"`
	// Force re-runs a period that already has a completed run marker.
	// Generation is idempotent, so this recalculates unpaid rows and
	// never duplicates or touches paid ones.
	Force bool `json:"force"`
}

type CorrectAmountRequest struct {
	Amount float64 `json:"amount" binding:"required,gte=0"`
	Notes  string  `json:"notes" binding:"omitempty,max=500"`
}

// GeneratePayments godoc
// @Summary Generate monthly dues
// @Description Create (or recalculate) the recurring dues row of every active student
// @Description for a period. Calling this endpoint is the explicit confirmation the bulk
// @Description write requires; automatic schedulers must check the run marker and pass
// @Description force=false so a period is only generated once per month.
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body GenerateRequest true "Generation request"
// @Success 200 {object} responses.SuccessResponse{data=GenerationSummary}
// @Failure 400 {object} responses.ErrorResponse "Invalid period"
// @Failure 409 {object} responses.ErrorResponse "Period already generated (use force to re-run)"
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /payments/generate [post]
// @Security BearerAuth
func (pc *PaymentController) GeneratePayments(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errs := validator.ParseError(err)
		responses.SendError(c, http.StatusBadRequest, "Validation failed", errs)
		return
	}

	if _, _, err := ValidatePeriod(req.Period); err != nil {
		responses.SendDomainError(c, err)
		return
	}

	if !req.Force {
		ran, err := pc.engine.HasRunForPeriod(req.Period)
		if err != nil {
			responses.SendError(c, http.StatusInternalServerError, "Failed to check generation marker", err.Error())
			return
		}
		if ran {
			responses.SendError(c, http.StatusConflict, "Dues for "+req.Period+" were already generated. Re-run with force=true to recalculate unpaid rows.", nil)
			return
		}
	}

	summary, err := pc.engine.GenerateForPeriod(c.Request.Context(), req.Period)
	if err != nil {
		responses.SendDomainError(c, err)
		return
	}

	pc.audit.Record("generated", "payment", 0,
		fmt.Sprintf("Dues generated for %s: %d inserted, %d updated, %d skipped (paid), %d failed",
			req.Period, summary.Inserted, summary.Updated, summary.SkippedPaid, summary.Failed),
		middleware.ActorFromContext(c))
	responses.SendSuccess(c, http.StatusOK, "Dues generation completed", summary)
}

// GetPayments godoc
// @Summary List ledger rows
// @Description Get payments filtered by student, period and paid state
// @Tags Payments
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Number of items per page" default(20)
// @Param student_id query int false "Filter by student"
// @Param period query string false "Filter by period (YYYY-MM)"
// @Param is_paid query boolean false "Filter by paid state"
// @Success 200 {object} responses.PaginatedResponse{data=[]Payment}
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /payments [get]
// @Security BearerAuth
func (pc *PaymentController) GetPayments(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	studentID, _ := strconv.ParseUint(c.Query("student_id"), 10, 32)
	period := c.Query("period")

	var isPaid *bool
	if q := c.Query("is_paid"); q != "" {
		if val, err := strconv.ParseBool(q); err == nil {
			isPaid = &val
		}
	}

	payments, total, err := pc.repo.GetPayments(page, pageSize, uint(studentID), period, isPaid)
	if err != nil {
		responses.SendError(c, http.StatusInternalServerError, "Failed to retrieve payments", err.Error())
		return
	}

	responses.SendPaginated(c, http.StatusOK, "Payments retrieved successfully", payments, total, page, pageSize)
}

// GetPaymentByID godoc
// @Summary Get a ledger row
// @Tags Payments
// @Produce json
// @Param payment_id path int true "Payment ID"
// @Success 200 {object} responses.SuccessResponse{data=Payment}
// @Failure 404 {object} responses.ErrorResponse "Payment not found"
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /payments/{payment_id} [get]
// @Security BearerAuth
func (pc *PaymentController) GetPaymentByID(c *gin.Context) {
	paymentID, err := strconv.ParseUint(c.Param("payment_id"), 10, 32)
	if err != nil {
		responses.SendError(c, http.StatusBadRequest, "Invalid payment ID format", nil)
		return
	}

	payment, err := pc.repo.GetPaymentByID(uint(paymentID))
	if err != nil {
		responses.SendError(c, http.StatusInternalServerError, "Failed to retrieve payment", err.Error())
		return
	}
	if payment == nil {
		responses.SendError(c, http.StatusNotFound, "Payment not found", nil)
		return
	}

	responses.SendSuccess(c, http.StatusOK, "Payment retrieved successfully", payment)
}

// MarkPaid godoc
// @Summary Record a payment
// @Description Marks a ledger row as paid, stamping the payment date
// @Tags Payments
// @Produce json
// @Param payment_id path int true "Payment ID"
// @Success 200 {object} responses.SuccessResponse{data=Payment}
// @Failure 400 {object} responses.ErrorResponse "Invalid payment ID"
// @Failure 404 {object} responses.ErrorResponse "Payment not found"
// @Failure 409 {object} responses.ErrorResponse "Payment already marked as paid"
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /payments/{payment_id}/pay [post]
// @Security BearerAuth
func (pc *PaymentController) MarkPaid(c *gin.Context) {
	paymentID, err := strconv.ParseUint(c.Param("payment_id"), 10, 32)
	if err != nil {
		responses.SendError(c, http.StatusBadRequest, "Invalid payment ID format", nil)
		return
	}

	payment, err := pc.engine.MarkPaid(uint(paymentID))
	if err != nil {
		responses.SendDomainError(c, err)
		return
	}

	pc.audit.Record("paid", "payment", payment.ID,
		fmt.Sprintf("Payment of %.2f for student %d (%s) recorded", payment.Amount, payment.StudentID, payment.PaymentPeriod),
		middleware.ActorFromContext(c))
	responses.SendSuccess(c, http.StatusOK, "Payment recorded successfully", payment)
}

// MarkUnpaid godoc
// @Summary Revert a recorded payment
// @Description Explicit revert: clears is_paid and the payment date together and
// @Description puts the student's cached dues state back to pending
// @Tags Payments
// @Produce json
// @Param payment_id path int true "Payment ID"
// @Success 200 {object} responses.SuccessResponse{data=Payment}
// @Failure 400 {object} responses.ErrorResponse "Invalid payment ID"
// @Failure 404 {object} responses.ErrorResponse "Payment not found"
// @Failure 409 {object} responses.ErrorResponse "Payment is not marked as paid"
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /payments/{payment_id}/unpay [post]
// @Security BearerAuth
func (pc *PaymentController) MarkUnpaid(c *gin.Context) {
	paymentID, err := strconv.ParseUint(c.Param("payment_id"), 10, 32)
	if err != nil {
		responses.SendError(c, http.StatusBadRequest, "Invalid payment ID format", nil)
		return
	}

	payment, err := pc.engine.MarkUnpaid(uint(paymentID))
	if err != nil {
		responses.SendDomainError(c, err)
		return
	}

	pc.audit.Record("unpaid", "payment", payment.ID,
		fmt.Sprintf("Payment of %.2f for student %d (%s) reverted", payment.Amount, payment.StudentID, payment.PaymentPeriod),
		middleware.ActorFromContext(c))
	responses.SendSuccess(c, http.StatusOK, "Payment reverted successfully", payment)
}

// CorrectAmount godoc
// @Summary Correct an unpaid amount
// @Description Adjusts the amount of an unpaid ledger row (fee or discount change).
// @Description Paid rows must be reverted before correction.
// @Tags Payments
// @Accept json
// @Produce json
// @Param payment_id path int true "Payment ID"
// @Param request body CorrectAmountRequest true "New amount"
// @Success 200 {object} responses.SuccessResponse "Amount corrected"
// @Failure 400 {object} responses.ErrorResponse "Validation error"
// @Failure 404 {object} responses.ErrorResponse "Payment not found"
// @Failure 409 {object} responses.ErrorResponse "Payment already marked as paid"
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /payments/{payment_id} [patch]
// @Security BearerAuth
func (pc *PaymentController) CorrectAmount(c *gin.Context) {
	paymentID, err := strconv.ParseUint(c.Param("payment_id"), 10, 32)
	if err != nil {
		responses.SendError(c, http.StatusBadRequest, "Invalid payment ID format", nil)
		return
	}

	var req CorrectAmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errs := validator.ParseError(err)
		responses.SendError(c, http.StatusBadRequest, "Validation failed", errs)
		return
	}

	if err := pc.engine.CorrectAmount(uint(paymentID), req.Amount, req.Notes); err != nil {
		responses.SendDomainError(c, err)
		return
	}

	pc.audit.Record("updated", "payment", uint(paymentID),
		fmt.Sprintf("Amount corrected to %.2f", req.Amount),
		middleware.ActorFromContext(c))
	responses.SendSuccess(c, http.StatusOK, "Amount corrected successfully", nil)
}
