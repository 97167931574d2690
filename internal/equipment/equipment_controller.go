package equipment

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kulupsoft/klub/internal/activity"
	"github.com/kulupsoft/klub/internal/middleware"
	"github.com/kulupsoft/klub/internal/payment"
	"github.com/kulupsoft/klub/internal/student"
	"github.com/kulupsoft/klub/pkg/responses"
	"github.com/kulupsoft/klub/pkg/validator"
)

// EquipmentController handles stock variants and assignments.
type EquipmentController struct {
	repo        EquipmentRepository
	studentRepo student.StudentRepository
	fees        *payment.FeeEngine // one-off charges for assigned equipment
	audit       activity.Writer
}

// NewEquipmentController creates a new EquipmentController.
func NewEquipmentController(repo EquipmentRepository, studentRepo student.StudentRepository, fees *payment.FeeEngine, audit activity.Writer) *EquipmentController {
	return &EquipmentController{
		repo:        repo,
		studentRepo: studentRepo,
		fees:        fees,
		audit:       audit,
	}
}

type CreateVariantRequest struct {
	Name      string  `json:"name" binding:"required,min=2,max=100"`
	Size      string  `json:"size" binding:"required,min=1,max=20"`
	Quantity  int     `json:"quantity" binding:"required,gte=0"`
	UnitPrice float64 `json:"unit_price" binding:"omitempty,gte=0"`
}

type AddStockRequest struct {
	Size  string `json:"size" binding:"required,min=1,max=20"`
	Delta int    `json:"delta" binding:"required"`
}

type AssignRequest struct {
	StudentID       uint   `json:"student_id" binding:"required"`
	EquipmentTypeID uint   `json:"equipment_type_id" binding:"required"`
	Size            string `json:"size" binding:"required,min=1,max=20"`
	Quantity        int    `json:"quantity" binding:"required"`
	// ChargeAmount, when positive, bills the assignment as a one-off
	// ledger row for the student.
	ChargeAmount float64 `json:"charge_amount" binding:"omitempty,gte=0"`
	Notes        string  `json:"notes" binding:"omitempty,max=500"`
}

// CreateVariant godoc
// @Summary Create an equipment variant
// @Description Admin registers a new (name, size) stock variant with its initial quantity
// @Tags Equipment
// @Accept json
// @Produce json
// @Param variant body CreateVariantRequest true "Variant creation request"
// @Success 201 {object} responses.SuccessResponse{data=EquipmentType}
// @Failure 400 {object} responses.ErrorResponse "Validation error"
// @Failure 409 {object} responses.ErrorResponse "Variant already exists"
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /equipment [post]
// @Security BearerAuth
func (ec *EquipmentController) CreateVariant(c *gin.Context) {
	var req CreateVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errs := validator.ParseError(err)
		responses.SendError(c, http.StatusBadRequest, "Validation failed", errs)
		return
	}

	if existing, err := ec.repo.FindVariant(req.Name, req.Size); err == nil && existing != nil {
		responses.SendError(c, http.StatusConflict, "Variant with this name and size already exists", nil)
		return
	}

	variant := EquipmentType{
		Name:              req.Name,
		Size:              req.Size,
		Quantity:          req.Quantity,
		AvailableQuantity: req.Quantity, // nothing assigned yet
		UnitPrice:         req.UnitPrice,
	}

	if err := ec.repo.CreateVariant(&variant); err != nil {
		responses.SendDomainError(c, err)
		return
	}

	ec.audit.Record("created", "equipment", variant.ID,
		fmt.Sprintf("Variant %s/%s created with quantity %d", variant.Name, variant.Size, variant.Quantity),
		middleware.ActorFromContext(c))
	responses.SendSuccess(c, http.StatusCreated, "Variant created successfully", variant)
}

// GetAllVariants godoc
// @Summary List equipment variants
// @Tags Equipment
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Number of items per page" default(20)
// @Param search query string false "Search term for equipment name"
// @Success 200 {object} responses.PaginatedResponse{data=[]EquipmentType}
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /equipment [get]
// @Security BearerAuth
func (ec *EquipmentController) GetAllVariants(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	searchTerm := c.Query("search")

	variants, total, err := ec.repo.GetAllVariants(page, pageSize, searchTerm)
	if err != nil {
		responses.SendError(c, http.StatusInternalServerError, "Failed to retrieve variants", err.Error())
		return
	}

	responses.SendPaginated(c, http.StatusOK, "Variants retrieved successfully", variants, total, page, pageSize)
}

// GetAvailableQuantity godoc
// @Summary Get available stock for a variant
// @Tags Equipment
// @Produce json
// @Param equipment_id path int true "Equipment type ID"
// @Param size query string true "Size"
// @Success 200 {object} responses.SuccessResponse{data=int}
// @Failure 404 {object} responses.ErrorResponse "Variant not found"
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /equipment/{equipment_id}/available [get]
// @Security BearerAuth
func (ec *EquipmentController) GetAvailableQuantity(c *gin.Context) {
	equipmentID, err := strconv.ParseUint(c.Param("equipment_id"), 10, 32)
	if err != nil {
		responses.SendError(c, http.StatusBadRequest, "Invalid equipment ID format", nil)
		return
	}
	size := c.Query("size")
	if size == "" {
		responses.SendError(c, http.StatusBadRequest, "size query parameter is required", nil)
		return
	}

	available, err := ec.repo.GetAvailableQuantity(uint(equipmentID), size)
	if err != nil {
		responses.SendDomainError(c, err)
		return
	}

	responses.SendSuccess(c, http.StatusOK, "Available quantity retrieved successfully", available)
}

// AddStock godoc
// @Summary Add stock to a variant
// @Description Books newly arrived units: total and available grow together
// @Tags Equipment
// @Accept json
// @Produce json
// @Param equipment_id path int true "Equipment type ID"
// @Param request body AddStockRequest true "Stock delta (must be positive)"
// @Success 200 {object} responses.SuccessResponse{data=EquipmentType}
// @Failure 400 {object} responses.ErrorResponse "Invalid quantity"
// @Failure 404 {object} responses.ErrorResponse "Variant not found"
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /equipment/{equipment_id}/stock [post]
// @Security BearerAuth
func (ec *EquipmentController) AddStock(c *gin.Context) {
	equipmentID, err := strconv.ParseUint(c.Param("equipment_id"), 10, 32)
	if err != nil {
		responses.SendError(c, http.StatusBadRequest, "Invalid equipment ID format", nil)
		return
	}

	var req AddStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errs := validator.ParseError(err)
		responses.SendError(c, http.StatusBadRequest, "Validation failed", errs)
		return
	}

	variant, err := ec.repo.AddStock(uint(equipmentID), req.Size, req.Delta)
	if err != nil {
		responses.SendDomainError(c, err)
		return
	}

	ec.audit.Record("updated", "equipment", variant.ID,
		fmt.Sprintf("Stock of %s/%s increased by %d (total %d)", variant.Name, variant.Size, req.Delta, variant.Quantity),
		middleware.ActorFromContext(c))
	responses.SendSuccess(c, http.StatusOK, "Stock added successfully", variant)
}

// AssignEquipment godoc
// @Summary Assign equipment to a student
// @Description Creates an assignment and decrements availability atomically.
// @Description Over-allocation is rejected; an optional charge amount creates a
// @Description one-off ledger row for the student.
// @Tags Equipment
// @Accept json
// @Produce json
// @Param request body AssignRequest true "Assignment request"
// @Success 201 {object} responses.SuccessResponse{data=EquipmentAssignment}
// @Failure 400 {object} responses.ErrorResponse "Invalid quantity or validation error"
// @Failure 404 {object} responses.ErrorResponse "Student or variant not found"
// @Failure 409 {object} responses.ErrorResponse "Insufficient stock"
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /equipment/assignments [post]
// @Security BearerAuth
func (ec *EquipmentController) AssignEquipment(c *gin.Context) {
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errs := validator.ParseError(err)
		responses.SendError(c, http.StatusBadRequest, "Validation failed", errs)
		return
	}

	stu, err := ec.studentRepo.GetStudentByID(req.StudentID)
	if err != nil || stu == nil {
		responses.SendError(c, http.StatusNotFound, "Student not found", nil)
		return
	}

	assignment, err := ec.repo.Assign(req.StudentID, req.EquipmentTypeID, req.Size, req.Quantity, req.Notes)
	if err != nil {
		responses.SendDomainError(c, err)
		return
	}

	ec.audit.Record("assigned", "equipment", assignment.ID,
		fmt.Sprintf("%d unit(s) of type %d size %s assigned to %s %s", assignment.Quantity, assignment.EquipmentTypeID, assignment.Size, stu.Name, stu.Surname),
		middleware.ActorFromContext(c))

	if req.ChargeAmount > 0 {
		notes := fmt.Sprintf("Equipment charge for assignment #%d", assignment.ID)
		charge, err := ec.fees.CreateEquipmentCharge(assignment.ID, stu.ID, req.ChargeAmount, notes, time.Now())
		if err != nil {
			// The assignment stands; the charge failure is surfaced so the
			// clerk can retry the billing step.
			responses.SendError(c, http.StatusInternalServerError,
				fmt.Sprintf("Equipment assigned (assignment #%d) but billing failed: %v", assignment.ID, err), nil)
			return
		}
		ec.audit.Record("created", "payment", charge.ID,
			fmt.Sprintf("Equipment charge of %.2f for assignment #%d", charge.Amount, assignment.ID),
			middleware.ActorFromContext(c))
	}

	responses.SendSuccess(c, http.StatusCreated, "Equipment assigned successfully", assignment)
}

// ReturnEquipment godoc
// @Summary Return assigned equipment
// @Description Flips the assignment to returned and restores availability atomically
// @Tags Equipment
// @Produce json
// @Param assignment_id path int true "Assignment ID"
// @Success 200 {object} responses.SuccessResponse{data=EquipmentAssignment}
// @Failure 400 {object} responses.ErrorResponse "Invalid assignment ID"
// @Failure 404 {object} responses.ErrorResponse "Assignment not found"
// @Failure 409 {object} responses.ErrorResponse "Assignment already returned or closed"
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /equipment/assignments/{assignment_id}/return [post]
// @Security BearerAuth
func (ec *EquipmentController) ReturnEquipment(c *gin.Context) {
	assignmentID, err := strconv.ParseUint(c.Param("assignment_id"), 10, 32)
	if err != nil {
		responses.SendError(c, http.StatusBadRequest, "Invalid assignment ID format", nil)
		return
	}

	assignment, err := ec.repo.Return(uint(assignmentID))
	if err != nil {
		responses.SendDomainError(c, err)
		return
	}

	ec.audit.Record("returned", "equipment", assignment.ID,
		fmt.Sprintf("%d unit(s) of type %d size %s returned by student %d", assignment.Quantity, assignment.EquipmentTypeID, assignment.Size, assignment.StudentID),
		middleware.ActorFromContext(c))
	responses.SendSuccess(c, http.StatusOK, "Equipment returned successfully", assignment)
}

// CloseAssignment godoc
// @Summary Close an assignment as lost or damaged
// @Description Terminal states: availability is not restored and the variant's
// @Description total shrinks by the assigned quantity
// @Tags Equipment
// @Produce json
// @Param assignment_id path int true "Assignment ID"
// @Param outcome query string true "Outcome (lost or damaged)"
// @Success 200 {object} responses.SuccessResponse{data=EquipmentAssignment}
// @Failure 400 {object} responses.ErrorResponse "Invalid assignment ID or outcome"
// @Failure 404 {object} responses.ErrorResponse "Assignment not found"
// @Failure 409 {object} responses.ErrorResponse "Assignment already returned or closed"
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /equipment/assignments/{assignment_id}/close [post]
// @Security BearerAuth
func (ec *EquipmentController) CloseAssignment(c *gin.Context) {
	assignmentID, err := strconv.ParseUint(c.Param("assignment_id"), 10, 32)
	if err != nil {
		responses.SendError(c, http.StatusBadRequest, "Invalid assignment ID format", nil)
		return
	}

	outcome := c.Query("outcome")
	var assignment *EquipmentAssignment
	switch outcome {
	case StatusLost:
		assignment, err = ec.repo.CloseAsLost(uint(assignmentID))
	case StatusDamaged:
		assignment, err = ec.repo.CloseAsDamaged(uint(assignmentID))
	default:
		responses.SendError(c, http.StatusBadRequest, "outcome must be 'lost' or 'damaged'", nil)
		return
	}
	if err != nil {
		responses.SendDomainError(c, err)
		return
	}

	ec.audit.Record(outcome, "equipment", assignment.ID,
		fmt.Sprintf("Assignment #%d closed as %s", assignment.ID, outcome),
		middleware.ActorFromContext(c))
	responses.SendSuccess(c, http.StatusOK, "Assignment closed as "+outcome, assignment)
}

// GetAssignments godoc
// @Summary List equipment assignments
// @Tags Equipment
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Number of items per page" default(20)
// @Param student_id query int false "Filter by student"
// @Param status query string false "Filter by status (assigned, returned, lost, damaged)"
// @Success 200 {object} responses.PaginatedResponse{data=[]EquipmentAssignment}
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /equipment/assignments [get]
// @Security BearerAuth
func (ec *EquipmentController) GetAssignments(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	studentID, _ := strconv.ParseUint(c.Query("student_id"), 10, 32)
	status := c.Query("status")

	assignments, total, err := ec.repo.GetAssignments(page, pageSize, uint(studentID), status)
	if err != nil {
		responses.SendError(c, http.StatusInternalServerError, "Failed to retrieve assignments", err.Error())
		return
	}

	responses.SendPaginated(c, http.StatusOK, "Assignments retrieved successfully", assignments, total, page, pageSize)
}
