package student

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kulupsoft/klub/internal/activity"
	"github.com/kulupsoft/klub/internal/branch"
	"github.com/kulupsoft/klub/internal/middleware"
	"github.com/kulupsoft/klub/pkg/identity"
	"github.com/kulupsoft/klub/pkg/responses"
	"github.com/kulupsoft/klub/pkg/validator"
)

// StudentController handles API requests related to club members.
type StudentController struct {
	repo       StudentRepository
	branchRepo branch.BranchRepository
	audit      activity.Writer
}

// NewStudentController creates a new StudentController.
func NewStudentController(repo StudentRepository, branchRepo branch.BranchRepository, audit activity.Writer) *StudentController {
	return &StudentController{
		repo:       repo,
		branchRepo: branchRepo,
		audit:      audit,
	}
}

type CreateStudentRequest struct {
	NationalID       string `json:"national_id" binding:"required,len=11"`
	Name             string `json:"name" binding:"required,min=2,max=100"`
	Surname          string `json:"surname" binding:"required,min=2,max=100"`
	ParentNationalID string `json:"parent_national_id" binding:"omitempty,len=11"`
	ParentName       string `json:"parent_name" binding:"omitempty,max=200"`
	Phone            string `json:"phone" binding:"omitempty,max=20"`
	Sport            string `json:"sport" binding:"required,min=2,max=100"`
	DiscountRate     int    `json:"discount_rate" binding:"omitempty,gte=0,lte=100"`
	Notes            string `json:"notes" binding:"omitempty,max=1000"`
}

type UpdateStudentRequest struct {
	Name             string  `json:"name" binding:"omitempty,min=2,max=100"`
	Surname          string  `json:"surname" binding:"omitempty,min=2,max=100"`
	ParentNationalID *string `json:"parent_national_id" binding:"omitempty"`
	ParentName       *string `json:"parent_name" binding:"omitempty,max=200"`
	Phone            *string `json:"phone" binding:"omitempty,max=20"`
	Sport            string  `json:"sport" binding:"omitempty,min=2,max=100"`
	DiscountRate     *int    `json:"discount_rate" binding:"omitempty,gte=0,lte=100"`
	Notes            *string `json:"notes" binding:"omitempty,max=1000"`
}

// CreateStudent godoc
// @Summary Register a student
// @Description Register a new club member. The national ID and the optional parent
// @Description national ID are checksum-validated before any write.
// @Tags Students
// @Accept json
// @Produce json
// @Param student body CreateStudentRequest true "Student registration request"
// @Success 201 {object} responses.SuccessResponse{data=Student}
// @Failure 400 {object} responses.ErrorResponse "Validation error or invalid national ID"
// @Failure 409 {object} responses.ErrorResponse "Student with this national ID already exists"
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /students [post]
// @Security BearerAuth
func (sc *StudentController) CreateStudent(c *gin.Context) {
	var req CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errs := validator.ParseError(err)
		responses.SendError(c, http.StatusBadRequest, "Validation failed", errs)
		return
	}

	if err := identity.Validate(req.NationalID); err != nil {
		responses.SendError(c, http.StatusBadRequest, "Invalid national ID: "+err.Error(), nil)
		return
	}
	if req.ParentNationalID != "" {
		if err := identity.Validate(req.ParentNationalID); err != nil {
			responses.SendError(c, http.StatusBadRequest, "Invalid parent national ID: "+err.Error(), nil)
			return
		}
	}

	existing, _ := sc.repo.FindStudentByNationalID(req.NationalID)
	if existing != nil {
		responses.SendError(c, http.StatusConflict, "Student with this national ID already exists", nil)
		return
	}

	// The branch is matched by name at billing time; warn early when it
	// doesn't exist so typos don't silently bill the default fee.
	if b, err := sc.branchRepo.FindBranchByName(req.Sport); err == nil && b == nil {
		responses.SendError(c, http.StatusBadRequest, "Unknown sport branch: "+req.Sport, nil)
		return
	}

	student := Student{
		NationalID:       req.NationalID,
		Name:             req.Name,
		Surname:          req.Surname,
		ParentNationalID: req.ParentNationalID,
		ParentName:       req.ParentName,
		Phone:            req.Phone,
		Sport:            req.Sport,
		DiscountRate:     req.DiscountRate,
		Status:           StatusActive,
		PaymentStatus:    PaymentStatusPending,
		Notes:            req.Notes,
	}

	if err := sc.repo.CreateStudent(&student); err != nil {
		responses.SendError(c, http.StatusInternalServerError, "Failed to register student", err.Error())
		return
	}

	sc.audit.Record("created", "student", student.ID, "Student "+student.Name+" "+student.Surname+" registered", middleware.ActorFromContext(c))
	responses.SendSuccess(c, http.StatusCreated, "Student registered successfully", student)
}

// GetAllStudents godoc
// @Summary List students
// @Description Get students with optional name/national ID search and status filter
// @Tags Students
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Number of items per page" default(10)
// @Param search query string false "Search term for name, surname or national ID"
// @Param status query string false "Filter by status (active, inactive)"
// @Success 200 {object} responses.PaginatedResponse{data=[]Student}
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /students [get]
// @Security BearerAuth
func (sc *StudentController) GetAllStudents(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "10"))
	searchTerm := c.Query("search")
	status := c.Query("status")

	students, total, err := sc.repo.GetAllStudents(page, pageSize, searchTerm, status)
	if err != nil {
		responses.SendError(c, http.StatusInternalServerError, "Failed to retrieve students", err.Error())
		return
	}

	responses.SendPaginated(c, http.StatusOK, "Students retrieved successfully", students, total, page, pageSize)
}

// GetStudentByID godoc
// @Summary Get a student
// @Description Get details of a specific student by ID
// @Tags Students
// @Produce json
// @Param student_id path int true "Student ID"
// @Success 200 {object} responses.SuccessResponse{data=Student}
// @Failure 404 {object} responses.ErrorResponse "Student not found"
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /students/{student_id} [get]
// @Security BearerAuth
func (sc *StudentController) GetStudentByID(c *gin.Context) {
	studentID, err := strconv.ParseUint(c.Param("student_id"), 10, 32)
	if err != nil {
		responses.SendError(c, http.StatusBadRequest, "Invalid student ID format", nil)
		return
	}

	student, err := sc.repo.GetStudentByID(uint(studentID))
	if err != nil {
		responses.SendError(c, http.StatusInternalServerError, "Failed to retrieve student", err.Error())
		return
	}
	if student == nil {
		responses.SendError(c, http.StatusNotFound, "Student not found", nil)
		return
	}

	responses.SendSuccess(c, http.StatusOK, "Student retrieved successfully", student)
}

// UpdateStudent godoc
// @Summary Update a student
// @Description Update a student's details. Discount or branch changes take effect
// @Description on the next fee generation run for unpaid rows.
// @Tags Students
// @Accept json
// @Produce json
// @Param student_id path int true "Student ID"
// @Param student body UpdateStudentRequest true "Student update request"
// @Success 200 {object} responses.SuccessResponse{data=Student}
// @Failure 400 {object} responses.ErrorResponse "Validation error or bad request"
// @Failure 404 {object} responses.ErrorResponse "Student not found"
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /students/{student_id} [put]
// @Security BearerAuth
func (sc *StudentController) UpdateStudent(c *gin.Context) {
	studentID, err := strconv.ParseUint(c.Param("student_id"), 10, 32)
	if err != nil {
		responses.SendError(c, http.StatusBadRequest, "Invalid student ID format", nil)
		return
	}

	var req UpdateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errs := validator.ParseError(err)
		responses.SendError(c, http.StatusBadRequest, "Validation failed", errs)
		return
	}

	student, err := sc.repo.GetStudentByID(uint(studentID))
	if err != nil || student == nil {
		responses.SendError(c, http.StatusNotFound, "Student not found", nil)
		return
	}

	if req.Name != "" {
		student.Name = req.Name
	}
	if req.Surname != "" {
		student.Surname = req.Surname
	}
	if req.ParentNationalID != nil {
		if *req.ParentNationalID != "" {
			if err := identity.Validate(*req.ParentNationalID); err != nil {
				responses.SendError(c, http.StatusBadRequest, "Invalid parent national ID: "+err.Error(), nil)
				return
			}
		}
		student.ParentNationalID = *req.ParentNationalID
	}
	if req.ParentName != nil {
		student.ParentName = *req.ParentName
	}
	if req.Phone != nil {
		student.Phone = *req.Phone
	}
	if req.Sport != "" {
		if b, err := sc.branchRepo.FindBranchByName(req.Sport); err == nil && b == nil {
			responses.SendError(c, http.StatusBadRequest, "Unknown sport branch: "+req.Sport, nil)
			return
		}
		student.Sport = req.Sport
	}
	if req.DiscountRate != nil {
		student.DiscountRate = *req.DiscountRate
	}
	if req.Notes != nil {
		student.Notes = *req.Notes
	}

	if err := sc.repo.UpdateStudent(student); err != nil {
		responses.SendError(c, http.StatusInternalServerError, "Failed to update student", err.Error())
		return
	}

	sc.audit.Record("updated", "student", student.ID, "Student "+student.Name+" "+student.Surname+" updated", middleware.ActorFromContext(c))
	responses.SendSuccess(c, http.StatusOK, "Student updated successfully", student)
}

// DeactivateStudent godoc
// @Summary Cancel a membership
// @Description Soft-delete: flips the student to inactive and stamps the time.
// @Description Inactive students are excluded from fee generation.
// @Tags Students
// @Produce json
// @Param student_id path int true "Student ID"
// @Success 200 {object} responses.SuccessResponse "Membership cancelled"
// @Failure 400 {object} responses.ErrorResponse "Invalid student ID"
// @Failure 404 {object} responses.ErrorResponse "Student not found"
// @Failure 409 {object} responses.ErrorResponse "Student already inactive"
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /students/{student_id}/deactivate [post]
// @Security BearerAuth
func (sc *StudentController) DeactivateStudent(c *gin.Context) {
	studentID, err := strconv.ParseUint(c.Param("student_id"), 10, 32)
	if err != nil {
		responses.SendError(c, http.StatusBadRequest, "Invalid student ID format", nil)
		return
	}

	student, err := sc.repo.GetStudentByID(uint(studentID))
	if err != nil || student == nil {
		responses.SendError(c, http.StatusNotFound, "Student not found", nil)
		return
	}
	if !student.IsActive() {
		responses.SendError(c, http.StatusConflict, "Student is already inactive", nil)
		return
	}

	now := time.Now()
	if err := sc.repo.SetStatus(student.ID, StatusInactive, &now); err != nil {
		responses.SendError(c, http.StatusInternalServerError, "Failed to cancel membership", err.Error())
		return
	}

	sc.audit.Record("deleted", "student", student.ID, "Membership of "+student.Name+" "+student.Surname+" cancelled", middleware.ActorFromContext(c))
	responses.SendSuccess(c, http.StatusOK, "Membership cancelled successfully", nil)
}

// ReactivateStudent godoc
// @Summary Reactivate a membership
// @Description Clears the inactive flag and the deactivation timestamp
// @Tags Students
// @Produce json
// @Param student_id path int true "Student ID"
// @Success 200 {object} responses.SuccessResponse "Membership reactivated"
// @Failure 400 {object} responses.ErrorResponse "Invalid student ID"
// @Failure 404 {object} responses.ErrorResponse "Student not found"
// @Failure 409 {object} responses.ErrorResponse "Student already active"
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /students/{student_id}/reactivate [post]
// @Security BearerAuth
func (sc *StudentController) ReactivateStudent(c *gin.Context) {
	studentID, err := strconv.ParseUint(c.Param("student_id"), 10, 32)
	if err != nil {
		responses.SendError(c, http.StatusBadRequest, "Invalid student ID format", nil)
		return
	}

	student, err := sc.repo.GetStudentByID(uint(studentID))
	if err != nil || student == nil {
		responses.SendError(c, http.StatusNotFound, "Student not found", nil)
		return
	}
	if student.IsActive() {
		responses.SendError(c, http.StatusConflict, "Student is already active", nil)
		return
	}

	if err := sc.repo.SetStatus(student.ID, StatusActive, nil); err != nil {
		responses.SendError(c, http.StatusInternalServerError, "Failed to reactivate membership", err.Error())
		return
	}

	sc.audit.Record("updated", "student", student.ID, "Membership of "+student.Name+" "+student.Surname+" reactivated", middleware.ActorFromContext(c))
	responses.SendSuccess(c, http.StatusOK, "Membership reactivated successfully", nil)
}
