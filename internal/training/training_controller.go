package training

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kulupsoft/klub/internal/activity"
	"github.com/kulupsoft/klub/internal/branch"
	"github.com/kulupsoft/klub/internal/middleware"
	"github.com/kulupsoft/klub/pkg/responses"
	"github.com/kulupsoft/klub/pkg/validator"
)

// TrainingController handles the training calendar and attendance.
type TrainingController struct {
	repo       TrainingRepository
	branchRepo branch.BranchRepository
	audit      activity.Writer
}

// NewTrainingController creates a new TrainingController.
func NewTrainingController(repo TrainingRepository, branchRepo branch.BranchRepository, audit activity.Writer) *TrainingController {
	return &TrainingController{
		repo:       repo,
		branchRepo: branchRepo,
		audit:      audit,
	}
}

type CreateTrainingRequest struct {
	Sport     string `json:"sport" binding:"required,min=2,max=100"`
	Date      string `json:"date" binding:"required" example:"2025-03-15"`
	StartTime string `json:"start_time" binding:"omitempty,len=5" example:"18:00"`
	EndTime   string `json:"end_time" binding:"omitempty,len=5" example:"19:30"`
	Location  string `json:"location" binding:"omitempty,max=200"`
	Coach     string `json:"coach" binding:"omitempty,max=100"`
	Notes     string `json:"notes" binding:"omitempty,max=1000"`
}

type UpdateTrainingRequest struct {
	Date      string  `json:"date" binding:"omitempty" example:"2025-03-15"`
	StartTime string  `json:"start_time" binding:"omitempty,len=5" example:"18:00"`
	EndTime   string  `json:"end_time" binding:"omitempty,len=5" example:"19:30"`
	Location  *string `json:"location" binding:"omitempty,max=200"`
	Coach     *string `json:"coach" binding:"omitempty,max=100"`
	Notes     *string `json:"notes" binding:"omitempty,max=1000"`
}

type AttendanceRequest struct {
	Records []AttendanceRecord `json:"records" binding:"required,dive"`
}

type AttendanceRecord struct {
	StudentID uint `json:"student_id" binding:"required"`
	Present   bool `json:"present"`
}

// CreateTraining godoc
// @Summary Schedule a training
// @Tags Trainings
// @Accept json
// @Produce json
// @Param training body CreateTrainingRequest true "Training creation request"
// @Success 201 {object} responses.SuccessResponse{data=Training}
// @Failure 400 {object} responses.ErrorResponse "Validation error or unknown branch"
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /trainings [post]
// @Security BearerAuth
func (tc *TrainingController) CreateTraining(c *gin.Context) {
	var req CreateTrainingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errs := validator.ParseError(err)
		responses.SendError(c, http.StatusBadRequest, "Validation failed", errs)
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		responses.SendError(c, http.StatusBadRequest, "date must be YYYY-MM-DD", nil)
		return
	}

	if b, err := tc.branchRepo.FindBranchByName(req.Sport); err == nil && b == nil {
		responses.SendError(c, http.StatusBadRequest, "Unknown sport branch: "+req.Sport, nil)
		return
	}

	training := Training{
		Sport:     req.Sport,
		Date:      date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Location:  req.Location,
		Coach:     req.Coach,
		Notes:     req.Notes,
	}

	if err := tc.repo.CreateTraining(&training); err != nil {
		responses.SendError(c, http.StatusInternalServerError, "Failed to schedule training", err.Error())
		return
	}

	tc.audit.Record("created", "training", training.ID, "Training scheduled for "+req.Sport+" on "+req.Date, middleware.ActorFromContext(c))
	responses.SendSuccess(c, http.StatusCreated, "Training scheduled successfully", training)
}

// GetTrainings godoc
// @Summary List trainings
// @Description Get the training calendar, optionally windowed and filtered by branch
// @Tags Trainings
// @Produce json
// @Param from query string false "Window start (YYYY-MM-DD)"
// @Param to query string false "Window end (YYYY-MM-DD)"
// @Param sport query string false "Filter by branch name"
// @Success 200 {object} responses.SuccessResponse{data=[]Training}
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /trainings [get]
// @Security BearerAuth
func (tc *TrainingController) GetTrainings(c *gin.Context) {
	var from, to time.Time
	if q := c.Query("from"); q != "" {
		from, _ = time.Parse("2006-01-02", q)
	}
	if q := c.Query("to"); q != "" {
		to, _ = time.Parse("2006-01-02", q)
	}

	trainings, err := tc.repo.GetTrainings(from, to, c.Query("sport"))
	if err != nil {
		responses.SendError(c, http.StatusInternalServerError, "Failed to retrieve trainings", err.Error())
		return
	}

	responses.SendSuccess(c, http.StatusOK, "Trainings retrieved successfully", trainings)
}

// UpdateTraining godoc
// @Summary Reschedule a training
// @Description Update the date, time or details of a scheduled session
// @Tags Trainings
// @Accept json
// @Produce json
// @Param training_id path int true "Training ID"
// @Param training body UpdateTrainingRequest true "Training update request"
// @Success 200 {object} responses.SuccessResponse{data=Training}
// @Failure 400 {object} responses.ErrorResponse "Validation error"
// @Failure 404 {object} responses.ErrorResponse "Training not found"
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /trainings/{training_id} [put]
// @Security BearerAuth
func (tc *TrainingController) UpdateTraining(c *gin.Context) {
	trainingID, err := strconv.ParseUint(c.Param("training_id"), 10, 32)
	if err != nil {
		responses.SendError(c, http.StatusBadRequest, "Invalid training ID format", nil)
		return
	}

	var req UpdateTrainingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errs := validator.ParseError(err)
		responses.SendError(c, http.StatusBadRequest, "Validation failed", errs)
		return
	}

	training, err := tc.repo.GetTrainingByID(uint(trainingID))
	if err != nil || training == nil {
		responses.SendError(c, http.StatusNotFound, "Training not found", nil)
		return
	}

	if req.Date != "" {
		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			responses.SendError(c, http.StatusBadRequest, "date must be YYYY-MM-DD", nil)
			return
		}
		training.Date = date
	}
	if req.StartTime != "" {
		training.StartTime = req.StartTime
	}
	if req.EndTime != "" {
		training.EndTime = req.EndTime
	}
	if req.Location != nil {
		training.Location = *req.Location
	}
	if req.Coach != nil {
		training.Coach = *req.Coach
	}
	if req.Notes != nil {
		training.Notes = *req.Notes
	}

	if err := tc.repo.UpdateTraining(training); err != nil {
		responses.SendError(c, http.StatusInternalServerError, "Failed to update training", err.Error())
		return
	}

	tc.audit.Record("updated", "training", training.ID, "Training rescheduled", middleware.ActorFromContext(c))
	responses.SendSuccess(c, http.StatusOK, "Training updated successfully", training)
}

// DeleteTraining godoc
// @Summary Cancel a training
// @Description Removes the session and its attendance records
// @Tags Trainings
// @Produce json
// @Param training_id path int true "Training ID"
// @Success 200 {object} responses.SuccessResponse "Training cancelled"
// @Failure 400 {object} responses.ErrorResponse "Invalid training ID"
// @Failure 404 {object} responses.ErrorResponse "Training not found"
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /trainings/{training_id} [delete]
// @Security BearerAuth
func (tc *TrainingController) DeleteTraining(c *gin.Context) {
	trainingID, err := strconv.ParseUint(c.Param("training_id"), 10, 32)
	if err != nil {
		responses.SendError(c, http.StatusBadRequest, "Invalid training ID format", nil)
		return
	}

	training, err := tc.repo.GetTrainingByID(uint(trainingID))
	if err != nil || training == nil {
		responses.SendError(c, http.StatusNotFound, "Training not found", nil)
		return
	}

	if err := tc.repo.DeleteTraining(uint(trainingID)); err != nil {
		responses.SendError(c, http.StatusInternalServerError, "Failed to cancel training", err.Error())
		return
	}

	tc.audit.Record("deleted", "training", training.ID, "Training cancelled", middleware.ActorFromContext(c))
	responses.SendSuccess(c, http.StatusOK, "Training cancelled successfully", nil)
}

// TakeAttendance godoc
// @Summary Record attendance for a training
// @Description Bulk upsert: re-taking attendance overwrites previous flags
// @Tags Trainings
// @Accept json
// @Produce json
// @Param training_id path int true "Training ID"
// @Param request body AttendanceRequest true "Attendance records"
// @Success 200 {object} responses.SuccessResponse "Attendance recorded"
// @Failure 400 {object} responses.ErrorResponse "Validation error"
// @Failure 404 {object} responses.ErrorResponse "Training not found"
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /trainings/{training_id}/attendance [post]
// @Security BearerAuth
func (tc *TrainingController) TakeAttendance(c *gin.Context) {
	trainingID, err := strconv.ParseUint(c.Param("training_id"), 10, 32)
	if err != nil {
		responses.SendError(c, http.StatusBadRequest, "Invalid training ID format", nil)
		return
	}

	var req AttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errs := validator.ParseError(err)
		responses.SendError(c, http.StatusBadRequest, "Validation failed", errs)
		return
	}

	training, err := tc.repo.GetTrainingByID(uint(trainingID))
	if err != nil || training == nil {
		responses.SendError(c, http.StatusNotFound, "Training not found", nil)
		return
	}

	rows := make([]TrainingAttendance, 0, len(req.Records))
	for _, rec := range req.Records {
		rows = append(rows, TrainingAttendance{
			TrainingID: uint(trainingID),
			StudentID:  rec.StudentID,
			Present:    rec.Present,
		})
	}

	if err := tc.repo.UpsertAttendance(rows); err != nil {
		responses.SendError(c, http.StatusInternalServerError, "Failed to record attendance", err.Error())
		return
	}

	tc.audit.Record("updated", "training", training.ID, "Attendance recorded", middleware.ActorFromContext(c))
	responses.SendSuccess(c, http.StatusOK, "Attendance recorded successfully", nil)
}

// GetAttendance godoc
// @Summary Get attendance for a training
// @Tags Trainings
// @Produce json
// @Param training_id path int true "Training ID"
// @Success 200 {object} responses.SuccessResponse{data=[]TrainingAttendance}
// @Failure 404 {object} responses.ErrorResponse "Training not found"
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /trainings/{training_id}/attendance [get]
// @Security BearerAuth
func (tc *TrainingController) GetAttendance(c *gin.Context) {
	trainingID, err := strconv.ParseUint(c.Param("training_id"), 10, 32)
	if err != nil {
		responses.SendError(c, http.StatusBadRequest, "Invalid training ID format", nil)
		return
	}

	training, err := tc.repo.GetTrainingByID(uint(trainingID))
	if err != nil || training == nil {
		responses.SendError(c, http.StatusNotFound, "Training not found", nil)
		return
	}

	rows, err := tc.repo.GetAttendance(uint(trainingID))
	if err != nil {
		responses.SendError(c, http.StatusInternalServerError, "Failed to retrieve attendance", err.Error())
		return
	}

	responses.SendSuccess(c, http.StatusOK, "Attendance retrieved successfully", rows)
}

// GetStudentAttendance godoc
// @Summary Get a student's attendance history
// @Description Attendance records of one student across trainings, optionally windowed
// @Tags Trainings
// @Produce json
// @Param student_id query int true "Student ID"
// @Param from query string false "Window start (YYYY-MM-DD)"
// @Param to query string false "Window end (YYYY-MM-DD)"
// @Success 200 {object} responses.SuccessResponse{data=[]TrainingAttendance}
// @Failure 400 {object} responses.ErrorResponse "Missing or invalid student_id"
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /trainings/attendance [get]
// @Security BearerAuth
func (tc *TrainingController) GetStudentAttendance(c *gin.Context) {
	studentID, err := strconv.ParseUint(c.Query("student_id"), 10, 32)
	if err != nil || studentID == 0 {
		responses.SendError(c, http.StatusBadRequest, "student_id query parameter is required", nil)
		return
	}

	var from, to time.Time
	if q := c.Query("from"); q != "" {
		from, _ = time.Parse("2006-01-02", q)
	}
	if q := c.Query("to"); q != "" {
		to, _ = time.Parse("2006-01-02", q)
	}

	rows, err := tc.repo.GetStudentAttendance(uint(studentID), from, to)
	if err != nil {
		responses.SendError(c, http.StatusInternalServerError, "Failed to retrieve attendance", err.Error())
		return
	}

	responses.SendSuccess(c, http.StatusOK, "Attendance retrieved successfully", rows)
}
