package branch

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kulupsoft/klub/internal/activity"
	"github.com/kulupsoft/klub/internal/middleware"
	"github.com/kulupsoft/klub/pkg/responses"
	"github.com/kulupsoft/klub/pkg/validator"
)

// BranchController handles API requests related to sport branches.
type BranchController struct {
	repo  BranchRepository
	audit activity.Writer
}

// NewBranchController creates a new BranchController.
func NewBranchController(repo BranchRepository, audit activity.Writer) *BranchController {
	return &BranchController{repo: repo, audit: audit}
}

type CreateBranchRequest struct {
	Name        string  `json:"name" binding:"required,min=2,max=100"`
	MonthlyFee  float64 `json:"monthly_fee" binding:"required,gte=0"`
	Description string  `json:"description" binding:"omitempty,max=1000"`
}

type UpdateBranchRequest struct {
	Name        string   `json:"name" binding:"omitempty,min=2,max=100"`
	MonthlyFee  *float64 `json:"monthly_fee" binding:"omitempty,gte=0"` // Pointer to distinguish not provided from zero
	Description *string  `json:"description" binding:"omitempty,max=1000"`
}

// CreateBranch godoc
// @Summary Create a sport branch
// @Description Admin can create a new sport branch with its monthly fee
// @Tags Branches
// @Accept json
// @Produce json
// @Param branch body CreateBranchRequest true "Branch creation request"
// @Success 201 {object} responses.SuccessResponse{data=SportBranch}
// @Failure 400 {object} responses.ErrorResponse "Validation error or bad request"
// @Failure 409 {object} responses.ErrorResponse "Branch with this name already exists"
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /branches [post]
// @Security BearerAuth
func (bc *BranchController) CreateBranch(c *gin.Context) {
	var req CreateBranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errs := validator.ParseError(err)
		responses.SendError(c, http.StatusBadRequest, "Validation failed", errs)
		return
	}

	existing, _ := bc.repo.FindBranchByName(req.Name)
	if existing != nil {
		responses.SendError(c, http.StatusConflict, "Branch with this name already exists", nil)
		return
	}

	branch := SportBranch{
		Name:        req.Name,
		MonthlyFee:  req.MonthlyFee,
		Description: req.Description,
	}

	if err := bc.repo.CreateBranch(&branch); err != nil {
		responses.SendError(c, http.StatusInternalServerError, "Failed to create branch", err.Error())
		return
	}

	bc.audit.Record("created", "branch", branch.ID, "Branch "+branch.Name+" created", middleware.ActorFromContext(c))
	responses.SendSuccess(c, http.StatusCreated, "Branch created successfully", branch)
}

// GetAllBranches godoc
// @Summary List sport branches
// @Description Get all sport branches with their monthly fees
// @Tags Branches
// @Produce json
// @Success 200 {object} responses.SuccessResponse{data=[]SportBranch}
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /branches [get]
// @Security BearerAuth
func (bc *BranchController) GetAllBranches(c *gin.Context) {
	branches, err := bc.repo.GetAllBranches()
	if err != nil {
		responses.SendError(c, http.StatusInternalServerError, "Failed to retrieve branches", err.Error())
		return
	}

	responses.SendSuccess(c, http.StatusOK, "Branches retrieved successfully", branches)
}

// GetBranchByID godoc
// @Summary Get a sport branch
// @Description Get details of a specific sport branch by its ID
// @Tags Branches
// @Produce json
// @Param branch_id path int true "Branch ID"
// @Success 200 {object} responses.SuccessResponse{data=SportBranch}
// @Failure 404 {object} responses.ErrorResponse "Branch not found"
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /branches/{branch_id} [get]
// @Security BearerAuth
func (bc *BranchController) GetBranchByID(c *gin.Context) {
	branchID, err := strconv.ParseUint(c.Param("branch_id"), 10, 32)
	if err != nil {
		responses.SendError(c, http.StatusBadRequest, "Invalid branch ID format", nil)
		return
	}

	branch, err := bc.repo.GetBranchByID(uint(branchID))
	if err != nil {
		responses.SendError(c, http.StatusInternalServerError, "Failed to retrieve branch", err.Error())
		return
	}
	if branch == nil {
		responses.SendError(c, http.StatusNotFound, "Branch not found", nil)
		return
	}

	responses.SendSuccess(c, http.StatusOK, "Branch retrieved successfully", branch)
}

// UpdateBranch godoc
// @Summary Update a sport branch
// @Description Admin can update a branch's name, fee or description. Fee changes
// @Description take effect on the next fee generation run; unpaid rows are recalculated then.
// @Tags Branches
// @Accept json
// @Produce json
// @Param branch_id path int true "Branch ID"
// @Param branch body UpdateBranchRequest true "Branch update request"
// @Success 200 {object} responses.SuccessResponse{data=SportBranch}
// @Failure 400 {object} responses.ErrorResponse "Validation error or bad request"
// @Failure 404 {object} responses.ErrorResponse "Branch not found"
// @Failure 409 {object} responses.ErrorResponse "Branch with this name already exists"
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /branches/{branch_id} [put]
// @Security BearerAuth
func (bc *BranchController) UpdateBranch(c *gin.Context) {
	branchID, err := strconv.ParseUint(c.Param("branch_id"), 10, 32)
	if err != nil {
		responses.SendError(c, http.StatusBadRequest, "Invalid branch ID format", nil)
		return
	}

	var req UpdateBranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errs := validator.ParseError(err)
		responses.SendError(c, http.StatusBadRequest, "Validation failed", errs)
		return
	}

	branch, err := bc.repo.GetBranchByID(uint(branchID))
	if err != nil || branch == nil {
		responses.SendError(c, http.StatusNotFound, "Branch not found", nil)
		return
	}

	if req.Name != "" && req.Name != branch.Name {
		existing, _ := bc.repo.FindBranchByName(req.Name)
		if existing != nil && existing.ID != branch.ID {
			responses.SendError(c, http.StatusConflict, "Another branch with this name already exists", nil)
			return
		}
		branch.Name = req.Name
	}
	if req.MonthlyFee != nil {
		branch.MonthlyFee = *req.MonthlyFee
	}
	if req.Description != nil {
		branch.Description = *req.Description
	}

	if err := bc.repo.UpdateBranch(branch); err != nil {
		responses.SendError(c, http.StatusInternalServerError, "Failed to update branch", err.Error())
		return
	}

	bc.audit.Record("updated", "branch", branch.ID, "Branch "+branch.Name+" updated", middleware.ActorFromContext(c))
	responses.SendSuccess(c, http.StatusOK, "Branch updated successfully", branch)
}

// DeleteBranch godoc
// @Summary Delete a sport branch
// @Description Admin can delete a branch; students keep their branch name string
// @Tags Branches
// @Produce json
// @Param branch_id path int true "Branch ID"
// @Success 200 {object} responses.SuccessResponse "Branch deleted successfully"
// @Failure 400 {object} responses.ErrorResponse "Invalid branch ID"
// @Failure 404 {object} responses.ErrorResponse "Branch not found"
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /branches/{branch_id} [delete]
// @Security BearerAuth
func (bc *BranchController) DeleteBranch(c *gin.Context) {
	branchID, err := strconv.ParseUint(c.Param("branch_id"), 10, 32)
	if err != nil {
		responses.SendError(c, http.StatusBadRequest, "Invalid branch ID format", nil)
		return
	}

	branch, err := bc.repo.GetBranchByID(uint(branchID))
	if err != nil || branch == nil {
		responses.SendError(c, http.StatusNotFound, "Branch not found to delete", nil)
		return
	}

	if err := bc.repo.DeleteBranch(uint(branchID)); err != nil {
		responses.SendError(c, http.StatusInternalServerError, "Failed to delete branch", err.Error())
		return
	}

	bc.audit.Record("deleted", "branch", branch.ID, "Branch "+branch.Name+" deleted", middleware.ActorFromContext(c))
	responses.SendSuccess(c, http.StatusOK, "Branch deleted successfully", nil)
}
