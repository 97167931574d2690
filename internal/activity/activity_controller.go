package activity

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kulupsoft/klub/pkg/responses"
)

// ActivityController exposes the read side of the audit trail.
type ActivityController struct {
	repo ActivityRepository
}

// NewActivityController creates a new ActivityController.
func NewActivityController(repo ActivityRepository) *ActivityController {
	return &ActivityController{repo: repo}
}

// GetLogs godoc
// @Summary List activity logs
// @Description Get the audit trail, newest first, optionally filtered by entity type
// @Tags Activity
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Number of items per page" default(20)
// @Param entity_type query string false "Filter by entity type (student, payment, equipment, ...)"
// @Success 200 {object} responses.PaginatedResponse{data=[]ActivityLog}
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /activity [get]
// @Security BearerAuth
func (ac *ActivityController) GetLogs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	entityType := c.Query("entity_type")

	logs, total, err := ac.repo.GetLogs(page, pageSize, entityType)
	if err != nil {
		responses.SendError(c, http.StatusInternalServerError, "Failed to retrieve activity logs", err.Error())
		return
	}

	responses.SendPaginated(c, http.StatusOK, "Activity logs retrieved successfully", logs, total, page, pageSize)
}
