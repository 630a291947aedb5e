package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/staff-evaluation/internal/application/service"
	"github.com/garyjia/staff-evaluation/internal/domain/entity"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// ValidateAssignment handles POST /api/v1/assignments/validate
func (h *Handlers) ValidateAssignment(c *gin.Context) {
	var req AssignmentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.services.Validator.Validate(c.Request.Context(), req.AreaID, req.StartAt.UTC(), req.EndAt.UTC())
	if err != nil {
		h.writeError(c, "validate_assignment", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// CreateAssignment handles POST /api/v1/assignments
func (h *Handlers) CreateAssignment(c *gin.Context) {
	var req AssignmentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.services.Assignments.Create(c.Request.Context(), service.CreateAssignmentRequest{
		AreaID:      req.AreaID,
		PeriodLabel: req.PeriodLabel,
		Start:       req.StartAt,
		End:         req.EndAt,
		Actor:       c.GetString(actorKey),
	})
	if err != nil {
		h.writeError(c, "create_assignment", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: result})
}

// GetAssignment handles GET /api/v1/assignments/:id
func (h *Handlers) GetAssignment(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	assignment, err := h.services.Assignments.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "get_assignment", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: assignment})
}

// UpdateAssignment handles PUT /api/v1/assignments/:id
func (h *Handlers) UpdateAssignment(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req AssignmentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.services.Assignments.Update(c.Request.Context(), service.UpdateAssignmentRequest{
		ID:          id,
		AreaID:      req.AreaID,
		PeriodLabel: req.PeriodLabel,
		Start:       req.StartAt,
		End:         req.EndAt,
		Actor:       c.GetString(actorKey),
	})
	if err != nil {
		h.writeError(c, "update_assignment", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// DeleteAssignment handles DELETE /api/v1/assignments/:id
func (h *Handlers) DeleteAssignment(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.services.Assignments.Delete(c.Request.Context(), id, c.GetString(actorKey)); err != nil {
		h.writeError(c, "delete_assignment", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"id": id, "deleted": true}})
}

// GetAssignmentStats handles GET /api/v1/assignments/:id/stats
func (h *Handlers) GetAssignmentStats(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	stats, err := h.services.Progress.Stats(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "assignment_stats", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: stats})
}

// GetTask handles GET /api/v1/tasks/:id
func (h *Handlers) GetTask(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	detail, err := h.services.Lifecycle.GetTask(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "get_task", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: detail})
}

// OpenTask handles POST /api/v1/tasks/:id/open
func (h *Handlers) OpenTask(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	detail, err := h.services.Lifecycle.Open(c.Request.Context(), id, c.GetString(actorKey))
	if err != nil {
		h.writeError(c, "open_task", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: detail})
}

// SubmitTask handles POST /api/v1/tasks/:id/submit
func (h *Handlers) SubmitTask(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req SubmitRequest
	if !h.bindJSON(c, &req) {
		return
	}

	marks := make([]service.MarkInput, len(req.Details))
	for i, d := range req.Details {
		marks[i] = service.MarkInput{SubCriterionID: d.SubCriterionID, Points: *d.Points}
	}

	detail, err := h.services.Lifecycle.Submit(c.Request.Context(), service.SubmitRequest{
		TaskID:   id,
		Actor:    c.GetString(actorKey),
		Details:  marks,
		Comment:  req.Comment,
		Finalize: req.Finalize,
	})
	if err != nil {
		h.writeError(c, "submit_task", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: detail})
}

// EscalateTask handles POST /api/v1/tasks/:id/escalate
func (h *Handlers) EscalateTask(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	incident, err := h.services.Escalation.ReportLowScore(c.Request.Context(), id, c.GetString(actorKey))
	if err != nil {
		h.writeError(c, "escalate_task", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: incident})
}

// ListTasksForPerson handles GET /api/v1/people/:id/tasks
func (h *Handlers) ListTasksForPerson(c *gin.Context) {
	var query ListTasksQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.badRequest(c, err)
		return
	}

	tasks, err := h.services.Lifecycle.ListTasksForPerson(c.Request.Context(),
		c.Param("id"), entity.TaskType(query.Type), query.As != "subject")
	if err != nil {
		h.writeError(c, "list_tasks", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: tasks})
}

// ListIncidents handles GET /api/v1/people/:id/incidents
func (h *Handlers) ListIncidents(c *gin.Context) {
	var query ListIncidentsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.badRequest(c, err)
		return
	}

	incidents, err := h.services.Escalation.ListIncidents(c.Request.Context(), c.Param("id"), query.Limit)
	if err != nil {
		h.writeError(c, "list_incidents", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: incidents})
}

// RunSweep handles POST /api/v1/admin/sweep
func (h *Handlers) RunSweep(c *gin.Context) {
	if h.services.Sweeper == nil {
		c.JSON(http.StatusServiceUnavailable, Response{Success: false, Error: "sweeper not configured"})
		return
	}

	result := h.services.Sweeper.RunOnce(c.Request.Context())
	h.logger.Info("Manual sweep finished",
		"actor", c.GetString(actorKey),
		"transitioned", result.Transitioned,
		"failed", result.Failed)

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

func (h *Handlers) parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid id",
		})
		return 0, false
	}
	return id, true
}

func (h *Handlers) bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.badRequest(c, err)
		return false
	}
	return true
}

func (h *Handlers) badRequest(c *gin.Context, err error) {
	h.logger.Info("Invalid request", "path", c.FullPath(), "error", err.Error())
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Error:   err.Error(),
	})
}
