package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/onboarding-booking-api/internal/models"
	"github.com/onboarding-booking-api/internal/service"
	"github.com/onboarding-booking-api/internal/validation"
	"github.com/rs/zerolog"
)

// TaskHandler handles tasks, task templates and task assignments
type TaskHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(services *service.Services, log zerolog.Logger) *TaskHandler {
	return &TaskHandler{
		services: services,
		log:      log.With().Str("handler", "task").Logger(),
	}
}

// List handles GET /v1/tasks?starter_id=&status=&assignee_id=
func (h *TaskHandler) List(c *gin.Context) {
	var filter models.TaskFilter
	if !bindQuery(c, &filter) {
		return
	}

	tasks, err := h.services.Tasks.List(c.Request.Context(), currentUser(c), filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "count": len(tasks)})
}

// Get handles GET /v1/tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	task, err := h.services.Tasks.Get(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// Create handles POST /v1/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	var in models.TaskInput
	if !bindJSON(c, &in) {
		return
	}

	task, err := h.services.Tasks.Create(c.Request.Context(), currentUser(c), &in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// Update handles PUT /v1/tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	var in models.TaskInput
	if !bindJSON(c, &in) {
		return
	}

	task, err := h.services.Tasks.Update(c.Request.Context(), currentUser(c), c.Param("id"), &in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// Complete handles POST /v1/tasks/:id/complete
func (h *TaskHandler) Complete(c *gin.Context) {
	var in models.CompleteTaskInput
	if c.Request.ContentLength != 0 && !bindJSON(c, &in) {
		return
	}

	task, err := h.services.Tasks.Complete(c.Request.Context(), currentUser(c), c.Param("id"), in.Notes)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// Reopen handles POST /v1/tasks/:id/reopen
func (h *TaskHandler) Reopen(c *gin.Context) {
	task, err := h.services.Tasks.Reopen(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// ListTemplates handles GET /v1/task-templates
func (h *TaskHandler) ListTemplates(c *gin.Context) {
	templates, err := h.services.Templates.List(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task_templates": templates})
}

// CreateTemplate handles POST /v1/task-templates
func (h *TaskHandler) CreateTemplate(c *gin.Context) {
	var in models.TaskTemplateInput
	if !bindJSON(c, &in) {
		return
	}

	tpl, err := h.services.Templates.Create(c.Request.Context(), currentUser(c), &in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, tpl)
}

// UpdateTemplate handles PUT /v1/task-templates/:id
func (h *TaskHandler) UpdateTemplate(c *gin.Context) {
	var in models.TaskTemplateInput
	if !bindJSON(c, &in) {
		return
	}

	tpl, err := h.services.Templates.Update(c.Request.Context(), currentUser(c), c.Param("id"), &in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, tpl)
}

// DeleteTemplate handles DELETE /v1/task-templates/:id
func (h *TaskHandler) DeleteTemplate(c *gin.Context) {
	if err := h.services.Templates.Delete(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListAssignments handles GET /v1/task-assignments
func (h *TaskHandler) ListAssignments(c *gin.Context) {
	assignments, err := h.services.Assignments.List(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task_assignments": assignments})
}

// SetAssignment handles PUT /v1/task-assignments
func (h *TaskHandler) SetAssignment(c *gin.Context) {
	var in models.AssignmentInput
	if !bindJSON(c, &in) {
		return
	}

	a, err := h.services.Assignments.Set(c.Request.Context(), currentUser(c), &in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// DeleteAssignment handles DELETE /v1/task-assignments/:id
func (h *TaskHandler) DeleteAssignment(c *gin.Context) {
	if err := h.services.Assignments.Delete(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Responsible handles GET /v1/task-assignments/responsible?entity_id=&task_type=
func (h *TaskHandler) Responsible(c *gin.Context) {
	var q struct {
		EntityID string `schema:"entity_id"`
		TaskType string `schema:"task_type"`
	}
	if !bindQuery(c, &q) {
		return
	}
	if q.TaskType == "" {
		respondError(c, h.log, validation.Errors{{Field: "task_type", Message: "task_type is required"}})
		return
	}
	var entityID *string
	if q.EntityID != "" {
		entityID = &q.EntityID
	}

	resp, err := h.services.Assignments.Responsible(c.Request.Context(), currentUser(c), entityID, q.TaskType)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
