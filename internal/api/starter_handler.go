package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/onboarding-booking-api/internal/models"
	"github.com/onboarding-booking-api/internal/service"
	"github.com/rs/zerolog"
)

// StarterHandler handles starter endpoints
type StarterHandler struct {
	services *service.Services
	loc      *time.Location
	log      zerolog.Logger
}

// NewStarterHandler creates a new StarterHandler; plain dates in queries are read in loc
func NewStarterHandler(services *service.Services, loc *time.Location, log zerolog.Logger) *StarterHandler {
	return &StarterHandler{
		services: services,
		loc:      loc,
		log:      log.With().Str("handler", "starter").Logger(),
	}
}

// List handles GET /v1/starters?entity_id=&from=&to=&include_cancelled=
func (h *StarterHandler) List(c *gin.Context) {
	var filter models.StarterFilter
	if !bindQuery(c, &filter) {
		return
	}
	var err error
	if filter.From, err = timeQuery(c, "from", h.loc); err != nil {
		respondError(c, h.log, err)
		return
	}
	if filter.To, err = timeQuery(c, "to", h.loc); err != nil {
		respondError(c, h.log, err)
		return
	}

	starters, err := h.services.Starters.List(c.Request.Context(), currentUser(c), filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"starters": starters, "count": len(starters)})
}

// Get handles GET /v1/starters/:id
func (h *StarterHandler) Get(c *gin.Context) {
	starter, err := h.services.Starters.Get(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, starter)
}

// Create handles POST /v1/starters
// Responds with the starter and the tasks generated from templates
func (h *StarterHandler) Create(c *gin.Context) {
	var in models.StarterInput
	if !bindJSON(c, &in) {
		return
	}

	starter, tasks, err := h.services.Starters.Create(c.Request.Context(), currentUser(c), &in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info().
		Str("starter_id", starter.ID).
		Int("tasks", len(tasks)).
		Msg("Starter created")

	c.JSON(http.StatusCreated, gin.H{"starter": starter, "tasks": tasks})
}

// Update handles PUT /v1/starters/:id
func (h *StarterHandler) Update(c *gin.Context) {
	var in models.StarterInput
	if !bindJSON(c, &in) {
		return
	}

	starter, err := h.services.Starters.Update(c.Request.Context(), currentUser(c), c.Param("id"), &in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, starter)
}

// Cancel handles POST /v1/starters/:id/cancel
func (h *StarterHandler) Cancel(c *gin.Context) {
	var in models.CancelStarterInput
	// the reason is optional, so an empty body is fine
	if c.Request.ContentLength != 0 && !bindJSON(c, &in) {
		return
	}

	starter, err := h.services.Starters.Cancel(c.Request.Context(), currentUser(c), c.Param("id"), in.Reason)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, starter)
}

// Delete handles DELETE /v1/starters/:id
func (h *StarterHandler) Delete(c *gin.Context) {
	if err := h.services.Starters.Delete(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
