package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/onboarding-booking-api/internal/models"
	"github.com/onboarding-booking-api/internal/service"
	"github.com/rs/zerolog"
)

// EntityHandler handles entities, their members and the caller's digest preferences
type EntityHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewEntityHandler creates a new EntityHandler
func NewEntityHandler(services *service.Services, log zerolog.Logger) *EntityHandler {
	return &EntityHandler{
		services: services,
		log:      log.With().Str("handler", "entity").Logger(),
	}
}

// List handles GET /v1/entities
func (h *EntityHandler) List(c *gin.Context) {
	entities, err := h.services.Entities.List(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entities": entities})
}

// Get handles GET /v1/entities/:id
func (h *EntityHandler) Get(c *gin.Context) {
	entity, err := h.services.Entities.Get(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, entity)
}

// Create handles POST /v1/entities
func (h *EntityHandler) Create(c *gin.Context) {
	var in models.EntityInput
	if !bindJSON(c, &in) {
		return
	}

	entity, err := h.services.Entities.Create(c.Request.Context(), currentUser(c), &in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, entity)
}

// Update handles PUT /v1/entities/:id
func (h *EntityHandler) Update(c *gin.Context) {
	var in models.EntityInput
	if !bindJSON(c, &in) {
		return
	}

	entity, err := h.services.Entities.Update(c.Request.Context(), currentUser(c), c.Param("id"), &in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, entity)
}

// Delete handles DELETE /v1/entities/:id
func (h *EntityHandler) Delete(c *gin.Context) {
	if err := h.services.Entities.Delete(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Members handles GET /v1/entities/:id/members
func (h *EntityHandler) Members(c *gin.Context) {
	members, err := h.services.Entities.Members(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

// SetMember handles PUT /v1/entities/:id/members/:user_id
func (h *EntityHandler) SetMember(c *gin.Context) {
	var in models.MembershipInput
	if !bindJSON(c, &in) {
		return
	}

	m, err := h.services.Entities.SetMember(c.Request.Context(), currentUser(c), c.Param("id"), c.Param("user_id"), in.CanEdit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// RemoveMember handles DELETE /v1/entities/:id/members/:user_id
func (h *EntityHandler) RemoveMember(c *gin.Context) {
	if err := h.services.Entities.RemoveMember(c.Request.Context(), currentUser(c), c.Param("id"), c.Param("user_id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListPreferences handles GET /v1/me/preferences
func (h *EntityHandler) ListPreferences(c *gin.Context) {
	prefs, err := h.services.Preferences.List(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"preferences": prefs})
}

// SetPreference handles PUT /v1/me/preferences/:entity_id
func (h *EntityHandler) SetPreference(c *gin.Context) {
	var in models.PreferenceInput
	if !bindJSON(c, &in) {
		return
	}

	pref, err := h.services.Preferences.Set(c.Request.Context(), currentUser(c), c.Param("entity_id"), &in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, pref)
}
