package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/onboarding-booking-api/internal/models"
	"github.com/onboarding-booking-api/internal/service"
	"github.com/onboarding-booking-api/internal/validation"
	"github.com/rs/zerolog"
)

// AdminHandler handles digests, system settings and the audit log
type AdminHandler struct {
	services *service.Services
	loc      *time.Location
	log      zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler; digest dates are read in loc
func NewAdminHandler(services *service.Services, loc *time.Location, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		services: services,
		loc:      loc,
		log:      log.With().Str("handler", "admin").Logger(),
	}
}

// digestParams reads the digest type path parameter and the optional ?date= run day
func (h *AdminHandler) digestParams(c *gin.Context) (models.DigestType, time.Time, error) {
	dt := models.DigestType(c.Param("type"))
	if !models.ValidDigestTypes[dt] {
		return "", time.Time{}, validation.Errors{{
			Field: "type", Message: "type must be one of: weekly, monthly, quarterly, yearly", Value: c.Param("type"),
		}}
	}
	day, err := timeQuery(c, "date", h.loc)
	if err != nil {
		return "", time.Time{}, err
	}
	if day == nil {
		now := time.Now().In(h.loc)
		day = &now
	}
	return dt, *day, nil
}

// PreviewDigest handles GET /v1/digests/:type/preview?date=YYYY-MM-DD
func (h *AdminHandler) PreviewDigest(c *gin.Context) {
	dt, day, err := h.digestParams(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	plan, err := h.services.Digests.Preview(c.Request.Context(), dt, day)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// SendDigest handles POST /v1/jobs/digests/:type
// Called by the scheduler; per-recipient failures are reported in the summary
func (h *AdminHandler) SendDigest(c *gin.Context) {
	dt, day, err := h.digestParams(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	result, err := h.services.Digests.Send(c.Request.Context(), dt, day)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Settings handles GET /v1/settings
func (h *AdminHandler) Settings(c *gin.Context) {
	snap, err := h.services.Settings.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// SetSetting handles PUT /v1/settings/:key
func (h *AdminHandler) SetSetting(c *gin.Context) {
	var in models.SettingInput
	if !bindJSON(c, &in) {
		return
	}

	setting, err := h.services.Settings.Set(c.Request.Context(), currentUser(c), c.Param("key"), in.Value)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, setting)
}

// Audit handles GET /v1/audit?target_type=&target_id=&limit=
func (h *AdminHandler) Audit(c *gin.Context) {
	var filter models.AuditFilter
	if !bindQuery(c, &filter) {
		return
	}

	entries, err := h.services.Audit.List(c.Request.Context(), currentUser(c), filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}
