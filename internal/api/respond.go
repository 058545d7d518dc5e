package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/schema"
	"github.com/onboarding-booking-api/internal/service"
	"github.com/onboarding-booking-api/internal/validation"
	"github.com/rs/zerolog"
)

var decoder = newDecoder()

func newDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

// respondError maps service errors to HTTP responses. Unknown errors are logged and reported as 500.
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	var verrs validation.Errors
	var blocked *service.BlockedError

	switch {
	case errors.As(err, &verrs):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": verrs})
	case errors.As(err, &blocked):
		c.JSON(http.StatusConflict, gin.H{"error": blocked.Error(), "blocking": blocked.Blocking})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUnavailable), errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrCalendarSync):
		log.Warn().Err(err).Str("path", c.Request.URL.Path).Msg("Calendar sync failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": service.ErrCalendarSync.Error()})
	default:
		log.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// bindJSON decodes the request body into dst, answering 400 on failure
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	return true
}

// bindQuery decodes the query string into dst, answering 400 on failure
func bindQuery(c *gin.Context, dst interface{}) bool {
	if err := decoder.Decode(dst, c.Request.URL.Query()); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters"})
		return false
	}
	return true
}

// timeQuery parses an optional date or timestamp query parameter, in loc for plain dates
func timeQuery(c *gin.Context, name string, loc *time.Location) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	t, err := validation.ParseDate(raw, loc)
	if err != nil {
		return nil, validation.Errors{{Field: name, Message: name + " must be YYYY-MM-DD or RFC 3339", Value: raw}}
	}
	return &t, nil
}
