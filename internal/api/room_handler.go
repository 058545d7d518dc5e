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

// RoomHandler handles rooms and bookings
type RoomHandler struct {
	services *service.Services
	loc      *time.Location
	log      zerolog.Logger
}

// NewRoomHandler creates a new RoomHandler; plain dates in queries are read in loc
func NewRoomHandler(services *service.Services, loc *time.Location, log zerolog.Logger) *RoomHandler {
	return &RoomHandler{
		services: services,
		loc:      loc,
		log:      log.With().Str("handler", "room").Logger(),
	}
}

// List handles GET /v1/rooms
func (h *RoomHandler) List(c *gin.Context) {
	rooms, err := h.services.Rooms.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// Create handles POST /v1/rooms
func (h *RoomHandler) Create(c *gin.Context) {
	var in models.RoomInput
	if !bindJSON(c, &in) {
		return
	}

	room, err := h.services.Rooms.Create(c.Request.Context(), currentUser(c), &in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

// Update handles PUT /v1/rooms/:id
func (h *RoomHandler) Update(c *gin.Context) {
	var in models.RoomInput
	if !bindJSON(c, &in) {
		return
	}

	room, err := h.services.Rooms.Update(c.Request.Context(), currentUser(c), c.Param("id"), &in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

// Delete handles DELETE /v1/rooms/:id
func (h *RoomHandler) Delete(c *gin.Context) {
	if err := h.services.Rooms.Delete(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Availability handles GET /v1/rooms/:id/availability?from=&to=
// Responds with the confirmed bookings intersecting [from, to)
func (h *RoomHandler) Availability(c *gin.Context) {
	from, err := timeQuery(c, "from", h.loc)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	to, err := timeQuery(c, "to", h.loc)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	var missing validation.Errors
	if from == nil {
		missing = append(missing, validation.ValidationError{Field: "from", Message: "from is required"})
	}
	if to == nil {
		missing = append(missing, validation.ValidationError{Field: "to", Message: "to is required"})
	}
	if err := missing.Err(); err != nil {
		respondError(c, h.log, err)
		return
	}

	busy, err := h.services.Rooms.Availability(c.Request.Context(), c.Param("id"), *from, *to)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"room_id":  c.Param("id"),
		"from":     from,
		"to":       to,
		"bookings": busy,
	})
}

// ListBookings handles GET /v1/bookings?room_id=&from=&to=
func (h *RoomHandler) ListBookings(c *gin.Context) {
	var filter models.BookingFilter
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

	bookings, err := h.services.Bookings.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings, "count": len(bookings)})
}

// CreateBooking handles POST /v1/bookings
func (h *RoomHandler) CreateBooking(c *gin.Context) {
	var in models.BookingInput
	if !bindJSON(c, &in) {
		return
	}

	booking, err := h.services.Bookings.Create(c.Request.Context(), currentUser(c), &in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, booking)
}

// CancelBooking handles POST /v1/bookings/:id/cancel
func (h *RoomHandler) CancelBooking(c *gin.Context) {
	booking, err := h.services.Bookings.Cancel(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}
