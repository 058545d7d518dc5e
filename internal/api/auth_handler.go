package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/onboarding-booking-api/internal/access"
	"github.com/onboarding-booking-api/internal/models"
	"github.com/onboarding-booking-api/internal/service"
	"github.com/rs/zerolog"
)

// AuthHandler handles sign-in endpoints
type AuthHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(services *service.Services, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		services: services,
		log:      log.With().Str("handler", "auth").Logger(),
	}
}

// Login handles POST /v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var in models.LoginInput
	if !bindJSON(c, &in) {
		return
	}

	session, err := h.services.Auth.Login(c.Request.Context(), &in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// SignInSSO handles POST /v1/auth/sso
// Called by the sign-in provider after it has verified the identity
func (h *AuthHandler) SignInSSO(c *gin.Context) {
	var in models.SSOInput
	if !bindJSON(c, &in) {
		return
	}

	session, err := h.services.Auth.SignInSSO(c.Request.Context(), &in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// Me handles GET /v1/me
func (h *AuthHandler) Me(c *gin.Context) {
	u := currentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"user":         u,
		"capabilities": access.CapabilitiesOf(u.Role).Names(),
	})
}

// UserHandler handles user administration endpoints
type UserHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(services *service.Services, log zerolog.Logger) *UserHandler {
	return &UserHandler{
		services: services,
		log:      log.With().Str("handler", "user").Logger(),
	}
}

// List handles GET /v1/users
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.services.Users.List(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// Create handles POST /v1/users
func (h *UserHandler) Create(c *gin.Context) {
	var in models.UserInput
	if !bindJSON(c, &in) {
		return
	}

	user, err := h.services.Users.Create(c.Request.Context(), currentUser(c), &in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// UpdateRole handles PUT /v1/users/:id/role
func (h *UserHandler) UpdateRole(c *gin.Context) {
	var in models.RoleInput
	if !bindJSON(c, &in) {
		return
	}

	user, err := h.services.Users.UpdateRole(c.Request.Context(), currentUser(c), c.Param("id"), in.Role)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Delete handles DELETE /v1/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.services.Users.Delete(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
