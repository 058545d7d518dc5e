package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/onboarding-booking-api/internal/access"
	"github.com/onboarding-booking-api/internal/models"
	"github.com/onboarding-booking-api/internal/service"
	"github.com/onboarding-booking-api/internal/validation"
	"github.com/rs/zerolog"
)

const contextUserKey = "user"

// bearerToken extracts the token of an "Authorization: Bearer <token>" header
func bearerToken(c *gin.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// authMiddleware resolves the session token to the current user, with memberships loaded
func authMiddleware(auth service.AuthService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, service.ErrUnauthenticated) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
				return
			}
			log.Error().Err(err).Msg("Failed to authenticate request")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}

		c.Set(contextUserKey, user)
		c.Next()
	}
}

// requireAdmin rejects signed-in users without the admin role
func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !access.IsAdmin(currentUser(c)) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": service.ErrForbidden.Error()})
			return
		}
		c.Next()
	}
}

// idParams answers 404 for malformed identifiers in the path
func idParams(names ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, name := range names {
			if v, ok := c.Params.Get(name); ok && !validation.IsUUID(v) {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": service.ErrNotFound.Error()})
				return
			}
		}
		c.Next()
	}
}

// jobSecretMiddleware authenticates scheduled jobs and the sign-in provider by a shared secret
func jobSecretMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok || secret == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": service.ErrUnauthenticated.Error()})
			return
		}
		c.Next()
	}
}

// currentUser returns the authenticated user, or nil outside authMiddleware
func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get(contextUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}
