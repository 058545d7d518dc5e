package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/onboarding-booking-api/internal/config"
	"github.com/onboarding-booking-api/internal/service"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/onboarding-booking-api/internal/api")

// NewRouter creates and configures the Gin router
func NewRouter(services *service.Services, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(tracingMiddleware())
	router.Use(loggingMiddleware(log))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Handlers
	h := newHandlers(services, cfg, log)

	// Health check
	router.GET("/health", healthCheck(services))
	router.GET("/metrics", metricsHandler(services))

	// API v1
	v1 := router.Group("/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/login", h.auth.Login)
			authGroup.POST("/sso", jobSecretMiddleware(cfg.Auth.JobSecret), h.auth.SignInSSO)
		}

		jobs := v1.Group("/jobs", jobSecretMiddleware(cfg.Auth.JobSecret))
		{
			jobs.POST("/digests/:type", h.admin.SendDigest)
		}

		authed := v1.Group("", authMiddleware(services.Auth, log), idParams("id", "user_id", "entity_id"))
		admin := requireAdmin()

		me := authed.Group("/me")
		{
			me.GET("", h.auth.Me)
			me.GET("/preferences", h.entities.ListPreferences)
			me.PUT("/preferences/:entity_id", h.entities.SetPreference)
		}

		entities := authed.Group("/entities")
		{
			entities.GET("", h.entities.List)
			entities.GET("/:id", h.entities.Get)
			entities.POST("", admin, h.entities.Create)
			entities.PUT("/:id", admin, h.entities.Update)
			entities.DELETE("/:id", admin, h.entities.Delete)
			entities.GET("/:id/members", admin, h.entities.Members)
			entities.PUT("/:id/members/:user_id", admin, h.entities.SetMember)
			entities.DELETE("/:id/members/:user_id", admin, h.entities.RemoveMember)
		}

		users := authed.Group("/users", admin)
		{
			users.GET("", h.users.List)
			users.POST("", h.users.Create)
			users.PUT("/:id/role", h.users.UpdateRole)
			users.DELETE("/:id", h.users.Delete)
		}

		starters := authed.Group("/starters")
		{
			starters.GET("", h.starters.List)
			starters.GET("/:id", h.starters.Get)
			starters.POST("", h.starters.Create)
			starters.PUT("/:id", h.starters.Update)
			starters.POST("/:id/cancel", h.starters.Cancel)
			starters.DELETE("/:id", admin, h.starters.Delete)
		}

		tasks := authed.Group("/tasks")
		{
			tasks.GET("", h.tasks.List)
			tasks.GET("/:id", h.tasks.Get)
			tasks.POST("", h.tasks.Create)
			tasks.PUT("/:id", h.tasks.Update)
			tasks.POST("/:id/complete", h.tasks.Complete)
			tasks.POST("/:id/reopen", h.tasks.Reopen)
		}

		templates := authed.Group("/task-templates", admin)
		{
			templates.GET("", h.tasks.ListTemplates)
			templates.POST("", h.tasks.CreateTemplate)
			templates.PUT("/:id", h.tasks.UpdateTemplate)
			templates.DELETE("/:id", h.tasks.DeleteTemplate)
		}

		assignments := authed.Group("/task-assignments")
		{
			assignments.GET("", h.tasks.ListAssignments)
			assignments.GET("/responsible", h.tasks.Responsible)
			assignments.PUT("", admin, h.tasks.SetAssignment)
			assignments.DELETE("/:id", admin, h.tasks.DeleteAssignment)
		}

		rooms := authed.Group("/rooms")
		{
			rooms.GET("", h.rooms.List)
			rooms.GET("/:id/availability", h.rooms.Availability)
			rooms.POST("", admin, h.rooms.Create)
			rooms.PUT("/:id", admin, h.rooms.Update)
			rooms.DELETE("/:id", admin, h.rooms.Delete)
		}

		bookings := authed.Group("/bookings")
		{
			bookings.GET("", h.rooms.ListBookings)
			bookings.POST("", h.rooms.CreateBooking)
			bookings.POST("/:id/cancel", h.rooms.CancelBooking)
		}

		authed.GET("/digests/:type/preview", admin, h.admin.PreviewDigest)
		authed.GET("/settings", admin, h.admin.Settings)
		authed.PUT("/settings/:key", admin, h.admin.SetSetting)
		authed.GET("/audit", admin, h.admin.Audit)
	}

	return router
}

// handlers groups the per-area handlers
type handlers struct {
	auth     *AuthHandler
	users    *UserHandler
	entities *EntityHandler
	starters *StarterHandler
	tasks    *TaskHandler
	rooms    *RoomHandler
	admin    *AdminHandler
}

func newHandlers(services *service.Services, cfg *config.Config, log zerolog.Logger) *handlers {
	loc := cfg.Digest.Location()
	return &handlers{
		auth:     NewAuthHandler(services, log),
		users:    NewUserHandler(services, log),
		entities: NewEntityHandler(services, log),
		starters: NewStarterHandler(services, loc, log),
		tasks:    NewTaskHandler(services, log),
		rooms:    NewRoomHandler(services, loc, log),
		admin:    NewAdminHandler(services, loc, log),
	}
}

// healthCheck returns the health status
func healthCheck(services *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, code := "healthy", http.StatusOK
		if err := services.Stats.Ping(c.Request.Context()); err != nil {
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": time.Now().Format(time.RFC3339),
			"service":   "onboarding-booking-api",
		})
	}
}

// metricsHandler returns row counts per table
func metricsHandler(services *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		counts, err := services.Stats.Counts(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load metrics"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"database":  counts,
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Str("path", c.Request.URL.Path).Msg("Panic recovered")
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
// tracingMiddleware opens a server span per request, continuing any incoming trace context
func tracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, c.Request.Method+" "+c.FullPath(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.route", c.FullPath()),
			),
		)
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= 500 {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}

func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		if u := currentUser(c); u != nil {
			event = event.Str("user_id", u.ID)
		}
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			event = event.Str("trace_id", sc.TraceID().String())
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("Request completed")
	}
}
