package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/xenon007/tasktracker/internal/apperr"
	"github.com/xenon007/tasktracker/internal/auth"
	"github.com/xenon007/tasktracker/internal/config"
	"github.com/xenon007/tasktracker/internal/storage/sqlstore"
)

// Server provides HTTP handlers for the task tracker backend.
type Server struct {
	engine   *gin.Engine
	store    *sqlstore.Store
	identity *auth.Service
	logger   *slog.Logger
}

// New constructs the HTTP server with routes and middleware configured.
func New(cfg config.Server, store *sqlstore.Store, identity *auth.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	if len(cfg.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:  cfg.AllowedOrigins,
			AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders: []string{"X-Request-ID"},
			MaxAge:        12 * time.Hour,
		}))
	}

	srv := &Server{
		engine:   router,
		store:    store,
		identity: identity,
		logger:   logger,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API handlers together.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)
		api.POST("/sign-up", s.handleSignUp)
		api.POST("/sign-in", s.handleSignIn)

		authed := api.Group("", auth.RequireIdentity(s.identity))

		projects := authed.Group("/projects")
		{
			projects.GET("", s.handleListProjects)
			projects.POST("", s.handleCreateProject)
			projects.GET(":id", s.handleGetProject)
			projects.GET(":id/users", s.handleListMembers)
			projects.POST(":id/users", s.handleLinkUser)
			projects.GET(":id/statuses", s.handleListStatuses)
			projects.POST(":id/statuses", s.handleCreateStatus)
			projects.GET(":id/tasks", s.handleListProjectTasks)
		}

		authed.DELETE("/statuses/:id", s.handleDeleteStatus)

		tasks := authed.Group("/tasks")
		{
			tasks.POST("", s.handleCreateTask)
			tasks.GET("mine", s.handleListMyTasks)
			tasks.GET(":id", s.handleGetTask)
			tasks.PUT(":id", s.handleUpdateTask)
		}

		authed.GET("/users/search", s.handleSearchUsers)
	}

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found", "kind": apperr.KindNotFound})
	})
}

// handleHealth reports readiness, including database reachability.
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// requestLogger tags each request with an id and logs its outcome. Inbound
// ids are kept only when they parse as UUIDs.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := uuid.NewString()
		if inbound, err := uuid.Parse(c.GetHeader("X-Request-ID")); err == nil {
			requestID = inbound.String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()

		logger.Info("request",
			slog.String("request_id", requestID),
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
		)
	}
}

// callerID returns the authenticated user id. RequireIdentity guarantees it
// on authed routes.
func callerID(c *gin.Context) (int64, bool) {
	claims, ok := auth.Caller(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing identity", "kind": apperr.KindAuthFailed})
		return 0, false
	}
	return claims.UserID, true
}

// parseID converts a path parameter to int64 with error handling.
func parseID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identifier", "kind": apperr.KindInvalid})
		return 0, false
	}
	return id, true
}

// statusFor maps an error kind to an HTTP status code.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindAuthFailed:
		return http.StatusUnauthorized
	case apperr.KindUnauthorized:
		return http.StatusForbidden
	case apperr.KindDuplicateEmail, apperr.KindAlreadyMember:
		return http.StatusConflict
	case apperr.KindInvalid, apperr.KindInvalidReference, apperr.KindInvalidAssignee:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs the error and returns a JSON payload. Infrastructure
// details are logged but never sent to the client.
func (s *Server) respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	message := err.Error()

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
		message = apperr.ErrInfrastructure.Message
	} else {
		s.logger.Debug("request rejected", slog.String("path", c.FullPath()), slog.String("kind", string(kind)), slog.String("error", err.Error()))
	}
	c.JSON(status, gin.H{"error": message, "kind": kind})
}

// respondBindError reports a malformed request body.
func (s *Server) respondBindError(c *gin.Context, err error) {
	var typed *apperr.Error
	if !errors.As(err, &typed) {
		err = &apperr.Error{Kind: apperr.KindInvalid, Message: err.Error(), Err: err}
	}
	s.respondError(c, err)
}

// respondSuccess wraps a payload in a JSON envelope for consistency.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}
