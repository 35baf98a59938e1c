// Package httpapi exposes the question-answering pipeline over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/greenplate-labs/greenplate/internal/core/domain"
	"github.com/greenplate-labs/greenplate/internal/core/ports/driven"
	"github.com/greenplate-labs/greenplate/internal/core/ports/driving"
	"github.com/greenplate-labs/greenplate/internal/logger"
)

// principalKey is the gin context key the auth middleware stores the caller
// under.
const principalKey = "principal"

// Config holds configuration for the HTTP server.
type Config struct {
	// Addr is the listen address.
	Addr string

	// Verifier validates bearer tokens. Nil disables authentication and
	// grants the local dev principal; never run that in production.
	Verifier driven.TokenVerifier

	// RequiredGroup is the group a caller must be in to ask questions.
	// Admins always pass. Empty means any authenticated caller.
	RequiredGroup string
}

// Server routes HTTP requests to the pipeline.
type Server struct {
	cfg    Config
	ask    driving.AskService
	engine *gin.Engine
	http   *http.Server
}

// NewServer builds the router and its middleware chain.
func NewServer(cfg Config, ask driving.AskService) *Server {
	if logger.IsVerbose() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(), cors())

	s := &Server{cfg: cfg, ask: ask, engine: engine}

	engine.GET("/", s.handleHealth)
	engine.POST("/ask", s.authenticate, s.requireGroup, s.handleAsk)

	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Run serves until the context is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening on %s", s.cfg.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "status OK"})
}

type askRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleAsk(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "question must not be empty"})
		return
	}

	state, err := s.ask.Ask(c.Request.Context(), req.Question)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
			return
		}
		logger.Error("Ask failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "pipeline error"})
		return
	}

	c.JSON(http.StatusOK, state)
}

// authenticate resolves the calling principal from the Authorization header.
func (s *Server) authenticate(c *gin.Context) {
	if s.cfg.Verifier == nil {
		c.Set(principalKey, domain.DevPrincipal())
		c.Next()
		return
	}

	header := c.GetHeader("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "missing bearer token"})
		return
	}

	principal, err := s.cfg.Verifier.Verify(c.Request.Context(), token)
	if err != nil {
		logger.Debug("Token rejected: %v", err)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "invalid token"})
		return
	}

	c.Set(principalKey, principal)
	c.Next()
}

// requireGroup enforces the configured group, with the admin bypass built
// into Principal.InGroup.
func (s *Server) requireGroup(c *gin.Context) {
	if s.cfg.RequiredGroup == "" {
		c.Next()
		return
	}

	principal, ok := currentPrincipal(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "missing bearer token"})
		return
	}
	if !principal.InGroup(s.cfg.RequiredGroup) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "insufficient permissions"})
		return
	}
	c.Next()
}

func currentPrincipal(c *gin.Context) (domain.Principal, bool) {
	value, exists := c.Get(principalKey)
	if !exists {
		return domain.Principal{}, false
	}
	principal, ok := value.(domain.Principal)
	return principal, ok
}

// requestLogger assigns each request an id, echoes it in the response and
// logs one line per request at debug level.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		c.Next()
		logger.Debug("%s %s -> %d (%s) request_id=%s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start), requestID)
	}
}

// cors allows browser clients; the API carries no cookies, so a permissive
// policy is safe.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
