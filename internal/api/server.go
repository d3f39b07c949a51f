// Package api exposes the authoring engine over HTTP.
//
// The surface is deliberately thin: handlers bind JSON, call the
// engine, and map the error taxonomy onto status codes. Authentication
// is external by contract; the acting user arrives in the X-Actor
// header.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/botloom/botloom/internal/engine"
)

// Server wires the engine into a gin router.
type Server struct {
	svc     *engine.Service
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures a Server.
type Option func(*Server)

// WithoutMetrics disables the prometheus middleware and the /metrics
// route.
func WithoutMetrics() Option {
	return func(s *Server) {
		s.metrics = nil
	}
}

// NewServer creates a Server over the given engine.
func NewServer(svc *engine.Service, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		svc:     svc,
		logger:  logger,
		metrics: NewMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the HTTP routes.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if s.metrics != nil {
		router.Use(s.metrics.Middleware())
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.metrics != nil {
		router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	v1 := router.Group("/v1")
	{
		bots := v1.Group("/bots/:botId")
		{
			bots.POST("/interactions", s.createInteraction)
			bots.GET("/interactions", s.listInteractions)
			bots.GET("/pending", s.pendingPublication)
			bots.GET("/publish-errors", s.publishErrors)
		}

		interactions := v1.Group("/interactions/:id")
		{
			interactions.GET("", s.getInteraction)
			interactions.PUT("", s.updateInteraction)
			interactions.DELETE("", s.deleteInteraction)
			interactions.POST("/publish", s.publishInteraction)
			interactions.GET("/refs", s.inboundRefs)
			interactions.GET("/path", s.interactionPath)
			interactions.GET("/history", s.interactionHistory)
			interactions.GET("/comments", s.listComments)
			interactions.POST("/comments", s.addComment)
		}

		v1.GET("/workspaces/:workspaceId/pending-summary", s.pendingSummary)
	}

	return router
}
