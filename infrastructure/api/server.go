// Package api exposes the board over HTTP: JSON endpoints for reads and
// mutations, a Server-Sent Events stream for live updates, and the
// password-gated archive download.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "rolling-paper/errors"
	"rolling-paper/export"
	"rolling-paper/runtime/workers"
	"rolling-paper/services"
)

type Server struct {
	engine      *gin.Engine
	service     *services.BoardService
	broadcaster *workers.Broadcaster
	archive     *export.Builder
	heartbeat   time.Duration
	log         *slog.Logger
}

func NewServer(
	service *services.BoardService,
	broadcaster *workers.Broadcaster,
	archive *export.Builder,
	heartbeat time.Duration,
	log *slog.Logger,
) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery(), corsMiddleware())

	s := &Server{
		engine:      engine,
		service:     service,
		broadcaster: broadcaster,
		archive:     archive,
		heartbeat:   heartbeat,
		log:         log,
	}

	api := engine.Group("/api")
	api.GET("/messages", s.list)
	api.GET("/messages/search", s.search)
	api.GET("/events", s.events)
	api.POST("/messages", s.create)
	api.POST("/messages/:id/like", s.like)
	api.POST("/messages/:id/verify", s.verify)
	api.POST("/messages/:id/content", s.privateContent)
	api.PUT("/messages/:id", s.update)
	api.DELETE("/messages/:id", s.remove)
	api.POST("/download-txt", s.download)

	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		c.Header("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// fail maps service errors onto the HTTP taxonomy. Internal failures are
// logged server-side and answered with a generic message, never the raw
// error.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrValidation), errors.Is(err, apperrors.ErrDuplicateID):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		s.log.Error("Request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
