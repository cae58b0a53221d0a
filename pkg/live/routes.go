package live

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-vl/orbit-frontend-sub000/pkg/render"
)

// maxEventBody bounds POSTed events.
const maxEventBody = 64 << 10

// Router returns the HTTP routes: the websocket endpoint, a health check and
// a small JSON/SVG API over the current frame.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(ginLogger(s.logger))
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": s.SessionCount()})
	})

	router.GET("/live", func(c *gin.Context) {
		s.HandleWebSocket(c.Writer, c.Request)
	})

	api := router.Group("/api")
	{
		api.GET("/status", func(c *gin.Context) {
			c.JSON(http.StatusOK, s.target.Status())
		})

		api.GET("/frame", func(c *gin.Context) {
			c.JSON(http.StatusOK, s.target.Frame())
		})

		api.GET("/frame.svg", func(c *gin.Context) {
			c.Header("Content-Type", "image/svg+xml")
			if err := render.WriteSVG(c.Writer, s.target.Frame()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			}
		})

		api.POST("/events", func(c *gin.Context) {
			body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxEventBody))
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ev, err := DecodeEvent(body)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			s.Dispatch(c.Request.Context(), ev)
			c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
		})
	}

	return router
}

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.Debug("HTTP request",
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}
