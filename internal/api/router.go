package api

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
)

func (s *Server) setupRouter() *gin.Engine {
	router := gin.New()

	router.Use(s.recovery())
	router.Use(s.requestLogger())

	router.GET("/health", s.handleHealth)

	v1 := router.Group("/api/v1")
	{
		schedule := v1.Group("/schedule")
		{
			schedule.POST("/analyze", s.handleAnalyze)
			schedule.POST("/graph", s.handleGraph)
		}

		runs := v1.Group("/history")
		{
			runs.GET("", s.handleListHistory)
			runs.GET("/:id", s.handleGetHistory)
		}
	}

	return router
}

// recovery turns handler panics into 500 responses.
func (s *Server) recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered", "error", err, "stack", string(debug.Stack()))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}

// requestLogger logs one line per request.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := s.logger.Info
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = s.logger.Error
		}
		level("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client", c.ClientIP(),
		)
	}
}
