package httpserver

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (srv *HTTPServer) mapHandlers() {
	srv.gin.Use(gin.Recovery(), srv.requestLogger())

	srv.gin.GET("/healthz", srv.healthCheck)
	if srv.cfg.Metrics != nil {
		srv.gin.GET("/metrics", gin.WrapH(srv.cfg.Metrics))
	}

	if srv.cfg.OAuth != nil && srv.cfg.Mailboxes != nil {
		srv.gin.GET("/auth/login", srv.login)
		srv.gin.GET("/auth/callback", srv.callback)
		srv.gin.GET("/tasks", srv.fetchTasks)
	} else {
		srv.l.Info("OAuth not configured, mailbox routes disabled")
	}

	srv.gin.GET("/tasks/latest", srv.latestTasks)
	srv.gin.POST("/tasks/extract", srv.rateLimited(), srv.extractTasks)
	srv.gin.GET("/intake/tasks", srv.intakeTasks)
}

// requestLogger logs one line per request
func (srv *HTTPServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		srv.l.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}

func (srv *HTTPServer) healthCheck(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}
