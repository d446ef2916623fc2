package router

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/metrics"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/server/handlers"
)

// Handlers groups the HTTP handler adapters.
type Handlers struct {
	Records   *handlers.RecordsHandler
	Sessions  *handlers.SessionsHandler
	Views     *handlers.ViewsHandler
	Deletions *handlers.DeletionsHandler
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, m *metrics.Metrics, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))
	if m != nil {
		r.Use(metricsMiddleware(m))
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	records := api.Group("/records")
	records.GET("", h.Records.List)
	records.GET("/:id", h.Records.Get)
	records.DELETE("/:id", h.Records.Delete)

	sessions := api.Group("/sessions")
	sessions.POST("", h.Sessions.Open)
	sessions.GET("/:id", h.Sessions.Get)
	sessions.PUT("/:id/location", h.Sessions.Location)
	sessions.PUT("/:id/navigation", h.Sessions.Navigation)
	sessions.PATCH("/:id/fields", h.Sessions.Fields)
	sessions.POST("/:id/submit", h.Sessions.Submit)
	sessions.POST("/:id/retry", h.Sessions.Retry)
	sessions.DELETE("/:id", h.Sessions.Close)

	views := api.Group("/views")
	views.POST("", h.Views.Create)
	views.GET("/:id", h.Views.Get)
	views.PUT("/:id/filter", h.Views.Filter)
	views.POST("/:id/clear", h.Views.Clear)
	views.POST("/:id/refresh", h.Views.Refresh)
	views.POST("/:id/focus", h.Views.Focus)
	views.POST("/:id/deletions", h.Views.BeginDeletion)

	deletions := api.Group("/deletions")
	deletions.GET("/:id", h.Deletions.Get)
	deletions.POST("/:id/confirm", h.Deletions.Confirm)
	deletions.POST("/:id/cancel", h.Deletions.Cancel)

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}

func metricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
