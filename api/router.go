package api

import (
	"net/http"
	"strconv"

	"bricksync/internal/connectivity"
	"bricksync/internal/loader"
	"bricksync/internal/metrics"
	"bricksync/internal/mutation"
	"bricksync/internal/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dependencies are the components the gateway routes call into.
type Dependencies struct {
	Loader         *loader.Loader
	Mutations      *mutation.Client
	Resolver       *connectivity.Resolver
	Preferences    *storage.Preferences
	Screen         *Screen
	Metrics        *metrics.Collector
	Logger         *zap.Logger
	AllowedOrigins []string
}

// InitRoutes registers the view, mutation and settings endpoints on the
// given Gin engine.
func InitRoutes(e *gin.Engine, deps Dependencies) {
	screen := deps.Screen
	if screen == nil {
		screen = NewScreen()
	}
	h := NewSyncHandler(deps.Loader, deps.Mutations, deps.Resolver, deps.Preferences, screen, deps.Logger)

	e.Use(corsMiddleware(deps.AllowedOrigins))
	e.Use(observe(deps.Metrics))
	e.Use(userAgent())

	e.GET("/views/:view", h.handleLoadView)
	e.GET("/screen", h.handleScreen)

	e.POST("/customers", h.handleCreateCustomer)
	e.DELETE("/customers/:key", h.handleDeleteCustomer)
	e.POST("/sales", h.handleCreateSale)
	e.DELETE("/sales/:id", h.handleDeleteSale)
	e.POST("/payments", h.handleCreatePayment)
	e.DELETE("/payments/:id", h.handleDeletePayment)
	e.DELETE("/logs", h.handleClearLogs)

	e.GET("/settings", h.handleGetSettings)
	e.PUT("/settings", h.handlePutSettings)
	e.POST("/settings/resolve", h.handleResolve)

	e.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	e.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
		}
	}
	if !cfg.AllowAllOrigins {
		cfg.AllowOrigins = origins
	}
	cfg.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	cfg.AddAllowHeaders("Origin", "Content-Type", "X-Request-ID")
	cfg.AddExposeHeaders("Content-Length")
	return cors.New(cfg)
}

// observe counts requests by matched route.
func observe(m *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()))
	}
}

// userAgent carries the caller's user agent to endpoint resolution.
func userAgent() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := connectivity.WithUserAgent(c.Request.Context(), c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
