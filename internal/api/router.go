package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lnmn249/faire-lightspeed-lite/internal/api/handlers"
	"github.com/lnmn249/faire-lightspeed-lite/internal/api/middleware"
	"github.com/lnmn249/faire-lightspeed-lite/internal/config"
	"github.com/lnmn249/faire-lightspeed-lite/internal/lightspeed"
	"github.com/lnmn249/faire-lightspeed-lite/internal/repository"
)

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, client *lightspeed.Client, repos *repository.Repositories, logger *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(customRecovery(logger))
	router.Use(loggingMiddleware(logger))

	// Root: friendly response so GET / returns 200 instead of 404
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "Faire to Lightspeed Reconciliation",
			"endpoints": []string{
				"GET /health",
				"POST /v1/catalog/refresh",
				"GET /v1/catalog/last-refresh",
				"POST /v1/orders/preview",
				"POST /v1/orders/preview-csv",
				"POST /v1/orders/submit",
				"POST /v1/orders/submit-csv",
				"GET /v1/runs",
				"GET /v1/runs/:id",
			},
		})
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes (require the operator API key)
	v1 := router.Group("/v1")
	v1.Use(middleware.OperatorAuthMiddleware(cfg, logger))
	{
		v1.POST("/catalog/refresh", handlers.HandleCatalogRefresh(cfg, client, repos, logger))
		v1.GET("/catalog/last-refresh", handlers.HandleCatalogLastRefresh(repos, logger))

		v1.POST("/orders/preview", handlers.HandleOrdersPreview(cfg, repos, logger))
		v1.POST("/orders/preview-csv", handlers.HandleOrdersPreviewCSV(cfg, repos, logger))
		v1.POST("/orders/submit", handlers.HandleOrdersSubmit(cfg, repos, logger))
		v1.POST("/orders/submit-csv", handlers.HandleOrdersSubmitCSV(cfg, repos, logger))

		v1.GET("/runs", handlers.HandleListRuns(repos, logger))
		v1.GET("/runs/:id", handlers.HandleGetRun(repos, logger))
	}

	return router
}

// customRecovery is a custom recovery middleware that logs panics
func customRecovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("Panic recovered",
			zap.Any("error", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal server error",
			"details": fmt.Sprintf("%v", recovered),
		})
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		status := c.Writer.Status()
		logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
		)
	}
}
