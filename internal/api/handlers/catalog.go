package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lnmn249/faire-lightspeed-lite/internal/config"
	"github.com/lnmn249/faire-lightspeed-lite/internal/lightspeed"
	"github.com/lnmn249/faire-lightspeed-lite/internal/repository"
)

// HandleCatalogRefresh handles POST /v1/catalog/refresh: it pulls the full
// product catalog from the remote platform and replaces the stored snapshot.
func HandleCatalogRefresh(cfg *config.Config, client *lightspeed.Client, repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := client.ListProducts(c.Request.Context(), cfg.Reconcile.PageSize)
		if err != nil {
			logger.Error("Catalog refresh failed", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to pull catalog from remote platform"})
			return
		}

		if err := repos.CatalogSnapshot.ReplaceAll(c.Request.Context(), entries); err != nil {
			logger.Error("Failed to store catalog snapshot", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store catalog snapshot"})
			return
		}

		logger.Info("Catalog snapshot refreshed", zap.Int("products", len(entries)))
		c.JSON(http.StatusOK, gin.H{"product_count": len(entries)})
	}
}

// HandleCatalogLastRefresh handles GET /v1/catalog/last-refresh
func HandleCatalogLastRefresh(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		refresh, err := repos.CatalogSnapshot.LastRefresh(c.Request.Context())
		if err != nil {
			logger.Error("Failed to get last catalog refresh", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if refresh == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "catalog has never been refreshed"})
			return
		}
		c.JSON(http.StatusOK, refresh)
	}
}
