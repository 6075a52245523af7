package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lnmn249/faire-lightspeed-lite/internal/config"
	"github.com/lnmn249/faire-lightspeed-lite/internal/lightspeed"
	"github.com/lnmn249/faire-lightspeed-lite/internal/repository"
)

// RefreshCatalogSnapshot pulls the full catalog and replaces the stored
// snapshot.
func RefreshCatalogSnapshot(ctx context.Context, cfg *config.Config, client *lightspeed.Client, repos *repository.Repositories, logger *zap.Logger) error {
	entries, err := client.ListProducts(ctx, cfg.Reconcile.PageSize)
	if err != nil {
		return err
	}
	if err := repos.CatalogSnapshot.ReplaceAll(ctx, entries); err != nil {
		return err
	}
	logger.Info("Catalog snapshot refreshed", zap.Int("products", len(entries)))
	return nil
}

// RunCatalogRefreshLoop refreshes the snapshot once on startup and then on
// the configured interval until the context is cancelled.
func RunCatalogRefreshLoop(ctx context.Context, cfg *config.Config, client *lightspeed.Client, repos *repository.Repositories, logger *zap.Logger) {
	if err := RefreshCatalogSnapshot(ctx, cfg, client, repos, logger); err != nil {
		logger.Error("Startup catalog refresh failed", zap.Error(err))
	}

	ticker := time.NewTicker(cfg.Reconcile.SnapshotRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := RefreshCatalogSnapshot(ctx, cfg, client, repos, logger); err != nil {
				logger.Error("Scheduled catalog refresh failed", zap.Error(err))
			}
		}
	}
}
