package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/lnmn249/faire-lightspeed-lite/internal/config"
	"github.com/lnmn249/faire-lightspeed-lite/internal/lightspeed"
	"github.com/lnmn249/faire-lightspeed-lite/internal/repository/postgres"
	"github.com/lnmn249/faire-lightspeed-lite/internal/service"
)

// refresh-catalog pulls the remote product catalog into the local snapshot
// once and exits.
func main() {
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	repos := postgres.NewRepositories(db, logger)
	client := lightspeed.NewClient(cfg.Lightspeed, cfg.Retry, nil, false, logger)

	if err := service.RefreshCatalogSnapshot(context.Background(), cfg, client, repos, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Catalog refresh failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Catalog snapshot refreshed successfully!")
}
