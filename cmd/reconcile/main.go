package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/lnmn249/faire-lightspeed-lite/internal/config"
	"github.com/lnmn249/faire-lightspeed-lite/internal/domain"
	"github.com/lnmn249/faire-lightspeed-lite/internal/lightspeed"
	"github.com/lnmn249/faire-lightspeed-lite/internal/reconcile"
)

// reconcile runs one reconciliation over a Faire CSV export from the command
// line, without the HTTP server or the database.
func main() {
	filePath := flag.String("file", "", "path to the Faire order export CSV")
	dryRun := flag.Bool("dry-run", false, "rehearse without creating entities or submitting")
	previewOnly := flag.Bool("preview", false, "normalize and match only, no writes")
	flag.Parse()

	if *filePath == "" {
		fmt.Fprintln(os.Stderr, "usage: reconcile -file <orders.csv> [-dry-run] [-preview]")
		os.Exit(2)
	}

	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *dryRun {
		cfg.Reconcile.DryRun = true
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	f, err := os.Open(*filePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open file: %v\n", err)
		os.Exit(1)
	}
	raw, err := reconcile.ReadFaireCSV(f)
	f.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read CSV: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := lightspeed.NewClient(cfg.Lightspeed, cfg.Retry, nil, cfg.Reconcile.DryRun, logger)
	pipeline := reconcile.NewPipeline(client, reconcile.Options{
		OutletID:    cfg.Lightspeed.OutletID,
		PageSize:    cfg.Reconcile.PageSize,
		Concurrency: cfg.Reconcile.Concurrency,
		DryRun:      cfg.Reconcile.DryRun,
	}, logger)

	if *previewOnly {
		matched, missing, rejected, err := pipeline.Preview(ctx, raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Preview failed: %v\n", err)
			os.Exit(1)
		}
		printJSON(map[string]any{
			"matched":  matched,
			"missing":  missing,
			"rejected": rejected,
		})
		return
	}

	report, err := pipeline.Run(ctx, raw)
	printJSON(report)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Run aborted: %v\n", err)
		os.Exit(1)
	}
	if report.Status == domain.RunStatusFailed {
		os.Exit(1)
	}
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode output: %v\n", err)
		return
	}
	fmt.Println(string(out))
}
