package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lnmn249/faire-lightspeed-lite/internal/config"
	"github.com/lnmn249/faire-lightspeed-lite/internal/domain"
	"github.com/lnmn249/faire-lightspeed-lite/internal/lightspeed"
	"github.com/lnmn249/faire-lightspeed-lite/internal/reconcile"
	"github.com/lnmn249/faire-lightspeed-lite/internal/repository"
	apperrors "github.com/lnmn249/faire-lightspeed-lite/pkg/errors"
)

type orderBatchRequest struct {
	Rows   []domain.RawRow `json:"rows" binding:"required"`
	DryRun *bool           `json:"dry_run"`
}

// HandleOrdersPreview handles POST /v1/orders/preview: normalize and match
// the uploaded rows without writing anything to the remote platform.
// ?source=snapshot matches against the stored catalog snapshot instead of a
// live pull.
func HandleOrdersPreview(cfg *config.Config, repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req orderBatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: rows is required"})
			return
		}
		previewRows(c, cfg, repos, logger, req.Rows)
	}
}

// HandleOrdersPreviewCSV handles POST /v1/orders/preview-csv: same as
// preview, but the rows arrive as an uploaded Faire CSV export in the "file"
// form field.
func HandleOrdersPreviewCSV(cfg *config.Config, repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := readCSVUpload(c)
		if !ok {
			return
		}
		previewRows(c, cfg, repos, logger, raw)
	}
}

func previewRows(c *gin.Context, cfg *config.Config, repos *repository.Repositories, logger *zap.Logger, raw []domain.RawRow) {
	rows, rejected := reconcile.Normalize(raw)

	var index *reconcile.CatalogIndex
	if c.Query("source") == "snapshot" {
		entries, err := repos.CatalogSnapshot.List(c.Request.Context())
		if err != nil {
			logger.Error("Failed to load catalog snapshot", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load catalog snapshot"})
			return
		}
		index = reconcile.NewCatalogIndex(entries, logger)
	} else {
		client := lightspeed.NewClient(cfg.Lightspeed, cfg.Retry, nil, cfg.Reconcile.DryRun, logger)
		var err error
		index, err = reconcile.BuildIndex(c.Request.Context(), client, cfg.Reconcile.PageSize, logger)
		if err != nil {
			logger.Error("Catalog pull failed during preview", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to pull catalog from remote platform"})
			return
		}
	}

	matched, missing := reconcile.Partition(rows, index)
	c.JSON(http.StatusOK, gin.H{
		"matched":        matched,
		"missing":        missing,
		"rejected":       rejected,
		"matched_count":  len(matched),
		"missing_count":  len(missing),
		"rejected_count": len(rejected),
	})
}

// HandleOrdersSubmit handles POST /v1/orders/submit: the full reconciliation
// run. The run report is persisted whether or not the run completed.
func HandleOrdersSubmit(cfg *config.Config, repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req orderBatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: rows is required"})
			return
		}
		submitRows(c, cfg, repos, logger, req.Rows, req.DryRun)
	}
}

// HandleOrdersSubmitCSV handles POST /v1/orders/submit-csv with an uploaded
// Faire CSV export. ?dry_run=true rehearses the run.
func HandleOrdersSubmitCSV(cfg *config.Config, repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := readCSVUpload(c)
		if !ok {
			return
		}
		var dryRun *bool
		if v := c.Query("dry_run"); v != "" {
			b := v == "true" || v == "1"
			dryRun = &b
		}
		submitRows(c, cfg, repos, logger, raw, dryRun)
	}
}

func submitRows(c *gin.Context, cfg *config.Config, repos *repository.Repositories, logger *zap.Logger, raw []domain.RawRow, dryRunOverride *bool) {
	dryRun := cfg.Reconcile.DryRun
	if dryRunOverride != nil {
		dryRun = *dryRunOverride
	}

	client := lightspeed.NewClient(cfg.Lightspeed, cfg.Retry, nil, dryRun, logger)
	pipeline := reconcile.NewPipeline(client, reconcile.Options{
		OutletID:    cfg.Lightspeed.OutletID,
		PageSize:    cfg.Reconcile.PageSize,
		Concurrency: cfg.Reconcile.Concurrency,
		DryRun:      dryRun,
	}, logger)

	report, runErr := pipeline.Run(c.Request.Context(), raw)

	if err := repos.Run.Create(c.Request.Context(), report); err != nil {
		// The run already happened; losing the report row must not turn a
		// submitted consignment into an error response.
		logger.Error("Failed to persist run report", zap.String("run_id", report.ID.String()), zap.Error(err))
	}

	if runErr != nil {
		logger.Error("Reconciliation run aborted",
			zap.String("run_id", report.ID.String()),
			zap.Error(runErr),
		)
		c.JSON(submitErrorStatus(runErr), gin.H{
			"error":  runErr.Error(),
			"report": report,
		})
		return
	}
	c.JSON(http.StatusOK, report)
}

func submitErrorStatus(err error) int {
	var rejected *apperrors.ErrRemoteRejected
	if stderrors.As(err, &rejected) {
		return http.StatusUnprocessableEntity
	}
	var fetch *apperrors.ErrCatalogFetch
	var unavailable *apperrors.ErrRemoteUnavailable
	if stderrors.As(err, &fetch) || stderrors.As(err, &unavailable) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func readCSVUpload(c *gin.Context) ([]domain.RawRow, bool) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing CSV upload in \"file\" form field"})
		return nil, false
	}
	defer file.Close()

	raw, err := reconcile.ReadFaireCSV(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return raw, true
}
