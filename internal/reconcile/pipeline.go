package reconcile

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lnmn249/faire-lightspeed-lite/internal/domain"
)

// RemoteAPI is everything the pipeline needs from the retail platform.
type RemoteAPI interface {
	CatalogLister
	EntityAPI
	ConsignmentAPI
}

// Options configure one reconciliation run.
type Options struct {
	OutletID    string
	PageSize    int
	Concurrency int
	DryRun      bool
}

// Pipeline runs the full reconciliation: normalize, index, match, resolve,
// build, submit. It always produces a report; a returned error means the run
// aborted before a consignment could be submitted.
type Pipeline struct {
	remote RemoteAPI
	opts   Options
	logger *zap.Logger
}

func NewPipeline(remote RemoteAPI, opts Options, logger *zap.Logger) *Pipeline {
	if opts.PageSize < 1 {
		opts.PageSize = 5000
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{remote: remote, opts: opts, logger: logger}
}

// Preview runs normalization and matching only, with no writes to the remote
// platform, so operators can inspect what a submission would do.
func (p *Pipeline) Preview(ctx context.Context, raw []domain.RawRow) (matched, missing []domain.Row, rejected []domain.RowError, err error) {
	rows, rejected := Normalize(raw)
	index, err := BuildIndex(ctx, p.remote, p.opts.PageSize, p.logger)
	if err != nil {
		return nil, nil, rejected, err
	}
	matched, missing = Partition(rows, index)
	return matched, missing, rejected, nil
}

// Run executes a full reconciliation over the uploaded rows.
func (p *Pipeline) Run(ctx context.Context, raw []domain.RawRow) (*domain.RunReport, error) {
	report := &domain.RunReport{
		ID:        uuid.New(),
		DryRun:    p.opts.DryRun,
		OutletID:  p.opts.OutletID,
		TotalRows: len(raw),
		StartedAt: time.Now().UTC(),
	}
	finish := func(status domain.RunStatus) {
		report.Status = status
		report.FinishedAt = time.Now().UTC()
	}

	rows, rejected := Normalize(raw)
	report.Rejected = rejected
	if len(rows) == 0 {
		p.logger.Warn("No valid rows in batch", zap.Int("total", len(raw)), zap.Int("rejected", len(rejected)))
		finish(domain.RunStatusFailed)
		return report, nil
	}

	index, err := BuildIndex(ctx, p.remote, p.opts.PageSize, p.logger)
	if err != nil {
		finish(domain.RunStatusFailed)
		return report, err
	}
	p.logger.Info("Catalog index built", zap.Int("products", index.Len()))

	matched, missing := Partition(rows, index)
	report.MatchedCount = len(matched)
	report.MissingCount = len(missing)
	p.logger.Info("Rows partitioned",
		zap.Int("matched", len(matched)),
		zap.Int("missing", len(missing)),
		zap.Int("rejected", len(rejected)),
	)

	var resolved []domain.Row
	if len(missing) > 0 {
		resolver := NewEntityResolver(p.remote, p.opts.Concurrency, p.logger)
		var failed []domain.RowError
		resolved, failed = resolver.ResolveMissing(ctx, missing)
		report.ResolvedCount = len(resolved)
		report.Failed = failed
	}

	if len(matched)+len(resolved) == 0 {
		p.logger.Warn("No rows survived resolution, nothing to submit")
		finish(domain.RunStatusFailed)
		return report, nil
	}

	builder := NewConsignmentBuilder(p.remote, p.logger)
	cons, err := builder.Build(p.opts.OutletID, matched, resolved)
	if err != nil {
		finish(domain.RunStatusFailed)
		return report, err
	}
	confirmation, err := builder.Submit(ctx, cons)
	if err != nil {
		finish(domain.RunStatusFailed)
		return report, err
	}
	report.ConfirmationID = confirmation

	if len(report.Rejected) == 0 && len(report.Failed) == 0 {
		finish(domain.RunStatusCompleted)
	} else {
		finish(domain.RunStatusPartial)
	}
	p.logger.Info("Reconciliation run finished",
		zap.String("run_id", report.ID.String()),
		zap.String("status", string(report.Status)),
		zap.String("confirmation_id", confirmation),
		zap.Bool("dry_run", report.DryRun),
	)
	return report, nil
}
