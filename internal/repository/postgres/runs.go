package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lnmn249/faire-lightspeed-lite/internal/domain"
	"github.com/lnmn249/faire-lightspeed-lite/pkg/errors"
)

type runRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRunRepository creates a new reconciliation run repository
func NewRunRepository(db *sql.DB, logger *zap.Logger) *runRepository {
	return &runRepository{
		db:     db,
		logger: logger,
	}
}

// Create persists a finished run report together with its row errors.
func (r *runRepository) Create(ctx context.Context, report *domain.RunReport) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin run transaction", zap.Error(err))
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO reconciliation_runs (
			id, status, dry_run, outlet_id,
			total_rows, matched_count, missing_count, resolved_count,
			rejected_count, failed_count, confirmation_id,
			started_at, finished_at, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	var confirmation *string
	if report.ConfirmationID != "" {
		confirmation = &report.ConfirmationID
	}

	_, err = tx.ExecContext(ctx, query,
		report.ID,
		string(report.Status),
		report.DryRun,
		report.OutletID,
		report.TotalRows,
		report.MatchedCount,
		report.MissingCount,
		report.ResolvedCount,
		len(report.Rejected),
		len(report.Failed),
		confirmation,
		report.StartedAt,
		report.FinishedAt,
		time.Now().UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to insert run", zap.String("run_id", report.ID.String()), zap.Error(err))
		return err
	}

	insertErr := `
		INSERT INTO run_row_errors (run_id, line, supplier_code, product_name, kind, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, re := range append(append([]domain.RowError{}, report.Rejected...), report.Failed...) {
		_, err := tx.ExecContext(ctx, insertErr,
			report.ID, re.Line, re.SupplierCode, re.ProductName, string(re.Kind), re.Reason,
		)
		if err != nil {
			r.logger.Error("Failed to insert run row error", zap.String("run_id", report.ID.String()), zap.Error(err))
			return err
		}
	}

	return tx.Commit()
}

func (r *runRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.RunReport, error) {
	query := `
		SELECT id, status, dry_run, outlet_id,
			total_rows, matched_count, missing_count, resolved_count,
			confirmation_id, started_at, finished_at
		FROM reconciliation_runs
		WHERE id = $1
	`

	var (
		report       domain.RunReport
		status       string
		confirmation sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&report.ID,
		&status,
		&report.DryRun,
		&report.OutletID,
		&report.TotalRows,
		&report.MatchedCount,
		&report.MissingCount,
		&report.ResolvedCount,
		&confirmation,
		&report.StartedAt,
		&report.FinishedAt,
	)
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "run", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get run", zap.String("run_id", id.String()), zap.Error(err))
		return nil, err
	}
	report.Status = domain.RunStatus(status)
	if confirmation.Valid {
		report.ConfirmationID = confirmation.String
	}

	errQuery := `
		SELECT line, supplier_code, product_name, kind, reason
		FROM run_row_errors
		WHERE run_id = $1
		ORDER BY line ASC
	`
	rows, err := r.db.QueryContext(ctx, errQuery, id)
	if err != nil {
		r.logger.Error("Failed to get run row errors", zap.String("run_id", id.String()), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			re   domain.RowError
			kind string
		)
		if err := rows.Scan(&re.Line, &re.SupplierCode, &re.ProductName, &kind, &re.Reason); err != nil {
			return nil, err
		}
		re.Kind = domain.RowErrorKind(kind)
		if re.Kind == domain.RowErrorInvalid {
			report.Rejected = append(report.Rejected, re)
		} else {
			report.Failed = append(report.Failed, re)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &report, nil
}

func (r *runRepository) List(ctx context.Context, limit int) ([]domain.ReconciliationRun, error) {
	if limit < 1 {
		limit = 50
	}
	query := `
		SELECT id, status, dry_run, outlet_id,
			total_rows, matched_count, missing_count, resolved_count,
			rejected_count, failed_count, confirmation_id,
			started_at, finished_at, created_at
		FROM reconciliation_runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		r.logger.Error("Failed to list runs", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var runs []domain.ReconciliationRun
	for rows.Next() {
		var (
			run    domain.ReconciliationRun
			status string
		)
		err := rows.Scan(
			&run.ID,
			&status,
			&run.DryRun,
			&run.OutletID,
			&run.TotalRows,
			&run.MatchedCount,
			&run.MissingCount,
			&run.ResolvedCount,
			&run.RejectedCount,
			&run.FailedCount,
			&run.ConfirmationID,
			&run.StartedAt,
			&run.FinishedAt,
			&run.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		run.Status = domain.RunStatus(status)
		runs = append(runs, run)
	}

	return runs, rows.Err()
}
