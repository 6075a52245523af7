package postgres

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/lnmn249/faire-lightspeed-lite/internal/domain"
)

type catalogSnapshotRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCatalogSnapshotRepository creates a new catalog snapshot repository
func NewCatalogSnapshotRepository(db *sql.DB, logger *zap.Logger) *catalogSnapshotRepository {
	return &catalogSnapshotRepository{
		db:     db,
		logger: logger,
	}
}

// ReplaceAll swaps the stored snapshot for the given entries in one
// transaction and stamps the refresh time.
func (r *catalogSnapshotRepository) ReplaceAll(ctx context.Context, entries []domain.CatalogEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin snapshot transaction", zap.Error(err))
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM catalog_snapshot`); err != nil {
		r.logger.Error("Failed to clear catalog snapshot", zap.Error(err))
		return err
	}

	insert := `
		INSERT INTO catalog_snapshot (supplier_code, sku, product_id, supplier_id)
		VALUES ($1, $2, $3, $4)
	`
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, insert, e.SupplierCode, e.SKU, e.ProductID, e.SupplierID); err != nil {
			r.logger.Error("Failed to insert catalog entry",
				zap.String("supplier_code", e.SupplierCode),
				zap.Error(err),
			)
			return err
		}
	}

	stamp := `
		INSERT INTO catalog_refresh (id, refreshed_at, product_count)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET
			refreshed_at = EXCLUDED.refreshed_at,
			product_count = EXCLUDED.product_count
	`
	if _, err := tx.ExecContext(ctx, stamp, time.Now().UTC(), len(entries)); err != nil {
		r.logger.Error("Failed to stamp catalog refresh", zap.Error(err))
		return err
	}

	return tx.Commit()
}

func (r *catalogSnapshotRepository) List(ctx context.Context) ([]domain.CatalogEntry, error) {
	query := `
		SELECT supplier_code, sku, product_id, supplier_id
		FROM catalog_snapshot
		ORDER BY supplier_code ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list catalog snapshot", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var entries []domain.CatalogEntry
	for rows.Next() {
		var e domain.CatalogEntry
		if err := rows.Scan(&e.SupplierCode, &e.SKU, &e.ProductID, &e.SupplierID); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// LastRefresh returns the most recent refresh stamp, or nil when the snapshot
// has never been pulled.
func (r *catalogSnapshotRepository) LastRefresh(ctx context.Context) (*domain.CatalogRefresh, error) {
	query := `
		SELECT refreshed_at, product_count
		FROM catalog_refresh
		WHERE id = 1
	`

	var refresh domain.CatalogRefresh
	err := r.db.QueryRowContext(ctx, query).Scan(&refresh.RefreshedAt, &refresh.ProductCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get last catalog refresh", zap.Error(err))
		return nil, err
	}

	return &refresh, nil
}
