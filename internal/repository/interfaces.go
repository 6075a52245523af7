package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/lnmn249/faire-lightspeed-lite/internal/domain"
)

// CatalogSnapshotRepository persists the last catalog pull so previews can be
// served without hitting the remote platform.
type CatalogSnapshotRepository interface {
	ReplaceAll(ctx context.Context, entries []domain.CatalogEntry) error
	List(ctx context.Context) ([]domain.CatalogEntry, error)
	LastRefresh(ctx context.Context) (*domain.CatalogRefresh, error)
}

// RunRepository persists reconciliation run reports and their row errors.
type RunRepository interface {
	Create(ctx context.Context, report *domain.RunReport) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.RunReport, error)
	List(ctx context.Context, limit int) ([]domain.ReconciliationRun, error)
}

// Repositories holds all repository implementations
type Repositories struct {
	CatalogSnapshot CatalogSnapshotRepository
	Run             RunRepository
}
