package reconcile

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/lnmn249/faire-lightspeed-lite/internal/domain"
	apperrors "github.com/lnmn249/faire-lightspeed-lite/pkg/errors"
)

// CatalogLister pulls the full product catalog from the retail platform.
type CatalogLister interface {
	ListProducts(ctx context.Context, pageSize int) ([]domain.CatalogEntry, error)
}

// CatalogIndex is an in-memory lookup from supplier code to catalog entry,
// built once per run so matching is O(1) per row regardless of catalog size.
type CatalogIndex struct {
	entries map[string]domain.CatalogEntry
}

// BuildIndex pulls the catalog and indexes it by supplier code. Products
// without a supplier code are skipped; duplicate codes keep the first entry
// seen, which is stable across runs because the platform pages in a fixed
// order.
func BuildIndex(ctx context.Context, src CatalogLister, pageSize int, logger *zap.Logger) (*CatalogIndex, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	entries, err := src.ListProducts(ctx, pageSize)
	if err != nil {
		return nil, &apperrors.ErrCatalogFetch{Cause: err}
	}
	return NewCatalogIndex(entries, logger), nil
}

// NewCatalogIndex indexes already-fetched catalog entries, used when serving
// a run from a persisted snapshot instead of a live pull.
func NewCatalogIndex(entries []domain.CatalogEntry, logger *zap.Logger) *CatalogIndex {
	if logger == nil {
		logger = zap.NewNop()
	}
	idx := &CatalogIndex{entries: make(map[string]domain.CatalogEntry, len(entries))}
	skipped := 0
	for _, e := range entries {
		if e.SupplierCode == "" {
			skipped++
			continue
		}
		if prior, ok := idx.entries[e.SupplierCode]; ok {
			logger.Warn("Duplicate supplier code in catalog, keeping first entry",
				zap.String("supplier_code", e.SupplierCode),
				zap.String("kept_product_id", prior.ProductID),
				zap.String("ignored_product_id", e.ProductID),
			)
			continue
		}
		idx.entries[e.SupplierCode] = e
	}
	if skipped > 0 {
		logger.Debug("Skipped catalog products without supplier code", zap.Int("count", skipped))
	}
	return idx
}

// Resolve looks up a supplier code in the index.
func (ix *CatalogIndex) Resolve(supplierCode string) (domain.CatalogEntry, bool) {
	e, ok := ix.entries[supplierCode]
	return e, ok
}

// Len reports the number of indexed supplier codes.
func (ix *CatalogIndex) Len() int { return len(ix.entries) }

// Entries returns the indexed catalog sorted by supplier code, for snapshot
// persistence.
func (ix *CatalogIndex) Entries() []domain.CatalogEntry {
	out := make([]domain.CatalogEntry, 0, len(ix.entries))
	for _, e := range ix.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SupplierCode < out[j].SupplierCode })
	return out
}
