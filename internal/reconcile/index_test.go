package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lnmn249/faire-lightspeed-lite/internal/domain"
	apperrors "github.com/lnmn249/faire-lightspeed-lite/pkg/errors"
)

type staticCatalog struct {
	entries []domain.CatalogEntry
	err     error
}

func (s *staticCatalog) ListProducts(ctx context.Context, pageSize int) ([]domain.CatalogEntry, error) {
	return s.entries, s.err
}

func TestBuildIndexResolves(t *testing.T) {
	src := &staticCatalog{entries: []domain.CatalogEntry{
		{SupplierCode: "A-1", SKU: "sku-1", ProductID: "p1", SupplierID: "s1"},
		{SupplierCode: "A-2", SKU: "sku-2", ProductID: "p2", SupplierID: "s1"},
	}}

	idx, err := BuildIndex(context.Background(), src, 100, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())

	entry, ok := idx.Resolve("A-1")
	require.True(t, ok)
	assert.Equal(t, "p1", entry.ProductID)
	assert.Equal(t, "sku-1", entry.SKU)

	_, ok = idx.Resolve("A-3")
	assert.False(t, ok)
}

func TestBuildIndexFetchError(t *testing.T) {
	src := &staticCatalog{err: errors.New("boom")}

	_, err := BuildIndex(context.Background(), src, 100, zap.NewNop())
	require.Error(t, err)
	var fetchErr *apperrors.ErrCatalogFetch
	assert.ErrorAs(t, err, &fetchErr)
}

func TestNewCatalogIndexDuplicatesKeepFirst(t *testing.T) {
	idx := NewCatalogIndex([]domain.CatalogEntry{
		{SupplierCode: "DUP", SKU: "sku-first", ProductID: "p1", SupplierID: "s1"},
		{SupplierCode: "DUP", SKU: "sku-second", ProductID: "p2", SupplierID: "s1"},
	}, zap.NewNop())

	require.Equal(t, 1, idx.Len())
	entry, ok := idx.Resolve("DUP")
	require.True(t, ok)
	assert.Equal(t, "p1", entry.ProductID)
}

func TestNewCatalogIndexSkipsEmptyCodes(t *testing.T) {
	idx := NewCatalogIndex([]domain.CatalogEntry{
		{SupplierCode: "", SKU: "sku-1", ProductID: "p1"},
		{SupplierCode: "A", SKU: "sku-2", ProductID: "p2"},
	}, zap.NewNop())

	assert.Equal(t, 1, idx.Len())
}

func TestCatalogIndexEntriesSorted(t *testing.T) {
	idx := NewCatalogIndex([]domain.CatalogEntry{
		{SupplierCode: "B", ProductID: "p2"},
		{SupplierCode: "A", ProductID: "p1"},
		{SupplierCode: "C", ProductID: "p3"},
	}, zap.NewNop())

	entries := idx.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "A", entries[0].SupplierCode)
	assert.Equal(t, "B", entries[1].SupplierCode)
	assert.Equal(t, "C", entries[2].SupplierCode)
}

func TestPartition(t *testing.T) {
	idx := NewCatalogIndex([]domain.CatalogEntry{
		{SupplierCode: "KNOWN", SKU: "sku-k", ProductID: "pk", SupplierID: "sk"},
	}, zap.NewNop())

	rows := []domain.Row{
		{Line: 1, SupplierCode: "KNOWN", Quantity: 1},
		{Line: 2, SupplierCode: "UNKNOWN", Quantity: 2},
		{Line: 3, SupplierCode: "KNOWN", Quantity: 3},
	}

	matched, missing := Partition(rows, idx)
	require.Len(t, matched, 2)
	require.Len(t, missing, 1)

	assert.Equal(t, 1, matched[0].Line)
	assert.Equal(t, 3, matched[1].Line)
	assert.Equal(t, "sku-k", matched[0].CatalogSKU)
	assert.Equal(t, "pk", matched[0].CatalogProductID)
	assert.Equal(t, "sk", matched[0].CatalogSupplierID)
	assert.True(t, matched[0].IsMatched())

	assert.Equal(t, 2, missing[0].Line)
	assert.True(t, missing[0].IsMissing())
}
