package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lnmn249/faire-lightspeed-lite/internal/domain"
)

// fakeRemote is the full remote platform for pipeline tests.
type fakeRemote struct {
	*fakeEntityAPI

	catalog    []domain.CatalogEntry
	catalogErr error

	submitted    *domain.Consignment
	submitErr    error
	confirmation string
}

func newFakeRemote(catalog []domain.CatalogEntry) *fakeRemote {
	return &fakeRemote{
		fakeEntityAPI: newFakeEntityAPI(),
		catalog:       catalog,
		confirmation:  "c_900",
	}
}

func (f *fakeRemote) ListProducts(ctx context.Context, pageSize int) ([]domain.CatalogEntry, error) {
	return f.catalog, f.catalogErr
}

func (f *fakeRemote) CreateConsignment(ctx context.Context, cons *domain.Consignment) (string, error) {
	f.submitted = cons
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return f.confirmation, nil
}

func rawRow(code, brand, name, qty, price string) domain.RawRow {
	return domain.RawRow{
		"supplier_code": code,
		"brand_name":    brand,
		"product_name":  name,
		"quantity":      qty,
		"unit_price":    price,
	}
}

func testOptions() Options {
	return Options{OutletID: "outlet-1", PageSize: 100, Concurrency: 2}
}

func TestRunCompleted(t *testing.T) {
	remote := newFakeRemote([]domain.CatalogEntry{
		{SupplierCode: "FAIRE-ABC", SKU: "sku-abc", ProductID: "p_abc", SupplierID: "s1"},
	})
	p := NewPipeline(remote, testOptions(), zap.NewNop())

	report, err := p.Run(context.Background(), []domain.RawRow{
		rawRow("FAIRE-ABC", "Acme", "Taper", "2", "12.50"),
		rawRow("FAIRE-XYZ", "Acme", "Pillar", "1", "8.00"),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.RunStatusCompleted, report.Status)
	assert.Equal(t, 2, report.TotalRows)
	assert.Equal(t, 1, report.MatchedCount)
	assert.Equal(t, 1, report.MissingCount)
	assert.Equal(t, 1, report.ResolvedCount)
	assert.Empty(t, report.Rejected)
	assert.Empty(t, report.Failed)
	assert.Equal(t, "c_900", report.ConfirmationID)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))

	// The missing row created its supplier and product, then both rows
	// landed in one consignment.
	assert.Equal(t, 1, remote.createSupplierCalls)
	assert.Equal(t, 1, remote.createProductCalls)
	require.NotNil(t, remote.submitted)
	assert.Equal(t, "outlet-1", remote.submitted.OutletID)
	require.Len(t, remote.submitted.Lines, 2)
	assert.Equal(t, "p_abc", remote.submitted.Lines[0].ProductID)
	assert.True(t, remote.submitted.Lines[0].UnitCost.Equal(decimal.RequireFromString("12.50")))
}

func TestRunPartialOnRejectedRows(t *testing.T) {
	remote := newFakeRemote([]domain.CatalogEntry{
		{SupplierCode: "FAIRE-ABC", SKU: "sku-abc", ProductID: "p_abc", SupplierID: "s1"},
	})
	p := NewPipeline(remote, testOptions(), zap.NewNop())

	report, err := p.Run(context.Background(), []domain.RawRow{
		rawRow("FAIRE-ABC", "Acme", "Taper", "2", "12.50"),
		rawRow("", "Acme", "Broken", "1", "8.00"),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.RunStatusPartial, report.Status)
	require.Len(t, report.Rejected, 1)
	assert.Equal(t, 2, report.Rejected[0].Line)
	assert.Equal(t, "c_900", report.ConfirmationID)
	require.NotNil(t, remote.submitted)
	assert.Len(t, remote.submitted.Lines, 1)
}

func TestRunPartialOnResolutionFailure(t *testing.T) {
	remote := newFakeRemote(nil)
	remote.failProducts["BAD"] = errors.New("boom")
	p := NewPipeline(remote, testOptions(), zap.NewNop())

	report, err := p.Run(context.Background(), []domain.RawRow{
		rawRow("GOOD", "Acme", "Widget", "1", "5.00"),
		rawRow("BAD", "Acme", "Widget", "1", "5.00"),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.RunStatusPartial, report.Status)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, domain.RowErrorCreationFailed, report.Failed[0].Kind)
	assert.Equal(t, 1, report.ResolvedCount)
	require.NotNil(t, remote.submitted)
	assert.Len(t, remote.submitted.Lines, 1)
}

func TestRunFailedOnCatalogFetch(t *testing.T) {
	remote := newFakeRemote(nil)
	remote.catalogErr = errors.New("remote down")
	p := NewPipeline(remote, testOptions(), zap.NewNop())

	report, err := p.Run(context.Background(), []domain.RawRow{
		rawRow("A", "Acme", "Widget", "1", "5.00"),
	})
	require.Error(t, err)
	assert.Equal(t, domain.RunStatusFailed, report.Status)
	assert.Empty(t, report.ConfirmationID)
	assert.Nil(t, remote.submitted)
}

func TestRunFailedWhenAllRowsRejected(t *testing.T) {
	remote := newFakeRemote(nil)
	p := NewPipeline(remote, testOptions(), zap.NewNop())

	report, err := p.Run(context.Background(), []domain.RawRow{
		rawRow("", "", "", "0", "-1"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusFailed, report.Status)
	assert.NotEmpty(t, report.Rejected)
	assert.Nil(t, remote.submitted)
}

func TestRunFailedWhenNothingResolves(t *testing.T) {
	remote := newFakeRemote(nil)
	remote.failProducts["ONLY"] = errors.New("boom")
	p := NewPipeline(remote, testOptions(), zap.NewNop())

	report, err := p.Run(context.Background(), []domain.RawRow{
		rawRow("ONLY", "Acme", "Widget", "1", "5.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusFailed, report.Status)
	assert.Len(t, report.Failed, 1)
	assert.Nil(t, remote.submitted)
}

func TestRunFailedOnSubmitError(t *testing.T) {
	remote := newFakeRemote([]domain.CatalogEntry{
		{SupplierCode: "A", SKU: "sku-a", ProductID: "pa", SupplierID: "s1"},
	})
	remote.submitErr = errors.New("consignment rejected")
	p := NewPipeline(remote, testOptions(), zap.NewNop())

	report, err := p.Run(context.Background(), []domain.RawRow{
		rawRow("A", "Acme", "Widget", "1", "5.00"),
	})
	require.Error(t, err)
	assert.Equal(t, domain.RunStatusFailed, report.Status)
	assert.Empty(t, report.ConfirmationID)
}

func TestRunMixedMatchedAndCreatedLines(t *testing.T) {
	remote := newFakeRemote([]domain.CatalogEntry{
		{SupplierCode: "FAIRE-ABC", SKU: "LS-1", ProductID: "P1", SupplierID: "S1"},
	})
	p := NewPipeline(remote, testOptions(), zap.NewNop())

	report, err := p.Run(context.Background(), []domain.RawRow{
		rawRow("FAIRE-ABC", "Acme", "Taper", "6", "2.25"),
		rawRow("FAIRE-XYZ", "Acme", "Pillar", "10", "3.80"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, report.Status)

	require.NotNil(t, remote.submitted)
	require.Len(t, remote.submitted.Lines, 2)

	assert.Equal(t, "P1", remote.submitted.Lines[0].ProductID)
	assert.Equal(t, "LS-1", remote.submitted.Lines[0].SKU)
	assert.Equal(t, 6, remote.submitted.Lines[0].Quantity)
	assert.True(t, remote.submitted.Lines[0].UnitCost.Equal(decimal.RequireFromString("2.25")))

	created := remote.products["FAIRE-XYZ"]
	require.NotNil(t, created)
	assert.Equal(t, created.ID, remote.submitted.Lines[1].ProductID)
	assert.Equal(t, 10, remote.submitted.Lines[1].Quantity)
	assert.True(t, remote.submitted.Lines[1].UnitCost.Equal(decimal.RequireFromString("3.80")))
}

func TestPreviewDoesNotWrite(t *testing.T) {
	remote := newFakeRemote([]domain.CatalogEntry{
		{SupplierCode: "A", SKU: "sku-a", ProductID: "pa", SupplierID: "s1"},
	})
	p := NewPipeline(remote, testOptions(), zap.NewNop())

	matched, missing, rejected, err := p.Preview(context.Background(), []domain.RawRow{
		rawRow("A", "Acme", "Widget", "1", "5.00"),
		rawRow("B", "Acme", "Widget", "1", "5.00"),
		rawRow("", "Acme", "Widget", "1", "5.00"),
	})
	require.NoError(t, err)
	assert.Len(t, matched, 1)
	assert.Len(t, missing, 1)
	assert.Len(t, rejected, 1)

	assert.Zero(t, remote.createSupplierCalls)
	assert.Zero(t, remote.createProductCalls)
	assert.Nil(t, remote.submitted)
}
