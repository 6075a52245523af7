package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RawRow is one loosely-typed record as it arrives from an uploaded Faire
// export (CSV cell strings or JSON values). Only the normalizer consumes it;
// every other component works with typed Rows.
type RawRow map[string]any

// Row is one order line to reconcile against the retail catalog.
type Row struct {
	// Line is the 1-based position of the row in the submitted batch,
	// carried through so errors can point back at the source file.
	Line             int             `json:"line,omitempty"`
	SupplierCode     string          `json:"supplier_code" validate:"required"`
	BrandName        string          `json:"brand_name" validate:"required"`
	ProductName      string          `json:"product_name" validate:"required"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Quantity         int             `json:"quantity" validate:"required,min=1"`
	ExternalOrderRef string          `json:"external_order_ref,omitempty"`

	// Populated once the row is matched against the catalog or its product
	// has been created. A row must carry all three or none of them.
	CatalogSKU        string `json:"catalog_sku,omitempty"`
	CatalogProductID  string `json:"catalog_product_id,omitempty"`
	CatalogSupplierID string `json:"catalog_supplier_id,omitempty"`
}

// IsMatched reports whether the row already references a catalog product.
func (r Row) IsMatched() bool {
	return r.CatalogSKU != "" && r.CatalogProductID != ""
}

// IsMissing reports whether the row carries no catalog reference at all.
func (r Row) IsMissing() bool {
	return r.CatalogSKU == "" && r.CatalogProductID == ""
}

// RowError reports why a single row was rejected or could not be resolved.
type RowError struct {
	Line         int          `json:"line"`
	SupplierCode string       `json:"supplier_code,omitempty"`
	ProductName  string       `json:"product_name,omitempty"`
	Kind         RowErrorKind `json:"kind"`
	Reason       string       `json:"reason"`
}

// CatalogEntry is one product in the remote catalog, keyed by supplier code.
type CatalogEntry struct {
	SupplierCode string `json:"supplier_code"`
	SKU          string `json:"sku"`
	ProductID    string `json:"product_id"`
	SupplierID   string `json:"supplier_id"`
}

// CatalogRefresh records when the persisted catalog snapshot was last pulled
// from the remote platform.
type CatalogRefresh struct {
	RefreshedAt  time.Time `json:"refreshed_at"`
	ProductCount int       `json:"product_count"`
}

// SupplierRef identifies a supplier in the remote catalog.
type SupplierRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// BrandRef identifies a brand in the remote catalog.
type BrandRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProductRef identifies a product in the remote catalog together with the
// SKU the platform assigned to it.
type ProductRef struct {
	ID  string `json:"id"`
	SKU string `json:"sku"`
}

// NewProduct is the payload for creating a product in the remote catalog.
type NewProduct struct {
	Name         string
	SupplierCode string
	SupplierID   string
	BrandID      string
	DefaultCost  decimal.Decimal
}

// ConsignmentLine is one distinct product received into the outlet.
type ConsignmentLine struct {
	ProductID string          `json:"product_id"`
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

// Consignment is the stock-receipt transaction submitted to the remote
// platform at the end of a run.
type Consignment struct {
	OutletID     string            `json:"outlet_id"`
	SupplierID   string            `json:"supplier_id"`
	SupplierName string            `json:"supplier_name"`
	Reference    string            `json:"reference,omitempty"`
	Lines        []ConsignmentLine `json:"lines"`
}

// RunReport summarizes one reconciliation run for the operator.
type RunReport struct {
	ID             uuid.UUID  `json:"id"`
	Status         RunStatus  `json:"status"`
	DryRun         bool       `json:"dry_run"`
	OutletID       string     `json:"outlet_id"`
	TotalRows      int        `json:"total_rows"`
	MatchedCount   int        `json:"matched_count"`
	MissingCount   int        `json:"missing_count"`
	ResolvedCount  int        `json:"resolved_count"`
	Rejected       []RowError `json:"rejected,omitempty"`
	Failed         []RowError `json:"failed,omitempty"`
	ConfirmationID string     `json:"confirmation_id,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     time.Time  `json:"finished_at"`
}

// ReconciliationRun is the persisted form of a run report.
type ReconciliationRun struct {
	ID             uuid.UUID
	Status         RunStatus
	DryRun         bool
	OutletID       string
	TotalRows      int
	MatchedCount   int
	MissingCount   int
	ResolvedCount  int
	RejectedCount  int
	FailedCount    int
	ConfirmationID *string
	StartedAt      time.Time
	FinishedAt     time.Time
	CreatedAt      time.Time
}
