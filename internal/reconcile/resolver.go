package reconcile

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lnmn249/faire-lightspeed-lite/internal/domain"
	apperrors "github.com/lnmn249/faire-lightspeed-lite/pkg/errors"
)

// EntityAPI is the slice of the remote platform the resolver needs to create
// suppliers, brands and products that the catalog is missing.
type EntityAPI interface {
	FindSupplierByName(ctx context.Context, name string) (*domain.SupplierRef, error)
	CreateSupplier(ctx context.Context, name, description string) (*domain.SupplierRef, error)
	FindBrandByName(ctx context.Context, name string) (*domain.BrandRef, error)
	CreateBrand(ctx context.Context, name string) (*domain.BrandRef, error)
	FindProductBySupplierCode(ctx context.Context, supplierID, supplierCode string) (*domain.ProductRef, error)
	CreateProduct(ctx context.Context, p domain.NewProduct) (*domain.ProductRef, error)
}

type resolvedSupplier struct {
	supplierID string
	brandID    string
}

// EntityResolver materializes missing suppliers, brands and products in the
// remote catalog, bounded-concurrency, one logical create per distinct key no
// matter how many rows share it.
type EntityResolver struct {
	api         EntityAPI
	concurrency int
	logger      *zap.Logger

	supplierLocks *keyedLocks
	productLocks  *keyedLocks

	mu        sync.Mutex
	suppliers map[string]resolvedSupplier // key: lowercased brand name
	products  map[string]domain.ProductRef
}

// NewEntityResolver creates a resolver running at most concurrency remote
// resolutions in parallel.
func NewEntityResolver(api EntityAPI, concurrency int, logger *zap.Logger) *EntityResolver {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EntityResolver{
		api:           api,
		concurrency:   concurrency,
		logger:        logger,
		supplierLocks: newKeyedLocks(),
		productLocks:  newKeyedLocks(),
		suppliers:     make(map[string]resolvedSupplier),
		products:      make(map[string]domain.ProductRef),
	}
}

// ResolveMissing ensures every row's supplier and product exist remotely and
// returns the rows annotated with their catalog references. Failures are
// per-row: one row failing to resolve never aborts the others. Resolved rows
// come back in input order; failed rows are reported separately.
func (r *EntityResolver) ResolveMissing(ctx context.Context, rows []domain.Row) ([]domain.Row, []domain.RowError) {
	results := make([]*domain.Row, len(rows))
	failures := make([]*domain.RowError, len(rows))

	var g errgroup.Group
	g.SetLimit(r.concurrency)

	for i := range rows {
		if ctx.Err() != nil {
			// Stop scheduling new remote work; in-flight rows finish on
			// their own cancellation path.
			for j := i; j < len(rows); j++ {
				failures[j] = cancelledError(rows[j])
			}
			break
		}
		i := i
		g.Go(func() error {
			row := rows[i]
			resolved, err := r.resolveRow(ctx, row)
			if err != nil {
				failures[i] = resolutionError(row, err)
				r.logger.Warn("Row failed entity resolution",
					zap.Int("line", row.Line),
					zap.String("supplier_code", row.SupplierCode),
					zap.Error(err),
				)
				return nil
			}
			results[i] = resolved
			return nil
		})
	}
	// Workers report failures through the failures slice, never as errors.
	_ = g.Wait()

	resolved := make([]domain.Row, 0, len(rows))
	var failed []domain.RowError
	for i := range rows {
		if results[i] != nil {
			resolved = append(resolved, *results[i])
		} else if failures[i] != nil {
			failed = append(failed, *failures[i])
		}
	}
	return resolved, failed
}

func (r *EntityResolver) resolveRow(ctx context.Context, row domain.Row) (*domain.Row, error) {
	sup, err := r.ensureSupplier(ctx, row.BrandName)
	if err != nil {
		return nil, &apperrors.ErrCreation{
			Entity:       "supplier",
			SupplierCode: row.SupplierCode,
			ProductName:  row.ProductName,
			Cause:        err,
		}
	}

	prod, err := r.ensureProduct(ctx, sup, row)
	if err != nil {
		return nil, &apperrors.ErrCreation{
			Entity:       "product",
			SupplierCode: row.SupplierCode,
			ProductName:  row.ProductName,
			Cause:        err,
		}
	}

	row.CatalogSKU = prod.SKU
	row.CatalogProductID = prod.ID
	row.CatalogSupplierID = sup.supplierID
	return &row, nil
}

// ensureSupplier resolves (or creates) the supplier and brand for a brand
// name. Rows sharing a brand name serialize on a per-name lock so the pair is
// resolved exactly once per run. The brand is best-effort: a brand failure is
// logged and the product is created without one, matching how operators use
// brands as display metadata rather than structural data.
func (r *EntityResolver) ensureSupplier(ctx context.Context, brandName string) (resolvedSupplier, error) {
	key := strings.ToLower(strings.TrimSpace(brandName))

	unlock := r.supplierLocks.lock(key)
	defer unlock()

	r.mu.Lock()
	cached, ok := r.suppliers[key]
	r.mu.Unlock()
	if ok {
		return cached, nil
	}

	sup, err := r.api.FindSupplierByName(ctx, brandName)
	if err != nil {
		return resolvedSupplier{}, err
	}
	if sup == nil {
		sup, err = r.api.CreateSupplier(ctx, brandName, "")
		if err != nil {
			return resolvedSupplier{}, err
		}
	}

	resolved := resolvedSupplier{supplierID: sup.ID}
	brand, err := r.api.FindBrandByName(ctx, brandName)
	if err == nil && brand == nil {
		brand, err = r.api.CreateBrand(ctx, brandName)
	}
	if err != nil {
		r.logger.Warn("Brand resolution failed, continuing without brand",
			zap.String("brand_name", brandName),
			zap.Error(err),
		)
	} else if brand != nil {
		resolved.brandID = brand.ID
	}

	r.mu.Lock()
	r.suppliers[key] = resolved
	r.mu.Unlock()
	return resolved, nil
}

// ensureProduct resolves (or creates) the product for a supplier code. Rows
// sharing a code serialize on a per-code lock, so a batch with the same code
// twice creates the product once and both rows reference it.
func (r *EntityResolver) ensureProduct(ctx context.Context, sup resolvedSupplier, row domain.Row) (domain.ProductRef, error) {
	key := row.SupplierCode

	unlock := r.productLocks.lock(key)
	defer unlock()

	r.mu.Lock()
	cached, ok := r.products[key]
	r.mu.Unlock()
	if ok {
		return cached, nil
	}

	prod, err := r.api.FindProductBySupplierCode(ctx, sup.supplierID, row.SupplierCode)
	if err != nil {
		return domain.ProductRef{}, err
	}
	if prod == nil {
		prod, err = r.api.CreateProduct(ctx, domain.NewProduct{
			Name:         row.ProductName,
			SupplierCode: row.SupplierCode,
			SupplierID:   sup.supplierID,
			BrandID:      sup.brandID,
			DefaultCost:  row.UnitPrice,
		})
		if err != nil {
			return domain.ProductRef{}, err
		}
	}

	r.mu.Lock()
	r.products[key] = *prod
	r.mu.Unlock()
	return *prod, nil
}

func resolutionError(row domain.Row, err error) *domain.RowError {
	kind := domain.RowErrorCreationFailed
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		kind = domain.RowErrorCancelled
	}
	return &domain.RowError{
		Line:         row.Line,
		SupplierCode: row.SupplierCode,
		ProductName:  row.ProductName,
		Kind:         kind,
		Reason:       err.Error(),
	}
}

func cancelledError(row domain.Row) *domain.RowError {
	return &domain.RowError{
		Line:         row.Line,
		SupplierCode: row.SupplierCode,
		ProductName:  row.ProductName,
		Kind:         domain.RowErrorCancelled,
		Reason:       "run cancelled before resolution",
	}
}

// keyedLocks hands out one mutex per key so unrelated keys resolve in
// parallel while duplicates serialize.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedLocks) lock(key string) (unlock func()) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
