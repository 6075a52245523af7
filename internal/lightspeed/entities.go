package lightspeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/lnmn249/faire-lightspeed-lite/internal/domain"
)

// lookupPageSize is deliberately large so name/code lookups resolve in one
// call for typical account sizes.
const lookupPageSize = 5000

// FindSupplierByName looks up a supplier by display name. Name comparison is
// trimmed and case-insensitive, matching how the platform's own UI dedupes
// suppliers. Returns (nil, nil) when absent.
func (c *Client) FindSupplierByName(ctx context.Context, name string) (*domain.SupplierRef, error) {
	suppliers, err := c.ListSuppliers(ctx, lookupPageSize)
	if err != nil {
		return nil, err
	}
	want := strings.ToLower(strings.TrimSpace(name))
	for _, s := range suppliers {
		if strings.ToLower(strings.TrimSpace(s.Name)) == want {
			found := s
			return &found, nil
		}
	}
	return nil, nil
}

// CreateSupplier creates a supplier. In dry-run mode it returns a synthetic
// identifier without touching the platform.
func (c *Client) CreateSupplier(ctx context.Context, name, description string) (*domain.SupplierRef, error) {
	if description == "" {
		description = name
	}
	if c.dryRun {
		c.logger.Info("[DRY RUN] Would create supplier", zap.String("name", name))
		return &domain.SupplierRef{ID: "dry_supplier_" + name, Name: name}, nil
	}

	payload := map[string]string{"name": name, "description": description}
	body, err := c.post(ctx, "create supplier", "/suppliers", payload)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Data domain.SupplierRef `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("create supplier: failed to parse response: %w", err)
	}
	if resp.Data.ID == "" {
		return nil, fmt.Errorf("create supplier: response carried no id")
	}
	c.logger.Info("Created supplier", zap.String("name", name), zap.String("supplier_id", resp.Data.ID))
	return &resp.Data, nil
}

// FindBrandByName looks up a brand by name. Returns (nil, nil) when absent.
func (c *Client) FindBrandByName(ctx context.Context, name string) (*domain.BrandRef, error) {
	brands, err := c.ListBrands(ctx, lookupPageSize)
	if err != nil {
		return nil, err
	}
	want := strings.ToLower(strings.TrimSpace(name))
	for _, b := range brands {
		if strings.ToLower(strings.TrimSpace(b.Name)) == want {
			found := b
			return &found, nil
		}
	}
	return nil, nil
}

// CreateBrand creates a brand.
func (c *Client) CreateBrand(ctx context.Context, name string) (*domain.BrandRef, error) {
	if c.dryRun {
		c.logger.Info("[DRY RUN] Would create brand", zap.String("name", name))
		return &domain.BrandRef{ID: "dry_brand_" + name, Name: name}, nil
	}

	payload := map[string]string{"name": name}
	body, err := c.post(ctx, "create brand", "/brands", payload)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Data domain.BrandRef `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("create brand: failed to parse response: %w", err)
	}
	c.logger.Info("Created brand", zap.String("name", name), zap.String("brand_id", resp.Data.ID))
	return &resp.Data, nil
}

// FindProductBySupplierCode looks up a product under a supplier by its
// supplier code (the key the source order data carries). Exact match only.
// Returns (nil, nil) when absent.
func (c *Client) FindProductBySupplierCode(ctx context.Context, supplierID, supplierCode string) (*domain.ProductRef, error) {
	q := url.Values{}
	q.Set("type", "products")
	q.Set("supplier_id", supplierID)
	q.Set("supplier_code", supplierCode)
	q.Set("page_size", fmt.Sprintf("%d", lookupPageSize))

	body, err := c.get(ctx, "find product", "/search?"+q.Encode())
	if err != nil {
		return nil, err
	}
	var resp struct {
		Data []struct {
			ID           string `json:"id"`
			SKU          string `json:"sku"`
			SupplierCode string `json:"supplier_code"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("find product: failed to parse response: %w", err)
	}
	for _, p := range resp.Data {
		if p.SupplierCode == supplierCode {
			return &domain.ProductRef{ID: p.ID, SKU: p.SKU}, nil
		}
	}
	return nil, nil
}

// getProduct fetches a single product by id.
func (c *Client) getProduct(ctx context.Context, productID string) (*domain.ProductRef, error) {
	body, err := c.get(ctx, "get product", "/products/"+url.PathEscape(productID))
	if err != nil {
		return nil, err
	}
	var resp struct {
		Data domain.ProductRef `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("get product: failed to parse response: %w", err)
	}
	return &resp.Data, nil
}

// CreateProduct creates a product under a supplier and returns the assigned
// identifiers. In dry-run mode it returns synthetic ids keyed by the
// supplier code so the rest of the rehearsal stays traceable.
func (c *Client) CreateProduct(ctx context.Context, p domain.NewProduct) (*domain.ProductRef, error) {
	if c.dryRun {
		c.logger.Info("[DRY RUN] Would create product",
			zap.String("name", p.Name),
			zap.String("supplier_code", p.SupplierCode),
		)
		return &domain.ProductRef{
			ID:  "dry_product_" + p.SupplierCode,
			SKU: "dry_sku_" + p.SupplierCode,
		}, nil
	}

	payload := map[string]any{
		"name":          p.Name,
		"supplier_code": p.SupplierCode,
		"supplier_id":   p.SupplierID,
		"type":          "standard",
		"default_cost":  p.DefaultCost.InexactFloat64(),
	}
	if p.BrandID != "" {
		payload["brand_id"] = p.BrandID
	}

	body, err := c.post(ctx, "create product", "/products", payload)
	if err != nil {
		return nil, err
	}

	// The platform answers either {"data": {"id": ..., "sku": ...}} or,
	// on some endpoint versions, {"data": ["<id>"]}.
	var objResp struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &objResp); err != nil {
		return nil, fmt.Errorf("create product: failed to parse response: %w", err)
	}

	var ref domain.ProductRef
	if err := json.Unmarshal(objResp.Data, &ref); err != nil || ref.ID == "" {
		var ids []string
		if err := json.Unmarshal(objResp.Data, &ids); err == nil && len(ids) == 1 {
			ref = domain.ProductRef{ID: ids[0]}
		}
	}
	if ref.ID == "" {
		return nil, fmt.Errorf("create product: response carried no id")
	}
	if ref.SKU == "" {
		// The id-list response shape omits the assigned SKU; fetch it so
		// resolved rows never carry a product id without one.
		fetched, err := c.getProduct(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		ref.SKU = fetched.SKU
	}
	c.logger.Info("Created product",
		zap.String("name", p.Name),
		zap.String("supplier_code", p.SupplierCode),
		zap.String("product_id", ref.ID),
	)
	return &ref, nil
}
