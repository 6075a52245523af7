package lightspeed

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/lnmn249/faire-lightspeed-lite/internal/domain"
)

// pageLinks follows the API 2.0 pagination contract: responses carry an
// absolute links.next URL while more pages remain.
type pageLinks struct {
	Next string `json:"next"`
}

type productsPage struct {
	Data  []productRecord `json:"data"`
	Links *pageLinks      `json:"links"`
}

// productRecord is the wire shape of one catalog product. Older payloads
// embed the supplier as an object; newer ones carry supplier_id flat.
type productRecord struct {
	ID           string `json:"id"`
	SKU          string `json:"sku"`
	SupplierCode string `json:"supplier_code"`
	SupplierID   string `json:"supplier_id"`
	Supplier     *struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"supplier"`
}

func (p productRecord) supplierID() string {
	if p.SupplierID != "" {
		return p.SupplierID
	}
	if p.Supplier != nil {
		return p.Supplier.ID
	}
	return ""
}

// ListProducts pulls the full product catalog, following links.next until
// exhausted. pageSize is an upper bound per call; for typical catalog sizes a
// single page covers everything.
func (c *Client) ListProducts(ctx context.Context, pageSize int) ([]domain.CatalogEntry, error) {
	path := fmt.Sprintf("/products?page_size=%d&deleted=false", pageSize)

	var entries []domain.CatalogEntry
	pages := 0
	for path != "" {
		body, err := c.get(ctx, "list products", path)
		if err != nil {
			return nil, err
		}
		var page productsPage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("list products: failed to parse response: %w", err)
		}
		pages++
		for _, rec := range page.Data {
			entries = append(entries, domain.CatalogEntry{
				SupplierCode: rec.SupplierCode,
				SKU:          rec.SKU,
				ProductID:    rec.ID,
				SupplierID:   rec.supplierID(),
			})
		}
		path = ""
		if page.Links != nil {
			path = page.Links.Next
		}
	}

	c.logger.Info("Pulled products from catalog",
		zap.Int("count", len(entries)),
		zap.Int("pages", pages),
		zap.Int("page_size", pageSize),
	)
	return entries, nil
}

type namedRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type namedPage struct {
	Data  []namedRecord `json:"data"`
	Links *pageLinks    `json:"links"`
}

func (c *Client) listNamed(ctx context.Context, op, resource string, pageSize int) ([]namedRecord, error) {
	path := fmt.Sprintf("/%s?page_size=%d", resource, pageSize)

	var out []namedRecord
	for path != "" {
		body, err := c.get(ctx, op, path)
		if err != nil {
			return nil, err
		}
		var page namedPage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("%s: failed to parse response: %w", op, err)
		}
		out = append(out, page.Data...)
		path = ""
		if page.Links != nil {
			path = page.Links.Next
		}
	}
	return out, nil
}

// ListSuppliers pulls all suppliers.
func (c *Client) ListSuppliers(ctx context.Context, pageSize int) ([]domain.SupplierRef, error) {
	records, err := c.listNamed(ctx, "list suppliers", "suppliers", pageSize)
	if err != nil {
		return nil, err
	}
	out := make([]domain.SupplierRef, 0, len(records))
	for _, r := range records {
		out = append(out, domain.SupplierRef{ID: r.ID, Name: r.Name})
	}
	return out, nil
}

// ListBrands pulls all brands.
func (c *Client) ListBrands(ctx context.Context, pageSize int) ([]domain.BrandRef, error) {
	records, err := c.listNamed(ctx, "list brands", "brands", pageSize)
	if err != nil {
		return nil, err
	}
	out := make([]domain.BrandRef, 0, len(records))
	for _, r := range records {
		out = append(out, domain.BrandRef{ID: r.ID, Name: r.Name})
	}
	return out, nil
}
