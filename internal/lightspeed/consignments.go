package lightspeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/lnmn249/faire-lightspeed-lite/internal/domain"
)

// DryRunConfirmationID is the synthetic confirmation returned when a dry-run
// reaches the submission step.
const DryRunConfirmationID = "dry_consignment_id"

// CreateConsignment submits a stock-receipt transaction: it creates the
// SUPPLIER consignment shell, then adds one line per distinct product. The
// platform has no single-call variant, so a line failure after the shell was
// created aborts with the shell left OPEN for the operator to inspect.
func (c *Client) CreateConsignment(ctx context.Context, cons *domain.Consignment) (string, error) {
	if c.dryRun {
		c.logger.Info("[DRY RUN] Would submit consignment",
			zap.String("outlet_id", cons.OutletID),
			zap.String("supplier_id", cons.SupplierID),
			zap.Int("lines", len(cons.Lines)),
		)
		return DryRunConfirmationID, nil
	}

	shell := map[string]any{
		"name":             fmt.Sprintf("Faire Stock Order - %s", supplierLabel(cons)),
		"outlet_id":        cons.OutletID,
		"type":             "SUPPLIER",
		"status":           "OPEN",
		"supplier_id":      cons.SupplierID,
		"supplier_invoice": cons.Reference,
	}
	body, err := c.post(ctx, "create consignment", "/consignments", shell)
	if err != nil {
		return "", err
	}
	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("create consignment: failed to parse response: %w", err)
	}
	if resp.Data.ID == "" {
		return "", fmt.Errorf("create consignment: response carried no id")
	}

	linePath := fmt.Sprintf("/consignments/%s/products", url.PathEscape(resp.Data.ID))
	for _, line := range cons.Lines {
		payload := map[string]any{
			"product_id": line.ProductID,
			"count":      line.Quantity,
			// The platform wants a JSON number; decimal would marshal quoted.
			"cost": line.UnitCost.InexactFloat64(),
		}
		if _, err := c.post(ctx, "add consignment product", linePath, payload); err != nil {
			return "", fmt.Errorf("consignment %s: failed to add product %s: %w", resp.Data.ID, line.ProductID, err)
		}
	}

	c.logger.Info("Submitted consignment",
		zap.String("consignment_id", resp.Data.ID),
		zap.String("outlet_id", cons.OutletID),
		zap.Int("lines", len(cons.Lines)),
	)
	return resp.Data.ID, nil
}

func supplierLabel(cons *domain.Consignment) string {
	if cons.SupplierName != "" {
		return cons.SupplierName
	}
	return cons.SupplierID
}
