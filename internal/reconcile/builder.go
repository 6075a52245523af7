package reconcile

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lnmn249/faire-lightspeed-lite/internal/domain"
	apperrors "github.com/lnmn249/faire-lightspeed-lite/pkg/errors"
)

// ConsignmentAPI is the slice of the remote platform that submits the final
// stock receipt.
type ConsignmentAPI interface {
	CreateConsignment(ctx context.Context, cons *domain.Consignment) (string, error)
}

// ConsignmentBuilder folds fully-resolved rows into one consignment and
// submits it.
type ConsignmentBuilder struct {
	api    ConsignmentAPI
	logger *zap.Logger
}

func NewConsignmentBuilder(api ConsignmentAPI, logger *zap.Logger) *ConsignmentBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsignmentBuilder{api: api, logger: logger}
}

// Build merges matched and resolved rows into one consignment for the outlet.
// Rows sharing a product ID collapse into a single line with summed quantity;
// line order follows first occurrence in the input. Every row is re-validated
// here: a row without both a SKU and a product ID indicates an upstream bug
// and fails the build rather than producing a short receipt.
func (b *ConsignmentBuilder) Build(outletID string, matched, resolved []domain.Row) (*domain.Consignment, error) {
	rows := make([]domain.Row, 0, len(matched)+len(resolved))
	rows = append(rows, matched...)
	rows = append(rows, resolved...)
	if len(rows) == 0 {
		return nil, fmt.Errorf("consignment has no rows to receive")
	}

	cons := &domain.Consignment{OutletID: outletID}
	lineIdx := make(map[string]int, len(rows))

	for _, row := range rows {
		if row.CatalogSKU == "" || row.CatalogProductID == "" {
			return nil, &apperrors.ErrIncompleteResolution{
				SupplierCode: row.SupplierCode,
				ProductName:  row.ProductName,
			}
		}
		if cons.SupplierID == "" {
			cons.SupplierID = row.CatalogSupplierID
			cons.SupplierName = row.BrandName
		} else if row.CatalogSupplierID != cons.SupplierID {
			// One receipt per run; the platform attributes it to a single
			// supplier, so mixed batches keep the first.
			b.logger.Warn("Rows span multiple suppliers, consignment keeps the first",
				zap.String("kept_supplier_id", cons.SupplierID),
				zap.String("other_supplier_id", row.CatalogSupplierID),
				zap.String("supplier_code", row.SupplierCode),
			)
		}
		if cons.Reference == "" {
			cons.Reference = row.ExternalOrderRef
		}

		if i, ok := lineIdx[row.CatalogProductID]; ok {
			line := &cons.Lines[i]
			line.Quantity += row.Quantity
			if !line.UnitCost.Equal(row.UnitPrice) {
				b.logger.Warn("Duplicate product with differing unit cost, keeping first",
					zap.String("product_id", row.CatalogProductID),
					zap.String("kept_cost", line.UnitCost.String()),
					zap.String("other_cost", row.UnitPrice.String()),
				)
			}
			continue
		}
		cons.Lines = append(cons.Lines, domain.ConsignmentLine{
			ProductID: row.CatalogProductID,
			SKU:       row.CatalogSKU,
			Quantity:  row.Quantity,
			UnitCost:  row.UnitPrice,
		})
		lineIdx[row.CatalogProductID] = len(cons.Lines) - 1
	}
	return cons, nil
}

// Submit sends the consignment to the remote platform and returns its
// confirmation identifier.
func (b *ConsignmentBuilder) Submit(ctx context.Context, cons *domain.Consignment) (string, error) {
	confirmation, err := b.api.CreateConsignment(ctx, cons)
	if err != nil {
		return "", err
	}
	b.logger.Info("Consignment submitted",
		zap.String("confirmation_id", confirmation),
		zap.String("outlet_id", cons.OutletID),
		zap.Int("lines", len(cons.Lines)),
	)
	return confirmation, nil
}
