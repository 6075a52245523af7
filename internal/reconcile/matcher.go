package reconcile

import "github.com/lnmn249/faire-lightspeed-lite/internal/domain"

// Partition splits rows into those already present in the catalog and those
// needing entity resolution. Matched rows come back annotated with the
// catalog SKU, product ID and supplier ID. Input order is preserved within
// each partition and every input row lands in exactly one of them.
func Partition(rows []domain.Row, index *CatalogIndex) (matched, missing []domain.Row) {
	matched = make([]domain.Row, 0, len(rows))
	missing = make([]domain.Row, 0)
	for _, row := range rows {
		entry, ok := index.Resolve(row.SupplierCode)
		if !ok {
			missing = append(missing, row)
			continue
		}
		row.CatalogSKU = entry.SKU
		row.CatalogProductID = entry.ProductID
		row.CatalogSupplierID = entry.SupplierID
		matched = append(matched, row)
	}
	return matched, missing
}
