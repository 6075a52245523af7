package reconcile

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/lnmn249/faire-lightspeed-lite/internal/domain"
)

// Faire export column headers mapped onto the canonical row field names the
// normalizer consumes.
var faireColumns = map[string]string{
	"SKU":             "supplier_code",
	"Order Number":    "external_order_ref",
	"Brand Name":      "brand_name",
	"Product Name":    "product_name",
	"Quantity":        "quantity",
	"Wholesale Price": "unit_price",
}

// requiredColumns must all be present in the header row; the order reference
// column is optional on older exports.
var requiredColumns = []string{"SKU", "Brand Name", "Product Name", "Quantity", "Wholesale Price"}

// ReadFaireCSV parses a Faire order export into raw rows for normalization.
// Cell values stay untyped strings; coercion happens in Normalize so that CSV
// and JSON uploads go through the same validation path.
func ReadFaireCSV(r io.Reader) ([]domain.RawRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	// Faire exports occasionally pad trailing columns.
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("csv: file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("csv: failed to read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	colIndex := make(map[string]int, len(header))
	for i, name := range header {
		colIndex[strings.TrimSpace(name)] = i
	}
	var missing []string
	for _, name := range requiredColumns {
		if _, ok := colIndex[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("csv: missing required columns: %s", strings.Join(missing, ", "))
	}

	var rows []domain.RawRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: failed to read record: %w", err)
		}
		if isBlankRecord(record) {
			continue
		}
		row := make(domain.RawRow, len(faireColumns))
		for col, field := range faireColumns {
			idx, ok := colIndex[col]
			if !ok || idx >= len(record) {
				continue
			}
			row[field] = record[idx]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func isBlankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
