package reconcile

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/lnmn249/faire-lightspeed-lite/internal/domain"
	apperrors "github.com/lnmn249/faire-lightspeed-lite/pkg/errors"
)

var validate = validator.New()

// Normalize coerces raw uploaded records into typed rows. Invalid rows are
// collected, never fatal: a bad line in an upload must not block the rest of
// the batch. Returned rows keep their input order; Line on each row and error
// is the 1-based position in the batch.
func Normalize(raw []domain.RawRow) ([]domain.Row, []domain.RowError) {
	rows := make([]domain.Row, 0, len(raw))
	var rejected []domain.RowError

	for i, rec := range raw {
		line := i + 1
		row, errs := normalizeOne(line, rec)
		if len(errs) > 0 {
			rejected = append(rejected, errs...)
			continue
		}
		rows = append(rows, row)
	}
	return rows, rejected
}

func normalizeOne(line int, rec domain.RawRow) (domain.Row, []domain.RowError) {
	row := domain.Row{
		Line:             line,
		SupplierCode:     stringField(rec, "supplier_code"),
		BrandName:        stringField(rec, "brand_name"),
		ProductName:      stringField(rec, "product_name"),
		ExternalOrderRef: stringField(rec, "external_order_ref"),
	}

	var errs []domain.RowError
	seen := make(map[string]bool)
	reject := func(field, reason string) {
		if field != "" && seen[field] {
			return
		}
		seen[field] = true
		errs = append(errs, rowError(line, row, field, reason))
	}

	if qty, err := intField(rec, "quantity"); err != nil {
		reject("quantity", err.Error())
	} else {
		row.Quantity = qty
	}

	if price, err := decimalField(rec, "unit_price"); err != nil {
		reject("unit_price", err.Error())
	} else if price.IsNegative() {
		reject("unit_price", "must not be negative")
	} else {
		row.UnitPrice = price
	}

	if err := validate.Struct(row); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				reject(jsonFieldName(fe.Field()), validationReason(fe))
			}
		} else {
			reject("", err.Error())
		}
	}
	return row, errs
}

func rowError(line int, row domain.Row, field, reason string) domain.RowError {
	verr := &apperrors.ErrValidation{
		Line:         line,
		SupplierCode: row.SupplierCode,
		Field:        field,
		Reason:       reason,
	}
	return domain.RowError{
		Line:         line,
		SupplierCode: row.SupplierCode,
		ProductName:  row.ProductName,
		Kind:         domain.RowErrorInvalid,
		Reason:       verr.Error(),
	}
}

// jsonFieldName maps Row struct field names onto their wire names so error
// reports match the column names operators see.
func jsonFieldName(structField string) string {
	switch structField {
	case "SupplierCode":
		return "supplier_code"
	case "BrandName":
		return "brand_name"
	case "ProductName":
		return "product_name"
	case "UnitPrice":
		return "unit_price"
	case "Quantity":
		return "quantity"
	default:
		return structField
	}
}

func validationReason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

func stringField(rec domain.RawRow, key string) string {
	v, ok := rec[key]
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		// JSON numbers arrive as float64; codes like 12345 must not
		// render as 12345.000000.
		if s == math.Trunc(s) {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", s))
	}
}

func intField(rec domain.RawRow, key string) (int, error) {
	v, ok := rec[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("is required")
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("must be a whole number")
		}
		return int(n), nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, fmt.Errorf("is required")
		}
		parsed, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("%q is not a valid integer", s)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("unsupported value %v", v)
	}
}

func decimalField(rec domain.RawRow, key string) (decimal.Decimal, error) {
	v, ok := rec[key]
	if !ok || v == nil {
		return decimal.Zero, fmt.Errorf("is required")
	}
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case string:
		s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(n), "$"))
		if s == "" {
			return decimal.Zero, fmt.Errorf("is required")
		}
		parsed, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%q is not a valid amount", s)
		}
		return parsed, nil
	case decimal.Decimal:
		return n, nil
	default:
		return decimal.Zero, fmt.Errorf("unsupported value %v", v)
	}
}
