package errors

import (
	"fmt"
	"strings"
)

// ErrValidation is returned when an imported row fails normalization.
// It carries enough context for the operator to fix the source file.
type ErrValidation struct {
	Line         int
	SupplierCode string
	Field        string
	Reason       string
}

func (e *ErrValidation) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "row %d", e.Line)
	if e.SupplierCode != "" {
		fmt.Fprintf(&b, " (%s)", e.SupplierCode)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ": field %q", e.Field)
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	return b.String()
}

// ErrNotFound is returned when a stored resource does not exist.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrCatalogFetch is returned when the remote catalog could not be pulled,
// so no index can be built and the run must abort.
type ErrCatalogFetch struct {
	Cause error
}

func (e *ErrCatalogFetch) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("catalog fetch failed: %v", e.Cause)
	}
	return "catalog fetch failed"
}

func (e *ErrCatalogFetch) Unwrap() error { return e.Cause }

// ErrRemoteUnavailable is returned when a remote call exhausted its retry
// budget (network errors, 5xx, rate limits, or repeated auth failures after
// a credential refresh). Callers should back off and retry later.
type ErrRemoteUnavailable struct {
	Op         string
	Attempts   int
	LastStatus int
	Cause      error
}

func (e *ErrRemoteUnavailable) Error() string {
	msg := fmt.Sprintf("%s: remote unavailable after %d attempts", e.Op, e.Attempts)
	if e.LastStatus != 0 {
		msg = fmt.Sprintf("%s (last status %d)", msg, e.LastStatus)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *ErrRemoteUnavailable) Unwrap() error { return e.Cause }

// ErrRemoteRejected is returned when the remote platform rejected a call with
// a non-retryable 4xx (malformed payload, business-rule violation). Retrying
// will not help; the payload must be fixed.
type ErrRemoteRejected struct {
	Op     string
	Status int
	Body   string
}

func (e *ErrRemoteRejected) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: remote rejected with status %d: %s", e.Op, e.Status, e.Body)
	}
	return fmt.Sprintf("%s: remote rejected with status %d", e.Op, e.Status)
}

// ErrCreation is returned when entity resolution failed for a single row.
// The batch continues; the row is reported and excluded from the consignment.
type ErrCreation struct {
	Entity       string // "supplier", "brand" or "product"
	SupplierCode string
	ProductName  string
	Cause        error
}

func (e *ErrCreation) Error() string {
	return fmt.Sprintf("failed to resolve %s for %s (%s): %v", e.Entity, e.SupplierCode, e.ProductName, e.Cause)
}

func (e *ErrCreation) Unwrap() error { return e.Cause }

// ErrIncompleteResolution is returned by the consignment builder when a row
// reaches it without a product ID. This indicates a caller bug upstream; the
// builder re-validates rather than trusting callers.
type ErrIncompleteResolution struct {
	SupplierCode string
	ProductName  string
}

func (e *ErrIncompleteResolution) Error() string {
	return fmt.Sprintf("row %s (%s) has no catalog product ID; resolution incomplete", e.SupplierCode, e.ProductName)
}
