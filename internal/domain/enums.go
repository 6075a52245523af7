package domain

// RunStatus represents the outcome of a reconciliation run.
type RunStatus string

const (
	// COMPLETED - every valid row made it into the consignment
	RunStatusCompleted RunStatus = "COMPLETED"
	// PARTIAL - the consignment was submitted, but some rows were rejected
	// or failed resolution and were excluded
	RunStatusPartial RunStatus = "PARTIAL"
	// FAILED - nothing was submitted (index build failed, submission failed,
	// or no row survived validation/resolution)
	RunStatusFailed RunStatus = "FAILED"
)

// IsValid checks if the run status is valid
func (s RunStatus) IsValid() bool {
	switch s {
	case RunStatusCompleted, RunStatusPartial, RunStatusFailed:
		return true
	default:
		return false
	}
}

// RowErrorKind classifies why a row dropped out of a run.
type RowErrorKind string

const (
	// INVALID - the row failed normalization; the operator must fix the source
	RowErrorInvalid RowErrorKind = "INVALID"
	// CREATION_FAILED - supplier/brand/product resolution failed remotely
	RowErrorCreationFailed RowErrorKind = "CREATION_FAILED"
	// CANCELLED - the run was cancelled before this row finished resolving
	RowErrorCancelled RowErrorKind = "CANCELLED"
)
