package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write loses a race or violates a unique key.
	ErrConflict = errors.New("conflict")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Pipeline error kinds. Concrete errors wrap one of these so callers can
// branch with errors.Is.
var (
	ErrStoreUnavailable      = errors.New("graph store unavailable")
	ErrExtractionFailed      = errors.New("extraction failed")
	ErrInductionFailed       = errors.New("schema induction failed")
	ErrMergeInputMissing     = errors.New("merge input missing")
	ErrPreconditionViolation = errors.New("precondition violation")
)

// Kind names the pipeline error kind of err, or "" when none matches.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, ErrExtractionFailed):
		return "extraction_failed"
	case errors.Is(err, ErrInductionFailed):
		return "induction_failed"
	case errors.Is(err, ErrMergeInputMissing):
		return "merge_input_missing"
	case errors.Is(err, ErrPreconditionViolation):
		return "precondition_violation"
	default:
		return ""
	}
}
