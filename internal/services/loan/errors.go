package loan

import "errors"

// Service errors
var (
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrLoanNotFound     = errors.New("loan not found")
	ErrNotEligible      = errors.New("organization is not eligible for loans")
	ErrActiveLoanExists = errors.New("employee already has an active loan")
)

// ValidationError carries the violated rule so API callers see the
// specific failure rather than a generic one.
type ValidationError struct {
	Rule string
}

func (e *ValidationError) Error() string { return e.Rule }

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
