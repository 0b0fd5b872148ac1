package payroll

import "errors"

// Service errors
var (
	ErrRunInProgress   = errors.New("payroll run already in progress for this period")
	ErrInvalidPeriod   = errors.New("invalid payroll period")
	ErrPaymentNotFound = errors.New("payment not found")
)
