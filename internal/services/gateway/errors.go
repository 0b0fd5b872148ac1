package gateway

import "errors"

// Gateway errors
var (
	ErrTransferFailed = errors.New("transfer failed")
	ErrInvalidAmount  = errors.New("transfer amount must be greater than zero")
)
