package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// Mandated deduction rates applied to gross salary every period.
var (
	savingsRate   = decimal.NewFromFloat(0.01)
	insuranceRate = decimal.NewFromFloat(0.01)
)

// Config tunes batch execution.
type Config struct {
	// Workers bounds concurrent employee processing; rails rate-limit us.
	Workers int
	// TransferTimeout caps each transfer leg; a timeout is a failed leg.
	TransferTimeout time.Duration
	// MaxRetryAttempts is the ceiling on automatic resubmission of a
	// FAILED payment. Exhausted payments wait for an operator.
	MaxRetryAttempts int
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.TransferTimeout <= 0 {
		c.TransferTimeout = 30 * time.Second
	}
	if c.MaxRetryAttempts <= 0 {
		c.MaxRetryAttempts = 3
	}
	return c
}

// RunSummary reports what one batch execution did.
type RunSummary struct {
	Month     int `json:"month"`
	Year      int `json:"year"`
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}
