package payroll

import (
	"context"

	"github.com/shopspring/decimal"

	"rnrspay/internal/models"
	"rnrspay/internal/services/loan"
)

// LoanLedger is the slice of the loan service the batch consumes. The
// batch is a system actor, so lookups pass an unscoped loan.Scope.
type LoanLedger interface {
	ActiveLoanFor(ctx context.Context, scope loan.Scope, employeeID uint) (*models.Loan, error)
	ApplyRepayment(ctx context.Context, loanID uint, amount decimal.Decimal) (*models.Loan, error)
}

// RunLocker guards against overlapping batch executions for the same
// period.
type RunLocker interface {
	Acquire(ctx context.Context, month, year int) (bool, error)
	Release(ctx context.Context, month, year int) error
}

// Service runs the monthly disbursement batch and serves payment reads.
type Service interface {
	// Run processes every active employee for (month, year). Individual
	// transfer failures are recorded on the payment and do not abort the
	// run; store failures do.
	Run(ctx context.Context, month, year int) (*RunSummary, error)

	// RetryFailed resubmits FAILED payments that still have attempts
	// left.
	RetryFailed(ctx context.Context) (*RunSummary, error)

	PaymentsFor(ctx context.Context, employeeID uint, limit int) ([]models.Payment, error)
	ByReference(ctx context.Context, reference string) (*models.Payment, error)
	BySalaryCode(ctx context.Context, salaryCode string) (*models.Payment, error)
}
