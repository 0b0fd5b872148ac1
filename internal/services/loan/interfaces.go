package loan

import (
	"context"

	"github.com/shopspring/decimal"

	"rnrspay/internal/models"
)

// Service owns the loan lifecycle: request, approval, activation,
// repayment bookkeeping and role-scoped queries.
type Service interface {
	RequestLoan(ctx context.Context, in RequestInput) (*models.Loan, error)
	ApproveLoan(ctx context.Context, loanID, approverID uint, approverRole, comments string) (*models.Loan, error)
	RejectLoan(ctx context.Context, loanID, approverID uint, approverRole, comments string) (*models.Loan, error)
	ActivateLoan(ctx context.Context, loanID uint) (*models.Loan, error)

	// ApplyRepayment reduces the remaining balance, clamping at zero and
	// completing the loan when it is paid off. Atomic per loan.
	ApplyRepayment(ctx context.Context, loanID uint, amount decimal.Decimal) (*models.Loan, error)

	PendingForApproval(ctx context.Context, scope Scope) ([]models.Loan, error)
	ApprovedLoans(ctx context.Context, scope Scope) ([]models.Loan, error)
	ActiveLoanFor(ctx context.Context, scope Scope, employeeID uint) (*models.Loan, error)
	HistoryFor(ctx context.Context, scope Scope, employeeID uint) ([]models.Loan, error)
}
