package loan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"rnrspay/internal/models"
	"rnrspay/internal/repositories"
)

type service struct {
	loans         repositories.LoanRepository
	employees     repositories.EmployeeRepository
	organizations repositories.OrganizationRepository
	log           *logrus.Logger
}

// NewService creates the loan ledger service.
func NewService(
	loans repositories.LoanRepository,
	employees repositories.EmployeeRepository,
	organizations repositories.OrganizationRepository,
	log *logrus.Logger,
) Service {
	if loans == nil {
		panic("loan repository is required")
	}
	if employees == nil {
		panic("employee repository is required")
	}
	if organizations == nil {
		panic("organization repository is required")
	}
	if log == nil {
		log = logrus.New()
	}
	return &service{
		loans:         loans,
		employees:     employees,
		organizations: organizations,
		log:           log,
	}
}

func (s *service) RequestLoan(ctx context.Context, in RequestInput) (*models.Loan, error) {
	employee, err := s.employees.GetByID(ctx, in.EmployeeID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrEmployeeNotFound
		}
		return nil, err
	}

	org, err := s.organizations.GetByID(ctx, employee.OrganizationID)
	if err != nil {
		return nil, err
	}
	if !org.LoanEligible {
		return nil, ErrNotEligible
	}

	if _, err := s.loans.ActiveByEmployee(ctx, in.EmployeeID); err == nil {
		return nil, ErrActiveLoanExists
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	loanType := in.LoanType
	switch loanType {
	case models.LoanTypeWeeklyAdvance, models.LoanTypeSalaryAdvance, models.LoanTypeEmergency:
	default:
		loanType = models.LoanTypeSalaryAdvance
	}

	if !in.Amount.IsPositive() {
		return nil, &ValidationError{Rule: "Loan amount must be greater than zero"}
	}
	ceiling := CeilingFor(loanType, employee.MonthlySalary)
	if in.Amount.GreaterThan(ceiling) {
		return nil, &ValidationError{Rule: fmt.Sprintf(
			"Loan amount exceeds maximum allowed (%s) for %s", ceiling.StringFixed(2), loanType)}
	}

	now := time.Now().UTC()
	l := &models.Loan{
		Code:             generateLoanCode(now),
		EmployeeID:       employee.ID,
		Type:             loanType,
		Amount:           in.Amount,
		AmountPaid:       decimal.Zero,
		RemainingAmount:  in.Amount,
		MonthlyDeduction: employee.MonthlySalary.Mul(monthlyDeductionRate).Round(2),
		Status:           models.LoanStatusPending,
		Purpose:          in.Purpose,
		RequestedWeeks:   in.RequestedWeeks,
		RequestedAt:      now,
	}
	if err := s.loans.Create(ctx, l); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"loan_code":   l.Code,
		"employee_id": l.EmployeeID,
		"type":        l.Type,
		"amount":      l.Amount.String(),
	}).Info("loan requested")
	return l, nil
}

func (s *service) ApproveLoan(ctx context.Context, loanID, approverID uint, approverRole, comments string) (*models.Loan, error) {
	return s.decide(ctx, loanID, approverID, approverRole, comments, models.LoanStatusApproved)
}

func (s *service) RejectLoan(ctx context.Context, loanID, approverID uint, approverRole, comments string) (*models.Loan, error) {
	return s.decide(ctx, loanID, approverID, approverRole, comments, models.LoanStatusRejected)
}

// decide applies the terminal-or-approved transition out of PENDING.
func (s *service) decide(ctx context.Context, loanID, approverID uint, approverRole, comments, next string) (*models.Loan, error) {
	l, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if l.Status != models.LoanStatusPending {
		return nil, &ValidationError{Rule: "Only pending loans can be approved or rejected"}
	}

	l.Status = next
	l.ApproverID = approverID
	l.ApproverRole = approverRole
	l.ApprovalComments = comments
	if next == models.LoanStatusApproved {
		now := time.Now().UTC()
		l.ApprovedAt = &now
	}
	if err := s.loans.Update(ctx, l); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"loan_code": l.Code,
		"status":    l.Status,
		"approver":  approverID,
	}).Info("loan decision recorded")
	return l, nil
}

func (s *service) ActivateLoan(ctx context.Context, loanID uint) (*models.Loan, error) {
	l, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if l.Status != models.LoanStatusApproved {
		return nil, &ValidationError{Rule: "Loan must be approved before activation"}
	}

	// Two loans can sit APPROVED for one employee; only one may go ACTIVE.
	if _, err := s.loans.ActiveByEmployee(ctx, l.EmployeeID); err == nil {
		return nil, ErrActiveLoanExists
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	l.Status = models.LoanStatusActive
	if err := s.loans.Update(ctx, l); err != nil {
		return nil, err
	}
	s.log.WithField("loan_code", l.Code).Info("loan activated")
	return l, nil
}

func (s *service) ApplyRepayment(ctx context.Context, loanID uint, amount decimal.Decimal) (*models.Loan, error) {
	if !amount.IsPositive() {
		return nil, &ValidationError{Rule: "Repayment amount must be greater than zero"}
	}

	var updated *models.Loan
	err := s.loans.ExecuteInTransaction(func(tx repositories.LoanRepository) error {
		l, err := tx.GetByIDForUpdate(ctx, loanID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrLoanNotFound
			}
			return err
		}
		if l.Status != models.LoanStatusActive {
			return &ValidationError{Rule: "Only active loans can accept repayments"}
		}

		l.AmountPaid = l.AmountPaid.Add(amount)
		l.RemainingAmount = l.RemainingAmount.Sub(amount)
		if !l.RemainingAmount.IsPositive() {
			l.RemainingAmount = decimal.Zero
			l.Status = models.LoanStatusCompleted
			now := time.Now().UTC()
			l.CompletedAt = &now
		}
		if err := tx.Update(ctx, l); err != nil {
			return err
		}
		updated = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"loan_code": updated.Code,
		"paid":      amount.String(),
		"remaining": updated.RemainingAmount.String(),
		"status":    updated.Status,
	}).Info("repayment applied")
	return updated, nil
}

func (s *service) PendingForApproval(ctx context.Context, scope Scope) ([]models.Loan, error) {
	return s.loans.Pending(ctx, scope.organizationID())
}

func (s *service) ApprovedLoans(ctx context.Context, scope Scope) ([]models.Loan, error) {
	return s.loans.Approved(ctx, scope.organizationID())
}

func (s *service) ActiveLoanFor(ctx context.Context, scope Scope, employeeID uint) (*models.Loan, error) {
	if err := s.authorizeEmployee(ctx, scope, employeeID); err != nil {
		return nil, err
	}
	l, err := s.loans.ActiveByEmployee(ctx, employeeID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrLoanNotFound
	}
	return l, err
}

func (s *service) HistoryFor(ctx context.Context, scope Scope, employeeID uint) ([]models.Loan, error) {
	if err := s.authorizeEmployee(ctx, scope, employeeID); err != nil {
		return nil, err
	}
	return s.loans.ByEmployee(ctx, employeeID)
}

// authorizeEmployee rejects per-employee reads that fall outside an
// organization caller's own roster. The mismatch reads as not-found so
// foreign employee ids are not confirmed to exist.
func (s *service) authorizeEmployee(ctx context.Context, scope Scope, employeeID uint) error {
	orgID := scope.organizationID()
	if orgID == 0 {
		return nil
	}
	emp, err := s.employees.GetByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrEmployeeNotFound
		}
		return err
	}
	if emp.OrganizationID != orgID {
		return ErrEmployeeNotFound
	}
	return nil
}

func (s *service) getLoan(ctx context.Context, loanID uint) (*models.Loan, error) {
	l, err := s.loans.GetByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrLoanNotFound
		}
		return nil, err
	}
	return l, nil
}

// generateLoanCode builds a time-based code with a random suffix.
func generateLoanCode(t time.Time) string {
	return fmt.Sprintf("LN-%s-%s", t.Format("20060102150405"), strings.ToUpper(uuid.NewString()[:6]))
}
