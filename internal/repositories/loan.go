package repositories

import (
	"context"
	"errors"
	"fmt"

	"rnrspay/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LoanRepository persists loans and their lifecycle state. Queries that
// take an organizationID of zero are unscoped (staff callers).
type LoanRepository interface {
	Create(ctx context.Context, loan *models.Loan) error
	GetByID(ctx context.Context, id uint) (*models.Loan, error)
	GetByIDForUpdate(ctx context.Context, id uint) (*models.Loan, error)
	Update(ctx context.Context, loan *models.Loan) error
	ActiveByEmployee(ctx context.Context, employeeID uint) (*models.Loan, error)
	Pending(ctx context.Context, organizationID uint) ([]models.Loan, error)
	Approved(ctx context.Context, organizationID uint) ([]models.Loan, error)
	ByEmployee(ctx context.Context, employeeID uint) ([]models.Loan, error)
	ExecuteInTransaction(fn func(tx LoanRepository) error) error
}

type loanRepository struct {
	db *gorm.DB
}

// NewLoanRepository creates a GORM-backed loan repository.
func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *models.Loan) error {
	if err := r.db.WithContext(ctx).Create(loan).Error; err != nil {
		return fmt.Errorf("failed to create loan: %w", err)
	}
	return nil
}

func (r *loanRepository) GetByID(ctx context.Context, id uint) (*models.Loan, error) {
	var loan models.Loan
	err := r.db.WithContext(ctx).Preload("Employee").First(&loan, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}
	return &loan, nil
}

// GetByIDForUpdate takes a row lock; only meaningful inside
// ExecuteInTransaction.
func (r *loanRepository) GetByIDForUpdate(ctx context.Context, id uint) (*models.Loan, error) {
	var loan models.Loan
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&loan, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock loan: %w", err)
	}
	return &loan, nil
}

func (r *loanRepository) Update(ctx context.Context, loan *models.Loan) error {
	if err := r.db.WithContext(ctx).Save(loan).Error; err != nil {
		return fmt.Errorf("failed to update loan: %w", err)
	}
	return nil
}

func (r *loanRepository) ActiveByEmployee(ctx context.Context, employeeID uint) (*models.Loan, error) {
	var loan models.Loan
	err := r.db.WithContext(ctx).
		Where("employee_id = ? AND status = ?", employeeID, models.LoanStatusActive).
		First(&loan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active loan: %w", err)
	}
	return &loan, nil
}

func (r *loanRepository) Pending(ctx context.Context, organizationID uint) ([]models.Loan, error) {
	return r.byStatus(ctx, models.LoanStatusPending, organizationID, "loans.requested_at ASC")
}

func (r *loanRepository) Approved(ctx context.Context, organizationID uint) ([]models.Loan, error) {
	return r.byStatus(ctx, models.LoanStatusApproved, organizationID, "loans.approved_at DESC")
}

func (r *loanRepository) byStatus(ctx context.Context, status string, organizationID uint, order string) ([]models.Loan, error) {
	q := r.db.WithContext(ctx).
		Preload("Employee").
		Where("loans.status = ?", status).
		Order(order)
	if organizationID != 0 {
		q = q.Joins("JOIN employees ON employees.id = loans.employee_id").
			Where("employees.organization_id = ?", organizationID)
	}
	var loans []models.Loan
	if err := q.Find(&loans).Error; err != nil {
		return nil, fmt.Errorf("failed to list %s loans: %w", status, err)
	}
	return loans, nil
}

func (r *loanRepository) ByEmployee(ctx context.Context, employeeID uint) ([]models.Loan, error) {
	var loans []models.Loan
	err := r.db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		Order("requested_at DESC").
		Find(&loans).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list loans for employee: %w", err)
	}
	return loans, nil
}

// ExecuteInTransaction runs fn against a transactional copy of the
// repository. Repayments go through here so the row lock and the status
// transition commit together.
func (r *loanRepository) ExecuteInTransaction(fn func(tx LoanRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&loanRepository{db: tx})
	})
}
