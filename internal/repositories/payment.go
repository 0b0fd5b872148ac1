package repositories

import (
	"context"
	"errors"
	"fmt"

	"rnrspay/internal/models"

	"gorm.io/gorm"
)

// PaymentRepository persists payroll payment records.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	Update(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id uint) (*models.Payment, error)
	CompletedExists(ctx context.Context, employeeID uint, month, year int) (bool, error)
	ByEmployee(ctx context.Context, employeeID uint, limit int) ([]models.Payment, error)
	ByReference(ctx context.Context, reference string) (*models.Payment, error)
	BySalaryCode(ctx context.Context, salaryCode string) (*models.Payment, error)
	FailedBelowRetryLimit(ctx context.Context, maxAttempts int) ([]models.Payment, error)
}

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a GORM-backed payment repository.
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *paymentRepository) Update(ctx context.Context, payment *models.Payment) error {
	if err := r.db.WithContext(ctx).Save(payment).Error; err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	return nil
}

func (r *paymentRepository) GetByID(ctx context.Context, id uint) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).First(&payment, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &payment, nil
}

func (r *paymentRepository) CompletedExists(ctx context.Context, employeeID uint, month, year int) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("employee_id = ? AND payment_month = ? AND payment_year = ? AND status = ?",
			employeeID, month, year, models.PaymentStatusCompleted).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check completed payment: %w", err)
	}
	return count > 0, nil
}

func (r *paymentRepository) ByEmployee(ctx context.Context, employeeID uint, limit int) ([]models.Payment, error) {
	q := r.db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		Order("payment_year DESC, payment_month DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var payments []models.Payment
	if err := q.Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments for employee: %w", err)
	}
	return payments, nil
}

func (r *paymentRepository) ByReference(ctx context.Context, reference string) (*models.Payment, error) {
	return r.one(ctx, "reference = ?", reference)
}

func (r *paymentRepository) BySalaryCode(ctx context.Context, salaryCode string) (*models.Payment, error) {
	return r.one(ctx, "salary_code = ?", salaryCode)
}

func (r *paymentRepository) one(ctx context.Context, query string, arg any) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).Preload("Employee").Where(query, arg).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &payment, nil
}

func (r *paymentRepository) FailedBelowRetryLimit(ctx context.Context, maxAttempts int) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Preload("Employee").
		Where("status = ? AND retry_count < ?", models.PaymentStatusFailed, maxAttempts).
		Order("created_at ASC").
		Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list failed payments: %w", err)
	}
	return payments, nil
}
