package repositories

import (
	"context"
	"errors"
	"fmt"

	"rnrspay/internal/models"

	"gorm.io/gorm"
)

// EmployeeRepository reads employees. Their lifecycle is owned by
// onboarding, so the core never writes here.
type EmployeeRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Employee, error)
	Active(ctx context.Context) ([]models.Employee, error)
}

type employeeRepository struct {
	db *gorm.DB
}

// NewEmployeeRepository creates a GORM-backed employee repository.
func NewEmployeeRepository(db *gorm.DB) EmployeeRepository {
	return &employeeRepository{db: db}
}

func (r *employeeRepository) GetByID(ctx context.Context, id uint) (*models.Employee, error) {
	var employee models.Employee
	err := r.db.WithContext(ctx).First(&employee, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	return &employee, nil
}

func (r *employeeRepository) Active(ctx context.Context) ([]models.Employee, error) {
	var employees []models.Employee
	err := r.db.WithContext(ctx).
		Where("status = ?", models.EmploymentActive).
		Order("id ASC").
		Find(&employees).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active employees: %w", err)
	}
	return employees, nil
}
