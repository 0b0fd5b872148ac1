package repositories

import (
	"context"
	"errors"
	"fmt"

	"rnrspay/internal/models"

	"gorm.io/gorm"
)

// OrganizationRepository reads organizations for eligibility checks.
type OrganizationRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Organization, error)
}

type organizationRepository struct {
	db *gorm.DB
}

// NewOrganizationRepository creates a GORM-backed organization repository.
func NewOrganizationRepository(db *gorm.DB) OrganizationRepository {
	return &organizationRepository{db: db}
}

func (r *organizationRepository) GetByID(ctx context.Context, id uint) (*models.Organization, error) {
	var org models.Organization
	err := r.db.WithContext(ctx).First(&org, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return &org, nil
}
