package repositories

import (
	"context"
	"errors"
	"fmt"

	"rnrspay/internal/models"

	"gorm.io/gorm"
)

// AccountRepository reads the disbursement account pools.
type AccountRepository interface {
	GetByName(ctx context.Context, name string) (*models.DisbursementAccount, error)
	Create(ctx context.Context, account *models.DisbursementAccount) error
}

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a GORM-backed disbursement account repository.
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) GetByName(ctx context.Context, name string) (*models.DisbursementAccount, error) {
	var account models.DisbursementAccount
	err := r.db.WithContext(ctx).
		Where("name = ? AND active = ?", name, true).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get disbursement account: %w", err)
	}
	return &account, nil
}

func (r *accountRepository) Create(ctx context.Context, account *models.DisbursementAccount) error {
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		return fmt.Errorf("failed to create disbursement account: %w", err)
	}
	return nil
}
