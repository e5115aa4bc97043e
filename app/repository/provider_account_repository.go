package repository

import (
	"context"

	"github.com/smartcity/civicdash/app/models"
	"gorm.io/gorm"
)

type providerAccountRepository struct {
	db *gorm.DB
}

func NewProviderAccountRepository(db *gorm.DB) ProviderAccountRepository {
	return &providerAccountRepository{db: db}
}

func (r *providerAccountRepository) Create(ctx context.Context, account *models.ProviderAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

// GetByProviderUserID resolves an OAuth identity to its link row
func (r *providerAccountRepository) GetByProviderUserID(ctx context.Context, provider, providerUserID string) (*models.ProviderAccount, error) {
	var account models.ProviderAccount
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_user_id = ?", provider, providerUserID).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}
