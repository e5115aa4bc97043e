package models

import (
	"time"

	"gorm.io/gorm"
)

// ProviderAccount links an external OAuth identity to a profile
type ProviderAccount struct {
	ID             string    `gorm:"primaryKey;type:char(36)" json:"id"`
	ProfileID      string    `gorm:"type:char(36);index" json:"profile_id"`
	Provider       string    `gorm:"index:provider_uid,unique;type:varchar(50)" json:"provider"`
	ProviderUserID string    `gorm:"index:provider_uid,unique;type:varchar(191)" json:"provider_user_id"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (a *ProviderAccount) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = NewID()
	}
	return nil
}
