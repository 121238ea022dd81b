package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Account stores the OAuth identity and tokens of one known user.
// At most one row has IsActive set.
type Account struct {
	ID             string `gorm:"primaryKey"` // UUID, assigned on insert
	Email          string `gorm:"uniqueIndex;not null"`
	AccessToken    string
	RefreshToken   string
	ExpirationDate string // "2006-01-02 15:04:05.000" UTC
	IsActive       bool   `gorm:"not null;default:false;index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// BeforeCreate assigns the store-generated identifier.
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}
