package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pysugar/quickmeeting/internal/db/models"
	"gorm.io/gorm"
)

// Column names of the accounts table, usable as Fields keys.
const (
	ColumnEmail          = "email"
	ColumnAccessToken    = "access_token"
	ColumnRefreshToken   = "refresh_token"
	ColumnExpirationDate = "expiration_date"
	ColumnIsActive       = "is_active"
)

// ExpirationLayout is the persisted format of Account.ExpirationDate.
const ExpirationLayout = "2006-01-02 15:04:05.000"

// Fields is a partial row update keyed by column name.
type Fields map[string]interface{}

// FormatExpiration renders t in the persisted timestamp format (UTC).
func FormatExpiration(t time.Time) string {
	return t.UTC().Format(ExpirationLayout)
}

// ParseExpiration parses a persisted timestamp.
func ParseExpiration(s string) (time.Time, error) {
	return time.ParseInLocation(ExpirationLayout, s, time.UTC)
}

// AccountStore is the gorm-backed account table.
type AccountStore struct {
	db *gorm.DB
}

// NewAccountStore wraps an initialized database.
func NewAccountStore(db *gorm.DB) *AccountStore {
	return &AccountStore{db: db}
}

// QueryByActive returns the active row, or nil if there is none.
func (s *AccountStore) QueryByActive(ctx context.Context) (*models.Account, error) {
	return s.first(ctx, ColumnIsActive+" = ?", true)
}

// QueryByEmail returns the row for email, or nil if there is none.
func (s *AccountStore) QueryByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.first(ctx, ColumnEmail+" = ?", email)
}

func (s *AccountStore) first(ctx context.Context, query string, args ...interface{}) (*models.Account, error) {
	var account models.Account
	err := s.db.WithContext(ctx).Where(query, args...).Order("updated_at DESC").First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// Insert creates a new row. The ID is assigned by the store.
func (s *AccountStore) Insert(ctx context.Context, account *models.Account) error {
	if account.Email == "" {
		return fmt.Errorf("insert account: empty email")
	}
	return s.db.WithContext(ctx).Create(account).Error
}

// UpdateByEmail applies fields to the row for email and returns the affected row count.
func (s *AccountStore) UpdateByEmail(ctx context.Context, email string, fields Fields) (int64, error) {
	return s.update(ctx, fields, ColumnEmail+" = ?", email)
}

// UpdateByActiveNot applies fields to every row whose email differs from email.
func (s *AccountStore) UpdateByActiveNot(ctx context.Context, email string, fields Fields) (int64, error) {
	return s.update(ctx, fields, ColumnEmail+" <> ?", email)
}

func (s *AccountStore) update(ctx context.Context, fields Fields, query string, args ...interface{}) (int64, error) {
	if len(fields) == 0 {
		return 0, nil
	}
	result := s.db.WithContext(ctx).Model(&models.Account{}).Where(query, args...).Updates(map[string]interface{}(fields))
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// DeleteByEmail removes the row for email and returns the affected row count.
func (s *AccountStore) DeleteByEmail(ctx context.Context, email string) (int64, error) {
	result := s.db.WithContext(ctx).Where(ColumnEmail+" = ?", email).Delete(&models.Account{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ListEmailsAscending returns every known email in ascending order.
func (s *AccountStore) ListEmailsAscending(ctx context.Context) ([]string, error) {
	rows, err := s.db.WithContext(ctx).Model(&models.Account{}).Select(ColumnEmail).Order(ColumnEmail + " ASC").Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	emails := make([]string, 0)
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}

// Close releases the underlying connection pool.
func (s *AccountStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
