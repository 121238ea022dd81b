package db

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"os"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pysugar/quickmeeting/internal/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB initializes the SQLite database connection and runs migrations.
func InitDB(dbPath string, verbose bool) (*gorm.DB, error) {
	logLevel := logger.Warn
	if verbose {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.New(log.New(os.Stdout, "\r\n", log.LstdFlags), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		}),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&models.Account{}, &models.Config{}); err != nil {
		return nil, err
	}

	if err := ensureAPIKey(db); err != nil {
		return nil, err
	}

	return db, nil
}

// ensureAPIKey generates the API key on first run
func ensureAPIKey(db *gorm.DB) error {
	var config models.Config
	if err := db.Where("key = ?", "api_key").First(&config).Error; err == nil {
		return nil
	}

	apiKey := newAPIKey()
	if err := db.Create(&models.Config{Key: "api_key", Value: apiKey}).Error; err != nil {
		return err
	}
	log.Printf("🔑 Generated new API key: %s", apiKey)
	return nil
}

// GetAPIKey retrieves the API key from database
func GetAPIKey(db *gorm.DB) string {
	var config models.Config
	db.Where("key = ?", "api_key").First(&config)
	return config.Value
}

// RegenerateAPIKey creates a new API key
func RegenerateAPIKey(db *gorm.DB) (string, error) {
	apiKey := newAPIKey()
	if err := db.Model(&models.Config{}).Where("key = ?", "api_key").Update("value", apiKey).Error; err != nil {
		return "", err
	}
	log.Printf("🔑 Regenerated API key: %s", apiKey)
	return apiKey, nil
}

// newAPIKey returns sk-<32 hex chars>
func newAPIKey() string {
	keyBytes := make([]byte, 16)
	rand.Read(keyBytes)
	return "sk-" + hex.EncodeToString(keyBytes)
}
