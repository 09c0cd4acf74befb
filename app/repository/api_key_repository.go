package repository

import (
	"strings"
	"time"

	"github.com/elvish-ishaan/dotformer/app/models"
	"gorm.io/gorm"
)

// apiKeyRepository implements the APIKeyRepository interface
type apiKeyRepository struct {
	db *gorm.DB
}

// NewAPIKeyRepository creates a new API key repository instance
func NewAPIKeyRepository(db *gorm.DB) APIKeyRepository {
	return &apiKeyRepository{db: db}
}

// Create creates a new API key in the database
func (r *apiKeyRepository) Create(key *models.APIKey) error {
	return r.db.Create(key).Error
}

// GetByID retrieves an API key by its ID
func (r *apiKeyRepository) GetByID(id uint) (*models.APIKey, error) {
	var key models.APIKey
	err := r.db.First(&key, id).Error
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// GetByHash resolves an active API key hash to its record.
func (r *apiKeyRepository) GetByHash(hash string) (*models.APIKey, error) {
	trimmed := strings.TrimSpace(hash)
	if trimmed == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var key models.APIKey
	err := r.db.Where("key_hash = ? AND revoked_at IS NULL", trimmed).First(&key).Error
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// GetByUserID retrieves all API keys belonging to a user, newest first
func (r *apiKeyRepository) GetByUserID(userID uint) ([]models.APIKey, error) {
	var keys []models.APIKey
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&keys).Error
	return keys, err
}

// Update updates an existing API key in the database
func (r *apiKeyRepository) Update(key *models.APIKey) error {
	return r.db.Save(key).Error
}

// TouchLastUsed updates the last-used timestamp best-effort.
func (r *apiKeyRepository) TouchLastUsed(id uint) error {
	now := time.Now()
	return r.db.Model(&models.APIKey{}).Where("id = ?", id).
		Update("last_used_at", &now).Error
}
