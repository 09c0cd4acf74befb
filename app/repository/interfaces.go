package repository

import (
	"github.com/elvish-ishaan/dotformer/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
}

// APIKeyRepository defines the interface for API key database operations
type APIKeyRepository interface {
	Create(key *models.APIKey) error
	GetByID(id uint) (*models.APIKey, error)
	GetByHash(hash string) (*models.APIKey, error)
	GetByUserID(userID uint) ([]models.APIKey, error)
	Update(key *models.APIKey) error
	TouchLastUsed(id uint) error
}

// AssetRepository defines the interface for uploaded asset database operations
type AssetRepository interface {
	Create(asset *models.Asset) error
	GetByID(id uint) (*models.Asset, error)
	GetByUUID(uuid string) (*models.Asset, error)
	GetByUserID(userID uint, offset, limit int) ([]models.Asset, error)
	Update(asset *models.Asset) error
	Delete(id uint) error
	CountByUserID(userID uint) (int64, error)
	SumSizeByUserID(userID uint) (int64, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User   UserRepository
	APIKey APIKeyRepository
	Asset  AssetRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:   NewUserRepository(db),
		APIKey: NewAPIKeyRepository(db),
		Asset:  NewAssetRepository(db),
	}
}
