package repository

import (
	"github.com/elvish-ishaan/dotformer/app/models"
	"gorm.io/gorm"
)

// assetRepository implements the AssetRepository interface
type assetRepository struct {
	db *gorm.DB
}

// NewAssetRepository creates a new asset repository instance
func NewAssetRepository(db *gorm.DB) AssetRepository {
	return &assetRepository{db: db}
}

// Create creates a new asset in the database
func (r *assetRepository) Create(asset *models.Asset) error {
	return r.db.Create(asset).Error
}

// GetByID retrieves an asset by its ID
func (r *assetRepository) GetByID(id uint) (*models.Asset, error) {
	var asset models.Asset
	err := r.db.First(&asset, id).Error
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

// GetByUUID retrieves an asset by its UUID
func (r *assetRepository) GetByUUID(uuid string) (*models.Asset, error) {
	var asset models.Asset
	err := r.db.Where("uuid = ?", uuid).First(&asset).Error
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

// GetByUserID retrieves a paginated list of a user's assets, newest first
func (r *assetRepository) GetByUserID(userID uint, offset, limit int) ([]models.Asset, error) {
	var assets []models.Asset
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").
		Offset(offset).Limit(limit).Find(&assets).Error
	return assets, err
}

// Update updates an existing asset in the database
func (r *assetRepository) Update(asset *models.Asset) error {
	return r.db.Save(asset).Error
}

// Delete soft deletes an asset by its ID
func (r *assetRepository) Delete(id uint) error {
	return r.db.Delete(&models.Asset{}, id).Error
}

// CountByUserID returns the number of assets owned by a user
func (r *assetRepository) CountByUserID(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Asset{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// SumSizeByUserID returns the total stored bytes for a user's assets
func (r *assetRepository) SumSizeByUserID(userID uint) (int64, error) {
	var total int64
	err := r.db.Model(&models.Asset{}).Where("user_id = ?", userID).
		Select("COALESCE(SUM(file_size), 0)").Scan(&total).Error
	return total, err
}
