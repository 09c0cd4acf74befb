package models

import (
	"path/filepath"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Asset is an uploaded source file stored in the blob store. Transformed
// artifacts are derived from assets and live under the transformed/ prefix;
// they are addressed purely by their cache key and have no row of their own.
type Asset struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UUID        string         `gorm:"type:char(36);uniqueIndex" json:"uuid"`
	UserID      uint           `gorm:"index" json:"user_id"`
	FileName    string         `gorm:"type:varchar(255);not null" json:"file_name"`
	S3Key       string         `gorm:"type:varchar(255);not null;index" json:"s3_key"`
	FileSize    int64          `gorm:"default:0" json:"file_size"`
	FileType    string         `gorm:"type:varchar(100);default:''" json:"file_type"`
	URL         string         `gorm:"type:varchar(512);default:''" json:"url"`
	Width       int            `gorm:"default:0" json:"width"`
	Height      int            `gorm:"default:0" json:"height"`
	CameraModel *string        `gorm:"type:varchar(191);default:null" json:"camera_model,omitempty"`
	TakenAt     *time.Time     `gorm:"type:timestamp;default:null" json:"taken_at,omitempty"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// StoredFileName returns the object basename under the uploads/ prefix,
// i.e. "{uuid}{ext}" for an asset uploaded as "cat.png".
func (a *Asset) StoredFileName() string {
	return filepath.Base(a.S3Key)
}

// Extension returns the lowercase file extension without the leading dot.
func (a *Asset) Extension() string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(a.FileName)), ".")
}
