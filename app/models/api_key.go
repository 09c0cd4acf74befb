package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// APIKey stores a hashed API credential belonging to a user. A user may hold
// several named keys; usage records reference the key that performed the call.
type APIKey struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UserID     uint           `gorm:"not null;index" json:"user_id"`
	Name       string         `gorm:"type:varchar(100);default:''" json:"name"`
	KeyHash    string         `gorm:"type:char(64);uniqueIndex" json:"-"`
	KeyPrefix  string         `gorm:"type:varchar(20);default:''" json:"key_prefix"`
	LastUsedAt *time.Time     `json:"last_used_at"`
	RevokedAt  *time.Time     `json:"revoked_at"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

var apiKeyEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

const apiKeyPrefix = "dfk_"

// IsActive reports whether the key is usable for authentication.
func (k *APIKey) IsActive() bool {
	return k != nil && k.KeyHash != "" && k.RevokedAt == nil
}

// Revoke clears the stored key material without deleting the record.
func (k *APIKey) Revoke() {
	now := time.Now()
	k.RevokedAt = &now
}

// TouchUsage updates the last-used timestamp metadata.
func (k *APIKey) TouchUsage() {
	now := time.Now()
	k.LastUsedAt = &now
}

// HashAPIKey returns the SHA-256 hash for the provided API key.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}

// NewAPIKey generates key material for a user and returns the model together
// with the raw secret. The raw secret is only available at creation time;
// callers must persist the model and hand the secret to the user.
func NewAPIKey(userID uint, name string) (*APIKey, string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, "", err
	}
	encoded := strings.ToLower(apiKeyEncoding.EncodeToString(b))
	rawKey := apiKeyPrefix + encoded
	if len(rawKey) < 12 {
		return nil, "", fmt.Errorf("api key generation failed: key too short")
	}
	key := &APIKey{
		UserID:    userID,
		Name:      strings.TrimSpace(name),
		KeyHash:   HashAPIKey(rawKey),
		KeyPrefix: rawKey[:16],
	}
	return key, rawKey, nil
}
