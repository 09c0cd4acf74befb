package models

import "time"

const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusCanceled = "canceled"
	SubscriptionStatusExpired  = "expired"
)

// Subscription links a user to a pricing plan. The unique index on UserID
// enforces one subscription per account; plan changes are upserts of the
// existing row, never a second row.
type Subscription struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	UserID        uint        `gorm:"not null;uniqueIndex" json:"user_id"`
	PricingPlanID uint        `gorm:"not null;index" json:"pricing_plan_id"`
	PricingPlan   PricingPlan `gorm:"foreignKey:PricingPlanID" json:"pricing_plan"`
	Status        string      `gorm:"type:varchar(32);not null;default:'active';index" json:"status"`
	StartDate     time.Time   `gorm:"not null" json:"start_date"`
	EndDate       *time.Time  `gorm:"type:timestamp;default:null" json:"end_date,omitempty"`
	CreatedAt     time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsActive reports whether the subscription currently entitles the user.
func (s *Subscription) IsActive() bool {
	return s.Status == SubscriptionStatusActive
}
