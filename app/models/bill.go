package models

import "time"

const (
	BillStatusPending = "pending"
	BillStatusPaid    = "paid"
	BillStatusFailed  = "failed"
)

// Bill is an immutable invoice over one billing period. A bill only exists
// for periods whose computed amount is positive; the status/paid_at pair is
// the only mutable part and transitions once on payment.
type Bill struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	Amount      float64    `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency    string     `gorm:"type:char(3);not null;default:'USD'" json:"currency"`
	Status      string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	StartPeriod time.Time  `gorm:"not null" json:"start_period"`
	EndPeriod   time.Time  `gorm:"not null" json:"end_period"`
	PaidAt      *time.Time `gorm:"type:timestamp;default:null" json:"paid_at,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsPending reports whether the bill still awaits payment.
func (b *Bill) IsPending() bool {
	return b.Status == BillStatusPending
}

// MarkPaid transitions the bill to paid and stamps the payment time.
func (b *Bill) MarkPaid() {
	now := time.Now().UTC()
	b.Status = BillStatusPaid
	b.PaidAt = &now
}
