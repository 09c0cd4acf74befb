package models

import "time"

// Billable operation types. These are the only dimensions the meter accepts.
const (
	OperationUpload    = "upload"
	OperationTransform = "transform"
	OperationStorage   = "storage"
	OperationAPI       = "api"
)

// Units used by the default plan catalog.
const (
	UnitBytes           = "bytes"
	UnitCalls           = "calls"
	UnitTransformations = "transformations"
)

// UsageRecord is one metered event. Rows are written once and never updated,
// except for the single billed/bill_id transition performed by the billing
// aggregator when the record is consumed into a bill.
type UsageRecord struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;index:idx_usage_user_op_ts,priority:1" json:"user_id"`
	APIKeyID      *uint     `gorm:"index" json:"api_key_id,omitempty"`
	OperationType string    `gorm:"type:varchar(20);not null;index:idx_usage_user_op_ts,priority:2" json:"operation_type"`
	ResourceID    *string   `gorm:"type:varchar(191);default:null" json:"resource_id,omitempty"`
	Quantity      int64     `gorm:"not null;default:1" json:"quantity"`
	Unit          string    `gorm:"type:varchar(20);not null;default:'calls'" json:"unit"`
	Timestamp     time.Time `gorm:"not null;index:idx_usage_user_op_ts,priority:3" json:"timestamp"`
	Billed        bool      `gorm:"not null;default:false;index" json:"billed"`
	BillID        *uint     `gorm:"index" json:"bill_id,omitempty"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// IsValidOperationType reports whether op is one of the billable dimensions.
func IsValidOperationType(op string) bool {
	switch op {
	case OperationUpload, OperationTransform, OperationStorage, OperationAPI:
		return true
	default:
		return false
	}
}
