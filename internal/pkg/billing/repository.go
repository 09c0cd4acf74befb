package billing

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/elvish-ishaan/dotformer/app/models"
)

// OperationTotal is an aggregated usage sum for one operation type.
type OperationTotal struct {
	OperationType string `json:"operation_type"`
	Total         int64  `json:"total"`
	Unit          string `json:"unit"`
}

// Repository provides the DB operations used by the billing service.
type Repository interface {
	ActiveSubscriptionWithPlan(userID uint) (*models.Subscription, error)
	ListActiveSubscriptions() ([]models.Subscription, error)
	UpsertSubscription(sub *models.Subscription) error

	PlanByID(id uint) (*models.PricingPlan, error)
	PlanByName(name string) (*models.PricingPlan, error)
	ActivePlans() ([]models.PricingPlan, error)

	UnbilledRecords(userID uint, start, end time.Time) ([]models.UsageRecord, error)
	UsageTotalsSince(userID uint, since time.Time) ([]OperationTotal, error)

	CreateBillAndMarkRecords(bill *models.Bill, recordIDs []uint) error
	BillByID(id uint) (*models.Bill, error)
	BillsByUser(userID uint, limit, offset int) ([]models.Bill, int64, error)
	SaveBill(bill *models.Bill) error

	UserByID(id uint) (*models.User, error)
	SetUserPaymentMethod(userID uint, paymentMethod string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) ActiveSubscriptionWithPlan(userID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Preload("PricingPlan.PricingTiers").
		Where("user_id = ? AND status = ?", userID, models.SubscriptionStatusActive).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) ListActiveSubscriptions() ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.Preload("PricingPlan.PricingTiers").
		Where("status = ?", models.SubscriptionStatusActive).
		Find(&subs).Error
	return subs, err
}

// UpsertSubscription creates the user's subscription row, or moves the
// existing one to the new plan. The unique index on user_id guarantees one
// row per user either way.
func (r *gormRepository) UpsertSubscription(sub *models.Subscription) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"pricing_plan_id", "status", "start_date", "end_date", "updated_at",
		}),
	}).Create(sub).Error
}

func (r *gormRepository) PlanByID(id uint) (*models.PricingPlan, error) {
	var plan models.PricingPlan
	if err := r.db.Preload("PricingTiers").First(&plan, id).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *gormRepository) PlanByName(name string) (*models.PricingPlan, error) {
	var plan models.PricingPlan
	err := r.db.Preload("PricingTiers").Where("name = ?", name).First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *gormRepository) ActivePlans() ([]models.PricingPlan, error) {
	var plans []models.PricingPlan
	err := r.db.Preload("PricingTiers").
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&plans).Error
	return plans, err
}

func (r *gormRepository) UnbilledRecords(userID uint, start, end time.Time) ([]models.UsageRecord, error) {
	var records []models.UsageRecord
	err := r.db.
		Where("user_id = ? AND billed = ? AND timestamp >= ? AND timestamp < ?",
			userID, false, start, end).
		Find(&records).Error
	return records, err
}

func (r *gormRepository) UsageTotalsSince(userID uint, since time.Time) ([]OperationTotal, error) {
	var totals []OperationTotal
	err := r.db.Model(&models.UsageRecord{}).
		Select("operation_type, COALESCE(SUM(quantity), 0) AS total, MAX(unit) AS unit").
		Where("user_id = ? AND timestamp >= ?", userID, since).
		Group("operation_type").
		Scan(&totals).Error
	return totals, err
}

// CreateBillAndMarkRecords writes the bill and flips its usage records to
// billed in one transaction, so a record can never be consumed into a bill
// that was not persisted, or stay unbilled under a persisted bill.
func (r *gormRepository) CreateBillAndMarkRecords(bill *models.Bill, recordIDs []uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(bill).Error; err != nil {
			return err
		}
		if len(recordIDs) == 0 {
			return nil
		}
		return tx.Model(&models.UsageRecord{}).
			Where("id IN ?", recordIDs).
			Updates(map[string]interface{}{"billed": true, "bill_id": bill.ID}).Error
	})
}

func (r *gormRepository) BillByID(id uint) (*models.Bill, error) {
	var bill models.Bill
	if err := r.db.First(&bill, id).Error; err != nil {
		return nil, err
	}
	return &bill, nil
}

func (r *gormRepository) BillsByUser(userID uint, limit, offset int) ([]models.Bill, int64, error) {
	var bills []models.Bill
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&bills).Error
	if err != nil {
		return nil, 0, err
	}

	var total int64
	err = r.db.Model(&models.Bill{}).Where("user_id = ?", userID).Count(&total).Error
	if err != nil {
		return nil, 0, err
	}
	return bills, total, nil
}

func (r *gormRepository) SaveBill(bill *models.Bill) error {
	return r.db.Save(bill).Error
}

func (r *gormRepository) UserByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormRepository) SetUserPaymentMethod(userID uint, paymentMethod string) error {
	return r.db.Model(&models.User{}).
		Where("id = ?", userID).
		Update("payment_method", paymentMethod).Error
}
