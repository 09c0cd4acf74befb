package metering

import (
	"time"

	"github.com/elvish-ishaan/dotformer/app/models"
	"github.com/elvish-ishaan/dotformer/internal/pkg/billing"
	"gorm.io/gorm"
)

// Repository provides the DB operations used by the usage meter and the
// quota enforcer.
type Repository interface {
	CreateUsageRecord(rec *models.UsageRecord) error
	SumUsageSince(userID uint, operationType string, since time.Time) (int64, error)
	ActiveSubscriptionWithPlan(userID uint) (*models.Subscription, error)
	PlanByName(name string) (*models.PricingPlan, error)
	UserByID(id uint) (*models.User, error)
	EnsureDefaultPlans() error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a metering repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateUsageRecord(rec *models.UsageRecord) error {
	return r.db.Create(rec).Error
}

func (r *gormRepository) SumUsageSince(userID uint, operationType string, since time.Time) (int64, error) {
	var total int64
	err := r.db.Model(&models.UsageRecord{}).
		Where("user_id = ? AND operation_type = ? AND timestamp >= ?", userID, operationType, since).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error
	return total, err
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

func (r *gormRepository) PlanByName(name string) (*models.PricingPlan, error) {
	var plan models.PricingPlan
	err := r.db.Preload("PricingTiers").Where("name = ?", name).First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *gormRepository) UserByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormRepository) EnsureDefaultPlans() error {
	return billing.SeedDefaultPlans(r.db)
}
