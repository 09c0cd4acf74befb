package billing

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/elvish-ishaan/dotformer/app/models"
)

func tier(op string, price float64, unit string, freeQuota int64, max *int64) models.PricingTier {
	return models.PricingTier{
		OperationType: op,
		UnitPrice:     price,
		UnitType:      unit,
		FreeQuota:     freeQuota,
		Tier:          1,
		MinQuantity:   0,
		MaxQuantity:   max,
	}
}

func maxQty(n int64) *int64 { return &n }

// DefaultPlans returns the built-in plan catalog. The Free plan quotas are
// per day, paid plan quotas per month.
func DefaultPlans() []models.PricingPlan {
	return []models.PricingPlan{
		{
			Name:        models.PlanFree,
			Description: "Free tier with limited usage",
			IsActive:    true,
			PricingTiers: []models.PricingTier{
				tier(models.OperationUpload, 0, models.UnitBytes, 104857600, maxQty(104857600)), // 100MB
				tier(models.OperationTransform, 0, models.UnitTransformations, 10, maxQty(10)),
				tier(models.OperationStorage, 0, models.UnitBytes, 104857600, maxQty(104857600)), // 100MB
				tier(models.OperationAPI, 0, models.UnitCalls, 100, maxQty(100)),
			},
		},
		{
			Name:        models.PlanBasic,
			Description: "Pay-as-you-go pricing for individuals",
			IsActive:    true,
			PricingTiers: []models.PricingTier{
				tier(models.OperationUpload, 0.00000005, models.UnitBytes, 536870912, nil),   // $0.05/GB, 512MB free
				tier(models.OperationTransform, 0.01, models.UnitTransformations, 50, nil),   // $0.01 each
				tier(models.OperationStorage, 0.00000005, models.UnitBytes, 1073741824, nil), // $0.05/GB, 1GB free
				tier(models.OperationAPI, 0.001, models.UnitCalls, 1000, nil),                // $0.001 each
			},
		},
		{
			Name:        models.PlanProfessional,
			Description: "Premium pricing with higher quotas for professionals",
			IsActive:    true,
			PricingTiers: []models.PricingTier{
				tier(models.OperationUpload, 0.00000004, models.UnitBytes, 5368709120, nil),   // $0.04/GB, 5GB free
				tier(models.OperationTransform, 0.008, models.UnitTransformations, 200, nil),  // $0.008 each
				tier(models.OperationStorage, 0.00000004, models.UnitBytes, 10737418240, nil), // $0.04/GB, 10GB free
				tier(models.OperationAPI, 0.0008, models.UnitCalls, 5000, nil),                // $0.0008 each
			},
		},
	}
}

// SeedDefaultPlans inserts any default plan that does not exist yet, keyed by
// the unique plan name. Safe to call on every startup and from the lazy quota
// bootstrap; existing plans are never modified.
func SeedDefaultPlans(db *gorm.DB) error {
	for _, plan := range DefaultPlans() {
		plan := plan

		var existing models.PricingPlan
		err := db.Where("name = ?", plan.Name).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("check plan %s: %w", plan.Name, err)
		}

		if err := db.Create(&plan).Error; err != nil {
			// A concurrent bootstrap may have won the race on the unique
			// name index; re-check before treating it as a failure.
			var again models.PricingPlan
			if db.Where("name = ?", plan.Name).First(&again).Error == nil {
				continue
			}
			return fmt.Errorf("seed plan %s: %w", plan.Name, err)
		}
		log.Infof("[Billing] Created default pricing plan: %s", plan.Name)
	}
	return nil
}
