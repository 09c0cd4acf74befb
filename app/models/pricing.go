package models

import "time"

// Canonical plan names. PlanFree is the fallback plan every account without a
// subscription is measured against.
const (
	PlanFree         = "Free"
	PlanBasic        = "Basic"
	PlanProfessional = "Professional"
)

// PricingPlan is a priced product tier. Plans are administrative data;
// once referenced by a live subscription they only change through admin edits.
type PricingPlan struct {
	ID           uint          `gorm:"primaryKey" json:"id"`
	Name         string        `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
	Description  string        `gorm:"type:varchar(255);default:''" json:"description"`
	IsActive     bool          `gorm:"not null;default:true;index" json:"is_active"`
	PricingTiers []PricingTier `gorm:"foreignKey:PricingPlanID" json:"pricing_tiers"`
	CreatedAt    time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

// PricingTier is one priced band of a plan for a single operation type.
// Tier 1 carries the free quota; higher tiers partition the remaining usage
// into [MinQuantity, MaxQuantity) bands, MaxQuantity nil meaning unbounded.
type PricingTier struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	PricingPlanID uint      `gorm:"not null;index:idx_tiers_plan_op_tier,priority:1" json:"pricing_plan_id"`
	OperationType string    `gorm:"type:varchar(20);not null;index:idx_tiers_plan_op_tier,priority:2" json:"operation_type"`
	Tier          int       `gorm:"not null;default:1;index:idx_tiers_plan_op_tier,priority:3" json:"tier"`
	UnitPrice     float64   `gorm:"type:decimal(16,8);not null;default:0" json:"unit_price"`
	UnitType      string    `gorm:"type:varchar(20);not null;default:'calls'" json:"unit_type"`
	FreeQuota     int64     `gorm:"not null;default:0" json:"free_quota"`
	MinQuantity   int64     `gorm:"not null;default:0" json:"min_quantity"`
	MaxQuantity   *int64    `gorm:"default:null" json:"max_quantity,omitempty"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Width returns the band size of the tier, or -1 for an unbounded tier.
func (t *PricingTier) Width() int64 {
	if t.MaxQuantity == nil {
		return -1
	}
	return *t.MaxQuantity - t.MinQuantity
}

// TiersFor filters and returns the plan's tiers for one operation type,
// ordered ascending by tier ordinal.
func (p *PricingPlan) TiersFor(operationType string) []PricingTier {
	var tiers []PricingTier
	for _, t := range p.PricingTiers {
		if t.OperationType == operationType {
			tiers = append(tiers, t)
		}
	}
	// Tier lists are tiny; insertion sort keeps it dependency-free.
	for i := 1; i < len(tiers); i++ {
		for j := i; j > 0 && tiers[j-1].Tier > tiers[j].Tier; j-- {
			tiers[j-1], tiers[j] = tiers[j], tiers[j-1]
		}
	}
	return tiers
}

// IsFree reports whether this is the canonical free plan.
func (p *PricingPlan) IsFree() bool {
	return p.Name == PlanFree
}

// MinimumCharge returns the minimum bill amount for the plan, or 0 when the
// plan has no configured floor.
func MinimumCharge(planName string) float64 {
	switch planName {
	case PlanBasic:
		return 5
	case PlanProfessional:
		return 20
	default:
		return 0
	}
}
