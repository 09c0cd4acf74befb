package metering

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/elvish-ishaan/dotformer/app/models"
)

// Decision is the outcome of a quota check. Reason is set on denial and is
// safe to show to the caller.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision             { return Decision{Allowed: true} }
func deny(reason string) Decision { return Decision{Allowed: false, Reason: reason} }

// Enforcer gates metered operations against the account's plan allowance.
//
// The check is advisory: it reads current usage without locking, so a burst
// of concurrent requests can briefly overshoot the boundary. That slack is
// accepted in exchange for not serializing requests per account.
type Enforcer struct {
	repo Repository
}

// NewEnforcer creates a quota enforcer.
func NewEnforcer(repo Repository) *Enforcer {
	return &Enforcer{repo: repo}
}

// Check decides whether the user may perform one more operation of the given
// type right now.
//
// Accounts without a subscription are measured against the canonical Free
// plan, bootstrapping the default catalog on first contact. Free-plan usage
// is capped hard at the daily free quota; paid plans only require a payment
// method on file once the monthly free quota is exhausted, since overage is
// billed rather than blocked.
func (e *Enforcer) Check(userID uint, operationType string) (Decision, error) {
	// Unauthenticated internal calls are not metered per account.
	if userID == 0 {
		return allow(), nil
	}

	plan, subscribed, err := e.resolvePlan(userID)
	if err != nil {
		return Decision{}, err
	}
	if plan == nil {
		// First contact bootstrapped the catalog; let this request through
		// and enforce from the next one.
		return allow(), nil
	}

	tier := firstTier(plan, operationType)
	if tier == nil {
		if !subscribed {
			return deny(fmt.Sprintf("operation %s not available in free plan, please upgrade", operationType)), nil
		}
		return deny(fmt.Sprintf("operation %s not covered by your subscription", operationType)), nil
	}

	periodStart := PeriodStart(plan.IsFree(), time.Now())
	used, err := e.repo.SumUsageSince(userID, operationType, periodStart)
	if err != nil {
		return Decision{}, fmt.Errorf("sum usage for user %d: %w", userID, err)
	}

	if plan.IsFree() {
		if used > tier.FreeQuota {
			return deny(fmt.Sprintf("you have exceeded your free daily quota for %s, please upgrade your plan", operationType)), nil
		}
		return allow(), nil
	}

	if used > tier.FreeQuota {
		user, err := e.repo.UserByID(userID)
		if err != nil {
			return Decision{}, fmt.Errorf("load user %d: %w", userID, err)
		}
		if !user.HasPaymentMethod() {
			return deny(fmt.Sprintf("you have exceeded your free quota for %s, please add a payment method", operationType)), nil
		}
	}
	return allow(), nil
}

// resolvePlan loads the plan the user is measured against: the active
// subscription's plan, or the Free plan as fallback. A nil plan with nil
// error means the catalog was just bootstrapped.
func (e *Enforcer) resolvePlan(userID uint) (*models.PricingPlan, bool, error) {
	sub, err := e.repo.ActiveSubscriptionWithPlan(userID)
	if err == nil {
		return &sub.PricingPlan, true, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("load subscription for user %d: %w", userID, err)
	}

	plan, err := e.repo.PlanByName(models.PlanFree)
	if err == nil {
		return plan, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("load free plan: %w", err)
	}

	log.Infof("[Metering] No pricing plans found, bootstrapping default catalog")
	if err := e.repo.EnsureDefaultPlans(); err != nil {
		return nil, false, fmt.Errorf("bootstrap default plans: %w", err)
	}
	return nil, false, nil
}

func firstTier(plan *models.PricingPlan, operationType string) *models.PricingTier {
	for i := range plan.PricingTiers {
		t := &plan.PricingTiers[i]
		if t.OperationType == operationType && t.Tier == 1 {
			return t
		}
	}
	return nil
}
