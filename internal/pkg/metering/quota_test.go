package metering

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/elvish-ishaan/dotformer/app/models"
)

type fakeMeterRepo struct {
	sub          *models.Subscription
	subErr       error
	freePlan     *models.PricingPlan
	freePlanErr  error
	used         int64
	usedErr      error
	user         *models.User
	userErr      error
	bootstrapped bool
	created      []*models.UsageRecord
	createErr    error
	createdCh    chan *models.UsageRecord
}

func (f *fakeMeterRepo) CreateUsageRecord(rec *models.UsageRecord) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, rec)
	if f.createdCh != nil {
		f.createdCh <- rec
	}
	return nil
}

func (f *fakeMeterRepo) SumUsageSince(userID uint, operationType string, since time.Time) (int64, error) {
	return f.used, f.usedErr
}

func (f *fakeMeterRepo) ActiveSubscriptionWithPlan(userID uint) (*models.Subscription, error) {
	if f.sub == nil {
		if f.subErr != nil {
			return nil, f.subErr
		}
		return nil, gorm.ErrRecordNotFound
	}
	return f.sub, nil
}

func (f *fakeMeterRepo) PlanByName(name string) (*models.PricingPlan, error) {
	if f.freePlan == nil {
		if f.freePlanErr != nil {
			return nil, f.freePlanErr
		}
		return nil, gorm.ErrRecordNotFound
	}
	return f.freePlan, nil
}

func (f *fakeMeterRepo) UserByID(id uint) (*models.User, error) {
	if f.user == nil {
		if f.userErr != nil {
			return nil, f.userErr
		}
		return nil, gorm.ErrRecordNotFound
	}
	return f.user, nil
}

func (f *fakeMeterRepo) EnsureDefaultPlans() error {
	f.bootstrapped = true
	return nil
}

func planWithTier(name, op string, freeQuota int64) *models.PricingPlan {
	return &models.PricingPlan{
		Name:     name,
		IsActive: true,
		PricingTiers: []models.PricingTier{
			{OperationType: op, Tier: 1, FreeQuota: freeQuota, UnitPrice: 0.01},
		},
	}
}

func subscriptionTo(plan *models.PricingPlan) *models.Subscription {
	return &models.Subscription{
		UserID:      42,
		Status:      models.SubscriptionStatusActive,
		PricingPlan: *plan,
	}
}

func TestCheckUnauthenticatedIsNotMetered(t *testing.T) {
	enforcer := NewEnforcer(&fakeMeterRepo{})

	decision, err := enforcer.Check(0, models.OperationTransform)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestCheckFreePlanAtQuotaBoundary(t *testing.T) {
	repo := &fakeMeterRepo{
		freePlan: planWithTier(models.PlanFree, models.OperationTransform, 10),
		used:     10,
	}
	enforcer := NewEnforcer(repo)

	decision, err := enforcer.Check(42, models.OperationTransform)
	require.NoError(t, err)
	assert.True(t, decision.Allowed, "usage equal to the quota is still allowed")
}

func TestCheckFreePlanOverQuota(t *testing.T) {
	repo := &fakeMeterRepo{
		freePlan: planWithTier(models.PlanFree, models.OperationTransform, 10),
		used:     11,
	}
	enforcer := NewEnforcer(repo)

	decision, err := enforcer.Check(42, models.OperationTransform)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Contains(t, decision.Reason, "upgrade")
}

func TestCheckSubscribedFreePlanIsCappedDaily(t *testing.T) {
	// Subscribing to the Free plan explicitly does not lift the hard cap.
	plan := planWithTier(models.PlanFree, models.OperationTransform, 10)
	repo := &fakeMeterRepo{
		sub:  subscriptionTo(plan),
		used: 11,
	}
	enforcer := NewEnforcer(repo)

	decision, err := enforcer.Check(42, models.OperationTransform)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
}

func TestCheckPaidOverQuotaWithoutPaymentMethod(t *testing.T) {
	plan := planWithTier(models.PlanBasic, models.OperationTransform, 50)
	repo := &fakeMeterRepo{
		sub:  subscriptionTo(plan),
		used: 51,
		user: &models.User{ID: 42, Status: models.STATUS_ACTIVE},
	}
	enforcer := NewEnforcer(repo)

	decision, err := enforcer.Check(42, models.OperationTransform)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Contains(t, decision.Reason, "payment method")
}

func TestCheckPaidOverQuotaWithPaymentMethod(t *testing.T) {
	plan := planWithTier(models.PlanBasic, models.OperationTransform, 50)
	repo := &fakeMeterRepo{
		sub:  subscriptionTo(plan),
		used: 51,
		user: &models.User{ID: 42, Status: models.STATUS_ACTIVE, PaymentMethod: "pm_card_visa"},
	}
	enforcer := NewEnforcer(repo)

	decision, err := enforcer.Check(42, models.OperationTransform)
	require.NoError(t, err)
	assert.True(t, decision.Allowed, "overage is billed, not blocked, once a payment method is on file")
}

func TestCheckPaidUnderQuotaSkipsUserLookup(t *testing.T) {
	plan := planWithTier(models.PlanBasic, models.OperationTransform, 50)
	repo := &fakeMeterRepo{
		sub:     subscriptionTo(plan),
		used:    10,
		userErr: errors.New("user lookup must not run"),
	}
	enforcer := NewEnforcer(repo)

	decision, err := enforcer.Check(42, models.OperationTransform)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestCheckOperationNotCovered(t *testing.T) {
	plan := planWithTier(models.PlanBasic, models.OperationTransform, 50)
	repo := &fakeMeterRepo{sub: subscriptionTo(plan)}
	enforcer := NewEnforcer(repo)

	decision, err := enforcer.Check(42, models.OperationStorage)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Contains(t, decision.Reason, "not covered")
}

func TestCheckOperationNotInFreePlan(t *testing.T) {
	repo := &fakeMeterRepo{
		freePlan: planWithTier(models.PlanFree, models.OperationTransform, 10),
	}
	enforcer := NewEnforcer(repo)

	decision, err := enforcer.Check(42, models.OperationStorage)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Contains(t, decision.Reason, "upgrade")
}

func TestCheckBootstrapsCatalogOnFirstContact(t *testing.T) {
	repo := &fakeMeterRepo{}
	enforcer := NewEnforcer(repo)

	decision, err := enforcer.Check(42, models.OperationTransform)
	require.NoError(t, err)
	assert.True(t, decision.Allowed, "the bootstrapping request passes; enforcement starts with the next one")
	assert.True(t, repo.bootstrapped)
}

func TestCheckUsageQueryFailure(t *testing.T) {
	repo := &fakeMeterRepo{
		freePlan: planWithTier(models.PlanFree, models.OperationTransform, 10),
		usedErr:  errors.New("db down"),
	}
	enforcer := NewEnforcer(repo)

	_, err := enforcer.Check(42, models.OperationTransform)
	require.Error(t, err)
}
