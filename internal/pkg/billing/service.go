package billing

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/elvish-ishaan/dotformer/app/models"
)

// Error kinds surfaced by the billing service.
var (
	ErrNoActiveSubscription = errors.New("user has no active subscription")
	ErrPlanNotFound         = errors.New("pricing plan not found")
	ErrBillNotFound         = errors.New("bill not found")
	ErrBillNotPending       = errors.New("bill is not pending")
	ErrUserNotFound         = errors.New("user not found")
)

const billingCurrency = "USD"

// Service implements bill generation, usage summaries and plan management on
// top of a billing Repository.
type Service struct {
	repo Repository
}

// NewService creates the billing service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Period is a half-open [Start, End) billing window.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// UsageSummary is the current-period usage overview for one user.
type UsageSummary struct {
	UsageByOperation map[string]OperationTotal `json:"usage_by_operation"`
	EstimatedCost    float64                   `json:"estimated_cost"`
	Currency         string                    `json:"currency"`
	BillingPeriod    Period                    `json:"billing_period"`
}

// History is one page of a user's bills plus the overall count.
type History struct {
	Bills  []models.Bill `json:"bills"`
	Total  int64         `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// GenerateBillForUser aggregates the user's unbilled usage in [start, end),
// prices it against the subscribed plan and persists a pending bill while
// marking the consumed records billed. Returns (nil, nil) when the computed
// amount is zero: free-quota-only usage produces no bill and the records stay
// unbilled.
func (s *Service) GenerateBillForUser(userID uint, start, end time.Time) (*models.Bill, error) {
	sub, err := s.repo.ActiveSubscriptionWithPlan(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveSubscription
		}
		return nil, fmt.Errorf("load subscription for user %d: %w", userID, err)
	}

	records, err := s.repo.UnbilledRecords(userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("load unbilled usage for user %d: %w", userID, err)
	}

	usageByOp := make(map[string]int64)
	recordIDs := make([]uint, 0, len(records))
	for _, rec := range records {
		usageByOp[rec.OperationType] += rec.Quantity
		recordIDs = append(recordIDs, rec.ID)
	}

	var total float64
	for op, usage := range usageByOp {
		total += CostForUsage(sub.PricingPlan.TiersFor(op), usage)
	}
	total = ApplyMinimum(sub.PricingPlan.Name, total)

	if total <= 0 {
		return nil, nil
	}

	bill := &models.Bill{
		UserID:      userID,
		Amount:      RoundToCents(total),
		Currency:    billingCurrency,
		Status:      models.BillStatusPending,
		StartPeriod: start,
		EndPeriod:   end,
	}
	if err := s.repo.CreateBillAndMarkRecords(bill, recordIDs); err != nil {
		return nil, fmt.Errorf("persist bill for user %d: %w", userID, err)
	}

	log.Infof("[Billing] Generated bill %d for user %d: %.2f %s (%d usage records)",
		bill.ID, userID, bill.Amount, bill.Currency, len(recordIDs))
	return bill, nil
}

// GenerateBills runs bill generation for every user with an active
// subscription. A failure for one user is logged and does not stop the run.
func (s *Service) GenerateBills(start, end time.Time) ([]*models.Bill, error) {
	subs, err := s.repo.ListActiveSubscriptions()
	if err != nil {
		return nil, fmt.Errorf("list active subscriptions: %w", err)
	}

	bills := make([]*models.Bill, 0, len(subs))
	for _, sub := range subs {
		bill, err := s.GenerateBillForUser(sub.UserID, start, end)
		if err != nil {
			log.Errorf("[Billing] Failed to generate bill for user %d: %v", sub.UserID, err)
			continue
		}
		if bill != nil {
			bills = append(bills, bill)
		}
	}

	log.Infof("[Billing] Billing run complete: %d bills for %d subscriptions (%s to %s)",
		len(bills), len(subs), start.Format("2006-01-02"), end.Format("2006-01-02"))
	return bills, nil
}

// CurrentUsage returns the user's usage totals for the running calendar month
// plus an estimated cost against the subscribed plan. Users without a
// subscription get totals with a zero estimate.
func (s *Service) CurrentUsage(userID uint) (*UsageSummary, error) {
	now := time.Now().UTC()
	since := StartOfMonth(now)

	totals, err := s.repo.UsageTotalsSince(userID, since)
	if err != nil {
		return nil, fmt.Errorf("aggregate usage for user %d: %w", userID, err)
	}

	summary := &UsageSummary{
		UsageByOperation: make(map[string]OperationTotal, len(totals)),
		Currency:         billingCurrency,
		BillingPeriod:    Period{Start: since, End: now},
	}
	for _, t := range totals {
		summary.UsageByOperation[t.OperationType] = t
	}

	sub, err := s.repo.ActiveSubscriptionWithPlan(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return summary, nil
		}
		return nil, fmt.Errorf("load subscription for user %d: %w", userID, err)
	}

	var estimated float64
	for _, t := range totals {
		estimated += CostForUsage(sub.PricingPlan.TiersFor(t.OperationType), t.Total)
	}
	summary.EstimatedCost = estimated
	return summary, nil
}

// BillingHistory returns one page of the user's bills, newest first.
func (s *Service) BillingHistory(userID uint, limit, offset int) (*History, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	bills, total, err := s.repo.BillsByUser(userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("load bills for user %d: %w", userID, err)
	}
	return &History{Bills: bills, Total: total, Limit: limit, Offset: offset}, nil
}

// GetPricingPlans lists the active plans with their tiers.
func (s *Service) GetPricingPlans() ([]models.PricingPlan, error) {
	return s.repo.ActivePlans()
}

// Subscribe puts the user on the given plan, replacing any existing
// subscription. Changing plans never creates a second subscription row.
func (s *Service) Subscribe(userID, planID uint) (*models.Subscription, error) {
	plan, err := s.repo.PlanByID(planID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("load plan %d: %w", planID, err)
	}

	if _, err := s.repo.UserByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}

	sub := &models.Subscription{
		UserID:        userID,
		PricingPlanID: plan.ID,
		Status:        models.SubscriptionStatusActive,
		StartDate:     time.Now().UTC(),
		EndDate:       nil,
	}
	if err := s.repo.UpsertSubscription(sub); err != nil {
		return nil, fmt.Errorf("upsert subscription for user %d: %w", userID, err)
	}

	log.Infof("[Billing] User %d subscribed to plan %s", userID, plan.Name)
	return sub, nil
}

// UpdatePaymentMethod stores the user's payment method reference. Validation
// against a payment gateway is out of scope; the reference is opaque here.
func (s *Service) UpdatePaymentMethod(userID uint, paymentMethod string) (*models.User, error) {
	user, err := s.repo.UserByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}

	if err := s.repo.SetUserPaymentMethod(userID, paymentMethod); err != nil {
		return nil, fmt.Errorf("update payment method for user %d: %w", userID, err)
	}
	user.PaymentMethod = paymentMethod
	return user, nil
}

// PayBill settles a pending bill on behalf of userID. Payment gateway
// integration is simulated; the bill transitions to paid and is stamped with
// the payment time. A bill belonging to another user reads as not found
// unless asAdmin is set.
func (s *Service) PayBill(billID, userID uint, asAdmin bool) (*models.Bill, error) {
	bill, err := s.repo.BillByID(billID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBillNotFound
		}
		return nil, fmt.Errorf("load bill %d: %w", billID, err)
	}

	if bill.UserID != userID && !asAdmin {
		return nil, ErrBillNotFound
	}

	if !bill.IsPending() {
		return nil, fmt.Errorf("%w: status is %s", ErrBillNotPending, bill.Status)
	}

	bill.MarkPaid()
	if err := s.repo.SaveBill(bill); err != nil {
		return nil, fmt.Errorf("save bill %d: %w", billID, err)
	}

	log.Infof("[Billing] Bill %d paid: %.2f %s", bill.ID, bill.Amount, bill.Currency)
	return bill, nil
}
