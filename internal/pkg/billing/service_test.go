package billing

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/elvish-ishaan/dotformer/app/models"
)

// fakeBillingRepo implements Repository with overridable behavior per method.
// Unset hooks fall back to record-not-found or empty results.
type fakeBillingRepo struct {
	subs    map[uint]*models.Subscription
	records map[uint][]models.UsageRecord
	plans   map[uint]*models.PricingPlan
	users   map[uint]*models.User
	bills   map[uint]*models.Bill

	recordsErr error

	createdBill   *models.Bill
	markedIDs     []uint
	savedBill     *models.Bill
	upsertedSub   *models.Subscription
	historyLimit  int
	historyOffset int
}

func newFakeBillingRepo() *fakeBillingRepo {
	return &fakeBillingRepo{
		subs:    make(map[uint]*models.Subscription),
		records: make(map[uint][]models.UsageRecord),
		plans:   make(map[uint]*models.PricingPlan),
		users:   make(map[uint]*models.User),
		bills:   make(map[uint]*models.Bill),
	}
}

func (f *fakeBillingRepo) ActiveSubscriptionWithPlan(userID uint) (*models.Subscription, error) {
	sub, ok := f.subs[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return sub, nil
}

func (f *fakeBillingRepo) ListActiveSubscriptions() ([]models.Subscription, error) {
	var subs []models.Subscription
	for _, sub := range f.subs {
		subs = append(subs, *sub)
	}
	return subs, nil
}

func (f *fakeBillingRepo) UpsertSubscription(sub *models.Subscription) error {
	f.upsertedSub = sub
	f.subs[sub.UserID] = sub
	return nil
}

func (f *fakeBillingRepo) PlanByID(id uint) (*models.PricingPlan, error) {
	plan, ok := f.plans[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return plan, nil
}

func (f *fakeBillingRepo) PlanByName(name string) (*models.PricingPlan, error) {
	for _, plan := range f.plans {
		if plan.Name == name {
			return plan, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeBillingRepo) ActivePlans() ([]models.PricingPlan, error) {
	var plans []models.PricingPlan
	for _, plan := range f.plans {
		if plan.IsActive {
			plans = append(plans, *plan)
		}
	}
	return plans, nil
}

func (f *fakeBillingRepo) UnbilledRecords(userID uint, start, end time.Time) ([]models.UsageRecord, error) {
	if f.recordsErr != nil {
		return nil, f.recordsErr
	}
	var unbilled []models.UsageRecord
	for _, rec := range f.records[userID] {
		if !rec.Billed {
			unbilled = append(unbilled, rec)
		}
	}
	return unbilled, nil
}

func (f *fakeBillingRepo) UsageTotalsSince(userID uint, since time.Time) ([]OperationTotal, error) {
	totals := make(map[string]int64)
	for _, rec := range f.records[userID] {
		totals[rec.OperationType] += rec.Quantity
	}
	var out []OperationTotal
	for op, total := range totals {
		out = append(out, OperationTotal{OperationType: op, Total: total})
	}
	return out, nil
}

func (f *fakeBillingRepo) CreateBillAndMarkRecords(bill *models.Bill, recordIDs []uint) error {
	bill.ID = uint(len(f.bills) + 1)
	f.bills[bill.ID] = bill
	f.createdBill = bill
	f.markedIDs = recordIDs

	consumed := make(map[uint]bool, len(recordIDs))
	for _, id := range recordIDs {
		consumed[id] = true
	}
	for _, recs := range f.records {
		for i := range recs {
			if consumed[recs[i].ID] {
				recs[i].Billed = true
				recs[i].BillID = &bill.ID
			}
		}
	}
	return nil
}

func (f *fakeBillingRepo) BillByID(id uint) (*models.Bill, error) {
	bill, ok := f.bills[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *bill
	return &copied, nil
}

func (f *fakeBillingRepo) BillsByUser(userID uint, limit, offset int) ([]models.Bill, int64, error) {
	f.historyLimit = limit
	f.historyOffset = offset
	var bills []models.Bill
	for _, bill := range f.bills {
		if bill.UserID == userID {
			bills = append(bills, *bill)
		}
	}
	return bills, int64(len(bills)), nil
}

func (f *fakeBillingRepo) SaveBill(bill *models.Bill) error {
	f.savedBill = bill
	f.bills[bill.ID] = bill
	return nil
}

func (f *fakeBillingRepo) UserByID(id uint) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (f *fakeBillingRepo) SetUserPaymentMethod(userID uint, paymentMethod string) error {
	if user, ok := f.users[userID]; ok {
		user.PaymentMethod = paymentMethod
	}
	return nil
}

func basicPlan() *models.PricingPlan {
	return &models.PricingPlan{
		ID:       2,
		Name:     models.PlanBasic,
		IsActive: true,
		PricingTiers: []models.PricingTier{
			{OperationType: models.OperationTransform, Tier: 1, FreeQuota: 50, UnitPrice: 0.01},
			{OperationType: models.OperationAPI, Tier: 1, FreeQuota: 1000, UnitPrice: 0.001},
		},
	}
}

func subscribeUser(repo *fakeBillingRepo, userID uint, plan *models.PricingPlan) {
	repo.plans[plan.ID] = plan
	repo.subs[userID] = &models.Subscription{
		UserID:        userID,
		PricingPlanID: plan.ID,
		PricingPlan:   *plan,
		Status:        models.SubscriptionStatusActive,
	}
}

func transformRecords(userID uint, startID uint, count int) []models.UsageRecord {
	records := make([]models.UsageRecord, count)
	for i := range records {
		records[i] = models.UsageRecord{
			ID:            startID + uint(i),
			UserID:        userID,
			OperationType: models.OperationTransform,
			Quantity:      1,
			Unit:          models.UnitTransformations,
		}
	}
	return records
}

func billingWindow() (time.Time, time.Time) {
	return time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
}

func TestGenerateBillForUserNoSubscription(t *testing.T) {
	svc := NewService(newFakeBillingRepo())
	start, end := billingWindow()

	_, err := svc.GenerateBillForUser(42, start, end)
	assert.ErrorIs(t, err, ErrNoActiveSubscription)
}

func TestGenerateBillForUserWithinFreeQuota(t *testing.T) {
	repo := newFakeBillingRepo()
	subscribeUser(repo, 42, basicPlan())
	repo.records[42] = transformRecords(42, 1, 30)
	svc := NewService(repo)
	start, end := billingWindow()

	bill, err := svc.GenerateBillForUser(42, start, end)
	require.NoError(t, err)
	assert.Nil(t, bill, "free-quota-only usage produces no bill")
	assert.Nil(t, repo.createdBill)
	assert.Nil(t, repo.markedIDs, "records must stay unbilled when no bill is created")
}

func TestGenerateBillForUserAppliesMinimumCharge(t *testing.T) {
	repo := newFakeBillingRepo()
	subscribeUser(repo, 42, basicPlan())
	// 120 transformations: 70 billable at $0.01 is $0.70, floored to the
	// plan minimum of $5.
	repo.records[42] = transformRecords(42, 1, 120)
	svc := NewService(repo)
	start, end := billingWindow()

	bill, err := svc.GenerateBillForUser(42, start, end)
	require.NoError(t, err)
	require.NotNil(t, bill)
	assert.Equal(t, 5.00, bill.Amount)
	assert.Equal(t, "USD", bill.Currency)
	assert.Equal(t, models.BillStatusPending, bill.Status)
	assert.True(t, bill.StartPeriod.Equal(start))
	assert.True(t, bill.EndPeriod.Equal(end))
	assert.Len(t, repo.markedIDs, 120, "every consumed record is marked billed")
}

func TestGenerateBillForUserSumsOperations(t *testing.T) {
	repo := newFakeBillingRepo()
	subscribeUser(repo, 42, basicPlan())
	records := transformRecords(42, 1, 650) // 600 billable at $0.01 = $6.00
	records = append(records, models.UsageRecord{
		ID: 1000, UserID: 42, OperationType: models.OperationAPI,
		Quantity: 3000, Unit: models.UnitCalls, // 2000 billable at $0.001 = $2.00
	})
	repo.records[42] = records
	svc := NewService(repo)
	start, end := billingWindow()

	bill, err := svc.GenerateBillForUser(42, start, end)
	require.NoError(t, err)
	require.NotNil(t, bill)
	assert.Equal(t, 8.00, bill.Amount)
	assert.Len(t, repo.markedIDs, 651)
}

func TestGenerateBillsTwiceProducesNoSecondBill(t *testing.T) {
	repo := newFakeBillingRepo()
	subscribeUser(repo, 42, basicPlan())
	repo.records[42] = transformRecords(42, 1, 120)
	svc := NewService(repo)
	start, end := billingWindow()

	first, err := svc.GenerateBills(start, end)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := svc.GenerateBills(start, end)
	require.NoError(t, err)
	assert.Empty(t, second, "records consumed by the first run must not bill again")
	assert.Len(t, repo.bills, 1)
}

func TestGenerateBillsIsolatesPerUserFailures(t *testing.T) {
	repo := newFakeBillingRepo()
	subscribeUser(repo, 1, basicPlan())
	subscribeUser(repo, 2, basicPlan())
	repo.records[2] = transformRecords(2, 1, 650)

	// User 1's aggregation fails on the first call only; user 2 must still
	// be billed.
	failures := 0
	svc := NewService(&failingOnceRepo{fakeBillingRepo: repo, failFor: 1, failures: &failures})
	start, end := billingWindow()

	bills, err := svc.GenerateBills(start, end)
	require.NoError(t, err)
	require.Len(t, bills, 1)
	assert.Equal(t, uint(2), bills[0].UserID)
	assert.Equal(t, 1, failures)
}

// failingOnceRepo fails UnbilledRecords for one specific user.
type failingOnceRepo struct {
	*fakeBillingRepo
	failFor  uint
	failures *int
}

func (f *failingOnceRepo) UnbilledRecords(userID uint, start, end time.Time) ([]models.UsageRecord, error) {
	if userID == f.failFor {
		*f.failures++
		return nil, errors.New("aggregation failed")
	}
	return f.fakeBillingRepo.UnbilledRecords(userID, start, end)
}

func TestPayBill(t *testing.T) {
	repo := newFakeBillingRepo()
	repo.bills[1] = &models.Bill{ID: 1, UserID: 42, Amount: 5, Currency: "USD", Status: models.BillStatusPending}
	svc := NewService(repo)

	bill, err := svc.PayBill(1, 42, false)
	require.NoError(t, err)
	assert.Equal(t, models.BillStatusPaid, bill.Status)
	require.NotNil(t, bill.PaidAt)
	require.NotNil(t, repo.savedBill)
	assert.Equal(t, models.BillStatusPaid, repo.savedBill.Status)
}

func TestPayBillForeignUserReadsAsNotFound(t *testing.T) {
	repo := newFakeBillingRepo()
	repo.bills[1] = &models.Bill{ID: 1, UserID: 42, Status: models.BillStatusPending}
	svc := NewService(repo)

	_, err := svc.PayBill(1, 99, false)
	assert.ErrorIs(t, err, ErrBillNotFound)

	// Admins may settle any user's bill.
	bill, err := svc.PayBill(1, 99, true)
	require.NoError(t, err)
	assert.Equal(t, models.BillStatusPaid, bill.Status)
}

func TestPayBillAlreadyPaid(t *testing.T) {
	repo := newFakeBillingRepo()
	repo.bills[1] = &models.Bill{ID: 1, UserID: 42, Status: models.BillStatusPaid}
	svc := NewService(repo)

	_, err := svc.PayBill(1, 42, false)
	assert.ErrorIs(t, err, ErrBillNotPending)
}

func TestPayBillUnknownBill(t *testing.T) {
	svc := NewService(newFakeBillingRepo())

	_, err := svc.PayBill(123, 42, false)
	assert.ErrorIs(t, err, ErrBillNotFound)
}

func TestSubscribeUnknownPlan(t *testing.T) {
	repo := newFakeBillingRepo()
	repo.users[42] = &models.User{ID: 42}
	svc := NewService(repo)

	_, err := svc.Subscribe(42, 999)
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestSubscribeUnknownUser(t *testing.T) {
	repo := newFakeBillingRepo()
	repo.plans[2] = basicPlan()
	svc := NewService(repo)

	_, err := svc.Subscribe(42, 2)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSubscribeUpsertsActiveSubscription(t *testing.T) {
	repo := newFakeBillingRepo()
	repo.plans[2] = basicPlan()
	repo.users[42] = &models.User{ID: 42}
	svc := NewService(repo)

	sub, err := svc.Subscribe(42, 2)
	require.NoError(t, err)
	assert.Equal(t, uint(42), sub.UserID)
	assert.Equal(t, uint(2), sub.PricingPlanID)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
	assert.Nil(t, sub.EndDate)
	assert.Same(t, sub, repo.upsertedSub)
}

func TestBillingHistoryDefaults(t *testing.T) {
	repo := newFakeBillingRepo()
	svc := NewService(repo)

	history, err := svc.BillingHistory(42, 0, -3)
	require.NoError(t, err)
	assert.Equal(t, 10, history.Limit)
	assert.Equal(t, 0, history.Offset)
	assert.Equal(t, 10, repo.historyLimit)
	assert.Equal(t, 0, repo.historyOffset)
}

func TestCurrentUsageWithoutSubscription(t *testing.T) {
	repo := newFakeBillingRepo()
	repo.records[42] = transformRecords(42, 1, 5)
	svc := NewService(repo)

	summary, err := svc.CurrentUsage(42)
	require.NoError(t, err)
	assert.Equal(t, int64(5), summary.UsageByOperation[models.OperationTransform].Total)
	assert.Zero(t, summary.EstimatedCost, "no subscription means no estimate")
	assert.Equal(t, "USD", summary.Currency)
}

func TestCurrentUsageEstimatesAgainstPlan(t *testing.T) {
	repo := newFakeBillingRepo()
	subscribeUser(repo, 42, basicPlan())
	repo.records[42] = transformRecords(42, 1, 150) // 100 billable at $0.01
	svc := NewService(repo)

	summary, err := svc.CurrentUsage(42)
	require.NoError(t, err)
	assert.InDelta(t, 1.00, summary.EstimatedCost, 1e-9)
}

func TestUpdatePaymentMethod(t *testing.T) {
	repo := newFakeBillingRepo()
	repo.users[42] = &models.User{ID: 42}
	svc := NewService(repo)

	user, err := svc.UpdatePaymentMethod(42, "pm_card_visa")
	require.NoError(t, err)
	assert.True(t, user.HasPaymentMethod())
	assert.Equal(t, "pm_card_visa", repo.users[42].PaymentMethod)
}
