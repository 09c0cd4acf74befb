package metering

import (
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/elvish-ishaan/dotformer/app/models"
)

// Recorder accepts usage records for asynchronous persistence. The job queue
// implements this; the meter falls back to a direct write when enqueueing
// fails or no recorder is wired.
type Recorder interface {
	EnqueueUsageRecord(rec *models.UsageRecord) error
}

// RecordInput is one metered event handed to the meter.
type RecordInput struct {
	UserID        uint
	APIKeyID      *uint
	OperationType string
	ResourceID    *string
	Quantity      int64
	Unit          string
}

// Meter records billable usage events and answers period-usage queries.
type Meter struct {
	repo     Repository
	recorder Recorder
}

// NewMeter creates a usage meter. recorder may be nil, in which case every
// record is written directly.
func NewMeter(repo Repository, recorder Recorder) *Meter {
	return &Meter{repo: repo, recorder: recorder}
}

// Record persists a usage event, fire-and-forget. Failures are logged and
// never surface to the caller: losing a record must not fail or delay the
// request that produced it.
func (m *Meter) Record(input RecordInput) {
	if !models.IsValidOperationType(input.OperationType) {
		log.Errorf("[Metering] Dropping usage record with invalid operation type: %s", input.OperationType)
		return
	}

	quantity := input.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	unit := input.Unit
	if unit == "" {
		unit = models.UnitCalls
	}

	rec := &models.UsageRecord{
		UserID:        input.UserID,
		APIKeyID:      input.APIKeyID,
		OperationType: input.OperationType,
		ResourceID:    input.ResourceID,
		Quantity:      quantity,
		Unit:          unit,
		Timestamp:     time.Now().UTC(),
	}

	if m.recorder != nil {
		if err := m.recorder.EnqueueUsageRecord(rec); err == nil {
			return
		} else {
			log.Warnf("[Metering] Enqueue failed, writing usage record directly: %v", err)
		}
	}

	go func() {
		if err := m.repo.CreateUsageRecord(rec); err != nil {
			log.Errorf("[Metering] Failed to persist usage record (user=%d op=%s): %v",
				rec.UserID, rec.OperationType, err)
		}
	}()
}

// CurrentPeriodUsage sums the user's recorded quantity for one operation type
// since periodStart.
func (m *Meter) CurrentPeriodUsage(userID uint, operationType string, periodStart time.Time) (int64, error) {
	return m.repo.SumUsageSince(userID, operationType, periodStart)
}

// PeriodStart returns the start of the current quota period in UTC: the
// current day for free-plan accounts, the current calendar month otherwise.
func PeriodStart(freePlan bool, now time.Time) time.Time {
	now = now.UTC()
	if freePlan {
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}
