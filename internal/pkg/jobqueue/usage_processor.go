package jobqueue

import (
	"fmt"
	"time"

	"github.com/elvish-ishaan/dotformer/app/models"
)

// UsageWriter persists usage records dequeued from the job queue.
type UsageWriter interface {
	CreateUsageRecord(rec *models.UsageRecord) error
}

// EnqueueUsageRecord queues a usage record for asynchronous persistence.
// This is the meter's Recorder implementation.
func (q *Queue) EnqueueUsageRecord(rec *models.UsageRecord) error {
	payload := UsageRecordJobPayload{
		UserID:        rec.UserID,
		APIKeyID:      rec.APIKeyID,
		OperationType: rec.OperationType,
		ResourceID:    rec.ResourceID,
		Quantity:      rec.Quantity,
		Unit:          rec.Unit,
		Timestamp:     rec.Timestamp.Format(time.RFC3339Nano),
	}

	_, err := q.EnqueueJob(JobTypeUsageRecord, payload.ToMap())
	return err
}

// processUsageRecordJob writes one queued usage record to the database.
func (q *Queue) processUsageRecordJob(job *Job) error {
	payload, err := UsageRecordJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid usage record payload: %w", err)
	}

	if !models.IsValidOperationType(payload.OperationType) {
		return fmt.Errorf("invalid operation type: %s", payload.OperationType)
	}

	ts, err := time.Parse(time.RFC3339Nano, payload.Timestamp)
	if err != nil {
		// Keep the record rather than dropping it over a bad timestamp.
		ts = job.CreatedAt.UTC()
	}

	rec := &models.UsageRecord{
		UserID:        payload.UserID,
		APIKeyID:      payload.APIKeyID,
		OperationType: payload.OperationType,
		ResourceID:    payload.ResourceID,
		Quantity:      payload.Quantity,
		Unit:          payload.Unit,
		Timestamp:     ts,
	}
	return q.usage.CreateUsageRecord(rec)
}
