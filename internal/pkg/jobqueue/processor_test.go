package jobqueue

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elvish-ishaan/dotformer/app/models"
)

type fakeUsageWriter struct {
	records []*models.UsageRecord
	err     error
}

func (w *fakeUsageWriter) CreateUsageRecord(rec *models.UsageRecord) error {
	if w.err != nil {
		return w.err
	}
	w.records = append(w.records, rec)
	return nil
}

type fakeBillingRunner struct {
	start time.Time
	end   time.Time
	calls int
	err   error
}

func (r *fakeBillingRunner) GenerateBills(start, end time.Time) ([]*models.Bill, error) {
	r.start, r.end = start, end
	r.calls++
	return nil, r.err
}

func TestProcessUsageRecordJob(t *testing.T) {
	writer := &fakeUsageWriter{}
	q := &Queue{usage: writer}

	keyID := uint(7)
	ts := time.Date(2026, time.August, 20, 12, 0, 0, 0, time.UTC)
	payload := UsageRecordJobPayload{
		UserID:        42,
		APIKeyID:      &keyID,
		OperationType: models.OperationUpload,
		Quantity:      2048,
		Unit:          models.UnitBytes,
		Timestamp:     ts.Format(time.RFC3339Nano),
	}
	job := &Job{ID: "j1", Type: JobTypeUsageRecord, Payload: payload.ToMap()}

	require.NoError(t, q.processUsageRecordJob(job))
	require.Len(t, writer.records, 1)

	rec := writer.records[0]
	assert.Equal(t, uint(42), rec.UserID)
	assert.Equal(t, &keyID, rec.APIKeyID)
	assert.Equal(t, int64(2048), rec.Quantity)
	assert.True(t, rec.Timestamp.Equal(ts))
}

func TestProcessUsageRecordJobRejectsUnknownOperation(t *testing.T) {
	writer := &fakeUsageWriter{}
	q := &Queue{usage: writer}

	payload := UsageRecordJobPayload{
		UserID:        42,
		OperationType: "teleport",
		Quantity:      1,
		Unit:          models.UnitCalls,
		Timestamp:     time.Now().UTC().Format(time.RFC3339Nano),
	}
	job := &Job{ID: "j1", Type: JobTypeUsageRecord, Payload: payload.ToMap()}

	require.Error(t, q.processUsageRecordJob(job))
	assert.Empty(t, writer.records)
}

func TestProcessUsageRecordJobBadTimestampFallsBack(t *testing.T) {
	writer := &fakeUsageWriter{}
	q := &Queue{usage: writer}

	created := time.Date(2026, time.August, 20, 9, 30, 0, 0, time.UTC)
	payload := UsageRecordJobPayload{
		UserID:        42,
		OperationType: models.OperationAPI,
		Quantity:      1,
		Unit:          models.UnitCalls,
		Timestamp:     "yesterday-ish",
	}
	job := &Job{ID: "j1", Type: JobTypeUsageRecord, Payload: payload.ToMap(), CreatedAt: created}

	require.NoError(t, q.processUsageRecordJob(job))
	require.Len(t, writer.records, 1)
	assert.True(t, writer.records[0].Timestamp.Equal(created),
		"a bad timestamp falls back to the enqueue time instead of dropping the record")
}

func TestProcessGenerateBillsJob(t *testing.T) {
	runner := &fakeBillingRunner{}
	q := &Queue{billing: runner}

	start := time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	payload := GenerateBillsJobPayload{
		StartPeriod: start.Format(time.RFC3339),
		EndPeriod:   end.Format(time.RFC3339),
		Manual:      true,
	}
	job := &Job{ID: "j2", Type: JobTypeGenerateBills, Payload: payload.ToMap()}

	require.NoError(t, q.processGenerateBillsJob(job))
	assert.Equal(t, 1, runner.calls)
	assert.True(t, runner.start.Equal(start))
	assert.True(t, runner.end.Equal(end))
}

func TestProcessGenerateBillsJobRejectsInvertedPeriod(t *testing.T) {
	runner := &fakeBillingRunner{}
	q := &Queue{billing: runner}

	start := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	payload := GenerateBillsJobPayload{
		StartPeriod: start.Format(time.RFC3339),
		EndPeriod:   start.Format(time.RFC3339),
	}
	job := &Job{ID: "j2", Type: JobTypeGenerateBills, Payload: payload.ToMap()}

	require.Error(t, q.processGenerateBillsJob(job))
	assert.Zero(t, runner.calls)
}

func TestProcessGenerateBillsJobPropagatesRunFailure(t *testing.T) {
	runner := &fakeBillingRunner{err: errors.New("db down")}
	q := &Queue{billing: runner}

	payload := GenerateBillsJobPayload{
		StartPeriod: "2026-07-01T00:00:00Z",
		EndPeriod:   "2026-08-01T00:00:00Z",
	}
	job := &Job{ID: "j2", Type: JobTypeGenerateBills, Payload: payload.ToMap()}

	require.Error(t, q.processGenerateBillsJob(job))
}
