package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeUsageRecord   JobType = "usage_record"
	JobTypeGenerateBills JobType = "generate_bills"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// UsageRecordJobPayload carries one metered usage event to the async writer.
type UsageRecordJobPayload struct {
	UserID        uint    `json:"user_id"`
	APIKeyID      *uint   `json:"api_key_id,omitempty"`
	OperationType string  `json:"operation_type"`
	ResourceID    *string `json:"resource_id,omitempty"`
	Quantity      int64   `json:"quantity"`
	Unit          string  `json:"unit"`
	Timestamp     string  `json:"timestamp"` // RFC3339
}

// ToMap converts the payload to a map for storage
func (p UsageRecordJobPayload) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"user_id":        p.UserID,
		"operation_type": p.OperationType,
		"quantity":       p.Quantity,
		"unit":           p.Unit,
		"timestamp":      p.Timestamp,
	}
	if p.APIKeyID != nil {
		m["api_key_id"] = *p.APIKeyID
	}
	if p.ResourceID != nil {
		m["resource_id"] = *p.ResourceID
	}
	return m
}

// FromMap creates a payload from a map
func UsageRecordJobPayloadFromMap(data map[string]interface{}) (*UsageRecordJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload UsageRecordJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// GenerateBillsJobPayload carries the billing window for a billing run.
type GenerateBillsJobPayload struct {
	StartPeriod string `json:"start_period"` // RFC3339
	EndPeriod   string `json:"end_period"`   // RFC3339
	Manual      bool   `json:"manual"`
}

// ToMap converts the payload to a map for storage
func (p GenerateBillsJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"start_period": p.StartPeriod,
		"end_period":   p.EndPeriod,
		"manual":       p.Manual,
	}
}

// FromMap creates a payload from a map
func GenerateBillsJobPayloadFromMap(data map[string]interface{}) (*GenerateBillsJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload GenerateBillsJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// IsRetryable checks if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

// MarkAsRetrying updates the job status to retrying
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}
