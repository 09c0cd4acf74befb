package jobqueue

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/elvish-ishaan/dotformer/app/models"
)

// BillingRunner executes a billing run over a period.
type BillingRunner interface {
	GenerateBills(start, end time.Time) ([]*models.Bill, error)
}

// EnqueueBillingRun queues a billing run over [start, end). Used by the
// monthly scheduler and the admin manual trigger.
func (q *Queue) EnqueueBillingRun(start, end time.Time, manual bool) (*Job, error) {
	payload := GenerateBillsJobPayload{
		StartPeriod: start.UTC().Format(time.RFC3339),
		EndPeriod:   end.UTC().Format(time.RFC3339),
		Manual:      manual,
	}
	return q.EnqueueJob(JobTypeGenerateBills, payload.ToMap())
}

// processGenerateBillsJob runs bill generation for the queued period.
// Re-running over an already-billed period is harmless: billed records are
// excluded from aggregation, so the second run produces no bills.
func (q *Queue) processGenerateBillsJob(job *Job) error {
	payload, err := GenerateBillsJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid billing run payload: %w", err)
	}

	start, err := time.Parse(time.RFC3339, payload.StartPeriod)
	if err != nil {
		return fmt.Errorf("invalid start period %q: %w", payload.StartPeriod, err)
	}
	end, err := time.Parse(time.RFC3339, payload.EndPeriod)
	if err != nil {
		return fmt.Errorf("invalid end period %q: %w", payload.EndPeriod, err)
	}
	if !end.After(start) {
		return fmt.Errorf("billing period end %s is not after start %s", payload.EndPeriod, payload.StartPeriod)
	}

	bills, err := q.billing.GenerateBills(start, end)
	if err != nil {
		return err
	}

	trigger := "scheduled"
	if payload.Manual {
		trigger = "manual"
	}
	log.Infof("[JobQueue] Billing run (%s) generated %d bills for period %s to %s",
		trigger, len(bills), start.Format("2006-01-02"), end.Format("2006-01-02"))
	return nil
}
