package scheduler

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/elvish-ishaan/dotformer/internal/pkg/billing"
	"github.com/elvish-ishaan/dotformer/internal/pkg/jobqueue"
)

// BillingEnqueuer hands billing runs to the job queue.
type BillingEnqueuer interface {
	EnqueueBillingRun(start, end time.Time, manual bool) (*jobqueue.Job, error)
}

// Scheduler triggers the monthly billing run. On the first instant of each
// calendar month (UTC) it enqueues a billing run over the month that just
// ended. Missed ticks are not replayed; re-running a period is harmless
// because billed records are excluded from aggregation.
type Scheduler struct {
	enqueuer BillingEnqueuer
	stopCh   chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

// New creates a billing scheduler.
func New(enqueuer BillingEnqueuer) *Scheduler {
	return &Scheduler{
		enqueuer: enqueuer,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the scheduling loop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true

	s.wg.Add(1)
	go s.run()
}

// Stop stops the scheduling loop and waits for it to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	close(s.stopCh)
	s.running = false
	s.wg.Wait()
	log.Info("[Scheduler] Stopped")
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	for {
		next := nextMonthStart(time.Now())
		log.Infof("[Scheduler] Next billing run at %s", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-s.stopCh:
			timer.Stop()
			log.Info("[Scheduler] Billing loop stopping")
			return
		case <-timer.C:
			s.triggerBillingRun(next)
		}
	}
}

func (s *Scheduler) triggerBillingRun(now time.Time) {
	start, end := billing.PreviousMonthWindow(now)
	if _, err := s.enqueuer.EnqueueBillingRun(start, end, false); err != nil {
		log.Errorf("[Scheduler] Failed to enqueue billing run for %s: %v",
			start.Format("2006-01"), err)
		return
	}
	log.Infof("[Scheduler] Enqueued billing run for %s", start.Format("2006-01"))
}

// nextMonthStart returns the first instant of the next calendar month in UTC.
func nextMonthStart(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
}
