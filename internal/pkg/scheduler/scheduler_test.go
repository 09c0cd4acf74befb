package scheduler

import (
	"testing"
	"time"

	"github.com/elvish-ishaan/dotformer/internal/pkg/jobqueue"
)

type fakeEnqueuer struct {
	start  time.Time
	end    time.Time
	manual bool
	calls  int
}

func (f *fakeEnqueuer) EnqueueBillingRun(start, end time.Time, manual bool) (*jobqueue.Job, error) {
	f.start, f.end, f.manual = start, end, manual
	f.calls++
	return &jobqueue.Job{ID: "job-1"}, nil
}

func TestNextMonthStart(t *testing.T) {
	tests := []struct {
		now  time.Time
		want time.Time
	}{
		{
			now:  time.Date(2026, time.August, 15, 10, 0, 0, 0, time.UTC),
			want: time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			now:  time.Date(2026, time.December, 31, 23, 59, 59, 0, time.UTC),
			want: time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			// Already at a month boundary: the next run is a month away.
			now:  time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC),
			want: time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		if got := nextMonthStart(tt.now); !got.Equal(tt.want) {
			t.Fatalf("nextMonthStart(%s) = %s, want %s", tt.now, got, tt.want)
		}
	}
}

func TestTriggerBillingRunEnqueuesPreviousMonth(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	s := New(enqueuer)

	tick := time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)
	s.triggerBillingRun(tick)

	if enqueuer.calls != 1 {
		t.Fatalf("EnqueueBillingRun called %d times, want 1", enqueuer.calls)
	}
	if !enqueuer.start.Equal(time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("start = %s", enqueuer.start)
	}
	if !enqueuer.end.Equal(tick) {
		t.Fatalf("end = %s", enqueuer.end)
	}
	if enqueuer.manual {
		t.Fatal("scheduled runs must not be flagged manual")
	}
}

func TestStartStopIsIdempotent(t *testing.T) {
	s := New(&fakeEnqueuer{})
	s.Start()
	s.Start()
	s.Stop()
	s.Stop()
}
