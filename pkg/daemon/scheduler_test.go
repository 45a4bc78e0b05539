package daemon

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
)

func TestCronParse(t *testing.T) {
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse("@every 10m")
	if err != nil {
		t.Fatalf("failed to parse cron expression: %v", err)
	}

	now := time.Now()
	next1 := schedule.Next(now)
	next2 := schedule.Next(next1)

	if !next2.After(next1) {
		t.Fatalf("expected next2 to be after next1, got next1=%v next2=%v", next1, next2)
	}
}

func TestSchedulerSetStatus(t *testing.T) {
	s := NewScheduler(func() {})

	if err := s.Set("0 8 * * 5"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	expr, next := s.Status()
	if expr != "0 8 * * 5" {
		t.Errorf("expr = %q", expr)
	}
	if next.IsZero() {
		t.Error("next run should be set after scheduling")
	}
}

func TestSchedulerRejectsBadExpression(t *testing.T) {
	s := NewScheduler(func() {})

	if err := s.Set("not a cron expr"); err == nil {
		t.Fatal("expected error for invalid expression")
	}

	expr, next := s.Status()
	if expr != "" || !next.IsZero() {
		t.Errorf("bad expression must not install a schedule, got %q %v", expr, next)
	}
}

func TestSchedulerClear(t *testing.T) {
	s := NewScheduler(func() {})

	if err := s.Set("@every 1m"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if err := s.Set(""); err != nil {
		t.Fatalf("clearing returned error: %v", err)
	}

	expr, next := s.Status()
	if expr != "" || !next.IsZero() {
		t.Errorf("clear did not reset schedule, got %q %v", expr, next)
	}
}

func TestSchedulerFires(t *testing.T) {
	var fired int32
	s := NewScheduler(func() { atomic.AddInt32(&fired, 1) })

	if err := s.Set("@every 1s"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	// Pull the next run close so the test does not wait a full second.
	s.mu.Lock()
	s.nextRun = time.Now().Add(50 * time.Millisecond)
	s.mu.Unlock()

	s.Start()
	defer s.Stop()

	deadline := time.After(time.Second)
	for atomic.LoadInt32(&fired) == 0 {
		select {
		case <-deadline:
			t.Fatal("task did not fire in time")
		case <-time.After(10 * time.Millisecond):
		}
	}

	_, next := s.Status()
	if !next.After(time.Now()) {
		t.Errorf("next run was not advanced after firing, got %v", next)
	}
}
