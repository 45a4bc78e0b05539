package daemon

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// parkDuration is the timer used while no schedule is set.
const parkDuration = time.Hour * 10000

// Scheduler fires a task at cron-scheduled times. It backs the scheduled
// top-up feature: the task routes through the daemon's ordinary toggle
// path, so a scheduled activation is indistinguishable from a manual one.
type Scheduler struct {
	task   func()
	parser cron.Parser

	mu       sync.Mutex
	schedule cron.Schedule
	expr     string
	nextRun  time.Time
	running  bool

	reloadCh chan struct{}
	stopCh   chan struct{}
}

func NewScheduler(task func()) *Scheduler {
	if task == nil {
		panic("task function cannot be nil")
	}

	return &Scheduler{
		task:     task,
		parser:   cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		reloadCh: make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
	}
}

// Set installs a new cron expression, or clears the schedule when expr is
// empty. Takes effect immediately even while running.
func (s *Scheduler) Set(expr string) error {
	if expr == "" {
		s.mu.Lock()
		s.schedule = nil
		s.expr = ""
		s.nextRun = time.Time{}
		s.mu.Unlock()
		s.tryReload()
		return nil
	}

	sh, err := s.parser.Parse(expr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.schedule = sh
	s.expr = expr
	s.nextRun = sh.Next(time.Now())
	s.mu.Unlock()
	s.tryReload()
	return nil
}

// Status returns the current expression and the next run time. Both are
// zero values when no schedule is set.
func (s *Scheduler) Status() (expr string, next time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expr, s.nextRun
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	go s.run()
}

func (s *Scheduler) Stop() {
	select {
	case <-s.stopCh: // already closed
	default:
		close(s.stopCh)
	}
}

func (s *Scheduler) run() {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		logrus.Debug("top-up scheduler stopped")
	}()

	logrus.Debug("top-up scheduler started")

	for {
		s.mu.Lock()
		schedule, nextRun := s.schedule, s.nextRun
		s.mu.Unlock()

		var timer *time.Timer
		if schedule == nil || nextRun.IsZero() {
			timer = time.NewTimer(parkDuration)
		} else {
			wait := time.Until(nextRun)
			if wait < 0 {
				wait = 0
			}
			timer = time.NewTimer(wait)
		}

		select {
		case <-timer.C:
			if schedule == nil || nextRun.IsZero() {
				continue
			}
			logrus.Debugf("running scheduled task set for %s", nextRun.Format(time.DateTime))
			s.task()
			s.advance()
		case <-s.reloadCh: // schedule changed, recompute the timer
			timer.Stop()
		case <-s.stopCh:
			timer.Stop()
			return
		}
	}
}

func (s *Scheduler) advance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.schedule == nil {
		return
	}
	s.nextRun = s.schedule.Next(time.Now())
}

func (s *Scheduler) tryReload() {
	select {
	case s.reloadCh <- struct{}{}:
	default:
	}
}
