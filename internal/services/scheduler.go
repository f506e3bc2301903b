package services

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/gafferbot/gaffer/pkg/logger"
)

// SchedulerJobs are the callbacks the scheduler drives. The workflow owns
// the logic; the scheduler only owns the calendar.
type SchedulerJobs struct {
	// DailyRefresh pulls availability, prices and fixtures every morning.
	DailyRefresh func(ctx context.Context) error
	// IntelSweep polls intelligence sources. Runs hourly.
	IntelSweep func(ctx context.Context) error
	// DecisionRun executes the full gameweek workflow ahead of the deadline.
	DecisionRun func(ctx context.Context) error
	// PostGameweekLearn reviews predictions once the gameweek resolves.
	PostGameweekLearn func(ctx context.Context) error
	// PurgeSignals drops expired intelligence rows.
	PurgeSignals func(ctx context.Context) error
}

// Scheduler runs the recurring maintenance and decision jobs on cron
// schedules. Jobs are skipped, not queued, when a previous run of the same
// job is still in flight.
type Scheduler struct {
	cron    *cron.Cron
	jobs    SchedulerJobs
	timeout time.Duration
	log     *logrus.Entry

	mu      sync.Mutex
	running map[string]bool
}

func NewScheduler(jobs SchedulerJobs, jobTimeout time.Duration) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		jobs:    jobs,
		timeout: jobTimeout,
		log:     logger.WithComponent("scheduler"),
		running: make(map[string]bool),
	}
}

// Start registers the schedules and begins running them.
func (s *Scheduler) Start() error {
	schedules := []struct {
		name string
		spec string
		fn   func(ctx context.Context) error
	}{
		{"daily_refresh", "0 6 * * *", s.jobs.DailyRefresh},
		{"intel_sweep", "0 * * * *", s.jobs.IntelSweep},
		{"decision_run", "0 9 * * 5", s.jobs.DecisionRun},
		{"post_gw_learn", "0 8 * * 2", s.jobs.PostGameweekLearn},
		{"purge_signals", "30 3 * * *", s.jobs.PurgeSignals},
	}

	for _, job := range schedules {
		if job.fn == nil {
			continue
		}
		name, fn := job.name, job.fn
		if _, err := s.cron.AddFunc(job.spec, func() { s.run(name, fn) }); err != nil {
			return err
		}
		s.log.WithFields(logrus.Fields{"job": name, "schedule": job.spec}).Info("Registered job")
	}

	s.cron.Start()
	return nil
}

// Stop halts the schedule and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) run(name string, fn func(ctx context.Context) error) {
	s.mu.Lock()
	if s.running[name] {
		s.mu.Unlock()
		s.log.WithField("job", name).Warn("Previous run still in flight, skipping")
		return
	}
	s.running[name] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running[name] = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	started := time.Now()
	err := fn(ctx)
	entry := s.log.WithFields(logrus.Fields{
		"job":      name,
		"duration": time.Since(started).String(),
	})
	if err != nil {
		entry.WithError(err).Error("Job failed")
		return
	}
	entry.Info("Job finished")
}
