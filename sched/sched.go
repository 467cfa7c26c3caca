// Package sched runs the daily valuation job on a cron timer. Restart
// waits for the previous timer to fully stop before the replacement
// starts, so two runs never overlap after a schedule change.
package sched

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is a named unit of scheduled work.
type Job interface {
	Run() error
	Name() string
}

// JobFunc adapts a plain function into a Job.
type JobFunc struct {
	JobName string
	Fn      func() error
}

func (j JobFunc) Run() error   { return j.Fn() }
func (j JobFunc) Name() string { return j.JobName }

var runTimeRe = regexp.MustCompile(`^([01]?\d|2[0-3]):([0-5]\d)$`)

// CronSpec converts a "HH:MM" run time into a daily cron spec.
func CronSpec(runTime string) (string, error) {
	m := runTimeRe.FindStringSubmatch(runTime)
	if m == nil {
		return "", fmt.Errorf("invalid run time %q, want HH:MM", runTime)
	}
	return fmt.Sprintf("0 %s %s * * *", m[2], m[1]), nil
}

// Scheduler owns a cron timer for the daily job.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	job     Job
	runTime string
	log     zerolog.Logger
}

// New builds a stopped scheduler for the given job.
func New(job Job, runTime string, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		job:     job,
		runTime: runTime,
		log:     log.With().Str("component", "sched").Logger(),
	}
}

// RunTime reports the currently configured run time.
func (s *Scheduler) RunTime() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runTime
}

// Start registers the daily job and starts the timer.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked()
}

func (s *Scheduler) startLocked() error {
	spec, err := CronSpec(s.runTime)
	if err != nil {
		return err
	}

	c := cron.New(cron.WithSeconds())
	_, err = c.AddFunc(spec, func() {
		s.log.Info().Str("job", s.job.Name()).Msg("running job")
		if err := s.job.Run(); err != nil {
			s.log.Error().Err(err).Str("job", s.job.Name()).Msg("job failed")
			return
		}
		s.log.Info().Str("job", s.job.Name()).Msg("job completed")
	})
	if err != nil {
		return fmt.Errorf("register job: %w", err)
	}

	c.Start()
	s.cron = c
	s.log.Info().Str("run_time", s.runTime).Str("spec", spec).Msg("scheduler started")
	return nil
}

// Stop halts the timer and waits for any in-flight run to finish.
// Stopping a scheduler that never started is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.cron = nil
	s.log.Info().Msg("scheduler stopped")
}

// Restart swaps in a new run time. The old timer is stopped and drained
// before the new one starts.
func (s *Scheduler) Restart(runTime string) error {
	if _, err := CronSpec(runTime); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.runTime = runTime
	return s.startLocked()
}

// RunNow executes the job immediately, outside the schedule.
func (s *Scheduler) RunNow() error {
	s.log.Info().Str("job", s.job.Name()).Msg("running job immediately")
	return s.job.Run()
}
