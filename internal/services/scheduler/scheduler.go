// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package scheduler

import (
	"context"
	"fmt"

	"github.com/coatsure/warrantyd/internal/config"
)

// Job names, used by the admin surface to address a sweep.
const (
	JobReminders = "reminders"
	JobGrace     = "grace"
	JobReconcile = "reconcile"
)

// Scheduler owns the three periodic jobs. The sweeps share no lock; they
// coordinate through conditional store updates only.
type Scheduler struct {
	jobs map[string]*Job
}

// New wires the sweeps into periodic jobs.
func New(sw *Sweeper, cfg config.SchedulerConfig) *Scheduler {
	return &Scheduler{
		jobs: map[string]*Job{
			JobReminders: NewJob(JobReminders, cfg.ReminderInterval, sw.DispatchReminders),
			JobGrace:     NewJob(JobGrace, cfg.GraceInterval, sw.SweepGrace),
			JobReconcile: NewJob(JobReconcile, cfg.ReconcileInterval, sw.Reconcile),
		},
	}
}

// Start launches all jobs.
func (s *Scheduler) Start(ctx context.Context) {
	for _, j := range s.jobs {
		j.Start(ctx)
	}
}

// Stop halts all jobs and waits for in-flight sweeps.
func (s *Scheduler) Stop() {
	for _, j := range s.jobs {
		j.Stop()
	}
}

// Trigger runs the named job once, immediately.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	j, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	j.Run(ctx)
	return nil
}

// Statuses reports every job for the admin surface.
func (s *Scheduler) Statuses() []JobStatus {
	out := make([]JobStatus, 0, len(s.jobs))
	for _, name := range []string{JobReminders, JobGrace, JobReconcile} {
		out = append(out, s.jobs[name].Status())
	}
	return out
}
