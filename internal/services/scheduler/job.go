// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package scheduler runs the periodic sweeps that drive reminders and
// grace-period expiry. Sweeps are idempotent by construction, so overlapping
// runs and restarts are harmless.
package scheduler

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"
)

// JobStatus is a snapshot of one periodic job for the admin surface.
type JobStatus struct {
	Name      string    `json:"name"`
	Interval  string    `json:"interval"`
	Running   bool      `json:"running"`
	Runs      int64     `json:"runs"`
	LastRun   time.Time `json:"last_run,omitzero"`
	LastError string    `json:"last_error,omitempty"`
}

// Job is one periodic task with explicit start/stop and a jittered first run
// so multiple instances do not sweep in lockstep.
type Job struct {
	name     string
	interval time.Duration
	fn       func(context.Context) error

	mu      sync.Mutex
	running bool
	runs    int64
	lastRun time.Time
	lastErr string

	stop chan struct{}
	done chan struct{}
}

// NewJob creates a job that runs fn every interval once started.
func NewJob(name string, interval time.Duration, fn func(context.Context) error) *Job {
	return &Job{name: name, interval: interval, fn: fn}
}

// Start launches the periodic loop. Calling Start on a started job is a no-op.
func (j *Job) Start(ctx context.Context) {
	j.mu.Lock()
	if j.stop != nil {
		j.mu.Unlock()
		return
	}
	j.stop = make(chan struct{})
	j.done = make(chan struct{})
	stop, done := j.stop, j.done
	j.mu.Unlock()

	go func() {
		defer close(done)

		// Jittered first run keeps restarts from thundering.
		first := time.Duration(rand.Int64N(int64(firstRunWindow(j.interval))))
		select {
		case <-time.After(first):
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
		j.Run(ctx)

		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				j.Run(ctx)
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the periodic loop and waits for an in-flight run to return.
func (j *Job) Stop() {
	j.mu.Lock()
	stop, done := j.stop, j.done
	j.stop, j.done = nil, nil
	j.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// Run executes the job once, immediately. Used by the ticker loop and by the
// manual trigger on the admin surface.
func (j *Job) Run(ctx context.Context) {
	j.mu.Lock()
	j.running = true
	j.mu.Unlock()

	start := time.Now()
	err := j.fn(ctx)

	j.mu.Lock()
	j.running = false
	j.runs++
	j.lastRun = start
	if err != nil {
		j.lastErr = err.Error()
	} else {
		j.lastErr = ""
	}
	j.mu.Unlock()

	if err != nil {
		slog.Error("sweep failed", "job", j.name, "error", err)
	} else {
		slog.Debug("sweep complete", "job", j.name, "took", time.Since(start))
	}
}

// Status returns a snapshot of the job state.
func (j *Job) Status() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return JobStatus{
		Name:      j.name,
		Interval:  j.interval.String(),
		Running:   j.running,
		Runs:      j.runs,
		LastRun:   j.lastRun,
		LastError: j.lastErr,
	}
}

func firstRunWindow(interval time.Duration) time.Duration {
	if interval < time.Minute {
		return interval
	}
	return time.Minute
}
