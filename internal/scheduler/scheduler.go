// Package scheduler runs the console's periodic jobs with an explicit
// Start/Stop lifecycle.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/teresa-solution/owner-console/internal/monitoring"
)

// ErrStarted is returned by Add once the runner is running.
var ErrStarted = errors.New("scheduler: already started")

// Job is one unit of periodic work. ctx is cancelled on Stop.
type Job func(ctx context.Context) error

type job struct {
	name     string
	interval time.Duration
	fn       Job
}

// Runner ticks every added job on its own goroutine. Each job runs once
// right after Start and then every interval; a run never overlaps the
// previous run of the same job.
type Runner struct {
	mu      sync.Mutex
	jobs    []job
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

func New() *Runner {
	return &Runner{}
}

func (r *Runner) Add(name string, interval time.Duration, fn Job) error {
	if interval <= 0 {
		return fmt.Errorf("scheduler: job %s needs a positive interval", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return ErrStarted
	}
	r.jobs = append(r.jobs, job{name: name, interval: interval, fn: fn})
	return nil
}

// Start launches the jobs. Calling it twice is a no-op.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true
	ctx, r.cancel = context.WithCancel(ctx)

	for _, j := range r.jobs {
		r.wg.Add(1)
		go r.loop(ctx, j)
	}
	log.Info().Int("jobs", len(r.jobs)).Msg("Scheduler started")
}

func (r *Runner) loop(ctx context.Context, j job) {
	defer r.wg.Done()
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	r.run(ctx, j)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.run(ctx, j)
		}
	}
}

func (r *Runner) run(ctx context.Context, j job) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Str("job", j.name).Interface("panic", rec).Msg("Scheduled job panicked")
			monitoring.JobRuns.WithLabelValues(j.name, "panic").Inc()
		}
	}()
	started := time.Now()
	if err := j.fn(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Error().Err(err).Str("job", j.name).Msg("Scheduled job failed")
		monitoring.JobRuns.WithLabelValues(j.name, "error").Inc()
		return
	}
	log.Debug().Str("job", j.name).Dur("took", time.Since(started)).Msg("Scheduled job finished")
	monitoring.JobRuns.WithLabelValues(j.name, "ok").Inc()
}

// Stop cancels running jobs and waits for every loop to return.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	r.wg.Wait()
	log.Info().Msg("Scheduler stopped")
}
