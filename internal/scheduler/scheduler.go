// Package scheduler runs the discovery job on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/deusflow/batterynews/internal/news"
)

// DefaultSchedule fires at the top of every hour.
const DefaultSchedule = "0 * * * *"

// Job is one discovery cycle.
type Job func(ctx context.Context, trigger news.Trigger)

type Scheduler struct {
	cron       *cron.Cron
	schedule   cron.Schedule
	spec       string
	job        Job
	runOnStart bool
	logger     *slog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Options struct {
	Spec       string
	Location   *time.Location
	RunOnStart bool
	Logger     *slog.Logger
}

// New validates the 5-field cron spec and prepares the scheduler.
func New(job Job, opts Options) (*Scheduler, error) {
	if opts.Spec == "" {
		opts.Spec = DefaultSchedule
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	schedule, err := cron.ParseStandard(opts.Spec)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", opts.Spec, err)
	}

	return &Scheduler{
		cron:       cron.New(cron.WithLocation(opts.Location)),
		schedule:   schedule,
		spec:       opts.Spec,
		job:        job,
		runOnStart: opts.RunOnStart,
		logger:     opts.Logger,
	}, nil
}

// Start registers the job and starts the cron loop. Jobs get a context that is
// canceled by Stop or when ctx ends.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	jobCtx := s.ctx
	s.mu.Unlock()

	s.cron.Schedule(s.schedule, cron.FuncJob(func() {
		s.run(jobCtx)
	}))
	s.cron.Start()
	s.logger.Info("scheduler started", "schedule", s.spec, "next_run", s.Next().Format(time.RFC3339))

	if s.runOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.run(jobCtx)
		}()
	}
}

func (s *Scheduler) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	s.job(ctx, news.TriggerScheduled)
}

// Next returns the next scheduled fire time, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Stop halts the cron loop and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		<-s.cron.Stop().Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}
