package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/prospector/pkg/domain/interfaces"
	"github.com/m-mizutani/prospector/pkg/domain/model"
	"github.com/m-mizutani/prospector/pkg/domain/types"
	"github.com/m-mizutani/prospector/pkg/utils/async"
)

const admissionBatchSize = 20

// Scheduler drives the job loop: every tick it enqueues sourcing jobs for due
// repositories and admits pending jobs under the concurrency budget.
// Enqueueing a job through the use case wakes it immediately instead of
// waiting for the next tick.
type Scheduler struct {
	store    interfaces.Store
	admitter *Admitter
	executor interfaces.Executor

	interval time.Duration
	wake     chan struct{}
	now      func() time.Time
	dispatch func(ctx context.Context, name string, fn func(ctx context.Context) error)
}

// SchedulerOption configures the Scheduler
type SchedulerOption func(*Scheduler)

// WithInterval sets the tick interval
func WithInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.interval = d }
}

// WithSchedulerClock replaces the time source, for tests
func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.now = now }
}

// WithDispatcher replaces the goroutine dispatcher, for tests that need
// synchronous execution
func WithDispatcher(d func(ctx context.Context, name string, fn func(ctx context.Context) error)) SchedulerOption {
	return func(s *Scheduler) { s.dispatch = d }
}

// NewScheduler creates the scheduler
func NewScheduler(store interfaces.Store, admitter *Admitter, executor interfaces.Executor, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		store:    store,
		admitter: admitter,
		executor: executor,
		interval: 30 * time.Second,
		wake:     make(chan struct{}, 1),
		now:      time.Now,
		dispatch: async.Dispatch,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Wake triggers an immediate tick without waiting for the interval
func (s *Scheduler) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run recovers orphaned jobs, then loops until the context is cancelled.
// Individual tick failures are logged and skipped; the loop keeps going.
func (s *Scheduler) Run(ctx context.Context) error {
	logger := ctxlog.From(ctx)

	recovered, err := s.store.ResetOrphanedJobs(ctx)
	if err != nil {
		return err
	}
	if recovered > 0 {
		logger.Warn("recovered orphaned jobs from previous run", "count", recovered)
	}

	logger.Info("scheduler started", "interval", s.interval)
	s.Tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		case <-s.wake:
			s.Tick(ctx)
		}
	}
}

// Tick runs one scheduling pass
func (s *Scheduler) Tick(ctx context.Context) {
	logger := ctxlog.From(ctx)

	if err := s.enqueueDue(ctx); err != nil {
		logger.Error("failed to enqueue due repositories", "error", err)
	}
	if err := s.admitPending(ctx); err != nil {
		logger.Error("failed to admit pending jobs", "error", err)
	}
}

// enqueueDue creates sourcing jobs for repositories whose schedule has
// elapsed, skipping those that already have an active sourcing job
func (s *Scheduler) enqueueDue(ctx context.Context) error {
	logger := ctxlog.From(ctx)

	repos, err := s.store.ListDueRepositories(ctx, s.now())
	if err != nil {
		return err
	}

	for _, repo := range repos {
		active, err := s.store.HasActiveSourcingJob(ctx, repo.ID)
		if err != nil {
			return err
		}
		if active {
			continue
		}

		job := &model.Job{
			ID:           types.NewJobID(),
			Type:         model.JobTypeRepositorySourcing,
			Status:       model.JobStatusPending,
			ProjectID:    repo.ProjectID,
			RepositoryID: repo.ID,
			CreatedAt:    s.now(),
		}
		if err := s.store.CreateJob(ctx, job); err != nil {
			return err
		}
		logger.Info("enqueued scheduled sourcing", "repository", repo.FullName, "job_id", job.ID)
	}
	return nil
}

// admitPending admits pending jobs in creation order until the budget fills
func (s *Scheduler) admitPending(ctx context.Context) error {
	logger := ctxlog.From(ctx)

	jobs, err := s.store.ListPendingJobs(ctx, admissionBatchSize)
	if err != nil {
		return err
	}

	for _, job := range jobs {
		release, err := s.admitter.Admit(ctx, job)
		if err != nil {
			if errors.Is(err, types.ErrBudgetExhausted) {
				// Remaining jobs stay pending until the next tick
				return nil
			}
			// Duplicate sourcing or a racing claim: skip this job, try the rest
			logger.Debug("job not admitted", "job_id", job.ID, "error", err)
			continue
		}

		id := job.ID
		s.dispatch(ctx, "job:"+string(job.Type), func(ctx context.Context) error {
			defer release()
			return s.executor.Execute(ctx, id)
		})
	}
	return nil
}
