package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/prospector/pkg/domain/interfaces"
	"github.com/m-mizutani/prospector/pkg/domain/model"
	"github.com/m-mizutani/prospector/pkg/domain/types"
)

// Waker is the scheduler surface the job use case pokes after enqueueing
type Waker interface {
	Wake()
}

// Jobs implements the collaborator-facing job use case
type Jobs struct {
	store interfaces.Store
	waker Waker
	now   func() time.Time
}

var _ interfaces.JobUseCase = (*Jobs)(nil)

// JobsOption configures Jobs
type JobsOption func(*Jobs)

// WithWaker wires the scheduler wake-up
func WithWaker(w Waker) JobsOption {
	return func(j *Jobs) { j.waker = w }
}

// WithJobsClock replaces the time source, for tests
func WithJobsClock(now func() time.Time) JobsOption {
	return func(j *Jobs) { j.now = now }
}

// NewJobs creates the job use case
func NewJobs(store interfaces.Store, opts ...JobsOption) *Jobs {
	j := &Jobs{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Enqueue validates and persists a new pending job, then wakes the scheduler.
// Duplicate sourcing requests for a repository with an active sourcing job
// are rejected with a conflict.
func (j *Jobs) Enqueue(ctx context.Context, job *model.Job) (*model.Job, error) {
	if job.ID == "" {
		job.ID = types.NewJobID()
	}
	job.Status = model.JobStatusPending
	job.CreatedAt = j.now()

	if err := job.Validate(); err != nil {
		return nil, err
	}

	if job.Type == model.JobTypeRepositorySourcing {
		if _, err := j.store.GetRepository(ctx, job.RepositoryID); err != nil {
			return nil, err
		}
		active, err := j.store.HasActiveSourcingJob(ctx, job.RepositoryID)
		if err != nil {
			return nil, err
		}
		if active {
			return nil, goerr.Wrap(types.ErrSourcingInProgress, "enqueue rejected",
				goerr.V("repository_id", job.RepositoryID))
		}
	}

	if err := j.store.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	ctxlog.From(ctx).Info("job enqueued", "job_id", job.ID, "job_type", job.Type)
	if j.waker != nil {
		j.waker.Wake()
	}
	return job, nil
}

// Cancel flips a pending or running job to cancelled. The executor observes
// the flag at its next checkpoint; records committed by completed stages are
// preserved.
func (j *Jobs) Cancel(ctx context.Context, id types.JobID) error {
	if _, err := j.store.MarkJobCancelled(ctx, id, j.now()); err != nil {
		return err
	}

	ctxlog.From(ctx).Info("job cancelled", "job_id", id)
	return nil
}

// Get returns a job with its step history
func (j *Jobs) Get(ctx context.Context, id types.JobID) (*model.Job, []*model.JobStep, error) {
	job, err := j.store.GetJob(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	steps, err := j.store.ListJobSteps(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return job, steps, nil
}

// List returns jobs filtered by status; empty status means all
func (j *Jobs) List(ctx context.Context, status model.JobStatus, limit int) ([]*model.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	return j.store.ListJobs(ctx, status, limit)
}

// Summary returns job counts by status
func (j *Jobs) Summary(ctx context.Context) (*model.JobSummary, error) {
	return j.store.CountJobsByStatus(ctx)
}

// ListDueRepositories returns repositories due for scheduled re-sourcing
func (j *Jobs) ListDueRepositories(ctx context.Context) ([]*model.Repository, error) {
	return j.store.ListDueRepositories(ctx, j.now())
}

// RegisterRepository starts tracking a repository. The new repository is due
// immediately, so the next scheduler tick enqueues its first sourcing run.
func (j *Jobs) RegisterRepository(ctx context.Context, repo *model.Repository) (*model.Repository, error) {
	if repo.ID == "" {
		repo.ID = types.NewRepositoryID()
	}
	if repo.ProjectID == "" {
		repo.ProjectID = types.NewProjectID()
	}
	if repo.FullName == "" {
		repo.FullName = repo.Owner + "/" + repo.Name
	}
	if repo.SourcingInterval == "" {
		repo.SourcingInterval = model.IntervalDaily
	}
	switch repo.SourcingInterval {
	case model.IntervalDaily, model.IntervalWeekly, model.IntervalMonthly:
	default:
		return nil, goerr.New("invalid sourcing interval",
			goerr.T(types.ErrTagValidation),
			goerr.V("interval", repo.SourcingInterval),
		)
	}
	if err := repo.Validate(); err != nil {
		return nil, err
	}

	if existing, err := j.store.GetRepositoryByFullName(ctx, repo.FullName); err == nil {
		return nil, goerr.New("repository already tracked",
			goerr.T(types.ErrTagConflict),
			goerr.V("repository_id", existing.ID),
			goerr.V("full_name", repo.FullName),
		)
	} else if !types.IsNotFound(err) {
		return nil, err
	}

	now := j.now()
	repo.CreatedAt = now
	repo.NextSourcingAt = &now
	if err := j.store.CreateRepository(ctx, repo); err != nil {
		return nil, err
	}

	ctxlog.From(ctx).Info("repository registered", "repository", repo.FullName)
	if j.waker != nil {
		j.waker.Wake()
	}
	return repo, nil
}
