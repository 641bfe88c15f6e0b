package interfaces

import (
	"context"

	"github.com/m-mizutani/prospector/pkg/domain/model"
	"github.com/m-mizutani/prospector/pkg/domain/types"
)

// JobUseCase is the surface consumed by the HTTP controller on behalf of
// external collaborators
type JobUseCase interface {
	// Enqueue validates and persists a new pending job, then wakes the scheduler
	Enqueue(ctx context.Context, job *model.Job) (*model.Job, error)

	// Cancel requests cooperative cancellation of a pending or running job
	Cancel(ctx context.Context, id types.JobID) error

	// Get returns a job with its full step history
	Get(ctx context.Context, id types.JobID) (*model.Job, []*model.JobStep, error)

	// List returns jobs filtered by status (empty status means all)
	List(ctx context.Context, status model.JobStatus, limit int) ([]*model.Job, error)

	// Summary returns job counts by status
	Summary(ctx context.Context) (*model.JobSummary, error)

	// ListDueRepositories returns repositories due for scheduled re-sourcing
	ListDueRepositories(ctx context.Context) ([]*model.Repository, error)

	// RegisterRepository starts tracking a repository. It is due for sourcing
	// immediately; the scheduler picks it up on the next tick.
	RegisterRepository(ctx context.Context, repo *model.Repository) (*model.Repository, error)
}

// Executor runs one admitted job through its pipeline to a terminal state
type Executor interface {
	Execute(ctx context.Context, id types.JobID) error
}
