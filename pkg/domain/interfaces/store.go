package interfaces

import (
	"context"
	"time"

	"github.com/m-mizutani/prospector/pkg/domain/model"
	"github.com/m-mizutani/prospector/pkg/domain/types"
)

// Store is the durable record of jobs, steps and enrichment output. It is the
// only synchronization point between workers; every write is scoped to one
// stage's commit.
type Store interface {
	JobStore
	RepositoryStore
	ContributorStore
}

// JobStore covers the job lifecycle and its step history
type JobStore interface {
	CreateJob(ctx context.Context, job *model.Job) error
	GetJob(ctx context.Context, id types.JobID) (*model.Job, error)

	// ListPendingJobs returns pending jobs in creation order
	ListPendingJobs(ctx context.Context, limit int) ([]*model.Job, error)

	// ListJobs returns jobs filtered by status; an empty status means all
	ListJobs(ctx context.Context, status model.JobStatus, limit int) ([]*model.Job, error)

	// MarkJobRunning atomically transitions pending → running. It fails with a
	// conflict-tagged error when the job is no longer pending, which makes
	// double admission by racing schedulers impossible.
	MarkJobRunning(ctx context.Context, id types.JobID, now time.Time) (*model.Job, error)

	// MarkJobCancelled atomically transitions pending/running → cancelled and
	// returns the updated job. It fails with a conflict-tagged error when the
	// job is already terminal, so a terminal status is never overwritten.
	MarkJobCancelled(ctx context.Context, id types.JobID, now time.Time) (*model.Job, error)

	// UpdateJobIfRunning overwrites the job record only while its stored
	// status is still running. A false return with nil error means a
	// concurrent transition (a cancel request) finalized the job first; the
	// stored record is left untouched.
	UpdateJobIfRunning(ctx context.Context, job *model.Job) (bool, error)

	// HasActiveSourcingJob reports whether a pending or running
	// repository_sourcing job exists for the repository
	HasActiveSourcingJob(ctx context.Context, repoID types.RepositoryID) (bool, error)

	// ResetOrphanedJobs returns jobs stuck in running back to pending with
	// cleared step state. Called once on startup.
	ResetOrphanedJobs(ctx context.Context) (int, error)

	CountJobsByStatus(ctx context.Context) (*model.JobSummary, error)

	CreateJobStep(ctx context.Context, step *model.JobStep) error
	UpdateJobStep(ctx context.Context, step *model.JobStep) error
	ListJobSteps(ctx context.Context, jobID types.JobID) ([]*model.JobStep, error)
	DeleteJobSteps(ctx context.Context, jobID types.JobID) error
}

// RepositoryStore covers tracked repositories and their sourcing schedule
type RepositoryStore interface {
	CreateRepository(ctx context.Context, repo *model.Repository) error
	GetRepository(ctx context.Context, id types.RepositoryID) (*model.Repository, error)
	GetRepositoryByFullName(ctx context.Context, fullName string) (*model.Repository, error)
	UpdateRepository(ctx context.Context, repo *model.Repository) error

	// ListDueRepositories returns repositories whose next_sourcing_at has elapsed
	ListDueRepositories(ctx context.Context, now time.Time) ([]*model.Repository, error)
}

// ContributorStore covers people, their stats and enrichment output
type ContributorStore interface {
	// UpsertContributor inserts or merges by GitHub numeric ID and returns the
	// stored row
	UpsertContributor(ctx context.Context, c *model.Contributor) (*model.Contributor, error)
	GetContributor(ctx context.Context, id types.ContributorID) (*model.Contributor, error)

	LinkRepositoryContributor(ctx context.Context, repoID types.RepositoryID, contribID types.ContributorID) error
	ListRepositoryContributors(ctx context.Context, repoID types.RepositoryID) ([]types.ContributorID, error)

	UpsertContributorStats(ctx context.Context, stats *model.ContributorStats) error
	GetContributorStats(ctx context.Context, repoID types.RepositoryID, contribID types.ContributorID) (*model.ContributorStats, error)
	ListContributorStats(ctx context.Context, contribID types.ContributorID) ([]*model.ContributorStats, error)

	UpsertSocialContext(ctx context.Context, sc *model.SocialContext) error
	GetSocialContext(ctx context.Context, contribID types.ContributorID) (*model.SocialContext, error)

	UpsertLeadScore(ctx context.Context, score *model.LeadScore) error
	GetLeadScore(ctx context.Context, projectID types.ProjectID, contribID types.ContributorID) (*model.LeadScore, error)
}
