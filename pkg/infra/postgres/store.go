// Package postgres implements the durable Store on PostgreSQL via pgx
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/prospector/pkg/domain/interfaces"
	"github.com/m-mizutani/prospector/pkg/domain/model"
	"github.com/m-mizutani/prospector/pkg/domain/types"
)

// Store wraps a PostgreSQL connection pool
type Store struct {
	pool *pgxpool.Pool
}

var _ interfaces.Store = (*Store)(nil)

// New connects to the database, verifies the connection and applies the schema
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create connection pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, goerr.Wrap(err, "failed to ping database")
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, goerr.Wrap(err, "failed to apply schema")
	}
	return &Store{pool: pool}, nil
}

// Close closes the connection pool
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

const jobColumns = `id, job_type, status, project_id, repository_id, params,
	total_steps, current_step, progress, error_message, created_at, started_at, completed_at`

func scanJob(row pgx.Row) (*model.Job, error) {
	var job model.Job
	var params []byte
	err := row.Scan(&job.ID, &job.Type, &job.Status, &job.ProjectID, &job.RepositoryID, &params,
		&job.TotalSteps, &job.CurrentStep, &job.Progress, &job.ErrorMessage,
		&job.CreatedAt, &job.StartedAt, &job.CompletedAt)
	if err != nil {
		return nil, err
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &job.Params); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal job params", goerr.V("job_id", job.ID))
		}
	}
	return &job, nil
}

// CreateJob stores a new job
func (s *Store) CreateJob(ctx context.Context, job *model.Job) error {
	params, err := json.Marshal(job.Params)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal job params")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO jobs (id, job_type, status, project_id, repository_id, params,
		                   total_steps, current_step, progress, error_message, created_at, started_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		job.ID, job.Type, job.Status, job.ProjectID, job.RepositoryID, params,
		job.TotalSteps, job.CurrentStep, job.Progress, job.ErrorMessage,
		job.CreatedAt, job.StartedAt, job.CompletedAt,
	)
	if err != nil {
		return goerr.Wrap(err, "failed to create job", goerr.V("job_id", job.ID))
	}
	return nil
}

// GetJob returns a job by ID
func (s *Store) GetJob(ctx context.Context, id types.JobID) (*model.Job, error) {
	job, err := scanJob(s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, goerr.New("job not found", goerr.T(types.ErrTagNotFound), goerr.V("job_id", id))
		}
		return nil, goerr.Wrap(err, "failed to get job", goerr.V("job_id", id))
	}
	return job, nil
}

// UpdateJobIfRunning overwrites a job record only while it is still running.
// The conditional UPDATE guarantees executor bookkeeping can never clobber a
// concurrently-set terminal status.
func (s *Store) UpdateJobIfRunning(ctx context.Context, job *model.Job) (bool, error) {
	params, err := json.Marshal(job.Params)
	if err != nil {
		return false, goerr.Wrap(err, "failed to marshal job params")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET job_type = $2, status = $3, project_id = $4, repository_id = $5, params = $6,
		        total_steps = $7, current_step = $8, progress = $9, error_message = $10,
		        started_at = $11, completed_at = $12
		 WHERE id = $1 AND status = 'running'`,
		job.ID, job.Type, job.Status, job.ProjectID, job.RepositoryID, params,
		job.TotalSteps, job.CurrentStep, job.Progress, job.ErrorMessage,
		job.StartedAt, job.CompletedAt,
	)
	if err != nil {
		return false, goerr.Wrap(err, "failed to update running job", goerr.V("job_id", job.ID))
	}
	if tag.RowsAffected() == 0 {
		// Either missing or already finalized; only a missing job is an error
		if _, getErr := s.GetJob(ctx, job.ID); getErr != nil {
			return false, getErr
		}
		return false, nil
	}
	return true, nil
}

// MarkJobCancelled atomically cancels a pending or running job. The
// conditional UPDATE leaves terminal statuses intact.
func (s *Store) MarkJobCancelled(ctx context.Context, id types.JobID, now time.Time) (*model.Job, error) {
	job, err := scanJob(s.pool.QueryRow(ctx,
		`UPDATE jobs SET status = 'cancelled', completed_at = $2
		 WHERE id = $1 AND status IN ('pending', 'running')
		 RETURNING `+jobColumns,
		id, now))
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, goerr.Wrap(err, "failed to cancel job", goerr.V("job_id", id))
	}

	// Distinguish a missing job from one already terminal
	current, getErr := s.GetJob(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	return nil, goerr.New("job already finished",
		goerr.T(types.ErrTagConflict),
		goerr.V("job_id", id),
		goerr.V("status", current.Status),
	)
}

func (s *Store) queryJobs(ctx context.Context, query string, args ...any) ([]*model.Job, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query jobs")
	}
	defer rows.Close()

	var jobs []*model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan job")
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ListPendingJobs returns pending jobs in creation order
func (s *Store) ListPendingJobs(ctx context.Context, limit int) ([]*model.Job, error) {
	return s.queryJobs(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE status = 'pending' ORDER BY created_at LIMIT $1`,
		limit)
}

// ListJobs returns jobs newest first, optionally filtered by status
func (s *Store) ListJobs(ctx context.Context, status model.JobStatus, limit int) ([]*model.Job, error) {
	if status == "" {
		return s.queryJobs(ctx,
			`SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC LIMIT $1`, limit)
	}
	return s.queryJobs(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE status = $1 ORDER BY created_at DESC LIMIT $2`,
		status, limit)
}

// MarkJobRunning atomically claims a pending job. The conditional UPDATE makes
// double admission by racing schedulers impossible.
func (s *Store) MarkJobRunning(ctx context.Context, id types.JobID, now time.Time) (*model.Job, error) {
	job, err := scanJob(s.pool.QueryRow(ctx,
		`UPDATE jobs SET status = 'running', started_at = $2
		 WHERE id = $1 AND status = 'pending'
		 RETURNING `+jobColumns,
		id, now))
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, goerr.Wrap(err, "failed to claim job", goerr.V("job_id", id))
	}

	// Distinguish a missing job from one already claimed or terminal
	current, getErr := s.GetJob(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	return nil, goerr.New("job is not pending",
		goerr.T(types.ErrTagConflict),
		goerr.V("job_id", id),
		goerr.V("status", current.Status),
	)
}

// HasActiveSourcingJob reports an existing pending or running sourcing job for
// the repository
func (s *Store) HasActiveSourcingJob(ctx context.Context, repoID types.RepositoryID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM jobs
		   WHERE repository_id = $1 AND job_type = 'repository_sourcing'
		     AND status IN ('pending', 'running')
		 )`,
		repoID,
	).Scan(&exists)
	if err != nil {
		return false, goerr.Wrap(err, "failed to check active sourcing job", goerr.V("repository_id", repoID))
	}
	return exists, nil
}

// ResetOrphanedJobs returns running jobs to pending with cleared step state
func (s *Store) ResetOrphanedJobs(ctx context.Context) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx,
		`UPDATE jobs
		 SET status = 'pending', started_at = NULL, current_step = 0, progress = 0, error_message = ''
		 WHERE status = 'running'
		 RETURNING id`)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to reset orphaned jobs")
	}
	var ids []types.JobID
	for rows.Next() {
		var id types.JobID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, goerr.Wrap(err, "failed to scan job id")
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, goerr.Wrap(err, "failed to read reset jobs")
	}

	for _, id := range ids {
		if _, err := tx.Exec(ctx, `DELETE FROM job_steps WHERE job_id = $1`, id); err != nil {
			return 0, goerr.Wrap(err, "failed to clear orphaned job steps", goerr.V("job_id", id))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, goerr.Wrap(err, "failed to commit orphan recovery")
	}
	return len(ids), nil
}

// CountJobsByStatus aggregates job counts
func (s *Store) CountJobsByStatus(ctx context.Context) (*model.JobSummary, error) {
	rows, err := s.pool.Query(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to count jobs")
	}
	defer rows.Close()

	summary := &model.JobSummary{}
	for rows.Next() {
		var status model.JobStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, goerr.Wrap(err, "failed to scan job count")
		}
		switch status {
		case model.JobStatusPending:
			summary.Pending = count
		case model.JobStatusRunning:
			summary.Running = count
		case model.JobStatusCompleted:
			summary.Completed = count
		case model.JobStatusFailed:
			summary.Failed = count
		case model.JobStatusCancelled:
			summary.Cancelled = count
		}
	}
	return summary, rows.Err()
}

// CreateJobStep appends a step record
func (s *Store) CreateJobStep(ctx context.Context, step *model.JobStep) error {
	if step.ID == "" {
		step.ID = uuid.NewString()
	}
	var details []byte
	if step.Details != nil {
		var err error
		details, err = json.Marshal(step.Details)
		if err != nil {
			return goerr.Wrap(err, "failed to marshal step details")
		}
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO job_steps (id, job_id, step_number, step_name, status, message, details,
		                        error_message, started_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		step.ID, step.JobID, step.StepNumber, step.Name, step.Status, step.Message, details,
		step.ErrorMessage, step.StartedAt, step.CompletedAt,
	)
	if err != nil {
		return goerr.Wrap(err, "failed to create job step", goerr.V("job_id", step.JobID))
	}
	return nil
}

// UpdateJobStep overwrites a step record
func (s *Store) UpdateJobStep(ctx context.Context, step *model.JobStep) error {
	var details []byte
	if step.Details != nil {
		var err error
		details, err = json.Marshal(step.Details)
		if err != nil {
			return goerr.Wrap(err, "failed to marshal step details")
		}
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE job_steps SET status = $2, message = $3, details = $4, error_message = $5,
		        started_at = $6, completed_at = $7
		 WHERE id = $1`,
		step.ID, step.Status, step.Message, details, step.ErrorMessage,
		step.StartedAt, step.CompletedAt,
	)
	if err != nil {
		return goerr.Wrap(err, "failed to update job step", goerr.V("step_id", step.ID))
	}
	if tag.RowsAffected() == 0 {
		return goerr.New("job step not found", goerr.T(types.ErrTagNotFound), goerr.V("step_id", step.ID))
	}
	return nil
}

// ListJobSteps returns a job's steps ordered by step number
func (s *Store) ListJobSteps(ctx context.Context, jobID types.JobID) ([]*model.JobStep, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, job_id, step_number, step_name, status, message, details,
		        error_message, started_at, completed_at
		 FROM job_steps WHERE job_id = $1 ORDER BY step_number`,
		jobID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list job steps", goerr.V("job_id", jobID))
	}
	defer rows.Close()

	var steps []*model.JobStep
	for rows.Next() {
		var step model.JobStep
		var details []byte
		if err := rows.Scan(&step.ID, &step.JobID, &step.StepNumber, &step.Name, &step.Status,
			&step.Message, &details, &step.ErrorMessage, &step.StartedAt, &step.CompletedAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan job step")
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &step.Details); err != nil {
				return nil, goerr.Wrap(err, "failed to unmarshal step details", goerr.V("step_id", step.ID))
			}
		}
		steps = append(steps, &step)
	}
	return steps, rows.Err()
}

// DeleteJobSteps removes all step records for a job
func (s *Store) DeleteJobSteps(ctx context.Context, jobID types.JobID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM job_steps WHERE job_id = $1`, jobID); err != nil {
		return goerr.Wrap(err, "failed to delete job steps", goerr.V("job_id", jobID))
	}
	return nil
}

const repoColumns = `id, project_id, owner, repo_name, full_name, description, stars, forks,
	open_issues, language, topics, sourcing_interval, last_sourced_at, next_sourcing_at, created_at`

func scanRepo(row pgx.Row) (*model.Repository, error) {
	var repo model.Repository
	err := row.Scan(&repo.ID, &repo.ProjectID, &repo.Owner, &repo.Name, &repo.FullName,
		&repo.Description, &repo.Stars, &repo.Forks, &repo.OpenIssues, &repo.Language,
		&repo.Topics, &repo.SourcingInterval, &repo.LastSourcedAt, &repo.NextSourcingAt, &repo.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &repo, nil
}

// CreateRepository stores a new repository
func (s *Store) CreateRepository(ctx context.Context, repo *model.Repository) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO repositories (id, project_id, owner, repo_name, full_name, description,
		                           stars, forks, open_issues, language, topics, sourcing_interval,
		                           last_sourced_at, next_sourcing_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		repo.ID, repo.ProjectID, repo.Owner, repo.Name, repo.FullName, repo.Description,
		repo.Stars, repo.Forks, repo.OpenIssues, repo.Language, repo.Topics, repo.SourcingInterval,
		repo.LastSourcedAt, repo.NextSourcingAt, repo.CreatedAt,
	)
	if err != nil {
		return goerr.Wrap(err, "failed to create repository", goerr.V("full_name", repo.FullName))
	}
	return nil
}

// GetRepository returns a repository by ID
func (s *Store) GetRepository(ctx context.Context, id types.RepositoryID) (*model.Repository, error) {
	repo, err := scanRepo(s.pool.QueryRow(ctx,
		`SELECT `+repoColumns+` FROM repositories WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, goerr.New("repository not found", goerr.T(types.ErrTagNotFound), goerr.V("repository_id", id))
		}
		return nil, goerr.Wrap(err, "failed to get repository", goerr.V("repository_id", id))
	}
	return repo, nil
}

// GetRepositoryByFullName returns a repository by its owner/name form
func (s *Store) GetRepositoryByFullName(ctx context.Context, fullName string) (*model.Repository, error) {
	repo, err := scanRepo(s.pool.QueryRow(ctx,
		`SELECT `+repoColumns+` FROM repositories WHERE full_name = $1`, fullName))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, goerr.New("repository not found", goerr.T(types.ErrTagNotFound), goerr.V("full_name", fullName))
		}
		return nil, goerr.Wrap(err, "failed to get repository", goerr.V("full_name", fullName))
	}
	return repo, nil
}

// UpdateRepository overwrites a repository record
func (s *Store) UpdateRepository(ctx context.Context, repo *model.Repository) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE repositories SET project_id = $2, owner = $3, repo_name = $4, full_name = $5,
		        description = $6, stars = $7, forks = $8, open_issues = $9, language = $10,
		        topics = $11, sourcing_interval = $12, last_sourced_at = $13, next_sourcing_at = $14
		 WHERE id = $1`,
		repo.ID, repo.ProjectID, repo.Owner, repo.Name, repo.FullName,
		repo.Description, repo.Stars, repo.Forks, repo.OpenIssues, repo.Language,
		repo.Topics, repo.SourcingInterval, repo.LastSourcedAt, repo.NextSourcingAt,
	)
	if err != nil {
		return goerr.Wrap(err, "failed to update repository", goerr.V("repository_id", repo.ID))
	}
	if tag.RowsAffected() == 0 {
		return goerr.New("repository not found", goerr.T(types.ErrTagNotFound), goerr.V("repository_id", repo.ID))
	}
	return nil
}

// ListDueRepositories returns repositories whose sourcing schedule has elapsed
func (s *Store) ListDueRepositories(ctx context.Context, now time.Time) ([]*model.Repository, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+repoColumns+` FROM repositories
		 WHERE next_sourcing_at IS NOT NULL AND next_sourcing_at <= $1
		 ORDER BY next_sourcing_at`,
		now)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list due repositories")
	}
	defer rows.Close()

	var repos []*model.Repository
	for rows.Next() {
		repo, err := scanRepo(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan repository")
		}
		repos = append(repos, repo)
	}
	return repos, rows.Err()
}

const contributorColumns = `id, github_id, username, full_name, email, company, location, bio,
	blog, twitter_username, avatar_url, profile_url, public_repos, followers, following, created_at`

func scanContributor(row pgx.Row) (*model.Contributor, error) {
	var c model.Contributor
	err := row.Scan(&c.ID, &c.GitHubID, &c.Username, &c.FullName, &c.Email, &c.Company,
		&c.Location, &c.Bio, &c.Blog, &c.TwitterUsername, &c.AvatarURL, &c.ProfileURL,
		&c.PublicRepos, &c.Followers, &c.Following, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpsertContributor inserts or merges by GitHub numeric ID. Fresh non-empty
// profile fields win; counters always take the latest fetch.
func (s *Store) UpsertContributor(ctx context.Context, c *model.Contributor) (*model.Contributor, error) {
	id := c.ID
	if id == "" {
		id = types.NewContributorID()
	}

	stored, err := scanContributor(s.pool.QueryRow(ctx,
		`INSERT INTO contributors (id, github_id, username, full_name, email, company, location,
		                           bio, blog, twitter_username, avatar_url, profile_url,
		                           public_repos, followers, following)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 ON CONFLICT (github_id) DO UPDATE SET
		   username         = EXCLUDED.username,
		   full_name        = COALESCE(NULLIF(EXCLUDED.full_name, ''), contributors.full_name),
		   email            = COALESCE(NULLIF(EXCLUDED.email, ''), contributors.email),
		   company          = COALESCE(NULLIF(EXCLUDED.company, ''), contributors.company),
		   location         = COALESCE(NULLIF(EXCLUDED.location, ''), contributors.location),
		   bio              = COALESCE(NULLIF(EXCLUDED.bio, ''), contributors.bio),
		   blog             = COALESCE(NULLIF(EXCLUDED.blog, ''), contributors.blog),
		   twitter_username = COALESCE(NULLIF(EXCLUDED.twitter_username, ''), contributors.twitter_username),
		   avatar_url       = COALESCE(NULLIF(EXCLUDED.avatar_url, ''), contributors.avatar_url),
		   profile_url      = COALESCE(NULLIF(EXCLUDED.profile_url, ''), contributors.profile_url),
		   public_repos     = EXCLUDED.public_repos,
		   followers        = EXCLUDED.followers,
		   following        = EXCLUDED.following
		 RETURNING `+contributorColumns,
		id, c.GitHubID, c.Username, c.FullName, c.Email, c.Company, c.Location,
		c.Bio, c.Blog, c.TwitterUsername, c.AvatarURL, c.ProfileURL,
		c.PublicRepos, c.Followers, c.Following,
	))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to upsert contributor", goerr.V("github_id", c.GitHubID))
	}
	return stored, nil
}

// GetContributor returns a contributor by ID
func (s *Store) GetContributor(ctx context.Context, id types.ContributorID) (*model.Contributor, error) {
	c, err := scanContributor(s.pool.QueryRow(ctx,
		`SELECT `+contributorColumns+` FROM contributors WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, goerr.New("contributor not found", goerr.T(types.ErrTagNotFound), goerr.V("contributor_id", id))
		}
		return nil, goerr.Wrap(err, "failed to get contributor", goerr.V("contributor_id", id))
	}
	return c, nil
}

// LinkRepositoryContributor records the association, idempotently
func (s *Store) LinkRepositoryContributor(ctx context.Context, repoID types.RepositoryID, contribID types.ContributorID) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO repository_contributors (repository_id, contributor_id)
		 VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		repoID, contribID)
	if err != nil {
		return goerr.Wrap(err, "failed to link contributor",
			goerr.V("repository_id", repoID), goerr.V("contributor_id", contribID))
	}
	return nil
}

// ListRepositoryContributors returns contributors linked to a repository
func (s *Store) ListRepositoryContributors(ctx context.Context, repoID types.RepositoryID) ([]types.ContributorID, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT contributor_id FROM repository_contributors WHERE repository_id = $1`, repoID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list repository contributors", goerr.V("repository_id", repoID))
	}
	defer rows.Close()

	var ids []types.ContributorID
	for rows.Next() {
		var id types.ContributorID
		if err := rows.Scan(&id); err != nil {
			return nil, goerr.Wrap(err, "failed to scan contributor id")
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpsertContributorStats replaces the stats row for a (repository, contributor)
func (s *Store) UpsertContributorStats(ctx context.Context, stats *model.ContributorStats) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO contributor_stats (repository_id, contributor_id, total_commits,
		        commits_last_3_months, commits_last_6_months, commits_last_year,
		        first_commit_at, last_commit_at, pull_requests, issues_opened, code_reviews,
		        is_maintainer, source, calculated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 ON CONFLICT (repository_id, contributor_id) DO UPDATE SET
		   total_commits = EXCLUDED.total_commits,
		   commits_last_3_months = EXCLUDED.commits_last_3_months,
		   commits_last_6_months = EXCLUDED.commits_last_6_months,
		   commits_last_year = EXCLUDED.commits_last_year,
		   first_commit_at = EXCLUDED.first_commit_at,
		   last_commit_at = EXCLUDED.last_commit_at,
		   pull_requests = EXCLUDED.pull_requests,
		   issues_opened = EXCLUDED.issues_opened,
		   code_reviews = EXCLUDED.code_reviews,
		   is_maintainer = EXCLUDED.is_maintainer,
		   source = EXCLUDED.source,
		   calculated_at = EXCLUDED.calculated_at`,
		stats.RepositoryID, stats.ContributorID, stats.TotalCommits,
		stats.Commits3Months, stats.Commits6Months, stats.CommitsLastYear,
		stats.FirstCommitAt, stats.LastCommitAt, stats.PullRequests, stats.IssuesOpened,
		stats.CodeReviews, stats.IsMaintainer, stats.Source, stats.CalculatedAt,
	)
	if err != nil {
		return goerr.Wrap(err, "failed to upsert contributor stats",
			goerr.V("repository_id", stats.RepositoryID), goerr.V("contributor_id", stats.ContributorID))
	}
	return nil
}

const statsColumns = `repository_id, contributor_id, total_commits, commits_last_3_months,
	commits_last_6_months, commits_last_year, first_commit_at, last_commit_at,
	pull_requests, issues_opened, code_reviews, is_maintainer, source, calculated_at`

func scanStats(row pgx.Row) (*model.ContributorStats, error) {
	var st model.ContributorStats
	err := row.Scan(&st.RepositoryID, &st.ContributorID, &st.TotalCommits, &st.Commits3Months,
		&st.Commits6Months, &st.CommitsLastYear, &st.FirstCommitAt, &st.LastCommitAt,
		&st.PullRequests, &st.IssuesOpened, &st.CodeReviews, &st.IsMaintainer,
		&st.Source, &st.CalculatedAt)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// GetContributorStats returns the stats row for a (repository, contributor)
func (s *Store) GetContributorStats(ctx context.Context, repoID types.RepositoryID, contribID types.ContributorID) (*model.ContributorStats, error) {
	stats, err := scanStats(s.pool.QueryRow(ctx,
		`SELECT `+statsColumns+` FROM contributor_stats
		 WHERE repository_id = $1 AND contributor_id = $2`,
		repoID, contribID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, goerr.New("contributor stats not found",
				goerr.T(types.ErrTagNotFound),
				goerr.V("repository_id", repoID), goerr.V("contributor_id", contribID))
		}
		return nil, goerr.Wrap(err, "failed to get contributor stats")
	}
	return stats, nil
}

// ListContributorStats returns all stats rows for a contributor
func (s *Store) ListContributorStats(ctx context.Context, contribID types.ContributorID) ([]*model.ContributorStats, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+statsColumns+` FROM contributor_stats WHERE contributor_id = $1
		 ORDER BY repository_id`,
		contribID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list contributor stats", goerr.V("contributor_id", contribID))
	}
	defer rows.Close()

	var out []*model.ContributorStats
	for rows.Next() {
		stats, err := scanStats(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan contributor stats")
		}
		out = append(out, stats)
	}
	return out, rows.Err()
}

// UpsertSocialContext replaces a contributor's enrichment result
func (s *Store) UpsertSocialContext(ctx context.Context, sc *model.SocialContext) error {
	profile, err := json.Marshal(sc.Profile)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal social profile")
	}
	signals, err := json.Marshal(sc.Signals)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal social signals")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO social_contexts (contributor_id, profile, position_level, industry,
		        label, confidence, reasoning, signals, enriched_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (contributor_id) DO UPDATE SET
		   profile = EXCLUDED.profile,
		   position_level = EXCLUDED.position_level,
		   industry = EXCLUDED.industry,
		   label = EXCLUDED.label,
		   confidence = EXCLUDED.confidence,
		   reasoning = EXCLUDED.reasoning,
		   signals = EXCLUDED.signals,
		   enriched_at = EXCLUDED.enriched_at`,
		sc.ContributorID, profile, sc.PositionLevel, sc.Industry,
		sc.Label, sc.Confidence, sc.Reasoning, signals, sc.EnrichedAt,
	)
	if err != nil {
		return goerr.Wrap(err, "failed to upsert social context", goerr.V("contributor_id", sc.ContributorID))
	}
	return nil
}

// GetSocialContext returns a contributor's enrichment result
func (s *Store) GetSocialContext(ctx context.Context, contribID types.ContributorID) (*model.SocialContext, error) {
	var sc model.SocialContext
	var profile, signals []byte
	err := s.pool.QueryRow(ctx,
		`SELECT contributor_id, profile, position_level, industry, label, confidence,
		        reasoning, signals, enriched_at
		 FROM social_contexts WHERE contributor_id = $1`,
		contribID,
	).Scan(&sc.ContributorID, &profile, &sc.PositionLevel, &sc.Industry, &sc.Label,
		&sc.Confidence, &sc.Reasoning, &signals, &sc.EnrichedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, goerr.New("social context not found", goerr.T(types.ErrTagNotFound), goerr.V("contributor_id", contribID))
		}
		return nil, goerr.Wrap(err, "failed to get social context", goerr.V("contributor_id", contribID))
	}
	if len(profile) > 0 {
		if err := json.Unmarshal(profile, &sc.Profile); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal social profile")
		}
	}
	if len(signals) > 0 {
		if err := json.Unmarshal(signals, &sc.Signals); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal social signals")
		}
	}
	return &sc, nil
}

// UpsertLeadScore replaces a contributor's score within a project
func (s *Store) UpsertLeadScore(ctx context.Context, score *model.LeadScore) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO lead_scores (project_id, contributor_id, overall, activity, influence,
		        position, engagement, is_qualified, priority, calculated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (project_id, contributor_id) DO UPDATE SET
		   overall = EXCLUDED.overall,
		   activity = EXCLUDED.activity,
		   influence = EXCLUDED.influence,
		   position = EXCLUDED.position,
		   engagement = EXCLUDED.engagement,
		   is_qualified = EXCLUDED.is_qualified,
		   priority = EXCLUDED.priority,
		   calculated_at = EXCLUDED.calculated_at`,
		score.ProjectID, score.ContributorID, score.Overall, score.Activity, score.Influence,
		score.Position, score.Engagement, score.IsQualified, score.Priority, score.CalculatedAt,
	)
	if err != nil {
		return goerr.Wrap(err, "failed to upsert lead score",
			goerr.V("project_id", score.ProjectID), goerr.V("contributor_id", score.ContributorID))
	}
	return nil
}

// GetLeadScore returns a contributor's score within a project
func (s *Store) GetLeadScore(ctx context.Context, projectID types.ProjectID, contribID types.ContributorID) (*model.LeadScore, error) {
	var score model.LeadScore
	err := s.pool.QueryRow(ctx,
		`SELECT project_id, contributor_id, overall, activity, influence, position,
		        engagement, is_qualified, priority, calculated_at
		 FROM lead_scores WHERE project_id = $1 AND contributor_id = $2`,
		projectID, contribID,
	).Scan(&score.ProjectID, &score.ContributorID, &score.Overall, &score.Activity,
		&score.Influence, &score.Position, &score.Engagement, &score.IsQualified,
		&score.Priority, &score.CalculatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, goerr.New("lead score not found",
				goerr.T(types.ErrTagNotFound),
				goerr.V("project_id", projectID), goerr.V("contributor_id", contribID))
		}
		return nil, goerr.Wrap(err, "failed to get lead score")
	}
	return &score, nil
}
