package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/prospector/pkg/domain/interfaces"
	"github.com/m-mizutani/prospector/pkg/domain/logic"
	"github.com/m-mizutani/prospector/pkg/domain/model"
	"github.com/m-mizutani/prospector/pkg/domain/types"
)

// stage is one unit of pipeline work. On success it reports a human-readable
// message and optional structured details for the step record.
type stage struct {
	name string
	run  func(ctx context.Context) (string, map[string]any, error)
}

// Executor drives one admitted job through its pipeline. Stage outputs commit
// independently; there is no rollback on failure.
type Executor struct {
	store      interfaces.Store
	github     interfaces.GitHubClient
	search     interfaces.SearchClient
	classifier *Classifier

	contributorLimit int
	stargazerLimit   int
	enrichLimit      int
	similarLimit     int
	authoredCounts   bool

	now func() time.Time
}

var _ interfaces.Executor = (*Executor)(nil)

// ExecutorOption configures the Executor
type ExecutorOption func(*Executor)

// WithContributorLimit caps contributors fetched per sourcing run
func WithContributorLimit(n int) ExecutorOption {
	return func(x *Executor) { x.contributorLimit = n }
}

// WithStargazerLimit caps stargazers fetched per analysis run
func WithStargazerLimit(n int) ExecutorOption {
	return func(x *Executor) { x.stargazerLimit = n }
}

// WithEnrichmentBound caps enrichment jobs auto-enqueued per run
func WithEnrichmentBound(n int) ExecutorOption {
	return func(x *Executor) { x.enrichLimit = n }
}

// WithSimilarLimit caps results per similar-repository search
func WithSimilarLimit(n int) ExecutorOption {
	return func(x *Executor) { x.similarLimit = n }
}

// WithAuthoredCounts enables per-contributor authored PR and issue counts
// during sourcing. Off by default: each contributor costs two extra search
// API calls against a tight rate limit.
func WithAuthoredCounts(enabled bool) ExecutorOption {
	return func(x *Executor) { x.authoredCounts = enabled }
}

// WithExecutorClock replaces the time source, for tests
func WithExecutorClock(now func() time.Time) ExecutorOption {
	return func(x *Executor) { x.now = now }
}

// NewExecutor creates a job executor
func NewExecutor(
	store interfaces.Store,
	github interfaces.GitHubClient,
	search interfaces.SearchClient,
	classifier *Classifier,
	opts ...ExecutorOption,
) *Executor {
	x := &Executor{
		store:            store,
		github:           github,
		search:           search,
		classifier:       classifier,
		contributorLimit: 100,
		stargazerLimit:   200,
		enrichLimit:      50,
		similarLimit:     10,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Execute runs a claimed job to a terminal state. The job must already be
// running (claimed through the store's atomic transition).
func (x *Executor) Execute(ctx context.Context, id types.JobID) error {
	logger := ctxlog.From(ctx)

	job, err := x.store.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if job.Status != model.JobStatusRunning {
		return goerr.New("job is not running",
			goerr.T(types.ErrTagConflict),
			goerr.V("job_id", id),
			goerr.V("status", job.Status),
		)
	}

	logger.Info("executing job", "job_id", id, "job_type", job.Type)

	stages, err := x.stages(job)
	if err != nil {
		return x.failJob(ctx, job, err)
	}

	job.TotalSteps = len(stages)
	job.CurrentStep = 0
	job.Progress = 0
	ok, err := x.store.UpdateJobIfRunning(ctx, job)
	if err != nil {
		return err
	}
	if !ok {
		return x.finalizeCancelled(ctx, job)
	}

	for i, st := range stages {
		cancelled, err := x.isCancelled(ctx, id)
		if err != nil {
			return err
		}
		if cancelled {
			return x.finalizeCancelled(ctx, job)
		}

		started := x.now()
		step := &model.JobStep{
			JobID:      id,
			StepNumber: i + 1,
			Name:       st.name,
			Status:     model.StepStatusRunning,
			StartedAt:  &started,
		}
		if err := x.store.CreateJobStep(ctx, step); err != nil {
			return err
		}

		msg, details, runErr := st.run(ctx)
		done := x.now()
		step.CompletedAt = &done

		if errors.Is(runErr, types.ErrJobCancelled) {
			step.Status = model.StepStatusCancelled
			step.Message = "cancelled by user"
			if err := x.store.UpdateJobStep(ctx, step); err != nil {
				return err
			}
			return x.finalizeCancelled(ctx, job)
		}
		if runErr != nil {
			step.Status = model.StepStatusFailed
			step.ErrorMessage = runErr.Error()
			if err := x.store.UpdateJobStep(ctx, step); err != nil {
				logger.Error("failed to record step failure", "job_id", id, "error", err)
			}
			return x.failJob(ctx, job, runErr)
		}

		step.Status = model.StepStatusCompleted
		step.Message = msg
		step.Details = details
		if err := x.store.UpdateJobStep(ctx, step); err != nil {
			return err
		}

		// A guarded write: if a cancel request landed while the stage ran,
		// the stored record already says cancelled and must stay that way
		job.AdvanceStep()
		ok, err := x.store.UpdateJobIfRunning(ctx, job)
		if err != nil {
			return err
		}
		if !ok {
			return x.finalizeCancelled(ctx, job)
		}
	}

	completed := x.now()
	job.Status = model.JobStatusCompleted
	job.CompletedAt = &completed
	job.Progress = 100
	ok, err = x.store.UpdateJobIfRunning(ctx, job)
	if err != nil {
		return err
	}
	if !ok {
		return x.finalizeCancelled(ctx, job)
	}

	logger.Info("job completed", "job_id", id, "job_type", job.Type)
	return nil
}

// stages resolves the ordered stage list for a job type
func (x *Executor) stages(job *model.Job) ([]stage, error) {
	switch job.Type {
	case model.JobTypeRepositorySourcing:
		return x.sourcingStages(job), nil
	case model.JobTypeStargazerAnalysis:
		return x.stargazerStages(job), nil
	case model.JobTypeSocialEnrichment:
		return x.enrichmentStages(job), nil
	case model.JobTypeSimilarRepos:
		return x.similarStages(job), nil
	default:
		return nil, goerr.New("unknown job type",
			goerr.T(types.ErrTagPermanent),
			goerr.V("job_type", job.Type),
		)
	}
}

// isCancelled reads the job's cancellation flag from the store
func (x *Executor) isCancelled(ctx context.Context, id types.JobID) (bool, error) {
	current, err := x.store.GetJob(ctx, id)
	if err != nil {
		return false, err
	}
	return current.Status == model.JobStatusCancelled, nil
}

// ensureActive is called from long stage loops so cancellation takes effect
// mid-stage, not only at stage boundaries
func (x *Executor) ensureActive(ctx context.Context, id types.JobID) error {
	cancelled, err := x.isCancelled(ctx, id)
	if err != nil {
		return err
	}
	if cancelled {
		return types.ErrJobCancelled
	}
	return nil
}

// finalizeCancelled closes out step records for a job whose cancellation flag
// was set. The job status itself was already flipped by the cancel request;
// completed step records are preserved.
func (x *Executor) finalizeCancelled(ctx context.Context, job *model.Job) error {
	logger := ctxlog.From(ctx)
	logger.Info("job cancelled", "job_id", job.ID, "job_type", job.Type)

	steps, err := x.store.ListJobSteps(ctx, job.ID)
	if err != nil {
		return err
	}
	now := x.now()
	for _, step := range steps {
		if step.Status != model.StepStatusRunning && step.Status != model.StepStatusPending {
			continue
		}
		step.Status = model.StepStatusCancelled
		step.Message = "cancelled by user"
		step.CompletedAt = &now
		if err := x.store.UpdateJobStep(ctx, step); err != nil {
			return err
		}
	}
	return nil
}

// failJob records the failure on the job and returns the original error. When
// a cancel request won the race, cancelled stands and the failure is only
// logged.
func (x *Executor) failJob(ctx context.Context, job *model.Job, cause error) error {
	logger := ctxlog.From(ctx)
	logger.Error("job failed", "job_id", job.ID, "job_type", job.Type, "error", cause)

	now := x.now()
	job.Status = model.JobStatusFailed
	job.ErrorMessage = cause.Error()
	job.CompletedAt = &now
	ok, err := x.store.UpdateJobIfRunning(ctx, job)
	if err != nil {
		logger.Error("failed to record job failure", "job_id", job.ID, "error", err)
		return cause
	}
	if !ok {
		if err := x.finalizeCancelled(ctx, job); err != nil {
			logger.Error("failed to finalize cancelled job", "job_id", job.ID, "error", err)
		}
	}
	return cause
}

// rescore recomputes a contributor's lead score from their aggregated stats
// and current social context
func (x *Executor) rescore(ctx context.Context, projectID types.ProjectID, contrib *model.Contributor) error {
	rows, err := x.store.ListContributorStats(ctx, contrib.ID)
	if err != nil {
		return err
	}

	var social *model.SocialContext
	sc, err := x.store.GetSocialContext(ctx, contrib.ID)
	if err == nil {
		social = sc
	} else if !types.IsNotFound(err) {
		return err
	}

	score := logic.Score(logic.ScoreInput{
		Stats:       aggregateStats(rows),
		Contributor: *contrib,
		Social:      social,
	})
	score.ProjectID = projectID
	score.CalculatedAt = x.now()
	return x.store.UpsertLeadScore(ctx, &score)
}

// aggregateStats folds a contributor's per-repository stats into one row for
// scoring: counters sum, maintainer status is an OR
func aggregateStats(rows []*model.ContributorStats) model.ContributorStats {
	var agg model.ContributorStats
	for _, st := range rows {
		agg.TotalCommits += st.TotalCommits
		agg.Commits3Months += st.Commits3Months
		agg.Commits6Months += st.Commits6Months
		agg.CommitsLastYear += st.CommitsLastYear
		agg.PullRequests += st.PullRequests
		agg.IssuesOpened += st.IssuesOpened
		agg.CodeReviews += st.CodeReviews
		agg.IsMaintainer = agg.IsMaintainer || st.IsMaintainer
	}
	return agg
}

// queueEnrichment enqueues social_enrichment jobs for linked contributors
// that have no social context yet, bounded by the enrichment limit
func (x *Executor) queueEnrichment(ctx context.Context, job *model.Job, repoID types.RepositoryID) (int, int, error) {
	ids, err := x.store.ListRepositoryContributors(ctx, repoID)
	if err != nil {
		return 0, 0, err
	}

	queued, skipped := 0, 0
	for _, cid := range ids {
		if queued >= x.enrichLimit {
			break
		}
		if _, err := x.store.GetSocialContext(ctx, cid); err == nil {
			skipped++
			continue
		} else if !types.IsNotFound(err) {
			return queued, skipped, err
		}

		enrichJob := &model.Job{
			ID:           types.NewJobID(),
			Type:         model.JobTypeSocialEnrichment,
			Status:       model.JobStatusPending,
			ProjectID:    job.ProjectID,
			RepositoryID: repoID,
			Params: model.JobParams{
				Enrichment: &model.EnrichmentParams{ContributorID: cid},
			},
			CreatedAt: x.now(),
		}
		if err := x.store.CreateJob(ctx, enrichJob); err != nil {
			return queued, skipped, err
		}
		queued++
	}
	return queued, skipped, nil
}
