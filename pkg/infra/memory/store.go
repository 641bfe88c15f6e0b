// Package memory provides an in-memory Store used by tests and DSN-less runs
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/prospector/pkg/domain/interfaces"
	"github.com/m-mizutani/prospector/pkg/domain/model"
	"github.com/m-mizutani/prospector/pkg/domain/types"
)

type statsKey struct {
	repoID    types.RepositoryID
	contribID types.ContributorID
}

type scoreKey struct {
	projectID types.ProjectID
	contribID types.ContributorID
}

// Store keeps everything in maps guarded by one mutex. Values are cloned on
// the way in and out so callers cannot mutate shared state.
type Store struct {
	mu sync.RWMutex

	jobs     map[types.JobID]*model.Job
	jobOrder []types.JobID
	steps    map[types.JobID][]*model.JobStep

	repos        map[types.RepositoryID]*model.Repository
	contributors map[types.ContributorID]*model.Contributor
	byGitHubID   map[int64]types.ContributorID

	repoContribs map[types.RepositoryID][]types.ContributorID
	stats        map[statsKey]*model.ContributorStats
	social       map[types.ContributorID]*model.SocialContext
	scores       map[scoreKey]*model.LeadScore
}

var _ interfaces.Store = (*Store)(nil)

// New creates an empty in-memory store
func New() *Store {
	return &Store{
		jobs:         make(map[types.JobID]*model.Job),
		steps:        make(map[types.JobID][]*model.JobStep),
		repos:        make(map[types.RepositoryID]*model.Repository),
		contributors: make(map[types.ContributorID]*model.Contributor),
		byGitHubID:   make(map[int64]types.ContributorID),
		repoContribs: make(map[types.RepositoryID][]types.ContributorID),
		stats:        make(map[statsKey]*model.ContributorStats),
		social:       make(map[types.ContributorID]*model.SocialContext),
		scores:       make(map[scoreKey]*model.LeadScore),
	}
}

func cloneJob(j *model.Job) *model.Job {
	c := *j
	return &c
}

func cloneStep(s *model.JobStep) *model.JobStep {
	c := *s
	if s.Details != nil {
		c.Details = make(map[string]any, len(s.Details))
		for k, v := range s.Details {
			c.Details[k] = v
		}
	}
	return &c
}

func cloneRepo(r *model.Repository) *model.Repository {
	c := *r
	c.Topics = append([]string(nil), r.Topics...)
	return &c
}

func cloneContributor(c *model.Contributor) *model.Contributor {
	cc := *c
	return &cc
}

func cloneStats(s *model.ContributorStats) *model.ContributorStats {
	c := *s
	return &c
}

func cloneSocial(sc *model.SocialContext) *model.SocialContext {
	c := *sc
	c.Signals.ContactCandidates = append([]string(nil), sc.Signals.ContactCandidates...)
	c.Signals.SearchHits = append([]model.SearchHit(nil), sc.Signals.SearchHits...)
	return &c
}

func cloneScore(s *model.LeadScore) *model.LeadScore {
	c := *s
	return &c
}

// CreateJob stores a new job
func (s *Store) CreateJob(ctx context.Context, job *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; ok {
		return goerr.New("job already exists", goerr.T(types.ErrTagConflict), goerr.V("job_id", job.ID))
	}
	s.jobs[job.ID] = cloneJob(job)
	s.jobOrder = append(s.jobOrder, job.ID)
	return nil
}

// GetJob returns a job by ID
func (s *Store) GetJob(ctx context.Context, id types.JobID) (*model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, goerr.New("job not found", goerr.T(types.ErrTagNotFound), goerr.V("job_id", id))
	}
	return cloneJob(job), nil
}

// UpdateJobIfRunning overwrites a job record only while it is still running,
// so executor bookkeeping can never clobber a concurrently-set terminal status
func (s *Store) UpdateJobIfRunning(ctx context.Context, job *model.Job) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.jobs[job.ID]
	if !ok {
		return false, goerr.New("job not found", goerr.T(types.ErrTagNotFound), goerr.V("job_id", job.ID))
	}
	if current.Status != model.JobStatusRunning {
		return false, nil
	}
	s.jobs[job.ID] = cloneJob(job)
	return true, nil
}

// MarkJobCancelled atomically cancels a pending or running job
func (s *Store) MarkJobCancelled(ctx context.Context, id types.JobID, now time.Time) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, goerr.New("job not found", goerr.T(types.ErrTagNotFound), goerr.V("job_id", id))
	}
	if job.Status.IsTerminal() {
		return nil, goerr.New("job already finished",
			goerr.T(types.ErrTagConflict),
			goerr.V("job_id", id),
			goerr.V("status", job.Status),
		)
	}

	completed := now
	job.Status = model.JobStatusCancelled
	job.CompletedAt = &completed
	return cloneJob(job), nil
}

// ListPendingJobs returns pending jobs in creation order
func (s *Store) ListPendingJobs(ctx context.Context, limit int) ([]*model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Job
	for _, id := range s.jobOrder {
		job := s.jobs[id]
		if job.Status != model.JobStatusPending {
			continue
		}
		out = append(out, cloneJob(job))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// ListJobs returns jobs newest first, optionally filtered by status
func (s *Store) ListJobs(ctx context.Context, status model.JobStatus, limit int) ([]*model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Job
	for i := len(s.jobOrder) - 1; i >= 0; i-- {
		job := s.jobs[s.jobOrder[i]]
		if status != "" && job.Status != status {
			continue
		}
		out = append(out, cloneJob(job))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// MarkJobRunning atomically claims a pending job
func (s *Store) MarkJobRunning(ctx context.Context, id types.JobID, now time.Time) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, goerr.New("job not found", goerr.T(types.ErrTagNotFound), goerr.V("job_id", id))
	}
	if job.Status != model.JobStatusPending {
		return nil, goerr.New("job is not pending",
			goerr.T(types.ErrTagConflict),
			goerr.V("job_id", id),
			goerr.V("status", job.Status),
		)
	}
	job.Status = model.JobStatusRunning
	t := now
	job.StartedAt = &t
	return cloneJob(job), nil
}

// HasActiveSourcingJob reports an existing pending or running sourcing job for
// the repository
func (s *Store) HasActiveSourcingJob(ctx context.Context, repoID types.RepositoryID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, job := range s.jobs {
		if job.Type != model.JobTypeRepositorySourcing || job.RepositoryID != repoID {
			continue
		}
		if job.Status == model.JobStatusPending || job.Status == model.JobStatusRunning {
			return true, nil
		}
	}
	return false, nil
}

// ResetOrphanedJobs returns running jobs to pending with cleared step state
func (s *Store) ResetOrphanedJobs(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, job := range s.jobs {
		if job.Status != model.JobStatusRunning {
			continue
		}
		job.Status = model.JobStatusPending
		job.StartedAt = nil
		job.CurrentStep = 0
		job.Progress = 0
		job.ErrorMessage = ""
		delete(s.steps, id)
		count++
	}
	return count, nil
}

// CountJobsByStatus aggregates job counts
func (s *Store) CountJobsByStatus(ctx context.Context) (*model.JobSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := &model.JobSummary{}
	for _, job := range s.jobs {
		switch job.Status {
		case model.JobStatusPending:
			summary.Pending++
		case model.JobStatusRunning:
			summary.Running++
		case model.JobStatusCompleted:
			summary.Completed++
		case model.JobStatusFailed:
			summary.Failed++
		case model.JobStatusCancelled:
			summary.Cancelled++
		}
	}
	return summary, nil
}

// CreateJobStep appends a step record
func (s *Store) CreateJobStep(ctx context.Context, step *model.JobStep) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if step.ID == "" {
		step.ID = uuid.NewString()
	}
	s.steps[step.JobID] = append(s.steps[step.JobID], cloneStep(step))
	return nil
}

// UpdateJobStep overwrites a step record by ID
func (s *Store) UpdateJobStep(ctx context.Context, step *model.JobStep) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.steps[step.JobID] {
		if existing.ID == step.ID {
			s.steps[step.JobID][i] = cloneStep(step)
			return nil
		}
	}
	return goerr.New("job step not found",
		goerr.T(types.ErrTagNotFound),
		goerr.V("job_id", step.JobID),
		goerr.V("step_id", step.ID),
	)
}

// ListJobSteps returns a job's steps ordered by step number
func (s *Store) ListJobSteps(ctx context.Context, jobID types.JobID) ([]*model.JobStep, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.JobStep, 0, len(s.steps[jobID]))
	for _, step := range s.steps[jobID] {
		out = append(out, cloneStep(step))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StepNumber < out[j].StepNumber })
	return out, nil
}

// DeleteJobSteps removes all step records for a job
func (s *Store) DeleteJobSteps(ctx context.Context, jobID types.JobID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.steps, jobID)
	return nil
}

// CreateRepository stores a new repository
func (s *Store) CreateRepository(ctx context.Context, repo *model.Repository) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.repos[repo.ID]; ok {
		return goerr.New("repository already exists", goerr.T(types.ErrTagConflict), goerr.V("repository_id", repo.ID))
	}
	s.repos[repo.ID] = cloneRepo(repo)
	return nil
}

// GetRepository returns a repository by ID
func (s *Store) GetRepository(ctx context.Context, id types.RepositoryID) (*model.Repository, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	repo, ok := s.repos[id]
	if !ok {
		return nil, goerr.New("repository not found", goerr.T(types.ErrTagNotFound), goerr.V("repository_id", id))
	}
	return cloneRepo(repo), nil
}

// GetRepositoryByFullName returns a repository by its owner/name form
func (s *Store) GetRepositoryByFullName(ctx context.Context, fullName string) (*model.Repository, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, repo := range s.repos {
		if repo.FullName == fullName {
			return cloneRepo(repo), nil
		}
	}
	return nil, goerr.New("repository not found", goerr.T(types.ErrTagNotFound), goerr.V("full_name", fullName))
}

// UpdateRepository overwrites a repository record
func (s *Store) UpdateRepository(ctx context.Context, repo *model.Repository) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.repos[repo.ID]; !ok {
		return goerr.New("repository not found", goerr.T(types.ErrTagNotFound), goerr.V("repository_id", repo.ID))
	}
	s.repos[repo.ID] = cloneRepo(repo)
	return nil
}

// ListDueRepositories returns repositories whose sourcing schedule has elapsed
func (s *Store) ListDueRepositories(ctx context.Context, now time.Time) ([]*model.Repository, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Repository
	for _, repo := range s.repos {
		if repo.DueForSourcing(now) {
			out = append(out, cloneRepo(repo))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

// UpsertContributor inserts or merges by GitHub numeric ID
func (s *Store) UpsertContributor(ctx context.Context, c *model.Contributor) (*model.Contributor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byGitHubID[c.GitHubID]; ok {
		existing := s.contributors[id]
		existing.Merge(c)
		return cloneContributor(existing), nil
	}

	stored := cloneContributor(c)
	if stored.ID == "" {
		stored.ID = types.NewContributorID()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	s.contributors[stored.ID] = stored
	s.byGitHubID[stored.GitHubID] = stored.ID
	return cloneContributor(stored), nil
}

// GetContributor returns a contributor by ID
func (s *Store) GetContributor(ctx context.Context, id types.ContributorID) (*model.Contributor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.contributors[id]
	if !ok {
		return nil, goerr.New("contributor not found", goerr.T(types.ErrTagNotFound), goerr.V("contributor_id", id))
	}
	return cloneContributor(c), nil
}

// LinkRepositoryContributor records the association, idempotently
func (s *Store) LinkRepositoryContributor(ctx context.Context, repoID types.RepositoryID, contribID types.ContributorID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.repoContribs[repoID] {
		if id == contribID {
			return nil
		}
	}
	s.repoContribs[repoID] = append(s.repoContribs[repoID], contribID)
	return nil
}

// ListRepositoryContributors returns contributors linked to a repository
func (s *Store) ListRepositoryContributors(ctx context.Context, repoID types.RepositoryID) ([]types.ContributorID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.ContributorID(nil), s.repoContribs[repoID]...), nil
}

// UpsertContributorStats replaces the stats row for a (repository, contributor)
func (s *Store) UpsertContributorStats(ctx context.Context, stats *model.ContributorStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats[statsKey{stats.RepositoryID, stats.ContributorID}] = cloneStats(stats)
	return nil
}

// GetContributorStats returns the stats row for a (repository, contributor)
func (s *Store) GetContributorStats(ctx context.Context, repoID types.RepositoryID, contribID types.ContributorID) (*model.ContributorStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats, ok := s.stats[statsKey{repoID, contribID}]
	if !ok {
		return nil, goerr.New("contributor stats not found",
			goerr.T(types.ErrTagNotFound),
			goerr.V("repository_id", repoID),
			goerr.V("contributor_id", contribID),
		)
	}
	return cloneStats(stats), nil
}

// ListContributorStats returns all stats rows for a contributor
func (s *Store) ListContributorStats(ctx context.Context, contribID types.ContributorID) ([]*model.ContributorStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.ContributorStats
	for key, stats := range s.stats {
		if key.contribID == contribID {
			out = append(out, cloneStats(stats))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RepositoryID < out[j].RepositoryID })
	return out, nil
}

// UpsertSocialContext replaces a contributor's enrichment result
func (s *Store) UpsertSocialContext(ctx context.Context, sc *model.SocialContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.social[sc.ContributorID] = cloneSocial(sc)
	return nil
}

// GetSocialContext returns a contributor's enrichment result
func (s *Store) GetSocialContext(ctx context.Context, contribID types.ContributorID) (*model.SocialContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, ok := s.social[contribID]
	if !ok {
		return nil, goerr.New("social context not found", goerr.T(types.ErrTagNotFound), goerr.V("contributor_id", contribID))
	}
	return cloneSocial(sc), nil
}

// UpsertLeadScore replaces a contributor's score within a project
func (s *Store) UpsertLeadScore(ctx context.Context, score *model.LeadScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[scoreKey{score.ProjectID, score.ContributorID}] = cloneScore(score)
	return nil
}

// GetLeadScore returns a contributor's score within a project
func (s *Store) GetLeadScore(ctx context.Context, projectID types.ProjectID, contribID types.ContributorID) (*model.LeadScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	score, ok := s.scores[scoreKey{projectID, contribID}]
	if !ok {
		return nil, goerr.New("lead score not found",
			goerr.T(types.ErrTagNotFound),
			goerr.V("project_id", projectID),
			goerr.V("contributor_id", contribID),
		)
	}
	return cloneScore(score), nil
}
