package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/prospector/pkg/domain/types"
)

// JobType selects the pipeline a job runs through
type JobType string

const (
	JobTypeRepositorySourcing JobType = "repository_sourcing"
	JobTypeSocialEnrichment   JobType = "social_enrichment"
	JobTypeStargazerAnalysis  JobType = "stargazer_analysis"
	JobTypeSimilarRepos       JobType = "similar_repos"
)

// JobStatus is the lifecycle state of a job. A job terminates exactly once
// into completed, failed or cancelled; there is no transition out of a
// terminal state.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsTerminal reports whether no further transition is allowed
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// JobParams is a tagged union of per-type parameters. Exactly one variant
// matching the job type may be set.
type JobParams struct {
	Sourcing   *SourcingParams   `json:"sourcing,omitempty"`
	Enrichment *EnrichmentParams `json:"enrichment,omitempty"`
	Stargazer  *StargazerParams  `json:"stargazer,omitempty"`
	Similar    *SimilarParams    `json:"similar,omitempty"`
}

// SourcingParams configures a repository_sourcing run
type SourcingParams struct {
	ContributorLimit int `json:"contributor_limit,omitempty"`
}

// EnrichmentParams configures a social_enrichment run
type EnrichmentParams struct {
	ContributorID types.ContributorID `json:"contributor_id"`
}

// StargazerParams configures a stargazer_analysis run
type StargazerParams struct {
	StargazerLimit int `json:"stargazer_limit,omitempty"`
}

// SimilarParams configures a similar_repos run
type SimilarParams struct {
	Query      string `json:"query,omitempty"`
	MaxResults int    `json:"max_results,omitempty"`
	AutoSource bool   `json:"auto_source,omitempty"`
}

// Job is one durable, trackable execution of a pipeline against a target
type Job struct {
	ID           types.JobID         `json:"id"`
	Type         JobType             `json:"job_type"`
	Status       JobStatus           `json:"status"`
	ProjectID    types.ProjectID     `json:"project_id,omitempty"`
	RepositoryID types.RepositoryID  `json:"repository_id,omitempty"`
	Params       JobParams           `json:"params"`
	TotalSteps   int                 `json:"total_steps"`
	CurrentStep  int                 `json:"current_step"`
	Progress     float64             `json:"progress_percentage"`
	ErrorMessage string              `json:"error_message,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	StartedAt    *time.Time          `json:"started_at,omitempty"`
	CompletedAt  *time.Time          `json:"completed_at,omitempty"`
}

// Validate checks structural requirements before the job is accepted
func (j *Job) Validate() error {
	switch j.Type {
	case JobTypeRepositorySourcing, JobTypeStargazerAnalysis:
		if j.RepositoryID == "" {
			return goerr.New("repository_id is required", goerr.T(types.ErrTagValidation), goerr.V("job_type", j.Type))
		}
	case JobTypeSocialEnrichment:
		if j.Params.Enrichment == nil || j.Params.Enrichment.ContributorID == "" {
			return goerr.New("contributor_id is required", goerr.T(types.ErrTagValidation), goerr.V("job_type", j.Type))
		}
	case JobTypeSimilarRepos:
		if j.RepositoryID == "" && (j.Params.Similar == nil || j.Params.Similar.Query == "") {
			return goerr.New("repository_id or query is required", goerr.T(types.ErrTagValidation), goerr.V("job_type", j.Type))
		}
	default:
		return goerr.New("unknown job type", goerr.T(types.ErrTagValidation), goerr.V("job_type", j.Type))
	}

	if err := j.Params.matches(j.Type); err != nil {
		return err
	}
	return nil
}

// matches rejects a params variant that does not belong to the job type
func (p JobParams) matches(t JobType) error {
	variants := map[JobType]bool{
		JobTypeRepositorySourcing: p.Sourcing != nil,
		JobTypeSocialEnrichment:   p.Enrichment != nil,
		JobTypeStargazerAnalysis:  p.Stargazer != nil,
		JobTypeSimilarRepos:       p.Similar != nil,
	}
	for jt, set := range variants {
		if set && jt != t {
			return goerr.New("job params do not match job type",
				goerr.T(types.ErrTagValidation),
				goerr.V("job_type", t),
				goerr.V("params_for", jt),
			)
		}
	}
	return nil
}

// AdvanceStep records completion of one stage and recomputes progress
func (j *Job) AdvanceStep() {
	if j.CurrentStep < j.TotalSteps {
		j.CurrentStep++
	}
	if j.TotalSteps > 0 {
		j.Progress = float64(j.CurrentStep) / float64(j.TotalSteps) * 100
	}
}

// StepStatus is the step-local outcome mirrored onto JobStep records
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusRunning   StepStatus = "running"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusCancelled StepStatus = "cancelled"
)

// JobStep is one entry in a job's append-only execution history
type JobStep struct {
	ID           string            `json:"id"`
	JobID        types.JobID       `json:"job_id"`
	StepNumber   int               `json:"step_number"`
	Name         string            `json:"step_name"`
	Status       StepStatus        `json:"status"`
	Message      string            `json:"message,omitempty"`
	Details      map[string]any    `json:"details,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
	StartedAt    *time.Time        `json:"started_at,omitempty"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
}

// JobSummary aggregates job counts by status for dashboards
type JobSummary struct {
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}
