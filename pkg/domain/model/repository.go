package model

import (
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/prospector/pkg/domain/types"
)

// SourcingInterval controls how often the scheduler re-sources a repository
type SourcingInterval string

const (
	IntervalDaily   SourcingInterval = "daily"
	IntervalWeekly  SourcingInterval = "weekly"
	IntervalMonthly SourcingInterval = "monthly"
)

// Duration returns the re-sourcing period. Monthly is approximated as 30 days.
func (iv SourcingInterval) Duration() time.Duration {
	switch iv {
	case IntervalDaily:
		return 24 * time.Hour
	case IntervalWeekly:
		return 7 * 24 * time.Hour
	default:
		return 30 * 24 * time.Hour
	}
}

// Repository is a tracked source-control project owned by a project.
// Metadata fields are mutated only by successful repository_sourcing jobs.
type Repository struct {
	ID               types.RepositoryID `json:"id"`
	ProjectID        types.ProjectID    `json:"project_id"`
	Owner            string             `json:"owner"`
	Name             string             `json:"repo_name"`
	FullName         string             `json:"full_name"`
	Description      string             `json:"description,omitempty"`
	Stars            int                `json:"stars"`
	Forks            int                `json:"forks"`
	OpenIssues       int                `json:"open_issues"`
	Language         string             `json:"language,omitempty"`
	Topics           []string           `json:"topics,omitempty"`
	SourcingInterval SourcingInterval   `json:"sourcing_interval"`
	LastSourcedAt    *time.Time         `json:"last_sourced_at,omitempty"`
	NextSourcingAt   *time.Time         `json:"next_sourcing_at,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
}

// Validate checks the repository reference is usable before any stage runs
func (r *Repository) Validate() error {
	if r.Owner == "" || r.Name == "" {
		return goerr.New("repository owner and name are required",
			goerr.T(types.ErrTagValidation),
			goerr.V("full_name", r.FullName),
		)
	}
	if strings.ContainsAny(r.Owner, "/ ") || strings.ContainsAny(r.Name, "/ ") {
		return goerr.New("repository owner or name is malformed",
			goerr.T(types.ErrTagValidation),
			goerr.V("owner", r.Owner),
			goerr.V("repo_name", r.Name),
		)
	}
	return nil
}

// MarkSourced records a successful sourcing run and advances the schedule
func (r *Repository) MarkSourced(now time.Time) {
	r.LastSourcedAt = &now
	next := now.Add(r.SourcingInterval.Duration())
	r.NextSourcingAt = &next
}

// DueForSourcing reports whether the scheduler should enqueue a sourcing job
func (r *Repository) DueForSourcing(now time.Time) bool {
	return r.NextSourcingAt != nil && !r.NextSourcingAt.After(now)
}

// RepoMetadata is what one metadata fetch returns from the repository host
type RepoMetadata struct {
	FullName    string
	Description string
	Stars       int
	Forks       int
	OpenIssues  int
	Language    string
	Topics      []string
	URL         string
}

// ApplyMetadata overwrites the mutable metadata fields from a fetch result
func (r *Repository) ApplyMetadata(meta *RepoMetadata) {
	r.Description = meta.Description
	r.Stars = meta.Stars
	r.Forks = meta.Forks
	r.OpenIssues = meta.OpenIssues
	r.Language = meta.Language
	r.Topics = meta.Topics
	if r.FullName == "" {
		r.FullName = meta.FullName
	}
}
