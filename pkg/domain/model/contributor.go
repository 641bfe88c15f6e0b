package model

import (
	"time"

	"github.com/m-mizutani/prospector/pkg/domain/types"
)

// Contributor is a person discovered through repository activity or starring,
// keyed by the stable GitHub numeric ID. Profile fields are filled in
// progressively across pipeline stages.
type Contributor struct {
	ID              types.ContributorID `json:"id"`
	GitHubID        int64               `json:"github_id"`
	Username        string              `json:"username"`
	FullName        string              `json:"full_name,omitempty"`
	Email           string              `json:"email,omitempty"`
	Company         string              `json:"company,omitempty"`
	Location        string              `json:"location,omitempty"`
	Bio             string              `json:"bio,omitempty"`
	Blog            string              `json:"blog,omitempty"`
	TwitterUsername string              `json:"twitter_username,omitempty"`
	AvatarURL       string              `json:"avatar_url,omitempty"`
	ProfileURL      string              `json:"github_url,omitempty"`
	PublicRepos     int                 `json:"public_repos"`
	Followers       int                 `json:"followers"`
	Following       int                 `json:"following"`
	CreatedAt       time.Time           `json:"created_at"`
}

// Merge fills empty profile fields from a fresher fetch and always takes the
// latest counters. Existing non-empty identity fields are kept.
func (c *Contributor) Merge(in *Contributor) {
	if in.FullName != "" {
		c.FullName = in.FullName
	}
	if in.Email != "" {
		c.Email = in.Email
	}
	if in.Company != "" {
		c.Company = in.Company
	}
	if in.Location != "" {
		c.Location = in.Location
	}
	if in.Bio != "" {
		c.Bio = in.Bio
	}
	if in.Blog != "" {
		c.Blog = in.Blog
	}
	if in.TwitterUsername != "" {
		c.TwitterUsername = in.TwitterUsername
	}
	if in.AvatarURL != "" {
		c.AvatarURL = in.AvatarURL
	}
	c.PublicRepos = in.PublicRepos
	c.Followers = in.Followers
	c.Following = in.Following
}

// StatsSource tags how a (repository, contributor) pair was discovered
type StatsSource string

const (
	SourceCommit    StatsSource = "commit"
	SourceStargazer StatsSource = "stargazer"
)

// ContributorStats holds per (repository, contributor) activity facts.
// They are recomputed wholesale on each sourcing run for that pair.
type ContributorStats struct {
	RepositoryID    types.RepositoryID  `json:"repository_id"`
	ContributorID   types.ContributorID `json:"contributor_id"`
	TotalCommits    int                 `json:"total_commits"`
	Commits3Months  int                 `json:"commits_last_3_months"`
	Commits6Months  int                 `json:"commits_last_6_months"`
	CommitsLastYear int                 `json:"commits_last_year"`
	FirstCommitAt   *time.Time          `json:"first_commit_date,omitempty"`
	LastCommitAt    *time.Time          `json:"last_commit_date,omitempty"`
	PullRequests    int                 `json:"pull_requests"`
	IssuesOpened    int                 `json:"issues_opened"`
	CodeReviews     int                 `json:"code_reviews"`
	IsMaintainer    bool                `json:"is_maintainer"`
	Source          StatsSource         `json:"source"`
	CalculatedAt    time.Time           `json:"calculated_at"`
}

// CommitWindows is the per-contributor slice of a bulk weekly-stats fetch
type CommitWindows struct {
	Total         int
	Last3Months   int
	Last6Months   int
	LastYear      int
	FirstCommitAt *time.Time
	LastCommitAt  *time.Time
}
