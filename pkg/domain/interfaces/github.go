package interfaces

import (
	"context"

	"github.com/m-mizutani/prospector/pkg/domain/model"
)

// GitHubClient defines operations against the repository host. Every call is
// expected to pass through the rate-limited gate inside the implementation.
type GitHubClient interface {
	// GetRepository fetches metadata for one repository
	GetRepository(ctx context.Context, owner, repo string) (*model.RepoMetadata, error)

	// ListContributors returns up to limit contributors ordered by contribution count
	ListContributors(ctx context.Context, owner, repo string, limit int) ([]*model.Contributor, error)

	// GetCommitWindows returns per-login commit activity windows computed from
	// the weekly contributor statistics endpoint
	GetCommitWindows(ctx context.Context, owner, repo string) (map[string]model.CommitWindows, error)

	// CountAuthored returns the number of pull requests and issues authored by
	// a user in a repository
	CountAuthored(ctx context.Context, owner, repo, username string) (prs int, issues int, err error)

	// ListStargazers returns up to limit users who starred the repository
	ListStargazers(ctx context.Context, owner, repo string, limit int) ([]*model.Contributor, error)

	// SearchRepositories returns topically related repositories ordered by stars
	SearchRepositories(ctx context.Context, query string, limit int) ([]*model.RepoMetadata, error)
}
