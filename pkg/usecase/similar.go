package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/prospector/pkg/domain/model"
	"github.com/m-mizutani/prospector/pkg/domain/types"
)

// similarStages builds the similar_repos pipeline: find topically related
// repositories and optionally start tracking them
func (x *Executor) similarStages(job *model.Job) []stage {
	var results []*model.RepoMetadata

	limit := x.similarLimit
	autoSource := false
	query := ""
	if p := job.Params.Similar; p != nil {
		if p.MaxResults > 0 {
			limit = p.MaxResults
		}
		autoSource = p.AutoSource
		query = p.Query
	}

	return []stage{
		{
			name: "search_similar_repositories",
			run: func(ctx context.Context) (string, map[string]any, error) {
				q := query
				if q == "" {
					repo, err := x.store.GetRepository(ctx, job.RepositoryID)
					if err != nil {
						return "", nil, err
					}
					q = similarQuery(repo)
				}

				found, err := x.github.SearchRepositories(ctx, q, limit)
				if err != nil {
					return "", nil, err
				}
				results = found
				return fmt.Sprintf("found %d similar repositories", len(found)), map[string]any{
					"query": q,
				}, nil
			},
		},
		{
			name: "queue_repository_sourcing",
			run: func(ctx context.Context) (string, map[string]any, error) {
				if !autoSource {
					return "auto-sourcing disabled, results recorded only", nil, nil
				}

				tracked := 0
				for _, meta := range results {
					if _, err := x.store.GetRepositoryByFullName(ctx, meta.FullName); err == nil {
						continue
					} else if !types.IsNotFound(err) {
						return "", nil, err
					}

					owner, name, ok := strings.Cut(meta.FullName, "/")
					if !ok {
						continue
					}
					repo := &model.Repository{
						ID:               types.NewRepositoryID(),
						ProjectID:        job.ProjectID,
						Owner:            owner,
						Name:             name,
						FullName:         meta.FullName,
						SourcingInterval: model.IntervalWeekly,
						CreatedAt:        x.now(),
					}
					repo.ApplyMetadata(meta)
					if err := x.store.CreateRepository(ctx, repo); err != nil {
						return "", nil, err
					}

					sourcingJob := &model.Job{
						ID:           types.NewJobID(),
						Type:         model.JobTypeRepositorySourcing,
						Status:       model.JobStatusPending,
						ProjectID:    job.ProjectID,
						RepositoryID: repo.ID,
						CreatedAt:    x.now(),
					}
					if err := x.store.CreateJob(ctx, sourcingJob); err != nil {
						return "", nil, err
					}
					tracked++
				}

				return fmt.Sprintf("queued sourcing for %d new repositories", tracked), map[string]any{
					"tracked": tracked,
				}, nil
			},
		},
	}
}

// similarQuery builds a search query from a repository's topics and language
func similarQuery(repo *model.Repository) string {
	var parts []string
	for i, topic := range repo.Topics {
		if i >= 3 {
			break
		}
		parts = append(parts, "topic:"+topic)
	}
	if repo.Language != "" {
		parts = append(parts, "language:"+repo.Language)
	}
	if len(parts) == 0 {
		parts = append(parts, repo.Name)
	}
	return strings.Join(parts, " ")
}
