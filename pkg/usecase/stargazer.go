package usecase

import (
	"context"
	"fmt"

	"github.com/m-mizutani/prospector/pkg/domain/model"
)

// stargazerStages builds the stargazer_analysis pipeline. Stargazers carry no
// commit activity against the repository, so their stats rows are zero-filled
// with stargazer provenance; their value comes from profile and position
// signal, not activity.
func (x *Executor) stargazerStages(job *model.Job) []stage {
	var (
		repo       *model.Repository
		stargazers []*model.Contributor
	)

	limit := x.stargazerLimit
	if p := job.Params.Stargazer; p != nil && p.StargazerLimit > 0 {
		limit = p.StargazerLimit
	}

	return []stage{
		{
			name: "fetch_stargazers",
			run: func(ctx context.Context) (string, map[string]any, error) {
				r, err := x.store.GetRepository(ctx, job.RepositoryID)
				if err != nil {
					return "", nil, err
				}
				repo = r

				list, err := x.github.ListStargazers(ctx, r.Owner, r.Name, limit)
				if err != nil {
					return "", nil, err
				}
				stargazers = list
				return fmt.Sprintf("found %d stargazers", len(list)), nil, nil
			},
		},
		{
			name: "process_stargazer_profiles",
			run: func(ctx context.Context) (string, map[string]any, error) {
				processed := 0
				for _, sg := range stargazers {
					if processed%10 == 0 {
						if err := x.ensureActive(ctx, job.ID); err != nil {
							return "", nil, err
						}
					}

					stored, err := x.store.UpsertContributor(ctx, sg)
					if err != nil {
						return "", nil, err
					}
					if err := x.store.LinkRepositoryContributor(ctx, repo.ID, stored.ID); err != nil {
						return "", nil, err
					}

					stats := &model.ContributorStats{
						RepositoryID:  repo.ID,
						ContributorID: stored.ID,
						Source:        model.SourceStargazer,
						CalculatedAt:  x.now(),
					}
					if err := x.store.UpsertContributorStats(ctx, stats); err != nil {
						return "", nil, err
					}
					if err := x.rescore(ctx, job.ProjectID, stored); err != nil {
						return "", nil, err
					}
					processed++
				}

				return fmt.Sprintf("processed %d stargazer profiles", processed), map[string]any{
					"processed": processed,
				}, nil
			},
		},
		{
			name: "queue_social_enrichment",
			run: func(ctx context.Context) (string, map[string]any, error) {
				queued, skipped, err := x.queueEnrichment(ctx, job, repo.ID)
				if err != nil {
					return "", nil, err
				}
				return fmt.Sprintf("queued enrichment for %d stargazers (%d already enriched)", queued, skipped),
					map[string]any{"queued": queued, "already_enriched": skipped}, nil
			},
		},
	}
}
