package usecase

import (
	"context"
	"fmt"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/prospector/pkg/domain/model"
)

// sourcingStages builds the repository_sourcing pipeline. State discovered by
// earlier stages is carried through the closure; each stage commits its own
// output before the next begins.
func (x *Executor) sourcingStages(job *model.Job) []stage {
	var (
		repo         *model.Repository
		contributors []*model.Contributor
		windows      map[string]model.CommitWindows
	)

	limit := x.contributorLimit
	if p := job.Params.Sourcing; p != nil && p.ContributorLimit > 0 {
		limit = p.ContributorLimit
	}

	return []stage{
		{
			name: "fetch_repository_metadata",
			run: func(ctx context.Context) (string, map[string]any, error) {
				r, err := x.store.GetRepository(ctx, job.RepositoryID)
				if err != nil {
					return "", nil, err
				}
				if err := r.Validate(); err != nil {
					return "", nil, err
				}

				meta, err := x.github.GetRepository(ctx, r.Owner, r.Name)
				if err != nil {
					return "", nil, err
				}
				r.ApplyMetadata(meta)
				if err := x.store.UpdateRepository(ctx, r); err != nil {
					return "", nil, err
				}

				repo = r
				return fmt.Sprintf("fetched metadata for %s", r.FullName), map[string]any{
					"stars": meta.Stars,
					"forks": meta.Forks,
				}, nil
			},
		},
		{
			name: "discover_contributors",
			run: func(ctx context.Context) (string, map[string]any, error) {
				list, err := x.github.ListContributors(ctx, repo.Owner, repo.Name, limit)
				if err != nil {
					return "", nil, err
				}
				contributors = list

				// The weekly stats endpoint is best effort: when GitHub has not
				// computed them yet the run proceeds with zero windows and the
				// next scheduled sourcing fills them in.
				w, err := x.github.GetCommitWindows(ctx, repo.Owner, repo.Name)
				if err != nil {
					ctxlog.From(ctx).Warn("commit windows unavailable",
						"repository", repo.FullName, "error", err)
					w = map[string]model.CommitWindows{}
				}
				windows = w

				return fmt.Sprintf("found %d contributors", len(list)), nil, nil
			},
		},
		{
			name: "process_contributor_stats",
			run: func(ctx context.Context) (string, map[string]any, error) {
				processed := 0
				for _, c := range contributors {
					if processed%10 == 0 {
						if err := x.ensureActive(ctx, job.ID); err != nil {
							return "", nil, err
						}
					}

					stored, err := x.store.UpsertContributor(ctx, c)
					if err != nil {
						return "", nil, err
					}
					if err := x.store.LinkRepositoryContributor(ctx, repo.ID, stored.ID); err != nil {
						return "", nil, err
					}

					w := windows[stored.Username]
					stats := &model.ContributorStats{
						RepositoryID:    repo.ID,
						ContributorID:   stored.ID,
						TotalCommits:    w.Total,
						Commits3Months:  w.Last3Months,
						Commits6Months:  w.Last6Months,
						CommitsLastYear: w.LastYear,
						FirstCommitAt:   w.FirstCommitAt,
						LastCommitAt:    w.LastCommitAt,
						Source:          model.SourceCommit,
						CalculatedAt:    x.now(),
					}

					// Best effort like the commit windows: a failed search
					// leaves the counts at zero rather than failing the run
					if x.authoredCounts {
						prs, issues, err := x.github.CountAuthored(ctx, repo.Owner, repo.Name, stored.Username)
						if err != nil {
							ctxlog.From(ctx).Warn("authored counts unavailable",
								"repository", repo.FullName, "username", stored.Username, "error", err)
						} else {
							stats.PullRequests = prs
							stats.IssuesOpened = issues
						}
					}

					if err := x.store.UpsertContributorStats(ctx, stats); err != nil {
						return "", nil, err
					}
					if err := x.rescore(ctx, job.ProjectID, stored); err != nil {
						return "", nil, err
					}
					processed++
				}

				repo.MarkSourced(x.now())
				if err := x.store.UpdateRepository(ctx, repo); err != nil {
					return "", nil, err
				}

				return fmt.Sprintf("processed %d contributors", processed), map[string]any{
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
				return fmt.Sprintf("queued enrichment for %d contributors (%d already enriched)", queued, skipped),
					map[string]any{"queued": queued, "already_enriched": skipped}, nil
			},
		},
	}
}
