package github

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/prospector/pkg/domain/interfaces"
	"github.com/m-mizutani/prospector/pkg/domain/model"
	"github.com/m-mizutani/prospector/pkg/domain/types"
	"github.com/m-mizutani/prospector/pkg/utils/ratelimit"
)

// detailLimit caps how many contributors get a full profile fetch per run.
// Beyond this, only the cheap list-endpoint fields are stored.
const detailLimit = 20

type client struct {
	githubClient *github.Client
	gate         *ratelimit.Gate
}

// NewClient creates a GitHub client authenticated with a personal access
// token. All calls pass through the rate-limited gate.
func NewClient(token string, opts ...Option) (interfaces.GitHubClient, error) {
	if token == "" {
		return nil, goerr.New("GitHub token is required", goerr.T(types.ErrTagValidation))
	}

	c := &client{
		githubClient: github.NewClient(nil).WithAuthToken(token),
		gate:         ratelimit.New("github"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Option configures the client
type Option func(*client)

// WithGate replaces the rate gate, for tests
func WithGate(gate *ratelimit.Gate) Option {
	return func(c *client) { c.gate = gate }
}

// WithHTTPClient replaces the underlying HTTP client, for tests
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) { c.githubClient = github.NewClient(hc) }
}

// GetRepository fetches repository metadata
func (c *client) GetRepository(ctx context.Context, owner, repo string) (*model.RepoMetadata, error) {
	var meta *model.RepoMetadata

	err := c.gate.Do(ctx, func(ctx context.Context) error {
		r, resp, err := c.githubClient.Repositories.Get(ctx, owner, repo)
		c.observe(resp)
		if err != nil {
			return c.classify(err, "failed to get repository", owner, repo)
		}
		meta = &model.RepoMetadata{
			FullName:    r.GetFullName(),
			Description: r.GetDescription(),
			Stars:       r.GetStargazersCount(),
			Forks:       r.GetForksCount(),
			OpenIssues:  r.GetOpenIssuesCount(),
			Language:    r.GetLanguage(),
			Topics:      r.Topics,
			URL:         r.GetHTMLURL(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return meta, nil
}

// ListContributors returns up to limit contributors ordered by contributions.
// The first detailLimit entries get a full profile fetch; the rest keep the
// fields available from the list endpoint.
func (c *client) ListContributors(ctx context.Context, owner, repo string, limit int) ([]*model.Contributor, error) {
	var raw []*github.Contributor
	opt := &github.ListContributorsOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}

	for len(raw) < limit {
		var page []*github.Contributor
		err := c.gate.Do(ctx, func(ctx context.Context) error {
			var resp *github.Response
			var err error
			page, resp, err = c.githubClient.Repositories.ListContributors(ctx, owner, repo, opt)
			c.observe(resp)
			if err != nil {
				return c.classify(err, "failed to list contributors", owner, repo)
			}
			opt.Page = resp.NextPage
			return nil
		})
		if err != nil {
			return nil, err
		}
		raw = append(raw, page...)
		if opt.Page == 0 || len(page) == 0 {
			break
		}
	}
	if len(raw) > limit {
		raw = raw[:limit]
	}

	contributors := make([]*model.Contributor, 0, len(raw))
	for i, rc := range raw {
		contrib := &model.Contributor{
			GitHubID:   rc.GetID(),
			Username:   rc.GetLogin(),
			AvatarURL:  rc.GetAvatarURL(),
			ProfileURL: rc.GetHTMLURL(),
		}

		if i < detailLimit {
			if detailed, err := c.getUser(ctx, rc.GetLogin()); err == nil {
				contrib = detailed
			}
			// A failed detail fetch keeps the list-endpoint fields
		}
		contributors = append(contributors, contrib)
	}
	return contributors, nil
}

// GetCommitWindows computes per-login commit windows from the weekly
// contributor statistics endpoint
func (c *client) GetCommitWindows(ctx context.Context, owner, repo string) (map[string]model.CommitWindows, error) {
	var stats []*github.ContributorStats

	err := c.gate.Do(ctx, func(ctx context.Context) error {
		var resp *github.Response
		var err error
		stats, resp, err = c.githubClient.Repositories.ListContributorsStats(ctx, owner, repo)
		c.observe(resp)
		if err != nil {
			// GitHub answers 202 while it computes stats in the background
			if _, ok := err.(*github.AcceptedError); ok {
				return goerr.Wrap(err, "contributor stats not ready yet",
					goerr.T(types.ErrTagTransient),
					goerr.V("repo", owner+"/"+repo),
				)
			}
			return c.classify(err, "failed to get contributor stats", owner, repo)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	threeMonthsAgo := now.AddDate(0, -3, 0)
	sixMonthsAgo := now.AddDate(0, -6, 0)
	oneYearAgo := now.AddDate(-1, 0, 0)

	windows := make(map[string]model.CommitWindows, len(stats))
	for _, st := range stats {
		if st.GetAuthor() == nil {
			continue
		}
		var w model.CommitWindows
		w.Total = st.GetTotal()
		for _, week := range st.Weeks {
			if week.GetCommits() == 0 {
				continue
			}
			ts := week.GetWeek().Time
			if ts.After(threeMonthsAgo) {
				w.Last3Months += week.GetCommits()
			}
			if ts.After(sixMonthsAgo) {
				w.Last6Months += week.GetCommits()
			}
			if ts.After(oneYearAgo) {
				w.LastYear += week.GetCommits()
				if w.FirstCommitAt == nil {
					t := ts
					w.FirstCommitAt = &t
				}
				t := ts
				w.LastCommitAt = &t
			}
		}
		windows[st.GetAuthor().GetLogin()] = w
	}
	return windows, nil
}

// CountAuthored counts pull requests and issues authored by a user via the
// search API
func (c *client) CountAuthored(ctx context.Context, owner, repo, username string) (int, int, error) {
	count := func(kind string) (int, error) {
		query := fmt.Sprintf("repo:%s/%s type:%s author:%s", owner, repo, kind, username)
		var total int
		err := c.gate.Do(ctx, func(ctx context.Context) error {
			result, resp, err := c.githubClient.Search.Issues(ctx, query, &github.SearchOptions{
				ListOptions: github.ListOptions{PerPage: 1},
			})
			c.observe(resp)
			if err != nil {
				return c.classify(err, "failed to search authored items", owner, repo)
			}
			total = result.GetTotal()
			return nil
		})
		return total, err
	}

	prs, err := count("pr")
	if err != nil {
		return 0, 0, err
	}
	issues, err := count("issue")
	if err != nil {
		return 0, 0, err
	}
	return prs, issues, nil
}

// ListStargazers returns up to limit stargazers with full profiles
func (c *client) ListStargazers(ctx context.Context, owner, repo string, limit int) ([]*model.Contributor, error) {
	var logins []string
	opt := &github.ListOptions{PerPage: 100}

	for len(logins) < limit {
		var page []*github.Stargazer
		err := c.gate.Do(ctx, func(ctx context.Context) error {
			var resp *github.Response
			var err error
			page, resp, err = c.githubClient.Activity.ListStargazers(ctx, owner, repo, opt)
			c.observe(resp)
			if err != nil {
				return c.classify(err, "failed to list stargazers", owner, repo)
			}
			opt.Page = resp.NextPage
			return nil
		})
		if err != nil {
			return nil, err
		}
		for _, sg := range page {
			logins = append(logins, sg.GetUser().GetLogin())
		}
		if opt.Page == 0 || len(page) == 0 {
			break
		}
	}
	if len(logins) > limit {
		logins = logins[:limit]
	}

	stargazers := make([]*model.Contributor, 0, len(logins))
	for _, login := range logins {
		detailed, err := c.getUser(ctx, login)
		if err != nil {
			// Skip individual profile failures rather than failing the batch
			continue
		}
		stargazers = append(stargazers, detailed)
	}
	return stargazers, nil
}

// SearchRepositories returns topically related repositories ordered by stars
func (c *client) SearchRepositories(ctx context.Context, query string, limit int) ([]*model.RepoMetadata, error) {
	var repos []*model.RepoMetadata

	err := c.gate.Do(ctx, func(ctx context.Context) error {
		result, resp, err := c.githubClient.Search.Repositories(ctx, query, &github.SearchOptions{
			Sort:        "stars",
			Order:       "desc",
			ListOptions: github.ListOptions{PerPage: limit},
		})
		c.observe(resp)
		if err != nil {
			return c.classify(err, "failed to search repositories", "", "")
		}
		repos = repos[:0]
		for _, r := range result.Repositories {
			repos = append(repos, &model.RepoMetadata{
				FullName:    r.GetFullName(),
				Description: r.GetDescription(),
				Stars:       r.GetStargazersCount(),
				Forks:       r.GetForksCount(),
				Language:    r.GetLanguage(),
				Topics:      r.Topics,
				URL:         r.GetHTMLURL(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(repos) > limit {
		repos = repos[:limit]
	}
	return repos, nil
}

func (c *client) getUser(ctx context.Context, login string) (*model.Contributor, error) {
	var contrib *model.Contributor

	err := c.gate.Do(ctx, func(ctx context.Context) error {
		u, resp, err := c.githubClient.Users.Get(ctx, login)
		c.observe(resp)
		if err != nil {
			return c.classify(err, "failed to get user", "", login)
		}
		contrib = &model.Contributor{
			GitHubID:        u.GetID(),
			Username:        u.GetLogin(),
			FullName:        u.GetName(),
			Email:           u.GetEmail(),
			Company:         u.GetCompany(),
			Location:        u.GetLocation(),
			Bio:             u.GetBio(),
			Blog:            u.GetBlog(),
			TwitterUsername: u.GetTwitterUsername(),
			AvatarURL:       u.GetAvatarURL(),
			ProfileURL:      u.GetHTMLURL(),
			PublicRepos:     u.GetPublicRepos(),
			Followers:       u.GetFollowers(),
			Following:       u.GetFollowing(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return contrib, nil
}

// observe feeds go-github's rate information into the gate
func (c *client) observe(resp *github.Response) {
	if resp == nil {
		return
	}
	c.gate.Observe(resp.Rate.Remaining, resp.Rate.Reset.Time)
}

// classify maps go-github errors onto the error taxonomy: rate limits are
// tagged for the gate's bounded wait, 5xx as transient, everything else as
// permanent
func (c *client) classify(err error, msg, owner, repo string) error {
	target := owner
	if repo != "" {
		target = owner + "/" + repo
	}

	switch e := err.(type) {
	case *github.RateLimitError:
		return goerr.Wrap(err, msg,
			goerr.T(types.ErrTagRateLimited),
			goerr.V("target", target),
			goerr.V("reset_at", e.Rate.Reset.Time),
		)
	case *github.AbuseRateLimitError:
		return goerr.Wrap(err, msg, goerr.T(types.ErrTagRateLimited), goerr.V("target", target))
	case *github.ErrorResponse:
		if e.Response != nil && e.Response.StatusCode >= 500 {
			return goerr.Wrap(err, msg, goerr.T(types.ErrTagTransient), goerr.V("target", target))
		}
		if e.Response != nil && e.Response.StatusCode == http.StatusNotFound {
			return goerr.Wrap(err, msg, goerr.T(types.ErrTagNotFound), goerr.V("target", target))
		}
		return goerr.Wrap(err, msg, goerr.T(types.ErrTagPermanent), goerr.V("target", target))
	default:
		// Network-level failures (timeouts, connection resets)
		return goerr.Wrap(err, msg, goerr.T(types.ErrTagTransient), goerr.V("target", target))
	}
}
