package config

import (
	"time"

	"github.com/urfave/cli/v3"
)

// Worker holds scheduler and pipeline configuration
type Worker struct {
	CheckInterval      time.Duration
	MaxConcurrentJobs  int64
	ContributorLimit   int
	StargazerLimit     int
	FetchPRIssueCounts bool
}

// Flags returns CLI flags for worker configuration
func (c *Worker) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:        "check-interval",
			Usage:       "Scheduler tick interval",
			Value:       30 * time.Second,
			Destination: &c.CheckInterval,
			Sources:     cli.EnvVars("PROSPECTOR_CHECK_INTERVAL"),
		},
		&cli.Int64Flag{
			Name:        "max-concurrent-jobs",
			Usage:       "Maximum jobs running at once",
			Value:       3,
			Destination: &c.MaxConcurrentJobs,
			Sources:     cli.EnvVars("PROSPECTOR_MAX_CONCURRENT_JOBS"),
		},
		&cli.IntFlag{
			Name:        "contributor-limit",
			Usage:       "Default contributors fetched per sourcing run",
			Value:       100,
			Destination: &c.ContributorLimit,
			Sources:     cli.EnvVars("PROSPECTOR_CONTRIBUTOR_LIMIT"),
		},
		&cli.IntFlag{
			Name:        "stargazer-limit",
			Usage:       "Default stargazers fetched per analysis run",
			Value:       200,
			Destination: &c.StargazerLimit,
			Sources:     cli.EnvVars("PROSPECTOR_STARGAZER_LIMIT"),
		},
		&cli.BoolFlag{
			Name:        "fetch-pr-issue-counts",
			Usage:       "Fetch authored PR and issue counts per contributor (extra search API calls)",
			Destination: &c.FetchPRIssueCounts,
			Sources:     cli.EnvVars("PROSPECTOR_FETCH_PR_ISSUE_COUNTS"),
		},
	}
}
