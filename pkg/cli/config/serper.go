package config

import "github.com/urfave/cli/v3"

// Serper holds web search configuration. An empty API key disables social
// profile search; enrichment jobs still run and record empty profiles.
type Serper struct {
	APIKey string
}

// Enabled reports whether the search client should be constructed
func (c *Serper) Enabled() bool {
	return c.APIKey != ""
}

// Flags returns CLI flags for Serper configuration
func (c *Serper) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "serper-api-key",
			Usage:       "Serper API key for social profile search (empty disables search)",
			Destination: &c.APIKey,
			Sources:     cli.EnvVars("PROSPECTOR_SERPER_API_KEY"),
		},
	}
}
