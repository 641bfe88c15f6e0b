package config

import "github.com/urfave/cli/v3"

// Database holds storage configuration. An empty URL selects the in-memory
// store, which loses all state on restart.
type Database struct {
	URL string
}

// Flags returns CLI flags for database configuration
func (c *Database) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "database-url",
			Usage:       "PostgreSQL connection URL (empty uses the in-memory store)",
			Destination: &c.URL,
			Sources:     cli.EnvVars("PROSPECTOR_DATABASE_URL"),
		},
	}
}
