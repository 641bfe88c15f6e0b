package config

import "github.com/urfave/cli/v3"

// Gemini holds Gemini LLM configuration. An empty project ID disables the
// LLM classifier and pins classification to the rule-based path.
type Gemini struct {
	ProjectID string
	Location  string
	Model     string
}

// Enabled reports whether the LLM classifier should be constructed
func (c *Gemini) Enabled() bool {
	return c.ProjectID != ""
}

// Flags returns CLI flags for Gemini configuration
func (c *Gemini) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project-id",
			Usage:       "Google Cloud Project ID for Gemini (empty disables LLM classification)",
			Destination: &c.ProjectID,
			Sources:     cli.EnvVars("PROSPECTOR_GEMINI_PROJECT_ID"),
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Vertex AI location/region",
			Value:       "us-central1",
			Destination: &c.Location,
			Sources:     cli.EnvVars("PROSPECTOR_GEMINI_LOCATION"),
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Usage:       "Gemini model to use",
			Value:       "gemini-2.5-flash",
			Destination: &c.Model,
			Sources:     cli.EnvVars("PROSPECTOR_GEMINI_MODEL"),
		},
	}
}
