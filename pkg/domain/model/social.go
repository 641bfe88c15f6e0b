package model

import (
	"time"

	"github.com/m-mizutani/prospector/pkg/domain/types"
)

// Classification labels assigned by the classification oracle
const (
	ClassDecisionMaker  = "DECISION_MAKER"
	ClassKeyContributor = "KEY_CONTRIBUTOR"
	ClassHighImpact     = "HIGH_IMPACT"
)

// SearchHit is one normalized result from the web search provider
type SearchHit struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Image   string `json:"image,omitempty"`
}

// PersonQuery carries the hints used to discover a contributor's profile
type PersonQuery struct {
	Name     string
	Company  string
	Location string
	Username string
}

// SocialProfile is the discovered external profile for a contributor
type SocialProfile struct {
	URL      string `json:"url,omitempty"`
	PhotoURL string `json:"photo_url,omitempty"`
	Headline string `json:"headline,omitempty"`
	Company  string `json:"company,omitempty"`
	Position string `json:"position,omitempty"`
}

// SubSignals captures every raw signal gathered during one enrichment run
type SubSignals struct {
	NetworkEstimate   int         `json:"network_estimate,omitempty"`
	CareerSignal      string      `json:"career_signal,omitempty"`
	ContactCandidates []string    `json:"contact_candidates,omitempty"`
	CompanySignal     string      `json:"company_signal,omitempty"`
	SearchHits        []SearchHit `json:"search_hits,omitempty"`
}

// Classification is the oracle's verdict on a contributor
type Classification struct {
	Label        string  `json:"classification"`
	Confidence   float64 `json:"confidence"`
	Reasoning    string  `json:"reasoning"`
	Organization string  `json:"organization,omitempty"`
	Industry     string  `json:"industry,omitempty"`
}

// SocialContext is the per-contributor enrichment result. At most one exists
// per contributor; a later enrichment run overwrites it.
type SocialContext struct {
	ContributorID types.ContributorID `json:"contributor_id"`
	Profile       SocialProfile       `json:"profile"`
	PositionLevel string              `json:"position_level,omitempty"`
	Industry      string              `json:"industry,omitempty"`
	Label         string              `json:"classification"`
	Confidence    float64             `json:"classification_confidence"`
	Reasoning     string              `json:"classification_reasoning,omitempty"`
	Signals       SubSignals          `json:"signals"`
	EnrichedAt    time.Time           `json:"last_enriched_at"`
}
