package model

import (
	"time"

	"github.com/m-mizutani/prospector/pkg/domain/types"
)

// Priority buckets derived from the overall score
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// LeadScore is the weighted, qualification-bearing composite score for a
// contributor within a project. Recomputed whenever a contributing stat
// changes; last write wins.
type LeadScore struct {
	ProjectID     types.ProjectID     `json:"project_id"`
	ContributorID types.ContributorID `json:"contributor_id"`
	Overall       float64             `json:"overall_score"`
	Activity      float64             `json:"activity_score"`
	Influence     float64             `json:"influence_score"`
	Position      float64             `json:"position_score"`
	Engagement    float64             `json:"engagement_score"`
	IsQualified   bool                `json:"is_qualified"`
	Priority      Priority            `json:"priority"`
	CalculatedAt  time.Time           `json:"calculated_at"`
}
