// Package logic holds pure domain computations with no I/O.
package logic

import "github.com/m-mizutani/prospector/pkg/domain/model"

// Component weights of the overall lead score. Position carries the most
// weight for product-led sales outreach.
const (
	WeightActivity   = 0.25
	WeightInfluence  = 0.20
	WeightPosition   = 0.40
	WeightEngagement = 0.15
)

const qualifiedThreshold = 60.0

// ScoreInput gathers every signal the scoring engine consumes
type ScoreInput struct {
	Stats       model.ContributorStats
	Contributor model.Contributor
	Social      *model.SocialContext
}

// Score computes the four component scores and the weighted overall score.
// It is deterministic: the same input always yields the same LeadScore
// (modulo CalculatedAt, which the caller sets on persist).
func Score(in ScoreInput) model.LeadScore {
	activity := ActivityScore(in.Stats)
	influence := InfluenceScore(in.Contributor)
	position := PositionScore(in.Social)
	engagement := EngagementScore(in.Stats)

	overall := Overall(activity, influence, position, engagement)

	return model.LeadScore{
		ContributorID: in.Contributor.ID,
		Overall:       overall,
		Activity:      activity,
		Influence:     influence,
		Position:      position,
		Engagement:    engagement,
		IsQualified:   overall >= qualifiedThreshold,
		Priority:      PriorityOf(overall),
	}
}

// Overall is the weighted sum of the four clamped component scores
func Overall(activity, influence, position, engagement float64) float64 {
	return WeightActivity*clamp(activity) +
		WeightInfluence*clamp(influence) +
		WeightPosition*clamp(position) +
		WeightEngagement*clamp(engagement)
}

// PriorityOf buckets an overall score into outreach priority
func PriorityOf(overall float64) model.Priority {
	switch {
	case overall >= 80:
		return model.PriorityHigh
	case overall >= qualifiedThreshold:
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
}

// ActivityScore rates contribution volume and recency. Monotonic in every
// input; clamped to [0,100].
func ActivityScore(stats model.ContributorStats) float64 {
	var score float64

	// Recent activity (40 points)
	switch {
	case stats.Commits3Months >= 50:
		score += 40
	case stats.Commits3Months >= 20:
		score += 30
	case stats.Commits3Months >= 10:
		score += 20
	case stats.Commits3Months >= 5:
		score += 10
	}

	// Total commits (30 points)
	switch {
	case stats.TotalCommits >= 500:
		score += 30
	case stats.TotalCommits >= 200:
		score += 25
	case stats.TotalCommits >= 100:
		score += 20
	case stats.TotalCommits >= 50:
		score += 15
	case stats.TotalCommits >= 10:
		score += 10
	}

	// Pull requests (20 points)
	switch {
	case stats.PullRequests >= 50:
		score += 20
	case stats.PullRequests >= 20:
		score += 15
	case stats.PullRequests >= 10:
		score += 10
	case stats.PullRequests >= 5:
		score += 5
	}

	// Maintainer status (10 points)
	if stats.IsMaintainer {
		score += 10
	}

	return clamp(score)
}

// InfluenceScore rates the contributor's reach from their public profile
func InfluenceScore(c model.Contributor) float64 {
	var score float64

	// Followers (50 points)
	switch {
	case c.Followers >= 1000:
		score += 50
	case c.Followers >= 500:
		score += 40
	case c.Followers >= 100:
		score += 30
	case c.Followers >= 50:
		score += 20
	case c.Followers >= 10:
		score += 10
	}

	// Public repos (30 points)
	switch {
	case c.PublicRepos >= 50:
		score += 30
	case c.PublicRepos >= 20:
		score += 20
	case c.PublicRepos >= 10:
		score += 15
	case c.PublicRepos >= 5:
		score += 10
	}

	// Has company (20 points)
	if c.Company != "" {
		score += 20
	}

	return clamp(score)
}

var positionLevelPoints = map[string]float64{
	"C-Suite":  40,
	"Director": 35,
	"Manager":  25,
	"Lead":     20,
	"Senior":   15,
	"Mid":      10,
	"Entry":    5,
}

// PositionScore rates professional seniority from the enrichment result.
// A contributor without social context scores zero.
func PositionScore(social *model.SocialContext) float64 {
	if social == nil {
		return 0
	}

	var score float64

	// Classification (60 points)
	switch social.Label {
	case model.ClassDecisionMaker:
		score += 60
	case model.ClassKeyContributor:
		score += 40
	case model.ClassHighImpact:
		score += 20
	}

	// Position level (40 points)
	score += positionLevelPoints[social.PositionLevel]

	return clamp(score)
}

// EngagementScore rates interaction patterns beyond raw commits
func EngagementScore(stats model.ContributorStats) float64 {
	var score float64

	// Issues opened (30 points)
	switch {
	case stats.IssuesOpened >= 20:
		score += 30
	case stats.IssuesOpened >= 10:
		score += 20
	case stats.IssuesOpened >= 5:
		score += 10
	}

	// Code reviews (30 points)
	switch {
	case stats.CodeReviews >= 50:
		score += 30
	case stats.CodeReviews >= 20:
		score += 20
	case stats.CodeReviews >= 10:
		score += 10
	}

	// Recency ratio (40 points)
	var ratio float64
	if stats.TotalCommits > 0 {
		ratio = float64(stats.Commits3Months) / float64(stats.TotalCommits)
	}
	switch {
	case ratio >= 0.5:
		score += 40
	case ratio >= 0.3:
		score += 30
	case ratio >= 0.2:
		score += 20
	case ratio >= 0.1:
		score += 10
	}

	return clamp(score)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
