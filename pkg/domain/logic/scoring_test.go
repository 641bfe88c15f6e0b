package logic_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/prospector/pkg/domain/logic"
	"github.com/m-mizutani/prospector/pkg/domain/model"
)

func TestOverallWeightedSum(t *testing.T) {
	// 0.25*80 + 0.20*50 + 0.40*90 + 0.15*40 = 72.0
	overall := logic.Overall(80, 50, 90, 40)
	gt.Number(t, overall).Equal(72.0)
	gt.B(t, overall >= 60).True()
	gt.Value(t, logic.PriorityOf(overall)).Equal(model.PriorityMedium)
}

func TestQualificationBoundary(t *testing.T) {
	tests := []struct {
		name      string
		overall   float64
		qualified bool
		priority  model.Priority
	}{
		{"exactly 60", 60.0, true, model.PriorityMedium},
		{"just below 60", 59.99, false, model.PriorityLow},
		{"exactly 80", 80.0, true, model.PriorityHigh},
		{"just below 80", 79.9, true, model.PriorityMedium},
		{"zero", 0, false, model.PriorityLow},
		{"maximum", 100, true, model.PriorityHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.Value(t, tt.overall >= 60).Equal(tt.qualified)
			gt.Value(t, logic.PriorityOf(tt.overall)).Equal(tt.priority)
		})
	}
}

func TestScoreDeterminism(t *testing.T) {
	in := logic.ScoreInput{
		Stats: model.ContributorStats{
			TotalCommits:   250,
			Commits3Months: 30,
			PullRequests:   12,
			IssuesOpened:   6,
			CodeReviews:    15,
			IsMaintainer:   true,
		},
		Contributor: model.Contributor{
			Followers:   600,
			PublicRepos: 25,
			Company:     "Acme",
		},
		Social: &model.SocialContext{
			Label:         model.ClassKeyContributor,
			PositionLevel: "Senior",
		},
	}

	first := logic.Score(in)
	for i := 0; i < 10; i++ {
		again := logic.Score(in)
		gt.Value(t, again).Equal(first)
	}

	gt.B(t, first.Overall >= 0 && first.Overall <= 100).True()
	gt.Value(t, first.IsQualified).Equal(first.Overall >= 60)
}

func TestComponentBounds(t *testing.T) {
	// Saturated inputs must still clamp to [0,100]
	stats := model.ContributorStats{
		TotalCommits:   100000,
		Commits3Months: 90000,
		PullRequests:   5000,
		IssuesOpened:   1000,
		CodeReviews:    1000,
		IsMaintainer:   true,
	}
	contrib := model.Contributor{Followers: 1 << 20, PublicRepos: 1 << 10, Company: "BigCo"}
	social := &model.SocialContext{Label: model.ClassDecisionMaker, PositionLevel: "C-Suite"}

	gt.Number(t, logic.ActivityScore(stats)).Equal(100.0)
	gt.Number(t, logic.InfluenceScore(contrib)).Equal(100.0)
	gt.Number(t, logic.PositionScore(social)).Equal(100.0)
	gt.Number(t, logic.EngagementScore(stats)).Equal(100.0)
	gt.Number(t, logic.Overall(100, 100, 100, 100)).Equal(100.0)
}

func TestActivityMonotonicity(t *testing.T) {
	base := model.ContributorStats{TotalCommits: 40, Commits3Months: 4}
	more := base
	more.Commits3Months = 25

	gt.B(t, logic.ActivityScore(more) > logic.ActivityScore(base)).True()
}

func TestPositionScoreWithoutSocialContext(t *testing.T) {
	gt.Number(t, logic.PositionScore(nil)).Equal(0.0)
}

func TestStargazerZeroFill(t *testing.T) {
	// Stargazer-sourced contributors carry zero activity facts; their score
	// comes entirely from influence and position.
	in := logic.ScoreInput{
		Stats: model.ContributorStats{Source: model.SourceStargazer},
		Contributor: model.Contributor{
			Followers:   1200,
			PublicRepos: 60,
			Company:     "Acme",
		},
		Social: &model.SocialContext{
			Label:         model.ClassDecisionMaker,
			PositionLevel: "Director",
		},
	}

	score := logic.Score(in)
	gt.Number(t, score.Activity).Equal(0.0)
	gt.Number(t, score.Engagement).Equal(0.0)
	gt.Number(t, score.Influence).Equal(100.0)
	gt.Number(t, score.Position).Equal(95.0)
	// 0.20*100 + 0.40*95 = 58.0
	gt.Number(t, score.Overall).Equal(58.0)
	gt.B(t, score.IsQualified).False()
}
