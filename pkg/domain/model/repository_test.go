package model_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/prospector/pkg/domain/model"
)

func TestMarkSourcedAdvancesSchedule(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		interval model.SourcingInterval
		next     time.Time
	}{
		{model.IntervalDaily, now.Add(24 * time.Hour)},
		{model.IntervalWeekly, now.Add(7 * 24 * time.Hour)},
		{model.IntervalMonthly, now.Add(30 * 24 * time.Hour)},
	}

	for _, tt := range tests {
		t.Run(string(tt.interval), func(t *testing.T) {
			repo := &model.Repository{SourcingInterval: tt.interval}
			repo.MarkSourced(now)

			gt.NotNil(t, repo.LastSourcedAt)
			gt.Value(t, *repo.NextSourcingAt).Equal(tt.next)
			gt.B(t, repo.DueForSourcing(now)).False()
			gt.B(t, repo.DueForSourcing(tt.next)).True()
		})
	}
}

func TestDueForSourcingUnscheduled(t *testing.T) {
	repo := &model.Repository{SourcingInterval: model.IntervalDaily}
	gt.B(t, repo.DueForSourcing(time.Now())).False()
}

func TestRepositoryValidate(t *testing.T) {
	valid := &model.Repository{Owner: "acme", Name: "widgets"}
	gt.NoError(t, valid.Validate())

	for _, repo := range []*model.Repository{
		{Name: "widgets"},
		{Owner: "acme"},
		{Owner: "acme/evil", Name: "widgets"},
		{Owner: "acme", Name: "two words"},
	} {
		gt.Error(t, repo.Validate())
	}
}

func TestContributorMerge(t *testing.T) {
	existing := &model.Contributor{
		GitHubID:  42,
		Username:  "alice",
		FullName:  "Alice Smith",
		Company:   "Acme",
		Followers: 100,
	}

	existing.Merge(&model.Contributor{
		GitHubID:  42,
		Username:  "alice",
		Location:  "Tokyo",
		Followers: 150,
	})

	// Fresh non-empty fields win, blanks never erase, counters always refresh
	gt.Value(t, existing.FullName).Equal("Alice Smith")
	gt.Value(t, existing.Company).Equal("Acme")
	gt.Value(t, existing.Location).Equal("Tokyo")
	gt.Number(t, existing.Followers).Equal(150)
}
