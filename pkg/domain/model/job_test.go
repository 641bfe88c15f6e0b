package model_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/prospector/pkg/domain/model"
	"github.com/m-mizutani/prospector/pkg/domain/types"
)

func TestAdvanceStepProgress(t *testing.T) {
	job := &model.Job{TotalSteps: 4}

	prev := 0.0
	for i := 1; i <= 4; i++ {
		job.AdvanceStep()
		gt.Number(t, job.CurrentStep).Equal(i)
		gt.B(t, job.Progress > prev).True()
		prev = job.Progress
	}
	gt.Number(t, job.Progress).Equal(100.0)

	// Advancing past the last step is a no-op
	job.AdvanceStep()
	gt.Number(t, job.CurrentStep).Equal(4)
	gt.Number(t, job.Progress).Equal(100.0)
}

func TestJobStatusIsTerminal(t *testing.T) {
	gt.B(t, model.JobStatusPending.IsTerminal()).False()
	gt.B(t, model.JobStatusRunning.IsTerminal()).False()
	gt.B(t, model.JobStatusCompleted.IsTerminal()).True()
	gt.B(t, model.JobStatusFailed.IsTerminal()).True()
	gt.B(t, model.JobStatusCancelled.IsTerminal()).True()
}

func TestJobValidate(t *testing.T) {
	repoID := types.NewRepositoryID()
	contribID := types.NewContributorID()

	tests := []struct {
		name    string
		job     model.Job
		wantErr bool
	}{
		{
			name: "valid sourcing",
			job:  model.Job{Type: model.JobTypeRepositorySourcing, RepositoryID: repoID},
		},
		{
			name:    "sourcing without repository",
			job:     model.Job{Type: model.JobTypeRepositorySourcing},
			wantErr: true,
		},
		{
			name: "valid enrichment",
			job: model.Job{
				Type:   model.JobTypeSocialEnrichment,
				Params: model.JobParams{Enrichment: &model.EnrichmentParams{ContributorID: contribID}},
			},
		},
		{
			name:    "enrichment without contributor",
			job:     model.Job{Type: model.JobTypeSocialEnrichment},
			wantErr: true,
		},
		{
			name: "similar with query only",
			job: model.Job{
				Type:   model.JobTypeSimilarRepos,
				Params: model.JobParams{Similar: &model.SimilarParams{Query: "topic:tracing"}},
			},
		},
		{
			name:    "similar without target",
			job:     model.Job{Type: model.JobTypeSimilarRepos},
			wantErr: true,
		},
		{
			name: "params for another type",
			job: model.Job{
				Type:         model.JobTypeStargazerAnalysis,
				RepositoryID: repoID,
				Params:       model.JobParams{Sourcing: &model.SourcingParams{ContributorLimit: 5}},
			},
			wantErr: true,
		},
		{
			name:    "unknown type",
			job:     model.Job{Type: "mystery"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.job.Validate()
			if tt.wantErr {
				gt.Error(t, err)
				gt.B(t, types.IsValidation(err)).True()
			} else {
				gt.NoError(t, err)
			}
		})
	}
}
