package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/prospector/pkg/domain/model"
	"github.com/m-mizutani/prospector/pkg/domain/types"
	"github.com/m-mizutani/prospector/pkg/infra/memory"
	"github.com/m-mizutani/prospector/pkg/usecase"
)

type wakerMock struct {
	called int
}

func (w *wakerMock) Wake() { w.called++ }

func TestEnqueue(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	repo := setupRepository(t, store)
	waker := &wakerMock{}
	jobs := usecase.NewJobs(store, usecase.WithWaker(waker))

	job, err := jobs.Enqueue(ctx, &model.Job{
		Type:         model.JobTypeRepositorySourcing,
		ProjectID:    repo.ProjectID,
		RepositoryID: repo.ID,
	})
	gt.NoError(t, err)
	gt.Value(t, job.Status).Equal(model.JobStatusPending)
	gt.B(t, job.ID != "").True()
	gt.Number(t, waker.called).Equal(1)

	stored := gt.R1(store.GetJob(ctx, job.ID)).NoError(t)
	gt.Value(t, stored.Type).Equal(model.JobTypeRepositorySourcing)
}

func TestEnqueueValidation(t *testing.T) {
	ctx := context.Background()
	jobs := usecase.NewJobs(memory.New())

	cases := map[string]*model.Job{
		"missing repository": {Type: model.JobTypeRepositorySourcing},
		"unknown type":       {Type: "mystery"},
		"missing contributor": {Type: model.JobTypeSocialEnrichment},
		"mismatched params": {
			Type:         model.JobTypeRepositorySourcing,
			RepositoryID: types.NewRepositoryID(),
			Params:       model.JobParams{Stargazer: &model.StargazerParams{}},
		},
	}

	for name, job := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := jobs.Enqueue(ctx, job)
			gt.Error(t, err)
		})
	}
}

func TestEnqueueUnknownRepository(t *testing.T) {
	ctx := context.Background()
	jobs := usecase.NewJobs(memory.New())

	_, err := jobs.Enqueue(ctx, &model.Job{
		Type:         model.JobTypeRepositorySourcing,
		RepositoryID: types.NewRepositoryID(),
	})
	gt.Error(t, err)
	gt.B(t, types.IsNotFound(err)).True()
}

func TestEnqueueDuplicateSourcing(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	repo := setupRepository(t, store)
	jobs := usecase.NewJobs(store)

	_, err := jobs.Enqueue(ctx, &model.Job{
		Type:         model.JobTypeRepositorySourcing,
		ProjectID:    repo.ProjectID,
		RepositoryID: repo.ID,
	})
	gt.NoError(t, err)

	_, err = jobs.Enqueue(ctx, &model.Job{
		Type:         model.JobTypeRepositorySourcing,
		ProjectID:    repo.ProjectID,
		RepositoryID: repo.ID,
	})
	gt.Error(t, err)
	gt.B(t, types.IsConflict(err)).True()
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	repo := setupRepository(t, store)
	jobs := usecase.NewJobs(store)

	job, err := jobs.Enqueue(ctx, &model.Job{
		Type:         model.JobTypeRepositorySourcing,
		ProjectID:    repo.ProjectID,
		RepositoryID: repo.ID,
	})
	gt.NoError(t, err)

	gt.NoError(t, jobs.Cancel(ctx, job.ID))

	cancelled, steps, err := jobs.Get(ctx, job.ID)
	gt.NoError(t, err)
	gt.Value(t, cancelled.Status).Equal(model.JobStatusCancelled)
	gt.NotNil(t, cancelled.CompletedAt)
	gt.Number(t, len(steps)).Equal(0)

	// Cancelling a finished job is a conflict
	err = jobs.Cancel(ctx, job.ID)
	gt.Error(t, err)
	gt.B(t, types.IsConflict(err)).True()
}

func TestCancelUnknownJob(t *testing.T) {
	jobs := usecase.NewJobs(memory.New())
	err := jobs.Cancel(context.Background(), types.NewJobID())
	gt.Error(t, err)
	gt.B(t, types.IsNotFound(err)).True()
}

func TestSummaryAndList(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	repo := setupRepository(t, store)
	jobs := usecase.NewJobs(store)

	first, err := jobs.Enqueue(ctx, &model.Job{
		Type:         model.JobTypeRepositorySourcing,
		ProjectID:    repo.ProjectID,
		RepositoryID: repo.ID,
	})
	gt.NoError(t, err)
	gt.NoError(t, jobs.Cancel(ctx, first.ID))

	second, err := jobs.Enqueue(ctx, &model.Job{
		Type:         model.JobTypeStargazerAnalysis,
		ProjectID:    repo.ProjectID,
		RepositoryID: repo.ID,
	})
	gt.NoError(t, err)

	summary := gt.R1(jobs.Summary(ctx)).NoError(t)
	gt.Number(t, summary.Pending).Equal(1)
	gt.Number(t, summary.Cancelled).Equal(1)

	pending := gt.R1(jobs.List(ctx, model.JobStatusPending, 0)).NoError(t)
	gt.Number(t, len(pending)).Equal(1)
	gt.Value(t, pending[0].ID).Equal(second.ID)

	all := gt.R1(jobs.List(ctx, "", 0)).NoError(t)
	gt.Number(t, len(all)).Equal(2)
}

func TestRegisterRepository(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	waker := &wakerMock{}
	jobs := usecase.NewJobs(store, usecase.WithWaker(waker))

	repo, err := jobs.RegisterRepository(ctx, &model.Repository{
		Owner: "acme", Name: "gadgets",
	})
	gt.NoError(t, err)
	gt.Value(t, repo.FullName).Equal("acme/gadgets")
	gt.Value(t, repo.SourcingInterval).Equal(model.IntervalDaily)
	gt.B(t, repo.ID != "").True()
	gt.Number(t, waker.called).Equal(1)

	// New repositories are due immediately
	due := gt.R1(jobs.ListDueRepositories(ctx)).NoError(t)
	gt.Number(t, len(due)).Equal(1)

	// Duplicate registration is a conflict
	_, err = jobs.RegisterRepository(ctx, &model.Repository{Owner: "acme", Name: "gadgets"})
	gt.Error(t, err)
	gt.B(t, types.IsConflict(err)).True()
}

func TestRegisterRepositoryValidation(t *testing.T) {
	ctx := context.Background()
	jobs := usecase.NewJobs(memory.New())

	cases := map[string]*model.Repository{
		"missing owner":    {Name: "gadgets"},
		"malformed name":   {Owner: "acme", Name: "bad repo"},
		"invalid interval": {Owner: "acme", Name: "gadgets", SourcingInterval: "hourly"},
	}
	for name, repo := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := jobs.RegisterRepository(ctx, repo)
			gt.Error(t, err)
			gt.B(t, types.IsValidation(err)).True()
		})
	}
}

func TestListDueRepositories(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	repo := setupRepository(t, store)
	past := time.Now().Add(-time.Minute)
	repo.NextSourcingAt = &past
	gt.NoError(t, store.UpdateRepository(ctx, repo))

	jobs := usecase.NewJobs(store)
	due := gt.R1(jobs.ListDueRepositories(ctx)).NoError(t)
	gt.Number(t, len(due)).Equal(1)
	gt.Value(t, due[0].ID).Equal(repo.ID)
}
