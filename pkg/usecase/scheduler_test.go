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

func syncDispatcher(ctx context.Context, name string, fn func(ctx context.Context) error) {
	_ = fn(ctx)
}

func setupDueRepository(t *testing.T, store *memory.Store) *model.Repository {
	t.Helper()
	repo := setupRepository(t, store)
	past := time.Now().Add(-time.Hour)
	repo.NextSourcingAt = &past
	gt.NoError(t, store.UpdateRepository(context.Background(), repo))
	return repo
}

func TestTickSourcesDueRepository(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	repo := setupDueRepository(t, store)

	x := usecase.NewExecutor(store, &githubMock{}, nil, newClassifier(t))
	admitter := usecase.NewAdmitter(store, 4)
	sched := usecase.NewScheduler(store, admitter, x, usecase.WithDispatcher(syncDispatcher))

	sched.Tick(ctx)

	jobs := gt.R1(store.ListJobs(ctx, "", 10)).NoError(t)
	gt.Number(t, len(jobs)).Equal(1)
	gt.Value(t, jobs[0].Type).Equal(model.JobTypeRepositorySourcing)
	gt.Value(t, jobs[0].Status).Equal(model.JobStatusCompleted)

	updated := gt.R1(store.GetRepository(ctx, repo.ID)).NoError(t)
	gt.NotNil(t, updated.NextSourcingAt)
	gt.B(t, updated.NextSourcingAt.After(time.Now())).True()

	// The repository is no longer due, so another tick enqueues nothing
	sched.Tick(ctx)
	jobs = gt.R1(store.ListJobs(ctx, "", 10)).NoError(t)
	gt.Number(t, len(jobs)).Equal(1)
}

func TestTickSkipsRepositoryWithActiveSourcing(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	repo := setupDueRepository(t, store)

	running := &model.Job{
		ID: types.NewJobID(), Type: model.JobTypeRepositorySourcing,
		Status: model.JobStatusPending, ProjectID: repo.ProjectID,
		RepositoryID: repo.ID, CreatedAt: time.Now(),
	}
	gt.NoError(t, store.CreateJob(ctx, running))
	_, err := store.MarkJobRunning(ctx, running.ID, time.Now())
	gt.NoError(t, err)

	x := usecase.NewExecutor(store, &githubMock{}, nil, newClassifier(t))
	admitter := usecase.NewAdmitter(store, 4)
	collect := func(ctx context.Context, name string, fn func(ctx context.Context) error) {}
	sched := usecase.NewScheduler(store, admitter, x, usecase.WithDispatcher(collect))

	sched.Tick(ctx)

	jobs := gt.R1(store.ListJobs(ctx, "", 10)).NoError(t)
	gt.Number(t, len(jobs)).Equal(1)
}

func TestConcurrencyBudget(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	repo := setupRepository(t, store)

	var dispatched []func(ctx context.Context) error
	collect := func(ctx context.Context, name string, fn func(ctx context.Context) error) {
		dispatched = append(dispatched, fn)
	}

	contrib := gt.R1(store.UpsertContributor(ctx, &model.Contributor{GitHubID: 1, Username: "alice"})).NoError(t)
	for i := 0; i < 3; i++ {
		job := &model.Job{
			ID: types.NewJobID(), Type: model.JobTypeSocialEnrichment,
			Status: model.JobStatusPending, ProjectID: repo.ProjectID,
			Params:    model.JobParams{Enrichment: &model.EnrichmentParams{ContributorID: contrib.ID}},
			CreatedAt: time.Now(),
		}
		gt.NoError(t, store.CreateJob(ctx, job))
	}

	x := usecase.NewExecutor(store, &githubMock{}, nil, newClassifier(t))
	admitter := usecase.NewAdmitter(store, 2)
	sched := usecase.NewScheduler(store, admitter, x, usecase.WithDispatcher(collect))

	sched.Tick(ctx)
	gt.Number(t, len(dispatched)).Equal(2)

	summary := gt.R1(store.CountJobsByStatus(ctx)).NoError(t)
	gt.Number(t, summary.Running).Equal(2)
	gt.Number(t, summary.Pending).Equal(1)

	// Budget is still full; the third job waits
	sched.Tick(ctx)
	gt.Number(t, len(dispatched)).Equal(2)

	// Finishing one job frees a slot for the next tick
	gt.NoError(t, dispatched[0](ctx))
	sched.Tick(ctx)
	gt.Number(t, len(dispatched)).Equal(3)
}

func TestDuplicateSourcingNotAdmitted(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	repo := setupRepository(t, store)

	var dispatched []func(ctx context.Context) error
	collect := func(ctx context.Context, name string, fn func(ctx context.Context) error) {
		dispatched = append(dispatched, fn)
	}

	for i := 0; i < 2; i++ {
		job := &model.Job{
			ID: types.NewJobID(), Type: model.JobTypeRepositorySourcing,
			Status: model.JobStatusPending, ProjectID: repo.ProjectID,
			RepositoryID: repo.ID, CreatedAt: time.Now(),
		}
		gt.NoError(t, store.CreateJob(ctx, job))
	}

	x := usecase.NewExecutor(store, &githubMock{}, nil, newClassifier(t))
	admitter := usecase.NewAdmitter(store, 4)
	sched := usecase.NewScheduler(store, admitter, x, usecase.WithDispatcher(collect))

	sched.Tick(ctx)

	// Only one sourcing job per repository runs at a time
	gt.Number(t, len(dispatched)).Equal(1)
	summary := gt.R1(store.CountJobsByStatus(ctx)).NoError(t)
	gt.Number(t, summary.Running).Equal(1)
	gt.Number(t, summary.Pending).Equal(1)

	// Once the first finishes, the duplicate is admitted
	gt.NoError(t, dispatched[0](ctx))
	sched.Tick(ctx)
	gt.Number(t, len(dispatched)).Equal(2)
}

func TestRunRecoversOrphans(t *testing.T) {
	store := memory.New()
	repo := setupRepository(t, store)

	orphan := &model.Job{
		ID: types.NewJobID(), Type: model.JobTypeRepositorySourcing,
		Status: model.JobStatusPending, ProjectID: repo.ProjectID,
		RepositoryID: repo.ID, CreatedAt: time.Now(),
	}
	claimJob(t, store, orphan)

	x := usecase.NewExecutor(store, &githubMock{}, nil, newClassifier(t))
	admitter := usecase.NewAdmitter(store, 4)
	sched := usecase.NewScheduler(store, admitter, x,
		usecase.WithDispatcher(syncDispatcher),
		usecase.WithInterval(time.Hour),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	// The orphan is reset to pending on startup and re-admitted by the
	// initial tick
	deadline := time.After(2 * time.Second)
	for {
		job, err := store.GetJob(context.Background(), orphan.ID)
		gt.NoError(t, err)
		if job.Status == model.JobStatusCompleted {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("orphan not recovered, status=%s", job.Status)
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	gt.NoError(t, <-done)
}
