package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/prospector/pkg/domain/interfaces"
	"github.com/m-mizutani/prospector/pkg/domain/model"
	"github.com/m-mizutani/prospector/pkg/domain/types"
	"golang.org/x/sync/semaphore"
)

// Admitter enforces the global concurrency budget and per-repository sourcing
// mutual exclusion. The store's atomic pending→running transition is the
// final arbiter; the in-process bookkeeping just avoids wasted claims.
type Admitter struct {
	store interfaces.JobStore
	sem   *semaphore.Weighted

	mu           sync.Mutex
	runningRepos map[types.RepositoryID]struct{}

	now func() time.Time
}

// AdmitterOption configures the Admitter
type AdmitterOption func(*Admitter)

// WithAdmitterClock replaces the time source, for tests
func WithAdmitterClock(now func() time.Time) AdmitterOption {
	return func(a *Admitter) { a.now = now }
}

// NewAdmitter creates an admitter with the given concurrency budget
func NewAdmitter(store interfaces.JobStore, maxConcurrent int64, opts ...AdmitterOption) *Admitter {
	a := &Admitter{
		store:        store,
		sem:          semaphore.NewWeighted(maxConcurrent),
		runningRepos: make(map[types.RepositoryID]struct{}),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Admit tries to claim a pending job for execution. On success it returns a
// release function the caller must invoke when the job finishes. A full
// budget yields ErrBudgetExhausted; a duplicate sourcing claim yields
// ErrSourcingInProgress. In both cases the job stays pending.
func (a *Admitter) Admit(ctx context.Context, job *model.Job) (func(), error) {
	if !a.sem.TryAcquire(1) {
		return nil, types.ErrBudgetExhausted
	}

	sourcing := job.Type == model.JobTypeRepositorySourcing
	if sourcing {
		a.mu.Lock()
		if _, running := a.runningRepos[job.RepositoryID]; running {
			a.mu.Unlock()
			a.sem.Release(1)
			return nil, goerr.Wrap(types.ErrSourcingInProgress, "admission rejected",
				goerr.V("repository_id", job.RepositoryID))
		}
		a.runningRepos[job.RepositoryID] = struct{}{}
		a.mu.Unlock()
	}

	release := func() {
		if sourcing {
			a.mu.Lock()
			delete(a.runningRepos, job.RepositoryID)
			a.mu.Unlock()
		}
		a.sem.Release(1)
	}

	if _, err := a.store.MarkJobRunning(ctx, job.ID, a.now()); err != nil {
		release()
		return nil, err
	}
	return release, nil
}
