package types

import "github.com/m-mizutani/goerr/v2"

// Error tags classify failures for the rate gate and the job executor.
// Transient errors are retried by the gate; rate-limited errors fail the
// current run and leave the re-enqueue decision to the collaborator;
// permanent errors are never retried.
var (
	ErrTagTransient   = goerr.NewTag("transient")
	ErrTagRateLimited = goerr.NewTag("rate_limited")
	ErrTagPermanent   = goerr.NewTag("permanent")
	ErrTagValidation  = goerr.NewTag("validation")
	ErrTagConflict    = goerr.NewTag("conflict")
	ErrTagNotFound    = goerr.NewTag("not_found")
)

var (
	// ErrJobCancelled is raised between stages when the job's cancellation
	// flag has been set. It maps to the cancelled terminal status, not failed.
	ErrJobCancelled = goerr.New("job cancelled")

	// ErrSourcingInProgress rejects a duplicate sourcing request for a
	// repository that already has an active sourcing job.
	ErrSourcingInProgress = goerr.New("repository sourcing already in progress", goerr.T(ErrTagConflict))

	// ErrBudgetExhausted means the admission budget is full; the job stays
	// pending and is retried on the next scheduler tick.
	ErrBudgetExhausted = goerr.New("concurrency budget exhausted")
)

// IsRetryable reports whether the gate should retry the call
func IsRetryable(err error) bool {
	return goerr.HasTag(err, ErrTagTransient)
}

// IsRateLimited reports whether the error came from an exhausted provider quota
func IsRateLimited(err error) bool {
	return goerr.HasTag(err, ErrTagRateLimited)
}

// IsConflict reports whether the error is a state conflict, such as claiming a
// job that is no longer pending
func IsConflict(err error) bool {
	return goerr.HasTag(err, ErrTagConflict)
}

// IsNotFound reports whether the error is a missing-record lookup
func IsNotFound(err error) bool {
	return goerr.HasTag(err, ErrTagNotFound)
}

// IsValidation reports whether the error came from rejected input
func IsValidation(err error) bool {
	return goerr.HasTag(err, ErrTagValidation)
}
