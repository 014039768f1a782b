package domain

import "errors"

var (
	// ErrConfiguration marks caller input that cannot describe a job; no network call is made.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks a missing prompt set, input artifact or ledger row.
	ErrNotFound = errors.New("not found")
	// ErrSubmission marks an engine that rejected the job or could not be reached.
	ErrSubmission = errors.New("submission error")
	// ErrTracking marks a job whose completion could not be confirmed.
	ErrTracking = errors.New("tracking error")
	// ErrSideEffect marks a failed auxiliary write after completion. It is logged, never returned to callers.
	ErrSideEffect = errors.New("side effect warning")
)
