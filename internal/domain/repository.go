package domain

import "context"

// RunRepository persists the lifecycle of orchestrated jobs.
type RunRepository interface {
	Create(ctx context.Context, run *Run) error
	Finish(ctx context.Context, run *Run) error
	ListRecent(ctx context.Context, limit int) ([]Run, error)
}
