package repo

import (
	"context"
	"fmt"

	"datasetgen/internal/domain"
	"datasetgen/internal/infra"
	"datasetgen/internal/sqlinline"
)

const maxListLimit = 500

// RunRepositoryPG implements domain.RunRepository on PostgreSQL.
type RunRepositoryPG struct {
	db infra.SQLExecutor
}

// NewRunRepository creates a run repository on top of a marker-aware executor.
func NewRunRepository(db infra.SQLExecutor) *RunRepositoryPG {
	return &RunRepositoryPG{db: db}
}

// EnsureSchema creates the runs table when missing.
func (r *RunRepositoryPG) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, sqlinline.QEnsureRunsTable); err != nil {
		return fmt.Errorf("repo: ensure runs table: %w", err)
	}
	return nil
}

// Create inserts a run in its initial state.
func (r *RunRepositoryPG) Create(ctx context.Context, run *domain.Run) error {
	row := r.db.QueryRow(ctx, sqlinline.QInsertRun,
		run.ID,
		string(run.Mode),
		run.TriggerWord,
		run.CharacterName,
		run.Index,
		string(run.Status),
		run.ArtifactName,
	)
	if err := row.Scan(&run.CreatedAt, &run.UpdatedAt); err != nil {
		return fmt.Errorf("repo: insert run: %w", err)
	}
	return nil
}

// Finish records the terminal state of a run.
func (r *RunRepositoryPG) Finish(ctx context.Context, run *domain.Run) error {
	tag, err := r.db.Exec(ctx, sqlinline.QFinishRun,
		run.ID,
		string(run.Status),
		run.PromptID,
		run.CompletionStrategy,
		run.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("repo: finish run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo: finish run %s: %w", run.ID, domain.ErrNotFound)
	}
	return nil
}

// ListRecent returns the newest runs first.
func (r *RunRepositoryPG) ListRecent(ctx context.Context, limit int) ([]domain.Run, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	rows, err := r.db.Query(ctx, sqlinline.QListRecentRuns, limit)
	if err != nil {
		return nil, fmt.Errorf("repo: list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		var run domain.Run
		var mode, status string
		if err := rows.Scan(
			&run.ID,
			&run.PromptID,
			&mode,
			&run.TriggerWord,
			&run.CharacterName,
			&run.Index,
			&status,
			&run.ArtifactName,
			&run.CompletionStrategy,
			&run.ErrorMessage,
			&run.CreatedAt,
			&run.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("repo: scan run: %w", err)
		}
		run.Mode = domain.Mode(mode)
		run.Status = domain.RunStatus(status)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo: iterate runs: %w", err)
	}
	return runs, nil
}

var _ domain.RunRepository = (*RunRepositoryPG)(nil)
