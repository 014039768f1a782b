package repo

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"datasetgen/internal/domain"
)

type execCall struct {
	query string
	args  []any
}

type stubExecutor struct {
	execs    []execCall
	execTag  string
	row      []any
	rows     [][]any
	queryErr error
}

func assign(dest []any, vals []any) error {
	if len(dest) != len(vals) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(vals))
	}
	for i := range dest {
		reflect.ValueOf(dest[i]).Elem().Set(reflect.ValueOf(vals[i]))
	}
	return nil
}

type stubRow struct{ vals []any }

func (r stubRow) Scan(dest ...any) error {
	if r.vals == nil {
		return pgx.ErrNoRows
	}
	return assign(dest, r.vals)
}

type stubRows struct {
	data [][]any
	pos  int
}

func (r *stubRows) Close()                                       {}
func (r *stubRows) Err() error                                   { return nil }
func (r *stubRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *stubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *stubRows) Values() ([]any, error)                       { return nil, errors.New("not supported") }
func (r *stubRows) RawValues() [][]byte                          { return nil }
func (r *stubRows) Conn() *pgx.Conn                              { return nil }

func (r *stubRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *stubRows) Scan(dest ...any) error {
	return assign(dest, r.data[r.pos-1])
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.execs = append(s.execs, execCall{query: query, args: args})
	return pgconn.NewCommandTag(s.execTag), nil
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	s.execs = append(s.execs, execCall{query: query, args: args})
	return stubRow{vals: s.row}
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	s.execs = append(s.execs, execCall{query: query, args: args})
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return &stubRows{data: s.rows}, nil
}

func TestRunRepositoryCreate(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	db := &stubExecutor{row: []any{now, now}}
	repo := NewRunRepository(db)

	run := &domain.Run{ID: "run-1", Mode: domain.ModeShotType, TriggerWord: "fh_ryder", Index: 5, Status: domain.RunStatusRunning, ArtifactName: "fh_ryder_00005_.png"}
	if err := repo.Create(context.Background(), run); err != nil {
		t.Fatalf("create: %v", err)
	}
	if !run.CreatedAt.Equal(now) {
		t.Fatalf("created_at not scanned: %v", run.CreatedAt)
	}
	call := db.execs[0]
	if !strings.Contains(call.query, "insert into dataset_runs") {
		t.Fatalf("unexpected query: %s", call.query)
	}
	if call.args[1] != "shot_type" || call.args[4] != 5 || call.args[5] != "running" {
		t.Fatalf("unexpected args: %v", call.args)
	}
}

func TestRunRepositoryFinish(t *testing.T) {
	db := &stubExecutor{execTag: "UPDATE 1"}
	repo := NewRunRepository(db)
	run := &domain.Run{ID: "run-1", Status: domain.RunStatusSucceeded, PromptID: "p", CompletionStrategy: "terminal_signal"}
	if err := repo.Finish(context.Background(), run); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if got := db.execs[0].args; len(got) != 5 || got[1] != "succeeded" || got[2] != "p" || got[3] != "terminal_signal" {
		t.Fatalf("unexpected args: %v", got)
	}
}

func TestRunRepositoryFinishUnknownRun(t *testing.T) {
	repo := NewRunRepository(&stubExecutor{execTag: "UPDATE 0"})
	err := repo.Finish(context.Background(), &domain.Run{ID: "missing", Status: domain.RunStatusFailed})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRunRepositoryListRecent(t *testing.T) {
	now := time.Now().UTC()
	db := &stubExecutor{rows: [][]any{
		{"run-2", "p2", "expression", "fh_ryder", "ryder", 3, "failed", "bustShot_fh_ryder_smile_front_00003_.png", "", "tracking error", now, now},
		{"run-1", "p1", "shot_type", "fh_ryder", "ryder", 5, "succeeded", "fh_ryder_00005_.png", "node_exhaustion", "", now, now},
	}}
	repo := NewRunRepository(db)

	runs, err := repo.ListRecent(context.Background(), 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 || runs[0].Mode != domain.ModeExpression || runs[1].Status != domain.RunStatusSucceeded {
		t.Fatalf("unexpected runs: %+v", runs)
	}
	if runs[0].PromptID != "p2" || runs[1].CompletionStrategy != "node_exhaustion" {
		t.Fatalf("unexpected runs: %+v", runs)
	}
	if got := db.execs[0].args[0]; got != maxListLimit {
		t.Fatalf("limit = %v, want %d", got, maxListLimit)
	}
}

func TestRunRepositoryListRecentQueryError(t *testing.T) {
	repo := NewRunRepository(&stubExecutor{queryErr: errors.New("boom")})
	if _, err := repo.ListRecent(context.Background(), 10); err == nil {
		t.Fatalf("expected error")
	}
}
