package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"datasetgen/internal/domain"
	"datasetgen/internal/infra"
	"datasetgen/internal/pipeline"
)

// JobRunner executes one dataset request to confirmed completion.
type JobRunner interface {
	RunJob(ctx context.Context, req domain.GenerateRequest) (pipeline.Result, error)
}

// App holds the dependencies shared by HTTP handlers. Runs may be nil when no
// ledger database is configured.
type App struct {
	Runner JobRunner
	Runs   domain.RunRepository
	Logger *infra.Logger
}

// NewApp constructs the handler container.
func NewApp(runner JobRunner, runs domain.RunRepository, logger *infra.Logger) *App {
	if logger == nil {
		discard := infra.Logger(zerolog.New(io.Discard))
		logger = &discard
	}
	return &App{Runner: runner, Runs: runs, Logger: logger}
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	var body errorBody
	body.Error.Code = code
	body.Error.Message = message
	a.json(w, status, body)
}
