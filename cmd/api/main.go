package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"datasetgen/internal/adapter/repo"
	"datasetgen/internal/domain"
	"datasetgen/internal/engine"
	"datasetgen/internal/http/handlers"
	httpapi "datasetgen/internal/http/httpapi"
	"datasetgen/internal/infra"
	"datasetgen/internal/pipeline"
	"datasetgen/internal/promptset"
	"datasetgen/internal/storage"
	"datasetgen/internal/workflow"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}

	var runs domain.RunRepository
	if dbpool != nil {
		defer dbpool.Close()
		runRepo := repo.NewRunRepository(infra.NewSQLRunner(dbpool, logger.With().Str("component", "sql").Logger()))
		schemaCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := runRepo.EnsureSchema(schemaCtx)
		cancel()
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to prepare run ledger")
		}
		runs = runRepo
	} else {
		logger.Info().Msg("DATABASE_URL not set, run ledger disabled")
	}

	tmpl, err := workflow.LoadTemplate(cfg.WorkflowTemplatePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load workflow template")
	}
	store, err := storage.NewFileStore(cfg.EngineOutputDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open engine output dir")
	}

	engineLog := logger.With().Str("component", "engine").Logger()
	runner, err := pipeline.NewRunner(pipeline.ConfigFromInfra(cfg), pipeline.Dependencies{
		Template: tmpl,
		Submitter: engine.NewClient(engine.Options{
			BaseURL:        cfg.EngineBaseURL,
			RequestTimeout: cfg.EngineSubmitTimeout,
			Logger:         &engineLog,
		}),
		Tracker: engine.NewTracker(engine.TrackerOptions{WSURL: cfg.EngineWSURL, Logger: &engineLog}),
		Prompts: promptset.NewLibrary(cfg.PromptDataDir, &logger),
		Store:   store,
		Runs:    runs,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build pipeline")
	}

	app := handlers.NewApp(runner, runs, &logger)
	router := httpapi.NewRouter(app, logger)
	server := infra.NewHTTPServer(cfg, router, logger)

	go func() {
		logger.Info().
			Str("addr", server.Addr()).
			Str("engine", cfg.EngineBaseURL).
			Msg("API listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	// in-flight jobs may hold the connection until their deadline
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
