package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"datasetgen/internal/infra"
	"datasetgen/internal/storage"
)

func main() {
	_ = godotenv.Load()

	dir := strings.TrimSpace(os.Getenv("ENGINE_OUTPUT_DIR"))
	if dir == "" {
		dir = "output"
	}
	flag.StringVar(&dir, "dir", dir, "engine output directory")
	flag.Parse()

	logger := infra.NewLogger("cli").With().Str("cmd", "organize").Logger()

	store, err := storage.NewFileStore(dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := store.Organize(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("organize aborted")
		os.Exit(1)
	}
	for name, ferr := range report.Failed {
		logger.Warn().Err(ferr).Str("file", name).Msg("could not move")
	}
	for _, name := range report.Skipped {
		logger.Debug().Str("file", name).Msg("unrecognized name, left in place")
	}
	logger.Info().
		Str("dir", store.BasePath()).
		Int("moved", len(report.Moved)).
		Int("skipped", len(report.Skipped)).
		Int("failed", len(report.Failed)).
		Msg("organize finished")
	if len(report.Failed) > 0 {
		os.Exit(1)
	}
}
