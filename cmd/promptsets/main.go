package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"datasetgen/internal/infra"
	"datasetgen/internal/promptset"
)

func main() {
	_ = godotenv.Load()

	var dataDir, characters string
	flag.StringVar(&dataDir, "data", envOr("PROMPT_DATA_DIR", "data"), "prompt data root")
	flag.StringVar(&characters, "characters", "", "comma separated character names (required)")
	flag.Parse()

	names := splitList(characters)
	if len(names) == 0 {
		exitWithError(errors.New("-characters is required"))
	}

	logger := infra.NewLogger("cli").With().Str("cmd", "promptsets").Logger()
	failed := 0
	for _, name := range names {
		written, err := promptset.WriteVariants(dataDir, name)
		if err != nil {
			failed++
			logger.Error().Err(err).Str("character", name).Msg("skipping character")
			continue
		}
		logger.Info().Str("character", name).Int("files", len(written)).Msg("prompt sets written")
	}
	if failed == len(names) {
		os.Exit(1)
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
