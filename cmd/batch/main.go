package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"datasetgen/internal/domain"
	"datasetgen/internal/infra"
)

type options struct {
	url       string
	req       domain.GenerateRequest
	start     int
	count     int
	timeout   time.Duration
	keepGoing bool
}

type successBody struct {
	Status string `json:"status"`
	Prompt string `json:"prompt"`
	Image  string `json:"image"`
}

func main() {
	var opts options
	var mode string
	flag.StringVar(&opts.url, "url", "http://localhost:8000/generateDataset", "generateDataset endpoint")
	flag.StringVar(&mode, "mode", string(domain.ModeShotType), "request mode (shot_type, expression)")
	flag.StringVar(&opts.req.TriggerWord, "trigger", "", "trigger word (required)")
	flag.StringVar(&opts.req.CharacterName, "character", "", "character name used to pick the prompt set")
	flag.StringVar(&opts.req.Expression, "expression", "", "expression, expression mode only")
	flag.StringVar(&opts.req.Angle, "angle", "", "camera angle, expression mode only")
	flag.IntVar(&opts.start, "start", 1, "first index")
	flag.IntVar(&opts.count, "n", 50, "number of requests")
	flag.DurationVar(&opts.timeout, "timeout", 300*time.Second, "per request timeout")
	flag.BoolVar(&opts.keepGoing, "continue", false, "keep going after a failed request")
	flag.Parse()

	opts.req.Mode = domain.Mode(strings.TrimSpace(mode))
	opts.req.TriggerWord = strings.TrimSpace(opts.req.TriggerWord)
	if opts.req.TriggerWord == "" {
		exitWithError(errors.New("-trigger is required"))
	}
	if opts.count <= 0 {
		exitWithError(errors.New("-n must be positive"))
	}

	logger := infra.NewLogger("cli").With().Str("cmd", "batch").Logger()
	client := &http.Client{Timeout: opts.timeout}

	failed := run(context.Background(), client, opts, logger)
	if failed > 0 {
		logger.Error().Int("failed", failed).Msg("batch finished with failures")
		os.Exit(1)
	}
	logger.Info().Int("requests", opts.count).Msg("batch finished")
}

// run posts requests in order and returns how many failed. Unless keepGoing
// is set it stops at the first request whose completion was not confirmed.
func run(ctx context.Context, client *http.Client, opts options, logger zerolog.Logger) int {
	failed := 0
	for i := 0; i < opts.count; i++ {
		req := opts.req
		req.Index = opts.start + i
		log := logger.With().Int("index", req.Index).Int("n", i+1).Int("of", opts.count).Logger()

		log.Info().Msg("sending request")
		body, err := post(ctx, client, opts.url, req)
		if err != nil {
			failed++
			log.Error().Err(err).Msg("request failed")
			if !opts.keepGoing {
				return failed
			}
			continue
		}
		log.Info().Str("image", body.Image).Str("prompt", body.Prompt).Msg("request confirmed")
	}
	return failed
}

func post(ctx context.Context, client *http.Client, url string, req domain.GenerateRequest) (successBody, error) {
	var out successBody
	payload, err := json.Marshal(req)
	if err != nil {
		return out, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return out, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return out, err
	}
	if resp.StatusCode != http.StatusOK {
		return out, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode response: %w", err)
	}
	if out.Status != "ok" {
		return out, fmt.Errorf("unexpected status %q", out.Status)
	}
	return out, nil
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
