// Package engine talks to a ComfyUI-compatible generation engine: it submits
// job descriptions and tracks their completion over the status websocket.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"datasetgen/internal/infra"
	"datasetgen/internal/workflow"
)

const maxErrorBody = 4 << 10

// Options configures the submission client.
type Options struct {
	BaseURL        string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	Logger         *infra.Logger
}

// Client submits job descriptions to the engine queue.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
	newSession func() string
}

// Submission identifies an accepted job and the session its events are delivered to.
type Submission struct {
	PromptID  string
	SessionID string
	Number    int
}

type submitRequest struct {
	Prompt   workflow.Description `json:"prompt"`
	ClientID string               `json:"client_id"`
}

type submitResponse struct {
	PromptID   string          `json:"prompt_id"`
	Number     int             `json:"number"`
	NodeErrors json.RawMessage `json:"node_errors,omitempty"`
}

// NewClient constructs a submission client with sane defaults.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "http://localhost:9000"
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     loggerOrDiscard(opts.Logger),
		newSession: uuid.NewString,
	}
}

// Submit queues a job description under a freshly generated session identifier.
// Failures are reported as *SubmissionError and are never retried here.
func (c *Client) Submit(ctx context.Context, desc workflow.Description) (Submission, error) {
	if len(desc) == 0 {
		return Submission{}, &SubmissionError{Err: errors.New("empty job description")}
	}
	sessionID := c.newSession()
	body, err := json.Marshal(submitRequest{Prompt: desc, ClientID: sessionID})
	if err != nil {
		return Submission{}, &SubmissionError{Err: fmt.Errorf("encode request: %w", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/prompt", bytes.NewReader(body))
	if err != nil {
		return Submission{}, &SubmissionError{Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Submission{}, &SubmissionError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Submission{}, &SubmissionError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(raw) > maxErrorBody {
			raw = raw[:maxErrorBody]
		}
		return Submission{}, &SubmissionError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var decoded submitResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Submission{}, &SubmissionError{Err: fmt.Errorf("decode response: %w", err)}
	}
	if strings.TrimSpace(decoded.PromptID) == "" {
		return Submission{}, &SubmissionError{Err: errors.New("response missing prompt_id")}
	}
	c.logger.Debug().
		Str("prompt_id", decoded.PromptID).
		Str("session_id", sessionID).
		Int("queue_number", decoded.Number).
		Msg("engine: job accepted")
	return Submission{PromptID: decoded.PromptID, SessionID: sessionID, Number: decoded.Number}, nil
}

func loggerOrDiscard(l *infra.Logger) *infra.Logger {
	if l != nil {
		return l
	}
	discard := infra.Logger(zerolog.New(io.Discard))
	return &discard
}
