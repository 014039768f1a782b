package engine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"datasetgen/internal/domain"
	"datasetgen/internal/workflow"
)

func sampleDescription() workflow.Description {
	return workflow.Description{"136": map[string]any{"inputs": map[string]any{"filename_prefix": "fh_ryder"}}}
}

func TestClientSubmit(t *testing.T) {
	var captured submitRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/prompt" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"prompt_id": "p-123", "number": 4, "node_errors": map[string]any{}})
	}))
	defer ts.Close()

	client := NewClient(Options{BaseURL: ts.URL + "/"})
	sub, err := client.Submit(context.Background(), sampleDescription())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sub.PromptID != "p-123" || sub.Number != 4 {
		t.Fatalf("unexpected submission: %+v", sub)
	}
	if sub.SessionID == "" || captured.ClientID != sub.SessionID {
		t.Fatalf("session id mismatch: sent %q, returned %q", captured.ClientID, sub.SessionID)
	}
	if _, ok := captured.Prompt["136"]; !ok {
		t.Fatalf("description not forwarded: %+v", captured.Prompt)
	}
}

func TestClientSubmitFreshSessionPerCall(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"prompt_id":"p"}`))
	}))
	defer ts.Close()

	client := NewClient(Options{BaseURL: ts.URL})
	a, err := client.Submit(context.Background(), sampleDescription())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	b, err := client.Submit(context.Background(), sampleDescription())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if a.SessionID == b.SessionID {
		t.Fatalf("session id reused: %s", a.SessionID)
	}
}

func TestClientSubmitRejected(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"prompt_outputs_failed_validation"}}`))
	}))
	defer ts.Close()

	client := NewClient(Options{BaseURL: ts.URL})
	_, err := client.Submit(context.Background(), sampleDescription())
	if !errors.Is(err, domain.ErrSubmission) {
		t.Fatalf("expected submission error, got %v", err)
	}
	var subErr *SubmissionError
	if !errors.As(err, &subErr) {
		t.Fatalf("expected *SubmissionError, got %T", err)
	}
	if subErr.StatusCode != http.StatusBadRequest || !strings.Contains(subErr.Body, "prompt_outputs_failed_validation") {
		t.Fatalf("upstream detail lost: %+v", subErr)
	}
	if calls != 1 {
		t.Fatalf("submission retried: %d calls", calls)
	}
}

func TestClientSubmitMissingPromptID(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"number":1}`))
	}))
	defer ts.Close()

	client := NewClient(Options{BaseURL: ts.URL})
	if _, err := client.Submit(context.Background(), sampleDescription()); !errors.Is(err, domain.ErrSubmission) {
		t.Fatalf("expected submission error, got %v", err)
	}
}

func TestClientSubmitUnreachable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	client := NewClient(Options{BaseURL: url})
	if _, err := client.Submit(context.Background(), sampleDescription()); !errors.Is(err, domain.ErrSubmission) {
		t.Fatalf("expected submission error, got %v", err)
	}
}
