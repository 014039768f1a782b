package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"datasetgen/internal/domain"
	"datasetgen/internal/engine"
	"datasetgen/internal/infra"
	"datasetgen/internal/workflow"
)

// fakeEngine accepts /prompt submissions and reports every node finished on
// the submitting client's websocket, one node per progress_state event.
type fakeEngine struct {
	mu       sync.Mutex
	sessions map[string]submitted
	seq      int
}

type submitted struct {
	promptID string
	nodes    []string
}

func (e *fakeEngine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/prompt":
		var body struct {
			Prompt   workflow.Description `json:"prompt"`
			ClientID string               `json:"client_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		e.mu.Lock()
		e.seq++
		sub := submitted{promptID: fmt.Sprintf("prompt-%d", e.seq), nodes: body.Prompt.NodeSet().IDs()}
		e.sessions[body.ClientID] = sub
		e.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{"prompt_id": sub.promptID, "number": e.seq})
	case "/ws":
		e.mu.Lock()
		sub, ok := e.sessions[r.URL.Query().Get("clientId")]
		e.mu.Unlock()
		if !ok {
			http.Error(w, "unknown client", http.StatusBadRequest)
			return
		}
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(map[string]any{"type": "progress_state", "data": map[string]any{"prompt_id": "someone-else", "nodes": map[string]any{}}})
		for _, id := range sub.nodes {
			_ = conn.WriteJSON(map[string]any{
				"type": "progress_state",
				"data": map[string]any{"prompt_id": sub.promptID, "nodes": map[string]any{id: map[string]string{"state": "finished"}}},
			})
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	default:
		http.NotFound(w, r)
	}
}

func TestRunJobAgainstEngine(t *testing.T) {
	srv := httptest.NewServer(&fakeEngine{sessions: map[string]submitted{}})
	defer srv.Close()

	f := newFixture(t)
	f.runner.submitter = engine.NewClient(engine.Options{BaseURL: srv.URL})
	f.runner.tracker = engine.NewTracker(engine.TrackerOptions{WSURL: infra.WSURLFromBase(srv.URL)})
	f.runner.newID = func() string { return "run" }
	f.runner.sleep = func(context.Context, time.Duration) error { return nil }

	var wg sync.WaitGroup
	results := make([]Result, 4)
	errs := make([]error, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			results[i], errs[i] = f.runner.RunJob(ctx, domain.GenerateRequest{TriggerWord: "fh_ryder", CharacterName: "ryder", Index: i + 1})
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i, err := range errs {
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		res := results[i]
		if res.Strategy != engine.StrategyNodeExhaustion {
			t.Fatalf("request %d: strategy = %q", i, res.Strategy)
		}
		if want := fmt.Sprintf("fh_ryder_%05d_.png", i+1); res.OutputArtifactName != want {
			t.Fatalf("request %d: artifact = %q, want %q", i, res.OutputArtifactName, want)
		}
		if seen[res.PromptID] {
			t.Fatalf("prompt id %s reported twice", res.PromptID)
		}
		seen[res.PromptID] = true
	}
}
