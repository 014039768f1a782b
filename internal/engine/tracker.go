package engine

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"datasetgen/internal/infra"
	"datasetgen/internal/workflow"
)

// State is the tracker's position in its lifecycle.
type State string

const (
	StateConnecting State = "connecting"
	StateListening  State = "listening"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// TrackerOptions configures the completion tracker.
type TrackerOptions struct {
	// WSURL is the status endpoint, e.g. ws://localhost:9000/ws.
	WSURL  string
	Dialer *websocket.Dialer
	Logger *infra.Logger
}

// Tracker waits for a submitted job to complete. It holds no per-job state,
// so one Tracker serves any number of concurrent Track calls.
type Tracker struct {
	wsURL  string
	dialer *websocket.Dialer
	logger *infra.Logger
}

// Completion describes how a job was confirmed complete.
type Completion struct {
	PromptID      string
	Strategy      Strategy
	EventsSeen    int
	FinishedNodes []string
}

// NewTracker constructs a tracker for the given status endpoint.
func NewTracker(opts TrackerOptions) *Tracker {
	dialer := opts.Dialer
	if dialer == nil {
		d := *websocket.DefaultDialer
		dialer = &d
	}
	wsURL := strings.TrimSpace(opts.WSURL)
	if wsURL == "" {
		wsURL = "ws://localhost:9000/ws"
	}
	return &Tracker{wsURL: wsURL, dialer: dialer, logger: loggerOrDiscard(opts.Logger)}
}

func (t *Tracker) sessionURL(sessionID string) (string, error) {
	u, err := url.Parse(t.wsURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("clientId", sessionID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Track blocks until the job identified by promptID completes, the channel
// closes, or timeout (when positive) or ctx expires. Every failure is a
// *TrackingError; the connection is closed on every return path.
func (t *Tracker) Track(ctx context.Context, sessionID, promptID string, nodes workflow.NodeSet, timeout time.Duration) (Completion, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	log := t.logger.With().Str("session_id", sessionID).Str("prompt_id", promptID).Logger()
	fail := func(reason string, err error) (Completion, error) {
		log.Warn().Err(err).Str("state", string(StateFailed)).Msg("engine: tracking failed: " + reason)
		return Completion{}, &TrackingError{PromptID: promptID, Reason: reason, Err: err}
	}

	target, err := t.sessionURL(sessionID)
	if err != nil {
		return fail("invalid status url", err)
	}
	log.Debug().Str("state", string(StateConnecting)).Msg("engine: opening status channel")
	conn, resp, err := t.dialer.DialContext(ctx, target, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fail(contextReason(ctxErr), ctxErr)
		}
		return fail("connect", err)
	}
	defer conn.Close()
	// Unblocks ReadMessage when the deadline fires.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	state := newCompletion(promptID, nodes)
	log.Debug().Str("state", string(StateListening)).Int("nodes", len(nodes)).Msg("engine: waiting for completion")
	for {
		msgType, raw, err := conn.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fail(contextReason(ctxErr), ctxErr)
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return fail("channel closed", err)
			}
			return fail("read", err)
		}
		if msgType != websocket.TextMessage {
			continue
		}
		ev, ok := decodeEvent(raw)
		if !ok {
			continue
		}
		if state.observe(ev) {
			done := Completion{
				PromptID:      promptID,
				Strategy:      state.decided,
				EventsSeen:    state.events,
				FinishedNodes: state.finishedIDs(),
			}
			log.Info().
				Str("state", string(StateCompleted)).
				Str("strategy", string(done.Strategy)).
				Int("events", done.EventsSeen).
				Msg("engine: job completed")
			return done, nil
		}
	}
}

func contextReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "deadline exceeded"
	}
	return "canceled"
}
