package engine

import (
	"encoding/json"

	"datasetgen/internal/workflow"
)

// Event types emitted on the status channel.
const (
	EventProgressState = "progress_state"
	EventExecuted      = "executed"

	nodeStateFinished = "finished"
)

// Strategy names the rule that decided completion.
type Strategy string

const (
	StrategyNodeExhaustion Strategy = "node_exhaustion"
	StrategyTerminalSignal Strategy = "terminal_signal"
)

// StatusEvent is one decoded message from the event channel.
type StatusEvent struct {
	Type string    `json:"type"`
	Data eventData `json:"data"`
}

type eventData struct {
	PromptID string               `json:"prompt_id"`
	Nodes    map[string]nodeState `json:"nodes,omitempty"`
}

type nodeState struct {
	State string `json:"state"`
}

// decodeEvent parses a text frame. Frames that are not status objects report false.
func decodeEvent(raw []byte) (StatusEvent, bool) {
	var ev StatusEvent
	if err := json.Unmarshal(raw, &ev); err != nil || ev.Type == "" {
		return StatusEvent{}, false
	}
	return ev, true
}

// completion evaluates both completion rules against one ordered event sequence.
// The first event that satisfies either rule decides; later events are ignored.
type completion struct {
	promptID string
	nodes    workflow.NodeSet
	finished map[string]struct{}
	events   int
	decided  Strategy
}

func newCompletion(promptID string, nodes workflow.NodeSet) *completion {
	return &completion{
		promptID: promptID,
		nodes:    nodes,
		finished: make(map[string]struct{}, len(nodes)),
	}
}

// observe feeds one event and reports whether the job is now complete.
func (c *completion) observe(ev StatusEvent) bool {
	if c.decided != "" {
		return true
	}
	if ev.Data.PromptID != c.promptID {
		return false
	}
	c.events++
	switch ev.Type {
	case EventExecuted:
		c.decided = StrategyTerminalSignal
	case EventProgressState:
		for id, st := range ev.Data.Nodes {
			if st.State == nodeStateFinished {
				c.finished[id] = struct{}{}
			}
		}
		if c.exhausted() {
			c.decided = StrategyNodeExhaustion
		}
	}
	return c.decided != ""
}

func (c *completion) exhausted() bool {
	for id := range c.nodes {
		if _, ok := c.finished[id]; !ok {
			return false
		}
	}
	return true
}

func (c *completion) finishedIDs() []string {
	return workflow.NodeSet(c.finished).IDs()
}
