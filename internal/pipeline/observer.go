package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// StageID is the position of a stage in the pipeline.
type StageID int

const (
	StageParse StageID = iota
	StagePolicy
	StageResearch
	StageLegal
	StageSynthesis
)

// Stages lists every stage in order.
var Stages = []StageID{StageParse, StagePolicy, StageResearch, StageLegal, StageSynthesis}

var stageNames = map[StageID]string{
	StageParse:     "Parsing script",
	StagePolicy:    "Policy review",
	StageResearch:  "Case research",
	StageLegal:     "Legal review",
	StageSynthesis: "Synthesis",
}

var stageKeys = map[StageID]string{
	StageParse:     "parse",
	StagePolicy:    "policy",
	StageResearch:  "research",
	StageLegal:     "legal",
	StageSynthesis: "synthesis",
}

// Name is the human-readable stage name shown to clients.
func (s StageID) Name() string { return stageNames[s] }

// Key is the short machine name used in records and degraded lists.
func (s StageID) Key() string { return stageKeys[s] }

// Status is a stage's lifecycle state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

// Event is one stage transition.
type Event struct {
	ReviewID string    `json:"review_id"`
	Stage    StageID   `json:"stage"`
	Name     string    `json:"name"`
	Status   Status    `json:"status"`
	Payload  any       `json:"payload,omitempty"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}

// Observer receives stage events. Single-method design (like
// http.Handler) so adding event kinds never breaks existing observers.
// The orchestrator serialises calls; implementations need no locking
// unless shared across runs.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }

// MultiObserver fans out events to multiple observers.
type MultiObserver []Observer

func (m MultiObserver) OnEvent(e Event) {
	for _, obs := range m {
		if obs != nil {
			obs.OnEvent(e)
		}
	}
}

// LogObserver writes stage events as structured slog lines.
type LogObserver struct {
	Logger *slog.Logger
}

func (o *LogObserver) OnEvent(e Event) {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []slog.Attr{
		slog.String("review_id", e.ReviewID),
		slog.Int("stage", int(e.Stage)),
		slog.String("name", e.Name),
		slog.String("status", string(e.Status)),
	}
	if e.Error != "" {
		attrs = append(attrs, slog.String("error", e.Error))
		logger.LogAttrs(context.Background(), slog.LevelWarn, "stage", attrs...)
		return
	}
	level := slog.LevelInfo
	if e.Status == StatusPending {
		level = slog.LevelDebug
	}
	logger.LogAttrs(context.Background(), level, "stage", attrs...)
}

// Collector accumulates events in memory. Safe for concurrent use.
type Collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *Collector) OnEvent(e Event) {
	c.mu.Lock()
	c.events = append(c.events, e)
	c.mu.Unlock()
}

// Events returns a copy of all collected events.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// ForStage returns the events of one stage, in emission order.
func (c *Collector) ForStage(s StageID) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Event
	for _, e := range c.events {
		if e.Stage == s {
			out = append(out, e)
		}
	}
	return out
}

// Final returns the last status seen for each stage.
func (c *Collector) Final() map[StageID]Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[StageID]Status)
	for _, e := range c.events {
		out[e.Stage] = e.Status
	}
	return out
}
