package model

import "time"

// EventKind classifies an observed market event.
type EventKind string

const (
	KindPriceEvent EventKind = "price_event"
	KindNews       EventKind = "news"
	KindFiling     EventKind = "filing"
	KindMacro      EventKind = "macro"
	KindSocial     EventKind = "social"
)

// Event is the canonical immutable unit of observation. Re-insertion under
// the same ID overwrites the stored node attributes (upsert, not append).
type Event struct {
	ID      string         `json:"id"`
	Kind    EventKind      `json:"kind"`
	Ticker  string         `json:"ticker,omitempty"`
	TS      time.Time      `json:"ts"`
	Attrs   map[string]any `json:"attrs"`
	Summary string         `json:"summary"`
}

// Headline returns the headline attribute when present, else "".
func (e *Event) Headline() string {
	if e.Attrs == nil {
		return ""
	}
	if h, ok := e.Attrs["headline"].(string); ok {
		return h
	}
	return ""
}

// Node is the graph-resident form of an Event.
type Node struct {
	ID      string         `json:"id"`
	Kind    EventKind      `json:"kind"`
	Ticker  string         `json:"ticker,omitempty"`
	TS      time.Time      `json:"ts"`
	Attrs   map[string]any `json:"attrs"`
	Summary string         `json:"summary"`
}

// NodeFromEvent builds the node representation stored in the graph.
func NodeFromEvent(ev *Event) *Node {
	return &Node{
		ID:      ev.ID,
		Kind:    ev.Kind,
		Ticker:  ev.Ticker,
		TS:      ev.TS,
		Attrs:   ev.Attrs,
		Summary: ev.Summary,
	}
}

// Event converts a node back to the event view used by candidate gating.
func (n *Node) Event() *Event {
	return &Event{
		ID:      n.ID,
		Kind:    n.Kind,
		Ticker:  n.Ticker,
		TS:      n.TS,
		Attrs:   n.Attrs,
		Summary: n.Summary,
	}
}

// Edge is a hypothesized causal relationship between two event nodes.
// There is at most one edge per ordered (Src, Dst) pair.
type Edge struct {
	Src         string         `json:"src"`
	Dst         string         `json:"dst"`
	Weight      float64        `json:"weight"`
	Polarity    int            `json:"polarity"`
	LastUpdated time.Time      `json:"last_updated"`
	Evidence    []EdgeEvidence `json:"evidence"`
}

// EdgeEvidence records one consensus decision that touched an edge.
type EdgeEvidence struct {
	EventID string          `json:"event_id"`
	Judge   JudgeDecision   `json:"judge"`
	Experts []ExpertOpinion `json:"experts"`
}

// Snapshot is a point-in-time read-only projection of the graph.
type Snapshot struct {
	GeneratedAt time.Time `json:"generated_at"`
	Nodes       []*Node   `json:"nodes"`
	Edges       []*Edge   `json:"edges"`
}
