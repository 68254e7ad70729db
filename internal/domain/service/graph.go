// Package service provides implementations of domain services that hold the
// core business logic. This package depends only on domain models and
// configuration (not infrastructure implementations).
package service

import (
	"math"
	"sort"
	"time"

	"causalGraphApp/internal/domain/model"
)

// pruneFloor is the weight below which a decayed edge is removed.
const pruneFloor = 0.05

// defaultHalfLifeDays applies to event kinds with no configured half-life.
const defaultHalfLifeDays = 3.0

type edgeKey struct {
	src string
	dst string
}

// CausalGraph is a directed weighted graph over event ids with exponential
// time-decay on edge weights. It is owned by a single writer (the
// orchestrator); no internal locking.
type CausalGraph struct {
	halfLives map[model.EventKind]float64
	nodes     map[string]*model.Node
	edges     map[edgeKey]*model.Edge
	now       func() time.Time
}

// NewCausalGraph creates an empty graph with per-kind decay half-lives in days.
func NewCausalGraph(halfLivesDays map[model.EventKind]float64) *CausalGraph {
	return &CausalGraph{
		halfLives: halfLivesDays,
		nodes:     make(map[string]*model.Node),
		edges:     make(map[edgeKey]*model.Edge),
		now:       time.Now,
	}
}

// SetClock overrides the graph clock. Used by tests and replay tooling.
func (g *CausalGraph) SetClock(now func() time.Time) {
	g.now = now
}

// UpsertNode inserts or overwrites the node for the given event. Idempotent;
// never creates a duplicate node for an id.
func (g *CausalGraph) UpsertNode(ev *model.Event) {
	g.nodes[ev.ID] = model.NodeFromEvent(ev)
}

// HasNode reports whether a node exists for the id.
func (g *CausalGraph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// RemoveNode deletes a node and every edge touching it. Supported only for
// log-replay compatibility; nodes are never deleted in normal operation.
func (g *CausalGraph) RemoveNode(id string) {
	if _, ok := g.nodes[id]; !ok {
		return
	}
	delete(g.nodes, id)
	for k := range g.edges {
		if k.src == id || k.dst == id {
			delete(g.edges, k)
		}
	}
}

// RemoveEdge deletes the edge for the ordered pair if present.
func (g *CausalGraph) RemoveEdge(src, dst string) {
	delete(g.edges, edgeKey{src: src, dst: dst})
}

// UpsertEdge creates or updates the edge for the ordered (src, dst) pair.
// On update the weight is an exponential blend of old and new, the polarity
// is replaced with the latest decision, and the evidence is appended.
func (g *CausalGraph) UpsertEdge(src, dst string, weight float64, polarity int, evidence model.EdgeEvidence) {
	key := edgeKey{src: src, dst: dst}
	now := g.now().UTC()
	if e, ok := g.edges[key]; ok {
		e.Weight = 0.5*e.Weight + 0.5*weight
		e.Polarity = polarity
		e.LastUpdated = now
		e.Evidence = append(e.Evidence, evidence)
		return
	}
	g.edges[key] = &model.Edge{
		Src:         src,
		Dst:         dst,
		Weight:      weight,
		Polarity:    polarity,
		LastUpdated: now,
		Evidence:    []model.EdgeEvidence{evidence},
	}
}

// EdgeWeight returns the current weight for the ordered pair, if present.
func (g *CausalGraph) EdgeWeight(src, dst string) (float64, bool) {
	e, ok := g.edges[edgeKey{src: src, dst: dst}]
	if !ok {
		return 0, false
	}
	return e.Weight, true
}

// Decay applies exponential time-decay to every edge and prunes edges whose
// weight falls below the floor. An edge's effective half-life is the minimum
// of its endpoints' per-kind half-lives (default 3.0 days for unknown kinds);
// a half-life <= 0 zeroes the weight outright. Each touched edge's reference
// time resets to now.
//
// Decay runs once per processed input event, not on a wall-clock timer, so
// the decay cadence is coupled to event arrival rate. That coupling is part
// of the observable alert timing; do not move decay to a timer without
// revisiting the alert thresholds.
func (g *CausalGraph) Decay() {
	now := g.now().UTC()
	for key, e := range g.edges {
		days := now.Sub(e.LastUpdated).Seconds() / 86400.0
		if days < 0 {
			days = 0
		}
		hl := g.edgeHalfLife(key)
		factor := 0.0
		if hl > 0 {
			factor = math.Pow(0.5, days/hl)
		}
		e.Weight *= factor
		e.LastUpdated = now
		if e.Weight < pruneFloor {
			delete(g.edges, key)
		}
	}
}

func (g *CausalGraph) edgeHalfLife(key edgeKey) float64 {
	return min(g.nodeHalfLife(key.src), g.nodeHalfLife(key.dst))
}

func (g *CausalGraph) nodeHalfLife(id string) float64 {
	n, ok := g.nodes[id]
	if !ok {
		return defaultHalfLifeDays
	}
	hl, ok := g.halfLives[n.Kind]
	if !ok {
		return defaultHalfLifeDays
	}
	return hl
}

// Snapshot returns a read-only projection of the graph, safe to serialize.
// Nodes and edges are copied and sorted by id for deterministic output.
func (g *CausalGraph) Snapshot() *model.Snapshot {
	snap := &model.Snapshot{
		GeneratedAt: g.now().UTC(),
		Nodes:       make([]*model.Node, 0, len(g.nodes)),
		Edges:       make([]*model.Edge, 0, len(g.edges)),
	}
	for _, n := range g.nodes {
		c := *n
		snap.Nodes = append(snap.Nodes, &c)
	}
	for _, e := range g.edges {
		c := *e
		c.Evidence = append([]model.EdgeEvidence{}, e.Evidence...)
		snap.Edges = append(snap.Edges, &c)
	}
	sort.Slice(snap.Nodes, func(i, j int) bool { return snap.Nodes[i].ID < snap.Nodes[j].ID })
	sort.Slice(snap.Edges, func(i, j int) bool {
		if snap.Edges[i].Src != snap.Edges[j].Src {
			return snap.Edges[i].Src < snap.Edges[j].Src
		}
		return snap.Edges[i].Dst < snap.Edges[j].Dst
	})
	return snap
}

// NodeCount returns the number of nodes currently in the graph.
func (g *CausalGraph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges currently in the graph.
func (g *CausalGraph) EdgeCount() int { return len(g.edges) }
