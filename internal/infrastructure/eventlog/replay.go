package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"causalGraphApp/internal/domain/model"
	"causalGraphApp/internal/domain/repository"
)

// Action families understood by replay. The writer uses the canonical
// names; the aliases keep older logs replayable.
var (
	nodeAddActions   = actionSet("add_node", "node_add", "update_node")
	edgeAddActions   = actionSet("add_edge", "edge_add", "update_edge", "add_or_update_edge", "upsert_edge")
	nodePruneActions = actionSet("prune_node", "node_prune", "remove_node")
	edgePruneActions = actionSet("prune_edge", "edge_prune", "remove_edge")
)

func actionSet(names ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// ReplayOptions bound and filter the replayed subsequence.
type ReplayOptions struct {
	Since        *time.Time // inclusive lower bound
	Until        *time.Time // exclusive upper bound; scanning stops here
	OnlyActions  []string   // allow-list; empty means all actions
	IgnorePrunes bool
}

// ReplayStats counts what replay did, mirroring the log's role as the
// source of truth: a single bad record is counted and skipped, never fatal.
type ReplayStats struct {
	Rows          int
	Applied       int
	SkippedParse  int
	SkippedFilter int
	NodeAdd       int
	NodePrune     int
	EdgeAdd       int
	EdgePrune     int
}

// ReplayResult is the rebuilt snapshot plus replay statistics. Nodes and
// edges are generic maps so passthrough fields from edge payloads (type,
// rationale, experts, judge) survive the round trip; the serialized shape
// matches the live graph's snapshot.
type ReplayResult struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Nodes       []map[string]any `json:"nodes"`
	Edges       []map[string]any `json:"edges"`
	Stats       ReplayStats      `json:"-"`
}

var errStopReplay = errors.New("replay reached until bound")

// Replay reconstructs a graph snapshot by applying the ordered log from
// empty state. Node adds upsert by id, edge adds upsert by explicit id or
// the literal "src->dst" pair key, prunes remove (unless ignored), and
// records whose payload cannot be parsed as structured data are counted and
// skipped. Replay never aborts on a single bad record.
func Replay(ctx context.Context, log repository.EventLog, opts ReplayOptions) (*ReplayResult, error) {
	var only map[string]struct{}
	if len(opts.OnlyActions) > 0 {
		only = actionSet(opts.OnlyActions...)
	}

	nodes := map[string]map[string]any{}
	nodeOrder := []string{}
	edges := map[string]map[string]any{}
	edgeOrder := []string{}
	stats := ReplayStats{}

	err := log.Scan(ctx, func(rec *model.LogRecord) error {
		stats.Rows++
		if opts.Since != nil && !rec.TS.IsZero() && rec.TS.Before(*opts.Since) {
			return nil
		}
		if opts.Until != nil && !rec.TS.IsZero() && !rec.TS.Before(*opts.Until) {
			return errStopReplay
		}
		if only != nil {
			if _, ok := only[rec.Action]; !ok {
				stats.SkippedFilter++
				return nil
			}
		}

		payload := map[string]any{}
		if len(rec.Payload) > 0 {
			if err := json.Unmarshal(rec.Payload, &payload); err != nil {
				stats.SkippedParse++
				return nil
			}
		}

		switch {
		case contains(nodeAddActions, rec.Action):
			n := normNode(payload)
			id, _ := n["id"].(string)
			if id == "" {
				return nil
			}
			if _, ok := n["ts"]; !ok && !rec.TS.IsZero() {
				n["ts"] = rec.TS.Format(time.RFC3339Nano)
			}
			if _, seen := nodes[id]; !seen {
				nodeOrder = append(nodeOrder, id)
			}
			nodes[id] = n
			stats.Applied++
			stats.NodeAdd++

		case contains(edgeAddActions, rec.Action):
			e := normEdge(payload, rec.TS)
			if e == nil {
				return nil
			}
			id := e["id"].(string)
			if _, seen := edges[id]; !seen {
				edgeOrder = append(edgeOrder, id)
			}
			edges[id] = e
			stats.Applied++
			stats.EdgeAdd++

		case opts.IgnorePrunes:
			// prunes are the only remaining families; skip them wholesale

		case contains(nodePruneActions, rec.Action):
			id := stringField(payload, "id", "node_id")
			if id != "" {
				delete(nodes, id)
				stats.Applied++
				stats.NodePrune++
			}

		case contains(edgePruneActions, rec.Action):
			if id := stringField(payload, "id"); id != "" {
				if _, ok := edges[id]; ok {
					delete(edges, id)
					stats.Applied++
					stats.EdgePrune++
					return nil
				}
			}
			src := stringField(payload, "src", "source")
			dst := stringField(payload, "dst", "target")
			if src != "" && dst != "" {
				delete(edges, src+"->"+dst)
				stats.Applied++
				stats.EdgePrune++
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopReplay) {
		return nil, fmt.Errorf("replay scan: %w", err)
	}

	result := &ReplayResult{
		GeneratedAt: time.Now().UTC(),
		Nodes:       make([]map[string]any, 0, len(nodes)),
		Edges:       make([]map[string]any, 0, len(edges)),
		Stats:       stats,
	}
	for _, id := range nodeOrder {
		if n, ok := nodes[id]; ok {
			result.Nodes = append(result.Nodes, n)
		}
	}
	for _, id := range edgeOrder {
		if e, ok := edges[id]; ok {
			result.Edges = append(result.Edges, e)
		}
	}
	return result, nil
}

// normNode accepts the node either flat or nested under a "node" key.
func normNode(payload map[string]any) map[string]any {
	if nested, ok := payload["node"].(map[string]any); ok {
		if _, hasID := nested["id"]; !hasID {
			if id, ok := payload["id"]; ok {
				nested["id"] = id
			}
		}
		return nested
	}
	return payload
}

// normEdge accepts the edge flat or nested under an "edge" key, tolerates
// src/source and dst/target aliases, keys by explicit id or the "src->dst"
// pair key, and preserves the known passthrough fields.
func normEdge(payload map[string]any, recTS time.Time) map[string]any {
	e, ok := payload["edge"].(map[string]any)
	if !ok {
		e = payload
	}
	src := stringField(e, "src", "source")
	dst := stringField(e, "dst", "target")
	if src == "" || dst == "" {
		return nil
	}

	id := stringField(e, "id")
	if id == "" {
		id = src + "->" + dst
	}
	out := map[string]any{
		"id":       id,
		"src":      src,
		"dst":      dst,
		"weight":   numberField(e, 0.0, "weight", "w"),
		"polarity": numberField(e, 0.0, "polarity"),
	}
	if ts := stringField(e, "ts"); ts != "" {
		out["ts"] = ts
	} else if ts := stringField(payload, "ts"); ts != "" {
		out["ts"] = ts
	} else if !recTS.IsZero() {
		out["ts"] = recTS.Format(time.RFC3339Nano)
	}
	for _, k := range []string{"type", "rationale", "experts", "judge"} {
		if v, ok := e[k]; ok {
			out[k] = v
		} else if v, ok := payload[k]; ok {
			out[k] = v
		}
	}
	return out
}

func contains(set map[string]struct{}, action string) bool {
	_, ok := set[action]
	return ok
}

func stringField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func numberField(m map[string]any, def float64, keys ...string) float64 {
	for _, k := range keys {
		if v, ok := m[k].(float64); ok {
			return v
		}
	}
	return def
}
