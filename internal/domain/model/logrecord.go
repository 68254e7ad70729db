package model

import "time"

// Log actions written by the orchestrator. The vocabulary is open for
// extension; replay also understands historical aliases (see eventlog).
const (
	ActionAddNode         = "add_node"
	ActionAddOrUpdateEdge = "add_or_update_edge"
	ActionBudgetSkipPair  = "budget_skip_pair"
	ActionAlert           = "alert"
	ActionPruneNode       = "prune_node"
	ActionPruneEdge       = "prune_edge"
)

// LogRecord is one entry of the append-only event log. The log is the source
// of truth; the live graph and on-disk snapshots are rebuildable caches.
type LogRecord struct {
	ID      int64
	TS      time.Time
	Action  string
	Payload []byte
}
