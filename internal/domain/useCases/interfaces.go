package useCases

import (
	"context"
	"net/http"

	"causalGraphApp/internal/domain/model"
)

// Completer is the text-generation backend used by the consensus engine.
// The returned text may be malformed JSON-shaped content; transport or auth
// failures surface as errors.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Producer yields an ordered batch of events per polling cycle. A failed
// fetch must not abort other producers or the cycle.
type Producer interface {
	Name() string
	Fetch(ctx context.Context) ([]*model.Event, error)
}

// ConsensusRunner decides whether a causal edge exists between a candidate
// pair and with what polarity.
type ConsensusRunner interface {
	RunDebate(ctx context.Context, cause, effect *model.Event, metadata map[string]any) (*model.ConsensusResult, error)
}

// AlertBroadcaster pushes emitted alerts to connected WebSocket/API clients.
type AlertBroadcaster interface {
	BroadcastAlert(alert *model.Alert)
	Handler() func(http.ResponseWriter, *http.Request)
}
