package app

import (
	"context"
	"errors"
	"log/slog"

	"causalGraphApp/internal/domain/model"
)

// ErrContextCancelled is returned when the context is cancelled during processing
var ErrContextCancelled = errors.New("context cancelled during processing")

// EventProcessor drains a channel of market events into the orchestrator.
// Used in Kafka mode, where events arrive pushed rather than polled.
// Duplicate deliveries are harmless: node insertion is an upsert by id.
type EventProcessor struct {
	EventCh <-chan *model.Event
	Orch    *Orchestrator
	Log     *slog.Logger
}

func NewEventProcessor(eventCh <-chan *model.Event, orch *Orchestrator, log *slog.Logger) *EventProcessor {
	return &EventProcessor{EventCh: eventCh, Orch: orch, Log: log}
}

// Run processes events until the context is cancelled. Insert failures are
// logged and processing continues; they never abort the loop.
func (p *EventProcessor) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-p.EventCh:
			if !ok {
				return nil
			}
			if err := p.processEvent(ctx, ev); err != nil {
				if errors.Is(err, ErrContextCancelled) {
					p.Log.Info("context cancelled, stopping event processor")
					return ctx.Err()
				}
				p.Log.Error("error processing event", "error", err)
			}
		}
	}
}

// processEvent handles a single event with context cancellation checks.
func (p *EventProcessor) processEvent(ctx context.Context, ev *model.Event) error {
	if ctx.Err() != nil {
		return ErrContextCancelled
	}
	if ev == nil {
		return nil
	}
	return p.Orch.InsertEvent(ctx, ev)
}
