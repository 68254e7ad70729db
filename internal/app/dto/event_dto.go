package dto

import (
	"time"

	"causalGraphApp/internal/domain/model"
)

// EventDTO is the wire representation of a market event (Kafka payloads,
// HTTP responses).
type EventDTO struct {
	ID      string         `json:"id"`
	Kind    string         `json:"kind"`
	Ticker  string         `json:"ticker,omitempty"`
	TS      time.Time      `json:"ts"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Summary string         `json:"summary"`
}

// ToModel converts an EventDTO to the domain model
func (d *EventDTO) ToModel() *model.Event {
	return &model.Event{
		ID:      d.ID,
		Kind:    model.EventKind(d.Kind),
		Ticker:  d.Ticker,
		TS:      d.TS,
		Attrs:   d.Attrs,
		Summary: d.Summary,
	}
}

// FromModel creates an EventDTO from the domain model
func FromModel(ev *model.Event) *EventDTO {
	return &EventDTO{
		ID:      ev.ID,
		Kind:    string(ev.Kind),
		Ticker:  ev.Ticker,
		TS:      ev.TS,
		Attrs:   ev.Attrs,
		Summary: ev.Summary,
	}
}

func FromModels(evs []*model.Event) []*EventDTO {
	dtos := make([]*EventDTO, len(evs))
	for i, ev := range evs {
		dtos[i] = FromModel(ev)
	}
	return dtos
}
