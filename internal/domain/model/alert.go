package model

import "time"

// Alert direction values.
const (
	DirectionUp   = "UP"
	DirectionDown = "DOWN"
)

// Alert is a probability-weighted trading alert derived from the graph state.
// Serialized one object per line to the JSONL sink.
type Alert struct {
	TS            time.Time `json:"ts"`
	Ticker        string    `json:"ticker"`
	HorizonMin    int       `json:"horizon_min"`
	Direction     string    `json:"direction"`
	Probability   float64   `json:"probability"`
	ExpectedSigma float64   `json:"expected_sigma"`
	Rationale     string    `json:"rationale"`
}
