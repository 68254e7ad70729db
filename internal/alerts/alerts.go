// Package alerts emits probability-weighted trading alerts to an append-only
// JSONL sink, with optional console echo and WebSocket broadcast.
package alerts

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"causalGraphApp/internal/domain/model"
	"causalGraphApp/internal/domain/useCases"
)

// Thresholds gate alert emission.
type Thresholds struct {
	KSigma float64
	MinP   float64
}

// recentCap bounds the in-memory ring served by the /alerts endpoint.
const recentCap = 100

// Engine writes alerts to a JSONL file, one object per line.
type Engine struct {
	path        string
	console     bool
	log         *slog.Logger
	broadcaster useCases.AlertBroadcaster // optional, may be nil

	mu     sync.Mutex
	recent []*model.Alert
	now    func() time.Time
}

// NewEngine creates an alert engine writing to jsonlPath. The parent
// directory is created on first use. broadcaster may be nil.
func NewEngine(jsonlPath string, console bool, log *slog.Logger, broadcaster useCases.AlertBroadcaster) *Engine {
	return &Engine{
		path:        jsonlPath,
		console:     console,
		log:         log,
		broadcaster: broadcaster,
		now:         time.Now,
	}
}

// SetClock overrides the engine clock for tests.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// MaybeAlert emits an alert iff probability >= MinP and expectedSigma >=
// KSigma. Returns the emitted record, or nil when thresholds are not met.
// A failed sink write surfaces as an error; it is never silently dropped.
func (e *Engine) MaybeAlert(ticker string, horizonMin int, probability, expectedSigma float64, polarity int, rationale string, th Thresholds) (*model.Alert, error) {
	if probability < th.MinP || expectedSigma < th.KSigma {
		return nil, nil
	}

	direction := model.DirectionDown
	if polarity > 0 {
		direction = model.DirectionUp
	}
	alert := &model.Alert{
		TS:            e.now().UTC(),
		Ticker:        ticker,
		HorizonMin:    horizonMin,
		Direction:     direction,
		Probability:   roundTo(probability, 4),
		ExpectedSigma: roundTo(expectedSigma, 3),
		Rationale:     rationale,
	}

	if err := e.appendJSONL(alert); err != nil {
		return nil, err
	}
	if e.console {
		e.log.Info("ALERT",
			"ticker", alert.Ticker,
			"direction", alert.Direction,
			"probability", alert.Probability,
			"expected_sigma", alert.ExpectedSigma,
			"horizon_min", alert.HorizonMin,
		)
	}
	if e.broadcaster != nil {
		e.broadcaster.BroadcastAlert(alert)
	}

	e.mu.Lock()
	e.recent = append(e.recent, alert)
	if len(e.recent) > recentCap {
		e.recent = e.recent[len(e.recent)-recentCap:]
	}
	e.mu.Unlock()

	return alert, nil
}

// Recent returns the most recently emitted alerts, oldest first.
func (e *Engine) Recent() []*model.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*model.Alert, len(e.recent))
	copy(out, e.recent)
	return out
}

func (e *Engine) appendJSONL(alert *model.Alert) error {
	if dir := filepath.Dir(e.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create alert sink dir: %w", err)
		}
	}
	f, err := os.OpenFile(e.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open alert sink: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write alert: %w", err)
	}
	return nil
}

func roundTo(v float64, places int) float64 {
	shift := math.Pow(10, float64(places))
	return math.Round(v*shift) / shift
}
