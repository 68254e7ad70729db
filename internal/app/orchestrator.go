package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"causalGraphApp/config"
	"causalGraphApp/internal/alerts"
	"causalGraphApp/internal/domain/model"
	"causalGraphApp/internal/domain/repository"
	"causalGraphApp/internal/domain/service"
	"causalGraphApp/internal/domain/useCases"
)

// Orchestrator owns the per-event processing pipeline:
// node upsert -> log -> gate -> budget -> consensus -> edge upsert -> decay
// -> signal aggregation -> alert. It is the single writer of the graph;
// events are inserted sequentially within a cycle.
type Orchestrator struct {
	log        *slog.Logger
	cfg        *config.Config
	graph      *service.CausalGraph
	eventLog   repository.EventLog
	candidates *service.CandidateGenerator
	debate     useCases.ConsensusRunner
	budget     *BudgetLimiter
	alerts     *alerts.Engine
	calendar   *service.TradingCalendar
	archive    repository.EventArchive // optional, may be nil
	now        func() time.Time
}

// NewOrchestrator wires the pipeline components together. archive may be nil.
func NewOrchestrator(
	log *slog.Logger,
	cfg *config.Config,
	graph *service.CausalGraph,
	eventLog repository.EventLog,
	candidates *service.CandidateGenerator,
	debate useCases.ConsensusRunner,
	budget *BudgetLimiter,
	alertEngine *alerts.Engine,
	calendar *service.TradingCalendar,
	archive repository.EventArchive,
) *Orchestrator {
	return &Orchestrator{
		log:        log,
		cfg:        cfg,
		graph:      graph,
		eventLog:   eventLog,
		candidates: candidates,
		debate:     debate,
		budget:     budget,
		alerts:     alertEngine,
		calendar:   calendar,
		archive:    archive,
		now:        time.Now,
	}
}

// SetClock overrides the orchestrator clock for tests.
func (o *Orchestrator) SetClock(now func() time.Time) {
	o.now = now
}

// Snapshot exposes the current graph projection for HTTP handlers and the
// per-cycle snapshot publication.
func (o *Orchestrator) Snapshot() *model.Snapshot {
	return o.graph.Snapshot()
}

// InsertEvent runs the full pipeline for one event. A log-append failure is
// fatal to the triggering operation and leaves the graph in its
// pre-operation state where possible; a consensus transport failure is fatal
// only to the pair being evaluated.
func (o *Orchestrator) InsertEvent(ctx context.Context, ev *model.Event) error {
	existed := o.graph.HasNode(ev.ID)
	o.graph.UpsertNode(ev)
	if err := o.eventLog.Append(ctx, model.ActionAddNode, model.NodeFromEvent(ev)); err != nil {
		if !existed {
			o.graph.RemoveNode(ev.ID)
		}
		return fmt.Errorf("append add_node for %s: %w", ev.ID, err)
	}

	if o.archive != nil {
		if err := o.archive.SaveEvent(ctx, ev); err != nil {
			o.log.Warn("event archive write failed", "event", ev.ID, "error", err)
		}
	}

	snapshot := o.graph.Snapshot()
	known := make([]*model.Event, 0, len(snapshot.Nodes))
	for _, n := range snapshot.Nodes {
		known = append(known, n.Event())
	}

	pairs := o.candidates.PlausiblePairs(ev, known)

	// Outside regular hours the node insertion and its log record stand,
	// but costly evaluation is suppressed.
	if o.cfg.RTH.Enforce {
		if !o.calendar.IsRegularHours(o.now()) ||
			(o.cfg.RTH.RequirePriceEvent && ev.Kind != model.KindPriceEvent) {
			pairs = nil
		}
	}

	for _, pair := range pairs {
		if err := o.evaluatePair(ctx, pair); err != nil {
			return err
		}
	}

	// Decay runs over the entire edge set once per processed event; the
	// cadence is intentionally coupled to event arrival rate.
	o.graph.Decay()

	if ev.Ticker != "" {
		if err := o.maybeAlert(ctx, ev.Ticker); err != nil {
			return err
		}
	}
	return nil
}

// evaluatePair runs budget gating and consensus for one candidate pair and
// upserts the edge when the judge affirms it with sufficient confidence.
func (o *Orchestrator) evaluatePair(ctx context.Context, pair service.CandidatePair) error {
	cause, effect := pair.Cause, pair.Effect

	if !o.budget.Available() {
		payload := map[string]any{
			"src":              cause.ID,
			"dst":              effect.ID,
			"reason":           "daily evaluation cap reached",
			"evals_used_today": o.budget.UsedToday(),
			"evals_day_cap":    o.budget.DayCap(),
		}
		if err := o.eventLog.Append(ctx, model.ActionBudgetSkipPair, payload); err != nil {
			return fmt.Errorf("append budget_skip_pair: %w", err)
		}
		return nil
	}

	meta := map[string]any{
		"ticker_cause":  cause.Ticker,
		"ticker_effect": effect.Ticker,
		"kind_cause":    cause.Kind,
		"kind_effect":   effect.Kind,
	}
	result, err := o.debate.RunDebate(ctx, cause, effect, meta)
	o.budget.Consume() // attempts consume budget regardless of outcome
	if err != nil {
		// Transport failure: fatal to this pair only.
		o.log.Error("consensus call failed", "src", cause.ID, "dst", effect.ID, "error", err)
		return nil
	}

	judge := result.Judge
	if judge.Edge != 1 {
		return nil
	}
	if judge.Confidence < o.cfg.Weights.MinConfidenceToAdd {
		return nil
	}

	blended := o.cfg.Weights.AlphaBlend*judge.Confidence +
		(1-o.cfg.Weights.AlphaBlend)*o.cfg.Weights.InitialEdgeWeight

	payload := map[string]any{
		"src":      cause.ID,
		"dst":      effect.ID,
		"weight":   blended,
		"polarity": judge.Polarity,
	}
	if err := o.eventLog.Append(ctx, model.ActionAddOrUpdateEdge, payload); err != nil {
		return fmt.Errorf("append add_or_update_edge %s->%s: %w", cause.ID, effect.ID, err)
	}
	o.graph.UpsertEdge(cause.ID, effect.ID, blended, judge.Polarity, model.EdgeEvidence{
		EventID: effect.ID,
		Judge:   judge,
		Experts: result.Experts,
	})
	return nil
}

// maybeAlert aggregates the per-ticker signal from the post-decay snapshot
// and emits an alert when it clears the configured thresholds.
func (o *Orchestrator) maybeAlert(ctx context.Context, ticker string) error {
	snap := o.graph.Snapshot()
	outlook := service.Outlook(snap, ticker)

	direction := "bullish"
	if outlook.Polarity < 0 {
		direction = "bearish"
	}
	rationale := fmt.Sprintf("Graph net support %s with score=%.2fσ.", direction, outlook.ExpectedSigma)

	alert, err := o.alerts.MaybeAlert(ticker, o.cfg.Horizon.Minutes, outlook.Probability,
		outlook.ExpectedSigma, outlook.Polarity, rationale, alerts.Thresholds{
			KSigma: o.cfg.Horizon.SpreadSigmaK,
			MinP:   o.cfg.Horizon.MinProbability,
		})
	if err != nil {
		return fmt.Errorf("alert sink for %s: %w", ticker, err)
	}
	if alert == nil {
		return nil
	}
	if err := o.eventLog.Append(ctx, model.ActionAlert, alert); err != nil {
		return fmt.Errorf("append alert for %s: %w", ticker, err)
	}
	return nil
}
