package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"causalGraphApp/config"
	"causalGraphApp/internal/alerts"
	"causalGraphApp/internal/debate"
	"causalGraphApp/internal/domain/model"
	"causalGraphApp/internal/domain/repository"
	"causalGraphApp/internal/domain/service"
	"causalGraphApp/internal/domain/useCases"
	ws "causalGraphApp/internal/handlers/websocket"
	"causalGraphApp/internal/infrastructure/cache"
	"causalGraphApp/internal/infrastructure/eventlog"
	"causalGraphApp/internal/infrastructure/queue"
	chrepo "causalGraphApp/internal/infrastructure/storage"
	"causalGraphApp/internal/llm"
	"causalGraphApp/internal/producers"
)

// AppContext holds all app dependencies
type AppContext struct {
	Config       *config.Config
	Log          *slog.Logger
	Universe     *config.Universe
	Orchestrator *Orchestrator
	AlertEngine  *alerts.Engine
	Broadcaster  *ws.WebSocketBroadcaster
	EventLog     *eventlog.SQLiteLog
	Producers    []useCases.Producer

	SnapshotCache  *cache.RedisSnapshotCache // optional, nil when Redis not configured
	KafkaConsumer  *queue.KafkaConsumer      // optional, nil when Kafka not configured
	KafkaProducer  *queue.KafkaProducer      // optional
	EventProcessor *EventProcessor           // optional, drains the Kafka channel
}

// NewApp initializes the app context with all dependencies. The event log is
// required; Redis, ClickHouse and Kafka are optional and degrade with a
// warning when unreachable.
func NewApp(ctx context.Context, log *slog.Logger, cfg *config.Config) (*AppContext, error) {
	app := &AppContext{Config: cfg, Log: log}

	universe, err := config.LoadUniverse(cfg.UniversePath)
	if err != nil {
		return nil, fmt.Errorf("load universe: %w", err)
	}
	app.Universe = universe
	log.Info("universe loaded", "tickers", len(universe.Tickers), "feeds", len(universe.Feeds))

	// The append-only event log is the source of truth. Failing to open it
	// is fatal.
	eventLog, err := eventlog.Open(cfg.EventLogPath)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	app.EventLog = eventLog
	log.Info("event log opened", "path", cfg.EventLogPath)

	graph := service.NewCausalGraph(halfLives(cfg.Decay))
	if err := recoverGraph(ctx, log, eventLog, graph); err != nil {
		return nil, fmt.Errorf("recover graph from log: %w", err)
	}
	log.Info("graph recovered from log", "nodes", graph.NodeCount(), "edges", graph.EdgeCount())

	candidates := service.NewCandidateGenerator(cfg.Gating, universe.Peers(), universe.Sectors())

	llmClient := llm.NewClient(cfg.LLM)
	consensus := debate.NewEngine(llmClient, cfg.Debate.MaxRounds, log)
	budget := NewBudgetLimiter(cfg.Budget)

	app.Broadcaster = ws.NewWebSocketBroadcaster()
	app.AlertEngine = alerts.NewEngine(cfg.AlertsPath, cfg.AlertConsole, log, app.Broadcaster)

	// Try to initialize the persistent event archive (ClickHouse)
	var archive repository.EventArchive
	if cfg.ClickhouseAddr != "" {
		chConfig := chrepo.ClickHouseConfig{
			Addr:     cfg.ClickhouseAddr,
			Username: cfg.ClickhouseUsername,
			Password: cfg.ClickhousePassword,
			Timeout:  cfg.ClickhouseTimeout,
		}
		clickhouseRepo, err := chrepo.NewClickHouseArchive(chConfig)
		if err != nil {
			log.Warn("failed to connect to ClickHouse, continuing without event archive", "error", err)
		} else {
			archive = clickhouseRepo
			log.Info("ClickHouse event archive initialized")
		}
	}

	// Try to initialize the snapshot cache (Redis)
	if cfg.RedisAddr != "" {
		snapCache := cache.NewRedisSnapshotCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := snapCache.Ping(ctx); err != nil {
			log.Warn("failed to connect to Redis, continuing without snapshot cache", "error", err)
			_ = snapCache.Close()
		} else {
			app.SnapshotCache = snapCache
			log.Info("Redis snapshot cache initialized")
		}
	}

	app.Orchestrator = NewOrchestrator(
		log, cfg, graph, eventLog, candidates, consensus, budget,
		app.AlertEngine, service.NewTradingCalendar(), archive,
	)

	// RSS producers, one per configured feed.
	keywords := universe.Keywords()
	for _, feed := range universe.Feeds {
		app.Producers = append(app.Producers, producers.NewRSSProducer(feed, keywords))
	}

	// Local runs without feeds or a Kafka bus still need input; a synthetic
	// producer keeps the demo pipeline moving.
	if cfg.Env == "local" && len(app.Producers) == 0 && len(cfg.KafkaBrokers) == 0 {
		app.Producers = append(app.Producers, producers.NewSyntheticProducer(universe.Tickers, 5))
		log.Info("no feeds or Kafka configured, using synthetic producer")
	}

	// Kafka event bus, when configured. Consumed events flow through the
	// same orchestrator as polled ones.
	if len(cfg.KafkaBrokers) > 0 {
		kafkaConfig := queue.KafkaConfig{
			Brokers:       cfg.KafkaBrokers,
			Topic:         cfg.KafkaTopic,
			ConsumerGroup: cfg.KafkaConsumerGroup,
			BatchSize:     cfg.KafkaBatchSize,
			BatchTimeout:  cfg.KafkaBatchTimeout,
		}
		app.KafkaConsumer = queue.NewKafkaConsumer(kafkaConfig)
		eventCh, err := app.KafkaConsumer.Subscribe(ctx)
		if err != nil {
			return nil, fmt.Errorf("subscribe to Kafka: %w", err)
		}
		app.EventProcessor = NewEventProcessor(eventCh, app.Orchestrator, log)
		app.KafkaProducer = queue.NewKafkaProducer(kafkaConfig)
		log.Info("Kafka consumer and producer initialized", "topic", cfg.KafkaTopic)
	}

	return app, nil
}

// RunCycle polls every producer once and feeds the resulting events through
// the pipeline, then publishes the fresh snapshot. A failing producer or
// event never aborts the rest of the cycle.
func (a *AppContext) RunCycle(ctx context.Context) {
	for _, p := range a.Producers {
		events, err := p.Fetch(ctx)
		if err != nil {
			a.Log.Error("producer fetch failed", "producer", p.Name(), "error", err)
			continue
		}
		for _, ev := range events {
			if ctx.Err() != nil {
				return
			}
			if err := a.Orchestrator.InsertEvent(ctx, ev); err != nil {
				a.Log.Error("event insert failed", "producer", p.Name(), "event", ev.ID, "error", err)
			}
		}
	}
	a.PublishSnapshot(ctx)
}

// PublishSnapshot writes the current graph projection to the snapshot file
// and, when configured, to the Redis cache. Both sinks are best-effort; the
// log remains the source of truth.
func (a *AppContext) PublishSnapshot(ctx context.Context) {
	snap := a.Orchestrator.Snapshot()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		a.Log.Error("marshal snapshot failed", "error", err)
		return
	}
	if dir := filepath.Dir(a.Config.SnapshotPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			a.Log.Error("create snapshot dir failed", "error", err)
			return
		}
	}
	if err := os.WriteFile(a.Config.SnapshotPath, data, 0o644); err != nil {
		a.Log.Error("write snapshot file failed", "path", a.Config.SnapshotPath, "error", err)
	}

	if a.SnapshotCache != nil {
		if err := a.SnapshotCache.SaveSnapshot(ctx, snap); err != nil {
			a.Log.Warn("publish snapshot to Redis failed", "error", err)
		}
	}
}

// Cleanup performs graceful shutdown of all components
func (a *AppContext) Cleanup(ctx context.Context) {
	if a.KafkaConsumer != nil {
		a.Log.Info("closing Kafka consumer")
		if err := a.KafkaConsumer.Close(); err != nil {
			a.Log.Error("error closing Kafka consumer", "error", err)
		}
	}
	if a.KafkaProducer != nil {
		a.Log.Info("closing Kafka producer")
		if err := a.KafkaProducer.Close(); err != nil {
			a.Log.Error("error closing Kafka producer", "error", err)
		}
	}
	if a.SnapshotCache != nil {
		if err := a.SnapshotCache.Close(); err != nil {
			a.Log.Error("error closing Redis client", "error", err)
		}
	}
	if a.EventLog != nil {
		if err := a.EventLog.Close(); err != nil {
			a.Log.Error("error closing event log", "error", err)
		}
	}
	a.Log.Info("all resources cleaned up")
}

// halfLives maps the decay configuration onto per-kind half-lives.
func halfLives(cfg config.DecayConfig) map[model.EventKind]float64 {
	return map[model.EventKind]float64{
		model.KindPriceEvent: cfg.PriceEventDays,
		model.KindNews:       cfg.NewsDays,
		model.KindFiling:     cfg.FilingDays,
		model.KindMacro:      cfg.MacroDays,
		model.KindSocial:     cfg.SocialDays,
	}
}

// recoverGraph rebuilds in-memory graph state by replaying the event log.
// Node and edge records are applied verbatim so a restart converges on the
// exact pre-shutdown state; malformed rows are skipped with a warning.
func recoverGraph(ctx context.Context, log *slog.Logger, eventLog repository.EventLog, graph *service.CausalGraph) error {
	type edgePayload struct {
		Src      string  `json:"src"`
		Dst      string  `json:"dst"`
		Weight   float64 `json:"weight"`
		Polarity int     `json:"polarity"`
	}
	return eventLog.Scan(ctx, func(rec *model.LogRecord) error {
		switch rec.Action {
		case model.ActionAddNode:
			var node model.Node
			if err := json.Unmarshal(rec.Payload, &node); err != nil || node.ID == "" {
				log.Warn("skipping malformed node record", "id", rec.ID)
				return nil
			}
			graph.UpsertNode(node.Event())
		case model.ActionAddOrUpdateEdge:
			var edge edgePayload
			if err := json.Unmarshal(rec.Payload, &edge); err != nil || edge.Src == "" || edge.Dst == "" {
				log.Warn("skipping malformed edge record", "id", rec.ID)
				return nil
			}
			graph.UpsertEdge(edge.Src, edge.Dst, edge.Weight, edge.Polarity, model.EdgeEvidence{EventID: edge.Dst})
		case model.ActionPruneNode:
			var node model.Node
			if err := json.Unmarshal(rec.Payload, &node); err == nil && node.ID != "" {
				graph.RemoveNode(node.ID)
			}
		case model.ActionPruneEdge:
			var edge edgePayload
			if err := json.Unmarshal(rec.Payload, &edge); err == nil && edge.Src != "" {
				graph.RemoveEdge(edge.Src, edge.Dst)
			}
		}
		return nil
	})
}
