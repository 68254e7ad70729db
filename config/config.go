package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DecayConfig holds per-kind edge half-lives in days.
type DecayConfig struct {
	PriceEventDays float64
	NewsDays       float64
	FilingDays     float64
	MacroDays      float64
	SocialDays     float64
}

// GatingConfig bounds candidate-pair generation.
type GatingConfig struct {
	MaxCandidateEdgesPerNode     int
	MaxTimeLagMinutes            int
	MaxBarLagMinutes             int
	AllowCrossTickerWithinSector bool
	AllowSupplyChainLinks        bool
	AllowMacroToSectorOrTicker   bool
}

// WeightConfig controls how judge confidence blends into edge weights.
type WeightConfig struct {
	AlphaBlend         float64
	InitialEdgeWeight  float64
	MinConfidenceToAdd float64
}

// DebateConfig controls the multi-expert consensus procedure.
type DebateConfig struct {
	MaxRounds int
	Model     string
}

// HorizonConfig holds alert thresholds and the alert horizon.
type HorizonConfig struct {
	Minutes        int
	SpreadSigmaK   float64
	MinProbability float64
}

// BudgetConfig caps daily consensus spend.
type BudgetConfig struct {
	DailyUSDCap   float64
	EstUSDPerEval float64
}

// RTHConfig gates costly evaluation to regular trading hours.
type RTHConfig struct {
	Enforce           bool
	RequirePriceEvent bool
}

// LLMConfig points at an OpenAI-compatible completion endpoint.
type LLMConfig struct {
	BaseURL        string
	APIKey         string
	Model          string
	TimeoutSeconds int
}

// Config holds all app configuration loaded from the environment.
type Config struct {
	Env      string
	HTTPPort string

	// Persistence
	EventLogPath string
	SnapshotPath string
	AlertsPath   string
	AlertConsole bool
	UniversePath string

	// Redis (snapshot cache, optional)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// ClickHouse (event archive, optional)
	ClickhouseAddr     string
	ClickhouseUsername string
	ClickhousePassword string
	ClickhouseTimeout  int

	// Kafka (event bus, optional)
	KafkaBrokers       []string
	KafkaTopic         string
	KafkaConsumerGroup string
	KafkaBatchSize     int
	KafkaBatchTimeout  int // milliseconds

	// Pipeline
	PollSeconds     int
	EventBufferSize int

	LLM     LLMConfig
	Decay   DecayConfig
	Gating  GatingConfig
	Weights WeightConfig
	Debate  DebateConfig
	Horizon HorizonConfig
	Budget  BudgetConfig
	RTH     RTHConfig
}

// LoadConfig loads configuration from environment variables, with an
// optional .env file. Missing variables fall back to defaults.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	cfg := &Config{
		Env:      getEnv("APP_ENV", "local"),
		HTTPPort: getEnv("HTTP_PORT", "8080"),

		EventLogPath: getEnv("EVENT_LOG_PATH", "data/events.sqlite"),
		SnapshotPath: getEnv("SNAPSHOT_PATH", "data/latest_graph.json"),
		AlertsPath:   getEnv("ALERTS_JSONL_PATH", "data/alerts.jsonl"),
		AlertConsole: getEnvAsBool("ALERTS_CONSOLE", true),
		UniversePath: getEnv("UNIVERSE_PATH", "universe.yaml"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		ClickhouseAddr:     getEnv("CLICKHOUSE_ADDR", ""),
		ClickhouseUsername: getEnv("CLICKHOUSE_USERNAME", ""),
		ClickhousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),
		ClickhouseTimeout:  getEnvAsInt("CLICKHOUSE_TIMEOUT", 10),

		KafkaBrokers:       getEnvAsSlice("KAFKA_BROKERS", nil, ","),
		KafkaTopic:         getEnv("KAFKA_TOPIC", "market-events"),
		KafkaConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "causalgraph-group"),
		KafkaBatchSize:     getEnvAsInt("KAFKA_BATCH_SIZE", 500),
		KafkaBatchTimeout:  getEnvAsInt("KAFKA_BATCH_TIMEOUT", 3000),

		PollSeconds:     getEnvAsInt("POLL_SECONDS", 300),
		EventBufferSize: getEnvAsInt("EVENT_BUFFER_SIZE", 10000),

		LLM: LLMConfig{
			BaseURL:        getEnv("LLM_BASE_URL", "http://localhost:1234/v1"),
			APIKey:         getEnv("LLM_API_KEY", ""),
			Model:          getEnv("LLM_MODEL", "gemini-2.5-flash-lite"),
			TimeoutSeconds: getEnvAsInt("LLM_TIMEOUT_SECONDS", 60),
		},
		Decay: DecayConfig{
			PriceEventDays: getEnvAsFloat("DECAY_PRICE_EVENT_DAYS", 1.0),
			NewsDays:       getEnvAsFloat("DECAY_NEWS_DAYS", 5.0),
			FilingDays:     getEnvAsFloat("DECAY_FILING_DAYS", 10.0),
			MacroDays:      getEnvAsFloat("DECAY_MACRO_DAYS", 45.0),
			SocialDays:     getEnvAsFloat("DECAY_SOCIAL_DAYS", 2.0),
		},
		Gating: GatingConfig{
			MaxCandidateEdgesPerNode:     getEnvAsInt("GATING_MAX_CANDIDATES", 10),
			MaxTimeLagMinutes:            getEnvAsInt("GATING_MAX_TIME_LAG_MIN", 24*60),
			MaxBarLagMinutes:             getEnvAsInt("GATING_MAX_BAR_LAG_MIN", 90),
			AllowCrossTickerWithinSector: getEnvAsBool("GATING_ALLOW_SECTOR_LINKS", true),
			AllowSupplyChainLinks:        getEnvAsBool("GATING_ALLOW_SUPPLY_CHAIN_LINKS", true),
			AllowMacroToSectorOrTicker:   getEnvAsBool("GATING_ALLOW_MACRO_LINKS", true),
		},
		Weights: WeightConfig{
			AlphaBlend:         getEnvAsFloat("WEIGHT_ALPHA_BLEND", 0.7),
			InitialEdgeWeight:  getEnvAsFloat("WEIGHT_INITIAL_EDGE", 0.55),
			MinConfidenceToAdd: getEnvAsFloat("WEIGHT_MIN_CONFIDENCE", 0.50),
		},
		Debate: DebateConfig{
			MaxRounds: getEnvAsInt("DEBATE_MAX_ROUNDS", 1),
			Model:     getEnv("DEBATE_MODEL", "gemini-2.5-flash-lite"),
		},
		Horizon: HorizonConfig{
			Minutes:        getEnvAsInt("HORIZON_MINUTES", 90),
			SpreadSigmaK:   getEnvAsFloat("HORIZON_SPREAD_SIGMA_K", 1.0),
			MinProbability: getEnvAsFloat("HORIZON_MIN_PROBABILITY", 0.65),
		},
		Budget: BudgetConfig{
			DailyUSDCap:   getEnvAsFloat("BUDGET_DAILY_USD_CAP", 1.0),
			EstUSDPerEval: getEnvAsFloat("BUDGET_EST_USD_PER_EVAL", 0.0005),
		},
		RTH: RTHConfig{
			Enforce:           getEnvAsBool("RTH_ENFORCE", true),
			RequirePriceEvent: getEnvAsBool("RTH_REQUIRE_PRICE_EVENT", true),
		},
	}

	return cfg
}

// Helper functions for parsing environment variables
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	valStr := getEnv(key, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}
	return defaultVal
}

func getEnvAsSlice(key string, defaultVal []string, sep string) []string {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultVal
	}
	return strings.Split(valStr, sep)
}
