package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Scorer backends selectable through SCORER_BACKEND.
const (
	ScorerRule    = "rule"
	ScorerLearned = "learned"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Risk layer and scoring.
	LayerSource     string
	LayerTimeout    time.Duration
	ScorerBackend   string
	RiskProfilePath string

	// WRI dataset catalog.
	WRIEnabled   bool
	WRIBaseURL   string
	WRIDatasetID string
	WRITimeout   time.Duration
	WRICacheSize int
	RedisAddr    string
	RedisTTL     time.Duration

	// Per-client API rate limiting.
	RateLimitRPS   float64
	RateLimitBurst int

	// Kafka assessment pipeline.
	PipelineEnabled    bool
	KafkaBrokers       []string
	KafkaSourceTopic   string
	KafkaSinkTopic     string
	KafkaGroupID       string
	BatchSize          int
	BatchFlushInterval time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	layerTimeout, err := parseDuration("LAYER_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	wriTimeout, err := parseDuration("WRI_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	redisTTL, err := parseDuration("REDIS_TTL", "1h")
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	// RATE_LIMIT_RPS <= 0 turns rate limiting off.
	rps, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("RATE_LIMIT_RPS", "20"), 64)
	if err != nil || math.IsNaN(rps) {
		return nil, errors.New("invalid RATE_LIMIT_RPS")
	}
	if rps < 0 {
		rps = 0
	}
	burst, err := strconv.Atoi(sharedcfg.EnvOrDefault("RATE_LIMIT_BURST", "40"))
	if err != nil || burst < 0 {
		return nil, errors.New("invalid RATE_LIMIT_BURST")
	}

	wriEnabled := true
	if v := os.Getenv("WRI_ENABLED"); v != "" {
		wriEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		LayerSource:     os.Getenv("LAYER_SOURCE"),
		LayerTimeout:    layerTimeout,
		ScorerBackend:   strings.ToLower(sharedcfg.EnvOrDefault("SCORER_BACKEND", ScorerRule)),
		RiskProfilePath: os.Getenv("RISK_PROFILE_PATH"),

		WRIEnabled:   wriEnabled,
		WRIBaseURL:   strings.TrimSuffix(sharedcfg.EnvOrDefault("WRI_BASE_URL", "https://datasets.wri.org/api/3/action"), "/"),
		WRIDatasetID: sharedcfg.EnvOrDefault("WRI_DATASET_ID", "gfw-forest-carbon-gross-emissions"),
		WRITimeout:   wriTimeout,
		WRICacheSize: parseCacheSize(),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		RedisTTL:     redisTTL,

		RateLimitRPS:   rps,
		RateLimitBurst: burst,

		PipelineEnabled:    os.Getenv("PIPELINE_ENABLED") == "true",
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "assessment-requests"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "risk-assessments"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "geo-risk-service"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
	}

	if cfg.ScorerBackend != ScorerRule && cfg.ScorerBackend != ScorerLearned {
		return nil, fmt.Errorf("SCORER_BACKEND must be %q or %q, got %q", ScorerRule, ScorerLearned, cfg.ScorerBackend)
	}
	if cfg.PipelineEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaSourceTopic == "" {
			return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required")
		}
	}

	return cfg, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseCacheSize() int {
	if s := os.Getenv("WRI_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 100
}
