package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Weather provider.
	ProviderBaseURL string
	ProviderAPIKey  string
	ProviderTimeout time.Duration

	// Hosted record store.
	StoreBaseURL string
	StoreAPIKey  string
	StoreTimeout time.Duration

	// Monitoring windows.
	FreshnessWindow time.Duration // reuse snapshots younger than this
	RetentionWindow time.Duration // purge inactive alerts older than this

	// Sweep scheduling and concurrency.
	SweepInterval      time.Duration // 0 disables the periodic scheduler
	SweepWorkers       int
	DestinationTimeout time.Duration // per-destination budget within a sweep

	// Realtime fanout.
	FanoutBuffer      int
	HeartbeatInterval time.Duration

	// Optional Kafka event mirror.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file in the working directory is honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	providerTimeout, err := parsePositiveDuration("PROVIDER_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	storeTimeout, err := parsePositiveDuration("STORE_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	freshness, err := parsePositiveDuration("FRESHNESS_WINDOW", "6h")
	if err != nil {
		return nil, err
	}
	retention, err := parsePositiveDuration("RETENTION_WINDOW", "1h")
	if err != nil {
		return nil, err
	}
	destTimeout, err := parsePositiveDuration("DESTINATION_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	heartbeat, err := parsePositiveDuration("HEARTBEAT_INTERVAL", "30s")
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := parsePositiveDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	sweepInterval, err := time.ParseDuration(envOrDefault("SWEEP_INTERVAL", "15m"))
	if err != nil || sweepInterval < 0 {
		return nil, errors.New("invalid SWEEP_INTERVAL")
	}

	sweepWorkers, err := parseIntInRange("SWEEP_WORKERS", 8, 1, 64)
	if err != nil {
		return nil, err
	}
	fanoutBuffer, err := parseIntInRange("FANOUT_BUFFER", 16, 1, 1024)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ProviderBaseURL: envOrDefault("PROVIDER_BASE_URL", "https://api.openweathermap.org/data/3.0/onecall"),
		ProviderAPIKey:  os.Getenv("PROVIDER_API_KEY"),
		ProviderTimeout: providerTimeout,

		StoreBaseURL: envOrDefault("STORE_BASE_URL", "http://localhost:3000"),
		StoreAPIKey:  os.Getenv("STORE_API_KEY"),
		StoreTimeout: storeTimeout,

		FreshnessWindow: freshness,
		RetentionWindow: retention,

		SweepInterval:      sweepInterval,
		SweepWorkers:       sweepWorkers,
		DestinationTimeout: destTimeout,

		FanoutBuffer:      fanoutBuffer,
		HeartbeatInterval: heartbeat,

		KafkaEnabled: os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers: parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "ecowatch-events"),

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.ProviderBaseURL == "" {
		return nil, errors.New("PROVIDER_BASE_URL is required")
	}
	if cfg.StoreBaseURL == "" {
		return nil, errors.New("STORE_BASE_URL is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseIntInRange(key string, def, min, max int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < min || n > max {
		return 0, fmt.Errorf("invalid %s: must be %d-%d", key, min, max)
	}
	return n, nil
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
