package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Trade store backends.
const (
	StoreMemory   = "memory"
	StorePebble   = "pebble"
	StorePostgres = "postgres"
)

// Config holds all runtime configuration for the matching engine.
type Config struct {
	Port               int
	LogLevel           string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	ShutdownTimeout    time.Duration
	CompactionInterval time.Duration

	TradeStore  string
	PebbleDir   string
	DatabaseURL string

	SinkMaxBatch     int
	SinkRetryLimit   int
	SinkRetryBackoff time.Duration
	SinkWriteTimeout time.Duration

	KafkaBrokers    []string
	KafkaTopic      string
	TradeWebhookURL string
	WebhookTimeout  time.Duration
	WSEnabled       bool
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("invalid PORT: %d, must be between 1 and 65535", port)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	readTimeout, err := getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := getDuration("WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}

	idleTimeout, err := getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	compactionInterval, err := getDuration("COMPACTION_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid COMPACTION_INTERVAL: %w", err)
	}
	if compactionInterval <= 0 {
		return nil, fmt.Errorf("invalid COMPACTION_INTERVAL: must be positive")
	}

	tradeStore := getStr("TRADE_STORE", StoreMemory)
	pebbleDir := getStr("PEBBLE_DIR", "./data/trades")
	databaseURL := getStr("DATABASE_URL", "")
	switch tradeStore {
	case StoreMemory, StorePebble:
	case StorePostgres:
		if databaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when TRADE_STORE=postgres")
		}
	default:
		return nil, fmt.Errorf("invalid TRADE_STORE: %q, must be one of: memory, pebble, postgres", tradeStore)
	}

	sinkMaxBatch, err := getInt("SINK_MAX_BATCH", 500)
	if err != nil {
		return nil, fmt.Errorf("invalid SINK_MAX_BATCH: %w", err)
	}
	if sinkMaxBatch < 1 {
		return nil, fmt.Errorf("invalid SINK_MAX_BATCH: must be at least 1")
	}

	sinkRetryLimit, err := getInt("SINK_RETRY_LIMIT", 3)
	if err != nil {
		return nil, fmt.Errorf("invalid SINK_RETRY_LIMIT: %w", err)
	}
	if sinkRetryLimit < 0 {
		return nil, fmt.Errorf("invalid SINK_RETRY_LIMIT: must not be negative")
	}

	sinkRetryBackoff, err := getDuration("SINK_RETRY_BACKOFF", 200*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("invalid SINK_RETRY_BACKOFF: %w", err)
	}

	sinkWriteTimeout, err := getDuration("SINK_WRITE_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SINK_WRITE_TIMEOUT: %w", err)
	}

	webhookTimeout, err := getDuration("WEBHOOK_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WEBHOOK_TIMEOUT: %w", err)
	}

	wsEnabled, err := getBool("WS_ENABLED", true)
	if err != nil {
		return nil, fmt.Errorf("invalid WS_ENABLED: %w", err)
	}

	return &Config{
		Port:               port,
		LogLevel:           logLevel,
		ReadTimeout:        readTimeout,
		WriteTimeout:       writeTimeout,
		IdleTimeout:        idleTimeout,
		ShutdownTimeout:    shutdownTimeout,
		CompactionInterval: compactionInterval,
		TradeStore:         tradeStore,
		PebbleDir:          pebbleDir,
		DatabaseURL:        databaseURL,
		SinkMaxBatch:       sinkMaxBatch,
		SinkRetryLimit:     sinkRetryLimit,
		SinkRetryBackoff:   sinkRetryBackoff,
		SinkWriteTimeout:   sinkWriteTimeout,
		KafkaBrokers:       getList("KAFKA_BROKERS"),
		KafkaTopic:         getStr("KAFKA_TOPIC", "trades"),
		TradeWebhookURL:    getStr("TRADE_WEBHOOK_URL", ""),
		WebhookTimeout:     webhookTimeout,
		WSEnabled:          wsEnabled,
	}, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseBool(v)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

// getList splits a comma-separated value, dropping blank entries.
func getList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
