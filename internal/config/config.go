package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Worker    WorkerConfig
	Feed      FeedConfig
	Report    ReportConfig
	RateLimit RateLimitConfig
	Stream    StreamConfig
	DB        DatabaseConfig
	Logging   LoggingConfig
	Seed      SeedConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

type WorkerConfig struct {
	Count      int
	BufferSize int
}

// FeedConfig points at an external GeoJSON FeatureCollection of hazard
// points polled into the store.
type FeedConfig struct {
	Enabled      bool
	URL          string
	PollInterval time.Duration
	Timeout      time.Duration
}

type ReportConfig struct {
	SubmitDelay   time.Duration // simulated network latency on submission
	DraftIdleTTL  time.Duration // untouched drafts are dropped after this
	SweepInterval time.Duration
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

type StreamConfig struct {
	SubscriberBuffer int
}

type DatabaseConfig struct {
	Path string
}

type LoggingConfig struct {
	Level  string
	Format string // json or text
}

type SeedConfig struct {
	Enabled bool // load the sample hazards and stations on start
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "localhost"),
			Port:           getEnvInt("SERVER_PORT", 8080),
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Worker: WorkerConfig{
			Count:      getEnvInt("WORKER_COUNT", 2),
			BufferSize: getEnvInt("WORKER_BUFFER_SIZE", 20),
		},
		Feed: FeedConfig{
			Enabled:      getEnvBool("FEED_ENABLED", false),
			URL:          getEnv("FEED_URL", ""),
			PollInterval: getEnvDuration("FEED_POLL_INTERVAL", 5*time.Minute),
			Timeout:      getEnvDuration("FEED_TIMEOUT", 15*time.Second),
		},
		Report: ReportConfig{
			SubmitDelay:   getEnvDuration("REPORT_SUBMIT_DELAY", 1500*time.Millisecond),
			DraftIdleTTL:  getEnvDuration("REPORT_DRAFT_IDLE_TTL", 30*time.Minute),
			SweepInterval: getEnvDuration("REPORT_DRAFT_SWEEP_INTERVAL", time.Minute),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvFloat("RATE_LIMIT_RPS", 20),
			Burst:             getEnvInt("RATE_LIMIT_BURST", 40),
		},
		Stream: StreamConfig{
			SubscriberBuffer: getEnvInt("STREAM_SUBSCRIBER_BUFFER", 64),
		},
		DB: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/coastwatch.db"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Seed: SeedConfig{
			Enabled: getEnvBool("SEED_FIXTURES", true),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Worker.Count < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}
	if c.Worker.BufferSize < 0 {
		return fmt.Errorf("worker buffer size must not be negative")
	}

	if c.Feed.Enabled {
		if c.Feed.URL == "" {
			return fmt.Errorf("FEED_URL is required when the feed is enabled")
		}
		if c.Feed.PollInterval < time.Minute {
			return fmt.Errorf("feed poll interval must be at least 1 minute")
		}
	}

	if c.Report.SubmitDelay < 0 || c.Report.SubmitDelay > time.Minute {
		return fmt.Errorf("report submit delay must be between 0 and 1m, got %s", c.Report.SubmitDelay)
	}
	if c.Report.DraftIdleTTL <= c.Report.SubmitDelay {
		return fmt.Errorf("draft idle ttl must exceed the submit delay, got %s", c.Report.DraftIdleTTL)
	}
	if c.Report.SweepInterval <= 0 {
		return fmt.Errorf("draft sweep interval must be positive")
	}

	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst < 1 {
		return fmt.Errorf("rate limit must allow at least one request")
	}

	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
