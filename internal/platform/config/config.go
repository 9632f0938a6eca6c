package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration for the quality engine.
// Stores fall back to in-memory implementations when their URLs are empty,
// which keeps local development and tests free of external services.
type Server struct {
	Addr string

	// DatabaseURL enables the Postgres-backed rule/issue/alert/catalog
	// stores when set.
	DatabaseURL string

	// RedisURL enables the Redis-backed score sample window when set.
	RedisURL string

	// KafkaBrokers enables the Kafka audit publisher when non-empty.
	KafkaBrokers []string
	AuditTopic   string

	// MonitorInterval is the real-time monitor tick period.
	MonitorInterval time.Duration

	// SampleTimeout bounds every call that reaches an external data source.
	SampleTimeout time.Duration

	// ScanWorkers bounds concurrently running background scan passes.
	ScanWorkers int

	LogLevel string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:            envOr("DATAGUARD_ADDR", ":8080"),
		DatabaseURL:     os.Getenv("DATAGUARD_DATABASE_URL"),
		RedisURL:        os.Getenv("DATAGUARD_REDIS_URL"),
		KafkaBrokers:    splitList(os.Getenv("DATAGUARD_KAFKA_BROKERS")),
		AuditTopic:      envOr("DATAGUARD_AUDIT_TOPIC", "dataguard.issue-audit"),
		MonitorInterval: envDuration("DATAGUARD_MONITOR_INTERVAL", 30*time.Second),
		SampleTimeout:   envDuration("DATAGUARD_SAMPLE_TIMEOUT", 10*time.Second),
		ScanWorkers:     envInt("DATAGUARD_SCAN_WORKERS", 4),
		LogLevel:        envOr("DATAGUARD_LOG_LEVEL", "info"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
