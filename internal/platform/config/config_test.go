package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.RedisURL)
	assert.Nil(t, cfg.KafkaBrokers)
	assert.Equal(t, "dataguard.issue-audit", cfg.AuditTopic)
	assert.Equal(t, 30*time.Second, cfg.MonitorInterval)
	assert.Equal(t, 10*time.Second, cfg.SampleTimeout)
	assert.Equal(t, 4, cfg.ScanWorkers)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("DATAGUARD_ADDR", ":9090")
	t.Setenv("DATAGUARD_DATABASE_URL", "postgres://localhost/dataguard")
	t.Setenv("DATAGUARD_KAFKA_BROKERS", "broker-1:9092, broker-2:9092 ,")
	t.Setenv("DATAGUARD_MONITOR_INTERVAL", "5s")
	t.Setenv("DATAGUARD_SCAN_WORKERS", "8")

	cfg := FromEnv()

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "postgres://localhost/dataguard", cfg.DatabaseURL)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 5*time.Second, cfg.MonitorInterval)
	assert.Equal(t, 8, cfg.ScanWorkers)
}

func TestFromEnvRejectsInvalidValues(t *testing.T) {
	t.Setenv("DATAGUARD_MONITOR_INTERVAL", "soon")
	t.Setenv("DATAGUARD_SAMPLE_TIMEOUT", "-1s")
	t.Setenv("DATAGUARD_SCAN_WORKERS", "0")

	cfg := FromEnv()

	assert.Equal(t, 30*time.Second, cfg.MonitorInterval)
	assert.Equal(t, 10*time.Second, cfg.SampleTimeout)
	assert.Equal(t, 4, cfg.ScanWorkers)
}
