package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/porticohq/portico/pkg/observability"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 1024, cfg.Auth.TokenCacheSize)
	assert.Equal(t, "db", cfg.Audit.Sink)
	assert.Equal(t, 90, cfg.Audit.RetentionDays)
	assert.Equal(t, observability.InfoLevel, cfg.Observability.LogLevel)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORTICO_PORT", "9999")
	t.Setenv("PORTICO_LOG_LEVEL", "debug")
	t.Setenv("PORTICO_REDIS_ENABLED", "true")
	t.Setenv("PORTICO_REDIS_ADDR", "redis:6379")
	t.Setenv("PORTICO_TOKEN_CACHE_TTL", "5s")
	t.Setenv("PORTICO_AUDIT_SINK", "both")
	t.Setenv("PORTICO_AUDIT_FILE", "/var/log/portico/audit.ndjson")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 5*time.Second, cfg.Auth.TokenCacheTTL)
	assert.Equal(t, "both", cfg.Audit.Sink)
}

func TestValidateRejectsPortClash(t *testing.T) {
	t.Setenv("PORTICO_PORT", "9090")
	t.Setenv("PORTICO_HEALTH_PORT", "9090")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be different")
}

func TestValidateRejectsBadAuditSink(t *testing.T) {
	t.Setenv("PORTICO_AUDIT_SINK", "syslog")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid audit sink")
}

func TestValidateRequiresOTelEndpoint(t *testing.T) {
	t.Setenv("PORTICO_OTEL_ENABLED", "true")
	t.Setenv("PORTICO_OTEL_ENDPOINT", "")

	// Empty env falls back to the default endpoint, so force the validation
	// path directly.
	cfg, err := LoadConfig()
	require.NoError(t, err)

	cfg.Observability.OTelEndpoint = ""
	require.Error(t, cfg.Validate())
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, observability.DebugLevel, parseLogLevel("debug"))
	assert.Equal(t, observability.WarnLevel, parseLogLevel("WARNING"))
	assert.Equal(t, observability.ErrorLevel, parseLogLevel("error"))
	assert.Equal(t, observability.InfoLevel, parseLogLevel("bogus"))
}
