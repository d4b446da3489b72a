package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sentineld.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("", envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Backend)
	ec := cfg.engineConfig()
	assert.Equal(t, 5, ec.Lockout.Threshold)
	assert.Equal(t, 600*time.Second, ec.Lockout.Duration)
	assert.Equal(t, 600*time.Second, ec.Session.IdleTimeout)
	assert.Equal(t, "sha256", ec.Password.Algorithm)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
listen = "0.0.0.0:9000"

[store]
backend = "redis"
redis_addr = "redis:6379"
redis_prefix = "creds"
timeout_ms = 500

[auth]
login_failure_threshold = 3
session_lifespan_seconds = 120
digest_algorithm = "blake2b-256"

[audit]
enabled = true
sink = "stdout"
`)

	cfg, err := loadConfig(path, envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Listen)
	assert.Equal(t, "redis:6379", cfg.Store.RedisAddr)
	assert.Equal(t, 500*time.Millisecond, cfg.storeTimeout())

	ec := cfg.engineConfig()
	assert.Equal(t, 3, ec.Lockout.Threshold)
	assert.Equal(t, 120*time.Second, ec.Lockout.Duration)
	assert.Equal(t, 120*time.Second, ec.Session.IdleTimeout)
	assert.Equal(t, "blake2b-256", ec.Password.Algorithm)
	assert.True(t, ec.Audit.Enabled)
}

func TestLockoutDurationOverridesSharedLifespan(t *testing.T) {
	path := writeConfig(t, `
[auth]
session_lifespan_seconds = 300
lockout_duration_seconds = 900
`)

	cfg, err := loadConfig(path, envMap(nil))
	require.NoError(t, err)

	ec := cfg.engineConfig()
	assert.Equal(t, 900*time.Second, ec.Lockout.Duration)
	assert.Equal(t, 300*time.Second, ec.Session.IdleTimeout)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
[auth]
login_failure_threshold = 3
`)

	cfg, err := loadConfig(path, envMap(map[string]string{
		"SENTINEL_LOGIN_FAILURE_THRESHOLD": "7",
		"SENTINEL_STORE_BACKEND":           "sqlite",
		"SENTINEL_SQL_DSN":                 "file:creds.db",
		"SENTINEL_METRICS_ENABLED":         "false",
	}))
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Auth.LoginFailureThreshold)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, "file:creds.db", cfg.Store.DSN)
	assert.False(t, cfg.engineConfig().Metrics.Enabled)
}

func TestLoadConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
	}{
		{name: "unknown key", file: "bogus = 1\n"},
		{name: "bad backend", env: map[string]string{"SENTINEL_STORE_BACKEND": "mongo"}},
		{name: "sql without dsn", env: map[string]string{"SENTINEL_STORE_BACKEND": "postgres"}},
		{name: "bad number", env: map[string]string{"SENTINEL_REDIS_DB": "zero"}},
		{name: "bad bool", env: map[string]string{"SENTINEL_AUDIT_ENABLED": "maybe"}},
		{name: "bad audit sink", env: map[string]string{"SENTINEL_AUDIT_SINK": "kafka"}},
		{name: "zero threshold", env: map[string]string{"SENTINEL_LOGIN_FAILURE_THRESHOLD": "0"}},
		{name: "bad algorithm", env: map[string]string{"SENTINEL_DIGEST_ALGORITHM": "md5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := ""
			if tt.file != "" {
				path = writeConfig(t, tt.file)
			}
			_, err := loadConfig(path, envMap(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "absent.toml"), envMap(nil))
	assert.Error(t, err)
}
