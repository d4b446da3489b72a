package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	goSentinel "github.com/MrEthical07/goSentinel"
)

const envPrefix = "SENTINEL_"

// daemonConfig is the on-disk shape of sentineld.toml.
type daemonConfig struct {
	Listen          string        `toml:"listen"`
	ShutdownSeconds int           `toml:"shutdown_timeout_seconds"`
	Log             logConfig     `toml:"log"`
	Store           storeConfig   `toml:"store"`
	Auth            authConfig    `toml:"auth"`
	Audit           auditConfig   `toml:"audit"`
	Metrics         metricsConfig `toml:"metrics"`
}

type logConfig struct {
	Level string `toml:"level"`
	Dev   bool   `toml:"dev"`
}

type storeConfig struct {
	// Backend is one of memory, redis, postgres, sqlite.
	Backend       string `toml:"backend"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	RedisPrefix   string `toml:"redis_prefix"`
	DSN           string `toml:"dsn"`
	TimeoutMillis int    `toml:"timeout_ms"`
}

type authConfig struct {
	LoginFailureThreshold  int    `toml:"login_failure_threshold"`
	SessionLifespanSeconds int    `toml:"session_lifespan_seconds"`
	LockoutDurationSeconds int    `toml:"lockout_duration_seconds"`
	TokenBytes             int    `toml:"token_bytes"`
	SweepIntervalSeconds   int    `toml:"sweep_interval_seconds"`
	DigestAlgorithm        string `toml:"digest_algorithm"`
}

type auditConfig struct {
	Enabled bool `toml:"enabled"`
	// Sink is "log" (through the daemon logger) or "stdout" (JSON lines).
	Sink       string `toml:"sink"`
	BufferSize int    `toml:"buffer_size"`
}

type metricsConfig struct {
	Enabled           bool `toml:"enabled"`
	LatencyHistograms bool `toml:"latency_histograms"`
}

func defaultDaemonConfig() daemonConfig {
	lib := goSentinel.DefaultConfig()
	return daemonConfig{
		Listen:          "127.0.0.1:8430",
		ShutdownSeconds: 5,
		Log:             logConfig{Level: "info"},
		Store: storeConfig{
			Backend:       "memory",
			RedisAddr:     "127.0.0.1:6379",
			RedisPrefix:   "acr",
			TimeoutMillis: 2000,
		},
		Auth: authConfig{
			LoginFailureThreshold:  lib.Lockout.Threshold,
			SessionLifespanSeconds: int(lib.Session.IdleTimeout / time.Second),
			TokenBytes:             lib.Session.TokenBytes,
			SweepIntervalSeconds:   int(lib.Session.SweepInterval / time.Second),
			DigestAlgorithm:        lib.Password.Algorithm,
		},
		Audit: auditConfig{
			Sink:       "log",
			BufferSize: lib.Audit.BufferSize,
		},
		Metrics: metricsConfig{Enabled: true},
	}
}

// loadConfig reads path (optional) over the defaults and then applies
// SENTINEL_* overrides from lookup.
func loadConfig(path string, lookup func(string) (string, bool)) (daemonConfig, error) {
	cfg := defaultDaemonConfig()

	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return daemonConfig{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}
			sort.Strings(keys)
			return daemonConfig{}, fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
		}
	}

	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return daemonConfig{}, err
	}
	if err := cfg.validate(); err != nil {
		return daemonConfig{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *daemonConfig, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok {
			*dst = v
		}
	}
	var firstErr error
	num := func(name string, dst *int) {
		v, ok := lookup(envPrefix + name)
		if !ok {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("%s%s: %w", envPrefix, name, err)
			}
			return
		}
		*dst = n
	}
	boolean := func(name string, dst *bool) {
		v, ok := lookup(envPrefix + name)
		if !ok {
			return
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("%s%s: %w", envPrefix, name, err)
			}
			return
		}
		*dst = b
	}

	str("LISTEN", &cfg.Listen)
	num("SHUTDOWN_TIMEOUT_SECONDS", &cfg.ShutdownSeconds)
	str("LOG_LEVEL", &cfg.Log.Level)
	boolean("LOG_DEV", &cfg.Log.Dev)

	str("STORE_BACKEND", &cfg.Store.Backend)
	str("REDIS_ADDR", &cfg.Store.RedisAddr)
	str("REDIS_PASSWORD", &cfg.Store.RedisPassword)
	num("REDIS_DB", &cfg.Store.RedisDB)
	str("REDIS_PREFIX", &cfg.Store.RedisPrefix)
	str("SQL_DSN", &cfg.Store.DSN)
	num("STORE_TIMEOUT_MS", &cfg.Store.TimeoutMillis)

	num("LOGIN_FAILURE_THRESHOLD", &cfg.Auth.LoginFailureThreshold)
	num("SESSION_LIFESPAN_SECONDS", &cfg.Auth.SessionLifespanSeconds)
	num("LOCKOUT_DURATION_SECONDS", &cfg.Auth.LockoutDurationSeconds)
	num("TOKEN_BYTES", &cfg.Auth.TokenBytes)
	num("SWEEP_INTERVAL_SECONDS", &cfg.Auth.SweepIntervalSeconds)
	str("DIGEST_ALGORITHM", &cfg.Auth.DigestAlgorithm)

	boolean("AUDIT_ENABLED", &cfg.Audit.Enabled)
	str("AUDIT_SINK", &cfg.Audit.Sink)
	num("AUDIT_BUFFER_SIZE", &cfg.Audit.BufferSize)

	boolean("METRICS_ENABLED", &cfg.Metrics.Enabled)
	boolean("METRICS_LATENCY_HISTOGRAMS", &cfg.Metrics.LatencyHistograms)

	return firstErr
}

func (c daemonConfig) validate() error {
	switch c.Store.Backend {
	case "memory", "redis", "postgres", "sqlite":
	default:
		return fmt.Errorf("store.backend must be memory, redis, postgres or sqlite, got %q", c.Store.Backend)
	}
	if (c.Store.Backend == "postgres" || c.Store.Backend == "sqlite") && c.Store.DSN == "" {
		return fmt.Errorf("store.dsn is required for the %s backend", c.Store.Backend)
	}
	switch c.Audit.Sink {
	case "log", "stdout":
	default:
		return fmt.Errorf("audit.sink must be log or stdout, got %q", c.Audit.Sink)
	}
	if c.Listen == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	ec := c.engineConfig()
	return ec.Validate()
}

// engineConfig maps the daemon settings onto the library config. The session
// lifespan drives both durations unless a lockout duration is set explicitly.
func (c daemonConfig) engineConfig() goSentinel.Config {
	cfg := goSentinel.DefaultConfig()
	cfg.Lockout.Threshold = c.Auth.LoginFailureThreshold
	cfg = cfg.WithSessionLifespan(time.Duration(c.Auth.SessionLifespanSeconds) * time.Second)
	if c.Auth.LockoutDurationSeconds > 0 {
		cfg.Lockout.Duration = time.Duration(c.Auth.LockoutDurationSeconds) * time.Second
	}
	cfg.Session.TokenBytes = c.Auth.TokenBytes
	cfg.Session.SweepInterval = time.Duration(c.Auth.SweepIntervalSeconds) * time.Second
	cfg.Password.Algorithm = c.Auth.DigestAlgorithm

	cfg.Audit.Enabled = c.Audit.Enabled
	cfg.Audit.BufferSize = c.Audit.BufferSize

	cfg.Metrics.Enabled = c.Metrics.Enabled
	cfg.Metrics.EnableLatencyHistograms = c.Metrics.Enabled && c.Metrics.LatencyHistograms
	return cfg
}

func (c daemonConfig) storeTimeout() time.Duration {
	return time.Duration(c.Store.TimeoutMillis) * time.Millisecond
}

func (c daemonConfig) shutdownTimeout() time.Duration {
	if c.ShutdownSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.ShutdownSeconds) * time.Second
}
