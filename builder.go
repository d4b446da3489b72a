package goSentinel

import (
	"errors"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/MrEthical07/goSentinel/credstore"
	internalaudit "github.com/MrEthical07/goSentinel/internal/audit"
	"github.com/MrEthical07/goSentinel/internal/lockout"
	"github.com/MrEthical07/goSentinel/password"
	"github.com/MrEthical07/goSentinel/session"
)

// Builder assembles an [Engine]. A Builder is single-use: Build may succeed
// once.
type Builder struct {
	config Config

	store     credstore.Store
	hasher    Hasher
	sessions  session.Table
	clock     clockwork.Clock
	logger    *zap.Logger
	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithStore sets the credential store. Required.
func (b *Builder) WithStore(store credstore.Store) *Builder {
	b.store = store
	return b
}

// WithHasher overrides the digest implementation selected by
// Config.Password.Algorithm.
func (b *Builder) WithHasher(h Hasher) *Builder {
	b.hasher = h
	return b
}

// WithSessionTable supplies an externally owned session table. The Engine
// will not close it, and Config.Session does not apply to it.
func (b *Builder) WithSessionTable(t session.Table) *Builder {
	b.sessions = t
	return b
}

// WithClock sets the time source used for lockout and, when the Engine owns
// it, the session table.
func (b *Builder) WithClock(c clockwork.Clock) *Builder {
	b.clock = c
	return b
}

// WithLogger sets the logger for infrastructure failures. Defaults to a no-op
// logger.
func (b *Builder) WithLogger(l *zap.Logger) *Builder {
	b.logger = l
	return b
}

// WithAuditSink sets the audit destination. Audit must also be enabled in
// Config.Audit.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles latency histograms.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and constructs the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.store == nil {
		return nil, errors.New("credential store required")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	clock := b.clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// -------- LOCKOUT POLICY --------
	policy, err := lockout.New(lockout.Config{
		Threshold: cfg.Lockout.Threshold,
		Duration:  cfg.Lockout.Duration,
	})
	if err != nil {
		return nil, err
	}

	// -------- HASHER --------
	hasher := b.hasher
	if hasher == nil {
		ph, err := password.New(password.Config{Algorithm: cfg.Password.Algorithm})
		if err != nil {
			return nil, err
		}
		hasher = ph
	}

	// -------- SESSION TABLE --------
	sessions := b.sessions
	ownsSessions := false
	if sessions == nil {
		table, err := session.NewMemoryTable(session.Config{
			IdleTimeout:   cfg.Session.IdleTimeout,
			TokenBytes:    cfg.Session.TokenBytes,
			Shards:        cfg.Session.Shards,
			SweepInterval: cfg.Session.SweepInterval,
			Clock:         clock,
		})
		if err != nil {
			return nil, err
		}
		sessions = table
		ownsSessions = true
	}

	engine := &Engine{
		config:       cfg,
		store:        b.store,
		hasher:       hasher,
		policy:       policy,
		sessions:     sessions,
		ownsSessions: ownsSessions,
		clock:        clock,
		logger:       logger.Named("sentinel"),
		metrics:      NewMetrics(cfg.Metrics),
	}
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		Clock:      clock,
		Logger:     engine.logger.Named("audit"),
	}, b.auditSink)

	b.built = true

	return engine, nil
}
