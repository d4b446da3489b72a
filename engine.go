package goSentinel

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/MrEthical07/goSentinel/credstore"
	internalaudit "github.com/MrEthical07/goSentinel/internal/audit"
	"github.com/MrEthical07/goSentinel/internal/lockout"
	"github.com/MrEthical07/goSentinel/session"
)

// Engine is the credential-and-session authority. It verifies passwords
// against the credential store, enforces account lockout and owns the
// session table.
//
// Engine values are created by [Builder.Build] and are safe for concurrent
// use until [Engine.Close].
type Engine struct {
	config       Config
	store        credstore.Store
	hasher       Hasher
	policy       *lockout.Policy
	sessions     session.Table
	ownsSessions bool
	clock        clockwork.Clock
	logger       *zap.Logger
	audit        *internalaudit.Dispatcher
	metrics      *Metrics
	closed       atomic.Bool
}

// Close stops the audit dispatcher (draining queued events) and, when the
// Engine created it, the session table. Calling Close more than once is safe.
func (e *Engine) Close() error {
	if e == nil || !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	if e.audit != nil {
		e.audit.Close()
	}
	var err error
	if e.ownsSessions && e.sessions != nil {
		err = e.sessions.Close()
	}
	_ = e.logger.Sync()
	return err
}

// Config returns a copy of the configuration the Engine was built with.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return e.config
}

// AuditDropped returns the number of audit events dropped because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the engine counters. The
// maps are empty when metrics are disabled.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// ActiveSessions returns the number of sessions held by the session table.
// Idle sessions count until they are validated or swept.
func (e *Engine) ActiveSessions() int {
	if e == nil || e.sessions == nil {
		return 0
	}
	return e.sessions.Len()
}

// Health pings the credential store when it supports it. Stores without a
// Ping method are reported available.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if e == nil || e.store == nil {
		return HealthStatus{}
	}

	status := HealthStatus{
		StoreAvailable: true,
		ActiveSessions: e.ActiveSessions(),
	}
	pinger, ok := e.store.(credstore.Pinger)
	if !ok {
		return status
	}

	start := e.clock.Now()
	err := pinger.Ping(ctx)
	status.StoreLatency = e.clock.Since(start)
	if err != nil {
		status.StoreAvailable = false
		e.logger.Warn("credential store ping failed", zap.Error(err))
	}
	return status
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() error {
	if e == nil || e.store == nil || e.sessions == nil || e.hasher == nil || e.policy == nil {
		return ErrEngineNotReady
	}
	if e.closed.Load() {
		return ErrEngineNotReady
	}
	return nil
}

// applyUpdate persists a side effect. A failure never changes the outcome
// already decided for the caller; it is logged, counted and audited because
// lockout state may now disagree with reality.
func (e *Engine) applyUpdate(ctx context.Context, username, effect string, changes credstore.Changes) bool {
	err := e.store.ApplyUpdate(ctx, username, changes)
	if err == nil {
		return true
	}

	e.metricInc(MetricStoreUpdateFailure)
	e.logger.Warn("credential update failed",
		zap.String("username", username),
		zap.String("effect", effect),
		zap.Error(err),
	)
	e.emitAudit(ctx, auditEventStoreUpdateLost, false, username, "", ReasonNone, storeErr(err), func() map[string]string {
		return map[string]string{"effect": effect}
	})
	return false
}

func isStoreMiss(err error) bool {
	return errors.Is(err, credstore.ErrNotFound)
}
