package internaldefs

import (
	"context"
	"time"

	goSentinel "github.com/MrEthical07/goSentinel"
)

// Source is the engine surface both exporters read. *goSentinel.Engine
// satisfies it.
type Source interface {
	MetricsSnapshot() goSentinel.MetricsSnapshot
	AuditDropped() uint64
	Health(ctx context.Context) goSentinel.HealthStatus
}

// Reading is one scrape of a [Source]. Latency buckets are already
// cumulative.
type Reading struct {
	Counters       map[goSentinel.MetricID]uint64
	Latency        map[goSentinel.MetricID][8]uint64
	CountersLive   bool
	AuditDropped   uint64
	ActiveSessions int
	StoreUp        bool
	StorePing      time.Duration
}

// Read takes a snapshot of src and pings its credential store.
func Read(ctx context.Context, src Source) Reading {
	snap := src.MetricsSnapshot()
	health := src.Health(ctx)

	r := Reading{
		Counters:       snap.Counters,
		Latency:        make(map[goSentinel.MetricID][8]uint64, len(HistogramDefs)),
		CountersLive:   len(snap.Counters) > 0 || len(snap.Histograms) > 0,
		AuditDropped:   src.AuditDropped(),
		ActiveSessions: health.ActiveSessions,
		StoreUp:        health.StoreAvailable,
		StorePing:      health.StoreLatency,
	}
	for _, def := range HistogramDefs {
		r.Latency[def.ID] = CumulativeBuckets(NormalizeBuckets(snap.Histograms[def.ID]))
	}
	return r
}

// CounterDef binds a counter ID to its exported name.
type CounterDef struct {
	ID   goSentinel.MetricID
	Name string
	Help string
}

// HistogramDef binds a latency histogram ID to its exported name.
type HistogramDef struct {
	ID   goSentinel.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: goSentinel.MetricLoginSuccess, Name: "gosentinel_login_success_total", Help: "Successful logins."},
	{ID: goSentinel.MetricLoginFailure, Name: "gosentinel_login_failure_total", Help: "Rejected logins, all reasons."},
	{ID: goSentinel.MetricLoginNoSuchUser, Name: "gosentinel_login_no_such_user_total", Help: "Logins for unknown usernames."},
	{ID: goSentinel.MetricLoginBadCredentials, Name: "gosentinel_login_bad_credentials_total", Help: "Logins with a wrong password."},
	{ID: goSentinel.MetricLoginAccountLocked, Name: "gosentinel_login_account_locked_total", Help: "Logins rejected because the account was locked."},
	{ID: goSentinel.MetricAccountLockTriggered, Name: "gosentinel_account_lock_triggered_total", Help: "Accounts locked after crossing the failure threshold."},
	{ID: goSentinel.MetricAccountLockExpired, Name: "gosentinel_account_lock_expired_total", Help: "Locks cleared by elapsed time."},
	{ID: goSentinel.MetricAccountUnlocked, Name: "gosentinel_account_unlocked_total", Help: "Administrative unlocks."},
	{ID: goSentinel.MetricSessionCreated, Name: "gosentinel_session_created_total", Help: "Created sessions."},
	{ID: goSentinel.MetricSessionValidated, Name: "gosentinel_session_validated_total", Help: "Successful session checks."},
	{ID: goSentinel.MetricSessionRejected, Name: "gosentinel_session_rejected_total", Help: "Failed session checks."},
	{ID: goSentinel.MetricSessionExpired, Name: "gosentinel_session_expired_total", Help: "Sessions destroyed for idleness."},
	{ID: goSentinel.MetricSessionTokenMismatch, Name: "gosentinel_session_token_mismatch_total", Help: "Sessions destroyed for a wrong token."},
	{ID: goSentinel.MetricLogout, Name: "gosentinel_logout_total", Help: "Ended sessions."},
	{ID: goSentinel.MetricStoreLookupFailure, Name: "gosentinel_store_lookup_failure_total", Help: "Credential store read failures."},
	{ID: goSentinel.MetricStoreUpdateFailure, Name: "gosentinel_store_update_failure_total", Help: "Credential store side-effect writes that did not take."},
	{ID: goSentinel.MetricHashingFailure, Name: "gosentinel_hashing_failure_total", Help: "Broken hashing calls."},
}

// HistogramDefs lists the exported latency histograms.
var HistogramDefs = []HistogramDef{
	{ID: goSentinel.MetricAuthenticateLatency, Name: "gosentinel_authenticate_latency_seconds", Help: "Authenticate latency histogram."},
	{ID: goSentinel.MetricCheckSessionLatency, Name: "gosentinel_check_session_latency_seconds", Help: "CheckSession latency histogram."},
}

// GaugeDef is a point-in-time value derived from a [Reading].
type GaugeDef struct {
	Name  string
	Help  string
	Value func(Reading) float64
}

// GaugeDefs are rendered on every scrape, metrics enabled or not.
var GaugeDefs = []GaugeDef{
	{
		Name:  "gosentinel_active_sessions",
		Help:  "Sessions held by the session table, including idle ones not yet swept.",
		Value: func(r Reading) float64 { return float64(r.ActiveSessions) },
	},
	{
		Name: "gosentinel_store_up",
		Help: "1 when the credential store answered the last ping.",
		Value: func(r Reading) float64 {
			if r.StoreUp {
				return 1
			}
			return 0
		},
	},
	{
		Name:  "gosentinel_store_ping_seconds",
		Help:  "Latency of the last credential store ping.",
		Value: func(r Reading) float64 { return r.StorePing.Seconds() },
	},
}

// AuditDroppedName is the counter for events the audit dispatcher discarded.
const AuditDroppedName = "gosentinel_audit_dropped_total"

// AuditDroppedHelp describes [AuditDroppedName].
const AuditDroppedHelp = "Audit events discarded because the dispatcher buffer was full or the caller gave up."

// HistogramBounds are the Prometheus "le" labels, in seconds.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix names the per-bucket OTel gauges.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed 8-slot array, zero-filling missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
