package goSentinel

import (
	internalmetrics "github.com/MrEthical07/goSentinel/internal/metrics"
)

// MetricID identifies one engine counter or histogram.
type MetricID = internalmetrics.ID

// MetricsSnapshot is a point-in-time copy of all counters and histograms.
type MetricsSnapshot = internalmetrics.Snapshot

// Metrics is the engine's lock-free counter set.
type Metrics = internalmetrics.Metrics

const (
	// MetricLoginSuccess counts successful logins.
	MetricLoginSuccess = internalmetrics.LoginSuccess
	// MetricLoginFailure counts every rejected login, whatever the reason.
	MetricLoginFailure = internalmetrics.LoginFailure
	// MetricLoginNoSuchUser counts logins for unknown usernames.
	MetricLoginNoSuchUser = internalmetrics.LoginNoSuchUser
	// MetricLoginBadCredentials counts logins with a wrong password.
	MetricLoginBadCredentials = internalmetrics.LoginBadCredentials
	// MetricLoginAccountLocked counts logins rejected because the account was locked.
	MetricLoginAccountLocked = internalmetrics.LoginAccountLocked
	// MetricAccountLockTriggered counts failures that crossed the threshold.
	MetricAccountLockTriggered = internalmetrics.AccountLockTriggered
	// MetricAccountLockExpired counts locks cleared by elapsed time.
	MetricAccountLockExpired = internalmetrics.AccountLockExpired
	// MetricAccountUnlocked counts administrative unlocks.
	MetricAccountUnlocked = internalmetrics.AccountUnlocked
	// MetricSessionCreated counts minted sessions.
	MetricSessionCreated = internalmetrics.SessionCreated
	// MetricSessionValidated counts successful session checks.
	MetricSessionValidated = internalmetrics.SessionValidated
	// MetricSessionRejected counts failed session checks.
	MetricSessionRejected = internalmetrics.SessionRejected
	// MetricSessionExpired counts sessions destroyed for idleness on check.
	MetricSessionExpired = internalmetrics.SessionExpired
	// MetricSessionTokenMismatch counts sessions destroyed for a wrong token.
	MetricSessionTokenMismatch = internalmetrics.SessionTokenMismatch
	// MetricLogout counts EndSession calls that removed a session.
	MetricLogout = internalmetrics.Logout
	// MetricStoreLookupFailure counts credential store read failures.
	MetricStoreLookupFailure = internalmetrics.StoreLookupFailure
	// MetricStoreUpdateFailure counts side-effect writes that did not take.
	MetricStoreUpdateFailure = internalmetrics.StoreUpdateFailure
	// MetricHashingFailure counts broken hashing calls.
	MetricHashingFailure = internalmetrics.HashingFailure
	// MetricAuthenticateLatency is the Authenticate latency histogram.
	MetricAuthenticateLatency = internalmetrics.AuthenticateLatency
	// MetricCheckSessionLatency is the CheckSession latency histogram.
	MetricCheckSessionLatency = internalmetrics.CheckSessionLatency
)

// NewMetrics returns a counter set configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:                 cfg.Enabled,
		EnableLatencyHistograms: cfg.EnableLatencyHistograms,
	})
}
