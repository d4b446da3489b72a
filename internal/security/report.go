package security

import "time"

// Thresholds below these values are flagged as weak.
const (
	MinRecommendedTokenBytes = 32
	MaxRecommendedThreshold  = 10
	MinRecommendedLockout    = time.Minute
)

// Report is the configuration posture returned by [BuildReport].
type Report struct {
	DigestAlgorithm      string
	FailureThreshold     int
	LockoutDuration      time.Duration
	SessionIdleTimeout   time.Duration
	SharedLifespan       bool
	TokenBytes           int
	SessionSweeperActive bool
	AuditActive          bool
	MetricsActive        bool
	Warnings             []string
}

// ReportInput carries the settings [BuildReport] inspects.
type ReportInput struct {
	DigestAlgorithm    string
	FailureThreshold   int
	LockoutDuration    time.Duration
	SessionIdleTimeout time.Duration
	TokenBytes         int
	SweepInterval      time.Duration
	AuditEnabled       bool
	MetricsEnabled     bool
}

func BuildReport(input ReportInput) Report {
	var warnings []string
	if input.TokenBytes < MinRecommendedTokenBytes {
		warnings = append(warnings, "session tokens below 32 bytes of entropy")
	}
	if input.FailureThreshold > MaxRecommendedThreshold {
		warnings = append(warnings, "failure threshold above 10 attempts")
	}
	if input.LockoutDuration < MinRecommendedLockout {
		warnings = append(warnings, "lockout duration under one minute")
	}
	if input.SweepInterval <= 0 {
		warnings = append(warnings, "idle sessions are only removed on validation")
	}

	return Report{
		DigestAlgorithm:      input.DigestAlgorithm,
		FailureThreshold:     input.FailureThreshold,
		LockoutDuration:      input.LockoutDuration,
		SessionIdleTimeout:   input.SessionIdleTimeout,
		SharedLifespan:       input.LockoutDuration == input.SessionIdleTimeout,
		TokenBytes:           input.TokenBytes,
		SessionSweeperActive: input.SweepInterval > 0,
		AuditActive:          input.AuditEnabled,
		MetricsActive:        input.MetricsEnabled,
		Warnings:             warnings,
	}
}
