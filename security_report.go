package goSentinel

import (
	"strings"

	"github.com/MrEthical07/goSentinel/internal/security"
)

// SecurityReport summarizes the security posture of an Engine's
// configuration, including warnings for weak settings.
type SecurityReport = security.Report

// SecurityReport builds a report from the Engine's configuration.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	algorithm := strings.ToLower(strings.TrimSpace(e.config.Password.Algorithm))
	if algorithm == "" {
		algorithm = "sha256"
	}

	return security.BuildReport(security.ReportInput{
		DigestAlgorithm:    algorithm,
		FailureThreshold:   e.config.Lockout.Threshold,
		LockoutDuration:    e.config.Lockout.Duration,
		SessionIdleTimeout: e.config.Session.IdleTimeout,
		TokenBytes:         e.config.Session.TokenBytes,
		SweepInterval:      e.config.Session.SweepInterval,
		AuditEnabled:       e.config.Audit.Enabled,
		MetricsEnabled:     e.config.Metrics.Enabled,
	})
}
