// Package prometheus renders goSentinel metrics in Prometheus text format.
//
// Every scrape reports three gauges: gosentinel_active_sessions,
// gosentinel_store_up and gosentinel_store_ping_seconds. While engine metrics
// are enabled it also reports the gosentinel_*_total counters and the
// gosentinel_authenticate_latency_seconds and
// gosentinel_check_session_latency_seconds histograms.
//
// The exporter never registers in a global registry. Callers mount the Handler.
package prometheus
