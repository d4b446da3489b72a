package prometheus

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	goSentinel "github.com/MrEthical07/goSentinel"
	"github.com/MrEthical07/goSentinel/metrics/export/internaldefs"
)

const contentType = "text/plain; version=0.0.4; charset=utf-8"

// PrometheusExporter renders engine counters, latency histograms and live
// gauges in Prometheus text exposition format.
type PrometheusExporter struct {
	source internaldefs.Source
}

// NewPrometheusExporter reads from engine.
func NewPrometheusExporter(engine *goSentinel.Engine) *PrometheusExporter {
	return &PrometheusExporter{source: engine}
}

// NewPrometheusExporterFromSource reads from any [internaldefs.Source].
func NewPrometheusExporterFromSource(source internaldefs.Source) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler serves Render under the request context, so a client that hangs up
// also abandons the store ping.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write([]byte(p.Render(r.Context())))
	})
}

// Render scrapes the source once. Gauges are always written. Counters and
// histograms are written only while engine metrics are enabled or the audit
// dispatcher has dropped something.
func (p *PrometheusExporter) Render(ctx context.Context) string {
	if p == nil || p.source == nil {
		return ""
	}
	reading := internaldefs.Read(ctx, p.source)

	var b strings.Builder
	b.Grow(8192)

	for _, def := range internaldefs.GaugeDefs {
		family(&b, def.Name, def.Help, "gauge")
		sample(&b, def.Name, "", strconv.FormatFloat(def.Value(reading), 'g', -1, 64))
	}

	if reading.CountersLive {
		for _, def := range internaldefs.CounterDefs {
			family(&b, def.Name, def.Help, "counter")
			sample(&b, def.Name, "", strconv.FormatUint(reading.Counters[def.ID], 10))
		}
		for _, def := range internaldefs.HistogramDefs {
			writeLatency(&b, def, reading.Latency[def.ID])
		}
	}

	if reading.CountersLive || reading.AuditDropped > 0 {
		family(&b, internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, "counter")
		sample(&b, internaldefs.AuditDroppedName, "", strconv.FormatUint(reading.AuditDropped, 10))
	}

	return b.String()
}

func writeLatency(b *strings.Builder, def internaldefs.HistogramDef, cumulative [8]uint64) {
	family(b, def.Name, def.Help, "histogram")
	bucket := def.Name + "_bucket"
	for i, le := range internaldefs.HistogramBounds {
		sample(b, bucket, `le="`+le+`"`, strconv.FormatUint(cumulative[i], 10))
	}
	sample(b, def.Name+"_count", "", strconv.FormatUint(cumulative[len(cumulative)-1], 10))
	// Buckets are counted, not summed.
	sample(b, def.Name+"_sum", "", "0")
}

func family(b *strings.Builder, name, help, kind string) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteString("\n# TYPE ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(kind)
	b.WriteByte('\n')
}

func sample(b *strings.Builder, name, labels, value string) {
	b.WriteString(name)
	if labels != "" {
		b.WriteByte('{')
		b.WriteString(labels)
		b.WriteByte('}')
	}
	b.WriteByte(' ')
	b.WriteString(value)
	b.WriteByte('\n')
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, `\`, `\\`)
	return strings.ReplaceAll(help, "\n", `\n`)
}
