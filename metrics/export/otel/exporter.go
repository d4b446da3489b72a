package otel

import (
	"context"
	"errors"
	"fmt"

	goSentinel "github.com/MrEthical07/goSentinel"
	"github.com/MrEthical07/goSentinel/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// observeFunc writes one instrument's value from a reading.
type observeFunc func(metric.Observer, internaldefs.Reading)

// OTelExporter publishes engine state through observable instruments. All
// instruments share one callback, so a collection pings the store once.
type OTelExporter struct {
	source       internaldefs.Source
	registration metric.Registration
	observers    []observeFunc
}

// NewOTelExporter reads from engine.
func NewOTelExporter(meter metric.Meter, engine *goSentinel.Engine) (*OTelExporter, error) {
	return NewOTelExporterFromSource(meter, engine)
}

// NewOTelExporterFromSource reads from any [internaldefs.Source].
func NewOTelExporterFromSource(meter metric.Meter, source internaldefs.Source) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	exporter := &OTelExporter{source: source}
	var instruments []metric.Observable

	for _, def := range internaldefs.GaugeDefs {
		ins, err := meter.Float64ObservableGauge(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create gauge %s: %w", def.Name, err)
		}
		value := def.Value
		exporter.observers = append(exporter.observers, func(o metric.Observer, r internaldefs.Reading) {
			o.ObserveFloat64(ins, value(r))
		})
		instruments = append(instruments, ins)
	}

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.Name, err)
		}
		id := def.ID
		exporter.observers = append(exporter.observers, func(o metric.Observer, r internaldefs.Reading) {
			if r.CountersLive {
				o.ObserveInt64(ins, int64(r.Counters[id]))
			}
		})
		instruments = append(instruments, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		latency, err := latencyInstruments(meter, def)
		if err != nil {
			return nil, err
		}
		exporter.observers = append(exporter.observers, latency.observe)
		instruments = append(instruments, latency.all()...)
	}

	dropped, err := meter.Int64ObservableCounter(
		internaldefs.AuditDroppedName,
		metric.WithDescription(internaldefs.AuditDroppedHelp),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	exporter.observers = append(exporter.observers, func(o metric.Observer, r internaldefs.Reading) {
		o.ObserveInt64(dropped, int64(r.AuditDropped))
	})
	instruments = append(instruments, dropped)

	registration, err := meter.RegisterCallback(exporter.collect, instruments...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	exporter.registration = registration
	return exporter, nil
}

func (e *OTelExporter) collect(ctx context.Context, o metric.Observer) error {
	reading := internaldefs.Read(ctx, e.source)
	for _, observe := range e.observers {
		observe(o, reading)
	}
	return nil
}

// Close unregisters the callback. The instruments stay with the meter.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}

// latencySet maps a counted histogram onto per-bucket gauges, since the
// engine keeps bucket counts but no sums.
type latencySet struct {
	id      goSentinel.MetricID
	buckets [8]metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

func latencyInstruments(meter metric.Meter, def internaldefs.HistogramDef) (*latencySet, error) {
	set := &latencySet{id: def.ID}
	for i, suffix := range internaldefs.HistogramBoundSuffix {
		name := def.Name + "_bucket_le_" + suffix
		ins, err := meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative count for "+def.Help))
		if err != nil {
			return nil, fmt.Errorf("create histogram bucket gauge %s: %w", name, err)
		}
		set.buckets[i] = ins
	}
	count, err := meter.Int64ObservableGauge(def.Name+"_count", metric.WithDescription("Samples in "+def.Help))
	if err != nil {
		return nil, fmt.Errorf("create histogram count gauge %s_count: %w", def.Name, err)
	}
	set.count = count
	return set, nil
}

func (s *latencySet) observe(o metric.Observer, r internaldefs.Reading) {
	if !r.CountersLive {
		return
	}
	cumulative := r.Latency[s.id]
	for i, ins := range s.buckets {
		o.ObserveInt64(ins, int64(cumulative[i]))
	}
	o.ObserveInt64(s.count, int64(cumulative[len(cumulative)-1]))
}

func (s *latencySet) all() []metric.Observable {
	out := make([]metric.Observable, 0, len(s.buckets)+1)
	for _, ins := range s.buckets {
		out = append(out, ins)
	}
	return append(out, s.count)
}
