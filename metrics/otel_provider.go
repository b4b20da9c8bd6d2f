package metrics

// OpenTelemetry metrics bridge implementing Provider, for deployments that
// export to an OTEL collector instead of scraping Prometheus directly.
// Gauges simulate Set semantics via an UpDownCounter delta application,
// since OTEL has no native absolute-value gauge instrument for this SDK
// version.

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

type OTelProviderOptions struct {
	ServiceName      string // reserved for future resource attribution
	CardinalityLimit int    // warn threshold like prom provider (0 => default 100)
}

// NewOTelProvider returns a metrics.Provider backed by an OTEL MeterProvider.
// Exporters, views, and resource attributes can be layered on by callers using
// the returned SDK provider (future extension). For now we keep zero-config.
func NewOTelProvider(opts OTelProviderOptions) Provider {
	mp := sdkmetric.NewMeterProvider()
	meter := mp.Meter("laned")
	limit := opts.CardinalityLimit
	if limit <= 0 {
		limit = 100
	}
	warnCtr, _ := meter.Float64Counter("laned.internal.cardinality_exceeded.total", metric.WithDescription("count of metrics whose label cardinality exceeded the configured limit (mirrors the Prometheus provider's counter)"))
	return &otelProvider{mp: mp, meter: meter, cardLimit: limit, cardinality: make(map[string]map[string]struct{}), exceededOnce: make(map[string]struct{}), warnCounter: warnCtr}
}

type otelProvider struct {
	mp    *sdkmetric.MeterProvider
	meter metric.Meter

	mu          sync.Mutex
	cardinality map[string]map[string]struct{} // metric name -> distinct label value combos
	cardLimit   int

	exceededOnce map[string]struct{}
	warnCounter  metric.Float64Counter
}

func (p *otelProvider) NewCounter(opts CounterOpts) Counter {
	name := buildOTelName(opts.CommonOpts)
	inst, err := p.meter.Float64Counter(name, metric.WithDescription(opts.Help))
	if err != nil {
		return noopCounter{}
	}
	return &otelCounter{c: inst, provider: p, id: name}
}
func (p *otelProvider) NewGauge(opts GaugeOpts) Gauge {
	name := buildOTelName(opts.CommonOpts)
	inst, err := p.meter.Float64UpDownCounter(name, metric.WithDescription(opts.Help))
	if err != nil {
		return noopGauge{}
	}
	return &otelGauge{g: inst, provider: p, id: name}
}
func (p *otelProvider) NewHistogram(opts HistogramOpts) Histogram {
	name := buildOTelName(opts.CommonOpts)
	inst, err := p.meter.Float64Histogram(name, metric.WithDescription(opts.Help))
	if err != nil {
		return noopHistogram{}
	}
	return &otelHistogram{h: inst, provider: p, id: name}
}
func (p *otelProvider) NewTimer(h HistogramOpts) func() Timer {
	hist := p.NewHistogram(HistogramOpts{CommonOpts: h.CommonOpts, Buckets: h.Buckets})
	return func() Timer { return &otelTimer{h: hist, start: time.Now()} }
}
func (p *otelProvider) Health(ctx context.Context) error { return nil }

// buildOTelName composes namespace/subsystem/name using '.' separators (OTEL convention tolerant).
func buildOTelName(c CommonOpts) string {
	if c.Namespace != "" && c.Subsystem != "" {
		return c.Namespace + "." + c.Subsystem + "." + c.Name
	}
	if c.Namespace != "" {
		if c.Name != "" {
			return c.Namespace + "." + c.Name
		}
		return c.Namespace
	}
	if c.Subsystem != "" {
		if c.Name != "" {
			return c.Subsystem + "." + c.Name
		}
		return c.Subsystem
	}
	return c.Name
}

// Instrument implementations -------------------------------------------------
//
// Unlike the Prometheus wrappers, these attach attributes directly from a
// call's Label.Key/Label.Value pairs — OTEL attributes are keyed, not
// positional, so there is no need to resolve against a declared key order
// the way labelNames/resolveLabelValues do for Prometheus's WithLabelValues.

type otelCounter struct {
	c        metric.Float64Counter
	provider *otelProvider
	id       string
}

func (c *otelCounter) Inc(delta float64, labels ...Label) {
	if delta <= 0 {
		return
	}
	values := labelValueStrings(labels)
	c.provider.cardinalityTrack(c.id, values)
	ctx := context.Background()
	if len(labels) == 0 {
		c.c.Add(ctx, delta)
		return
	}
	c.c.Add(ctx, delta, metric.WithAttributes(toAttributes(labels)...))
}

type otelGauge struct {
	g        metric.Float64UpDownCounter
	values   map[string]float64 // label value combination -> last value
	mu       sync.Mutex
	provider *otelProvider
	id       string
}

func (g *otelGauge) Set(v float64, labels ...Label) {
	values := labelValueStrings(labels)
	key := fmt.Sprint(values)
	g.mu.Lock()
	if g.values == nil {
		g.values = make(map[string]float64)
	}
	diff := v - g.values[key]
	g.values[key] = v
	g.mu.Unlock()
	if diff != 0 {
		g.provider.cardinalityTrack(g.id, values)
		ctx := context.Background()
		if len(labels) == 0 {
			g.g.Add(ctx, diff)
			return
		}
		g.g.Add(ctx, diff, metric.WithAttributes(toAttributes(labels)...))
	}
}
func (g *otelGauge) Add(delta float64, labels ...Label) {
	if delta == 0 {
		return
	}
	values := labelValueStrings(labels)
	g.mu.Lock()
	if g.values == nil {
		g.values = make(map[string]float64)
	}
	g.values[fmt.Sprint(values)] += delta
	g.mu.Unlock()
	g.provider.cardinalityTrack(g.id, values)
	ctx := context.Background()
	if len(labels) == 0 {
		g.g.Add(ctx, delta)
		return
	}
	g.g.Add(ctx, delta, metric.WithAttributes(toAttributes(labels)...))
}

type otelHistogram struct {
	h        metric.Float64Histogram
	provider *otelProvider
	id       string
}

func (h *otelHistogram) Observe(value float64, labels ...Label) {
	values := labelValueStrings(labels)
	h.provider.cardinalityTrack(h.id, values)
	ctx := context.Background()
	if len(labels) == 0 {
		h.h.Record(ctx, value)
		return
	}
	h.h.Record(ctx, value, metric.WithAttributes(toAttributes(labels)...))
}

type otelTimer struct {
	h     Histogram
	start time.Time
}

func (t *otelTimer) ObserveDuration(labels ...Label) {
	t.h.Observe(time.Since(t.start).Seconds(), labels...)
}

// toAttributes converts a Label slice into OTEL attribute.KeyValues.
func toAttributes(labels []Label) []attribute.KeyValue {
	if len(labels) == 0 {
		return nil
	}
	out := make([]attribute.KeyValue, 0, len(labels))
	for _, l := range labels {
		out = append(out, attribute.String(string(l.Key), l.Value))
	}
	return out
}

// labelValueStrings extracts just the values, in call order, for
// cardinality tracking — the set of distinct combinations observed is the
// same regardless of which LabelKey carried which value.
func labelValueStrings(labels []Label) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = l.Value
	}
	return out
}

// cardinalityTrack mirrors PrometheusProvider's bookkeeping so the two
// backends degrade identically when a caller-supplied label (most often a
// raw command name) fans a series out further than cardLimit tolerates.
func (p *otelProvider) cardinalityTrack(id string, labelValues []string) {
	if p.cardLimit <= 0 || len(labelValues) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	set := p.cardinality[id]
	if set == nil {
		set = make(map[string]struct{})
		p.cardinality[id] = set
	}
	key := fmt.Sprint(labelValues)
	if _, ok := set[key]; !ok {
		if len(set) < p.cardLimit {
			set[key] = struct{}{}
		} else if _, warned := p.exceededOnce[id]; !warned {
			p.exceededOnce[id] = struct{}{}
			p.warnCounter.Add(context.Background(), 1, metric.WithAttributes(attribute.String("metric", id)))
			slog.Warn("metric exceeded cardinality limit", "metric", id, "limit", p.cardLimit)
		}
	}
}
