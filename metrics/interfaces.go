// Package metrics is a thin, backend-agnostic instrumentation surface that
// the laned package's MetricsSink adapter is built on. It exists so a lane
// selection or in-flight gauge emission never imports Prometheus or OTEL
// directly — only a Provider, chosen once at wiring time.
package metrics

import "context"

// LabelKey identifies one of the fixed dimensions a laned metric is tagged
// along. There are exactly four, matching the tags laned.MetricsSink's
// methods already carry: which connection, which lane, which strategy was
// active, and which command a slow-operation observation belongs to. A
// LabelKey vocabulary closed over these four — rather than an arbitrary
// caller-supplied string slice — is what keeps an instrument's declared
// Labels and a call site's Label values matched by key instead of by
// position, so reordering CommonOpts.Labels can never silently swap a lane
// index into a strategy column.
type LabelKey string

const (
	LabelConnection LabelKey = "connection"
	LabelLane       LabelKey = "lane"
	LabelStrategy   LabelKey = "strategy"
	LabelCommand    LabelKey = "command"
)

// Label pairs one LabelKey with the value observed for it on one emission.
type Label struct {
	Key   LabelKey
	Value string
}

// L is a constructor shorthand for Label, used at every laned.MetricsSink
// call site instead of building the struct literal out by hand.
func L(key LabelKey, value string) Label { return Label{Key: key, Value: value} }

// Counter represents a monotonically increasing value, e.g. a count of
// lane selections tagged by connection, lane, and strategy.
type Counter interface {
	Inc(delta float64, labels ...Label)
}

// Gauge represents a value that can go up or down, e.g. a lane's current
// in-flight count tagged by connection and lane.
type Gauge interface {
	Set(value float64, labels ...Label)
	Add(delta float64, labels ...Label)
}

// Histogram records observations into buckets and tracks count + sum, e.g.
// the per-command latency distribution a CommandListener reports.
type Histogram interface {
	Observe(value float64, labels ...Label)
}

// Timer is a helper handle for measuring latency against a Histogram.
type Timer interface {
	// ObserveDuration records the time elapsed since the timer was created, in seconds.
	ObserveDuration(labels ...Label)
}

// Provider is the top-level metrics backend abstraction. A laned
// connection is wired to exactly one Provider for its lifetime; swapping
// backends means constructing a new Provider, not mutating this one.
type Provider interface {
	NewCounter(opts CounterOpts) Counter
	NewGauge(opts GaugeOpts) Gauge
	NewHistogram(opts HistogramOpts) Histogram
	NewTimer(h HistogramOpts) func() Timer // returns a constructor that snapshots start time lazily
	// Health reports an error if the provider is degraded (e.g. a prior
	// registration failure), so a connection can surface that at startup
	// rather than silently dropping every metric it emits.
	Health(ctx context.Context) error
}

// CommonOpts are the fields embedded into each metric option struct.
type CommonOpts struct {
	Namespace string     // logical grouping/prefix, optional
	Subsystem string     // secondary prefix, optional
	Name      string     // required base metric name (snake_case)
	Help      string     // human readable help text
	Labels    []LabelKey // the label dimensions this instrument is declared over; a backend needing positional values (Prometheus) binds them by key against the Label values passed to Inc/Set/Observe, not by the order labels happen to be passed in
}

// CounterOpts options for counters.
type CounterOpts struct{ CommonOpts }

// GaugeOpts options for gauges.
type GaugeOpts struct{ CommonOpts }

// HistogramOpts options for histograms / timers.
type HistogramOpts struct {
	CommonOpts
	Buckets []float64 // optional custom bucket boundaries
}

// resolveLabelValues binds labels against keys by LabelKey, in the order
// keys were declared on an instrument's CommonOpts. A key with no matching
// Label resolves to the empty string rather than shifting every subsequent
// position, which is the failure mode a plain []string label slice has no
// way to guard against.
func resolveLabelValues(keys []LabelKey, labels []Label) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		for _, l := range labels {
			if l.Key == k {
				out[i] = l.Value
				break
			}
		}
	}
	return out
}

// Noop implementations -------------------------------------------------------

type noopProvider struct{}

type noopCounter struct{}

type noopGauge struct{}

type noopHistogram struct{}

type noopTimer struct{}

// NewNoopProvider returns a provider that does nothing.
func NewNoopProvider() Provider { return &noopProvider{} }

func (p *noopProvider) NewCounter(opts CounterOpts) Counter       { return noopCounter{} }
func (p *noopProvider) NewGauge(opts GaugeOpts) Gauge             { return noopGauge{} }
func (p *noopProvider) NewHistogram(opts HistogramOpts) Histogram { return noopHistogram{} }
func (p *noopProvider) NewTimer(h HistogramOpts) func() Timer {
	return func() Timer { return noopTimer{} }
}
func (p *noopProvider) Health(ctx context.Context) error { return nil }

func (noopCounter) Inc(delta float64, labels ...Label)       {}
func (noopGauge) Set(value float64, labels ...Label)         {}
func (noopGauge) Add(delta float64, labels ...Label)         {}
func (noopHistogram) Observe(value float64, labels ...Label) {}
func (noopTimer) ObserveDuration(labels ...Label)            {}
