package metrics

import "strconv"

// Sink implements laned.MetricsSink on top of a Provider. It is the only
// place where the four metric names a laned connection ever emits are
// spelled out: lane.selections, lane.in_flight, strategy.cas_retries, and
// slow.commands — each built as Subsystem.Name so the OTel backend emits
// that dotted form and the Prometheus backend gets the conventional
// underscored equivalent. The CAS-retry counter is named
// strategy.cas_retries, not strategy.cas.retries, on both backends: a
// Name containing "." is rejected by the Prometheus backend. Every
// instrument is declared over
// laned's own LabelKey vocabulary (connection/lane/strategy/command), so a
// Provider backend binds values by key rather than by the order Sink
// happens to pass them in.
//
// laned does not import this package — it only depends on its own
// MetricsSink interface — so Sink is the adapter callers wire in at
// construction time, typically via lanedconfig's MetricsPrefix.
type Sink struct {
	provider Provider

	selections Counter
	inFlight   Gauge
	casRetries Counter
	slowOps    Histogram
}

// NewSink builds a Sink that registers its four instruments against
// provider eagerly, so a misconfigured provider (e.g. one whose Health
// check already failed) surfaces at construction time rather than on the
// first lane acquisition. prefix is applied as the instrument Namespace;
// an empty prefix reproduces the bare metric names from the external
// interface contract (lane.selections, etc.) with no leading segment.
func NewSink(provider Provider, prefix ...string) *Sink {
	ns := ""
	if len(prefix) > 0 {
		ns = prefix[0]
	}
	return &Sink{
		provider: provider,
		selections: provider.NewCounter(CounterOpts{CommonOpts: CommonOpts{
			Namespace: ns,
			Subsystem: "lane",
			Name:      "selections",
			Help:      "count of lane selections performed by a connection's strategy",
			Labels:    []LabelKey{LabelConnection, LabelLane, LabelStrategy},
		}}),
		inFlight: provider.NewGauge(GaugeOpts{CommonOpts: CommonOpts{
			Namespace: ns,
			Subsystem: "lane",
			Name:      "in_flight",
			Help:      "current count of borrowed handles outstanding against a lane",
			Labels:    []LabelKey{LabelConnection, LabelLane},
		}}),
		casRetries: provider.NewCounter(CounterOpts{CommonOpts: CommonOpts{
			Namespace: ns,
			Subsystem: "strategy",
			Name:      "cas_retries",
			Help:      "count of compare-and-swap retries in a strategy's selection or a lane's release path",
			Labels:    []LabelKey{LabelConnection, LabelStrategy},
		}}),
		slowOps: provider.NewHistogram(HistogramOpts{CommonOpts: CommonOpts{
			Namespace: ns,
			Subsystem: "slow",
			Name:      "commands",
			Help:      "duration in seconds of commands a caller's CommandListener flagged as slow",
			Labels:    []LabelKey{LabelConnection, LabelCommand},
		}}),
	}
}

func (s *Sink) Selection(connection string, laneIndex int, strategyName string) {
	s.selections.Inc(1, L(LabelConnection, connection), L(LabelLane, strconv.Itoa(laneIndex)), L(LabelStrategy, strategyName))
}

func (s *Sink) SetInFlight(connection string, laneIndex int, value int32) {
	s.inFlight.Set(float64(value), L(LabelConnection, connection), L(LabelLane, strconv.Itoa(laneIndex)))
}

func (s *Sink) CASRetry(connection string, strategyName string) {
	s.casRetries.Inc(1, L(LabelConnection, connection), L(LabelStrategy, strategyName))
}

func (s *Sink) SlowOperation(connection string, command string, millis int64) {
	s.slowOps.Observe(float64(millis)/1000.0, L(LabelConnection, connection), L(LabelCommand, command))
}

// Close is a no-op: Provider instruments are keyed by label values, not
// registered per connection, so there is nothing to evict here. It exists
// to satisfy laned.MetricsSink's Close method.
func (s *Sink) Close(connection string) {}
