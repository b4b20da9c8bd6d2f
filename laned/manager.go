package laned

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/99souls/laned/transport"
)

const (
	minLanes = 1
	maxLanes = 64
)

// Config holds the inputs to NewManager.
type Config struct {
	// ConnectionName tags every metric emission; must be non-empty.
	ConnectionName string

	// NumLanes is the fixed lane count; must be in [1, 64].
	NumLanes int

	// Strategy chooses a lane index per acquisition. One of the three
	// shipped implementations, or any SelectionStrategy adhering to its
	// contract.
	Strategy SelectionStrategy

	// TransportFactory opens one new transport per lane.
	TransportFactory transport.Factory

	// MetricsSink receives lane activity. Defaults to NoopMetricsSink.
	MetricsSink MetricsSink

	// CommandListener, if set, is invoked by every handle's Do after the
	// underlying transport operation completes.
	CommandListener CommandListener
}

// LanedManager owns a fixed set of lanes, a selection strategy, and a
// metrics sink, and hands out BorrowedHandles bound to one lane per
// acquisition.
type LanedManager struct {
	connName string
	lanes    []*Lane
	metrics  MetricsSink
	listener CommandListener
	shutDown atomic.Bool

	strategyMu sync.RWMutex
	strategy   SelectionStrategy
}

// NewManager validates cfg, opens one transport per lane, and initializes
// the strategy. If any transport fails to open, every already-opened lane
// is closed and the first underlying error is returned wrapped in
// ErrInitializationFailed.
func NewManager(cfg Config) (*LanedManager, error) {
	if cfg.NumLanes < minLanes || cfg.NumLanes > maxLanes {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLaneCount, cfg.NumLanes)
	}
	if cfg.ConnectionName == "" {
		return nil, fmt.Errorf("laned: connection_name must be non-empty")
	}
	if cfg.Strategy == nil {
		return nil, fmt.Errorf("laned: strategy is required")
	}
	if cfg.TransportFactory == nil {
		return nil, fmt.Errorf("laned: transport_factory is required")
	}

	metrics := cfg.MetricsSink
	if metrics == nil {
		metrics = NoopMetricsSink{}
	}

	lanes := make([]*Lane, 0, cfg.NumLanes)
	for i := 0; i < cfg.NumLanes; i++ {
		tr, err := cfg.TransportFactory()
		if err != nil {
			for _, l := range lanes {
				_ = l.close()
			}
			return nil, fmt.Errorf("%w: lane %d: %w", ErrInitializationFailed, i, err)
		}
		lanes = append(lanes, newLane(i, tr, cfg.ConnectionName, cfg.Strategy.Name(), metrics))
	}

	cfg.Strategy.Initialize(lanes)

	return &LanedManager{
		connName: cfg.ConnectionName,
		lanes:    lanes,
		strategy: cfg.Strategy,
		metrics:  metrics,
		listener: cfg.CommandListener,
	}, nil
}

// Acquire selects a lane and returns a BorrowedHandle bound to it. Fails
// with ErrManagerShutDown once Teardown has completed.
func (m *LanedManager) Acquire() (*BorrowedHandle, error) {
	if m.shutDown.Load() {
		return nil, ErrManagerShutDown
	}
	m.strategyMu.RLock()
	strategy := m.strategy
	m.strategyMu.RUnlock()

	n := len(m.lanes)
	idx := strategy.Select(n)
	if idx < 0 || idx >= n {
		panic(fmt.Sprintf("laned: strategy %q returned out-of-range index %d for n=%d", strategy.Name(), idx, n))
	}
	m.metrics.Selection(m.connName, idx, strategy.Name())
	return newBorrowedHandle(m.lanes[idx], strategy, m.listener), nil
}

// WithStrategy swaps the manager's active selection strategy, re-running
// Initialize against the existing lane set. In-flight BorrowedHandles
// already bound to the prior strategy are unaffected: a handle captures
// its strategy at acquisition time and reports release through that same
// instance, so a swap never orphans an outstanding release.
//
// Intended for lanedconfig's hot-reload watcher; swapping strategies
// bounces no lanes and closes no transports.
func (m *LanedManager) WithStrategy(strategy SelectionStrategy) {
	strategy.Initialize(m.lanes)
	m.strategyMu.Lock()
	m.strategy = strategy
	m.strategyMu.Unlock()
}

// Teardown closes every lane's transport (best-effort: a lane failing to
// close does not stop the rest), then calls the metrics sink's Close for
// this connection.
// Idempotent; subsequent Acquire calls fail with ErrManagerShutDown.
func (m *LanedManager) Teardown() {
	if !m.shutDown.CompareAndSwap(false, true) {
		return
	}
	for _, l := range m.lanes {
		_ = l.close()
	}
	m.metrics.Close(m.connName)
}

// OpenLaneCount returns the fixed lane count, for tests and
// observability.
func (m *LanedManager) OpenLaneCount() int { return len(m.lanes) }

// ConnectionName returns the manager's dimensional metric tag.
func (m *LanedManager) ConnectionName() string { return m.connName }

// LaneInFlight returns a snapshot of lane idx's in-flight count, for
// tests and observability.
func (m *LanedManager) LaneInFlight(idx int) int32 {
	if idx < 0 || idx >= len(m.lanes) {
		return 0
	}
	return m.lanes[idx].InFlight()
}
