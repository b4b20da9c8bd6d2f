package laned

import (
	"sync"
	"sync/atomic"

	"github.com/99souls/laned/transport"
)

// Lane owns one long-lived transport and its in-flight counter. A lane's
// index and transport are immutable after construction; inFlight is the
// only mutable state.
type Lane struct {
	index        int
	tr           transport.Transport
	inFlight     atomic.Int32
	connName     string
	strategyName string
	metrics      MetricsSink
	closeOnce    sync.Once
	closeErr     error
}

func newLane(index int, tr transport.Transport, connName, strategyName string, metrics MetricsSink) *Lane {
	return &Lane{index: index, tr: tr, connName: connName, strategyName: strategyName, metrics: metrics}
}

// Index returns the lane's fixed position in [0, N).
func (l *Lane) Index() int { return l.index }

// Transport returns the lane's underlying transport. Callers reach it
// through a BorrowedHandle; this accessor exists for strategies and tests
// that need to observe transport state (e.g. IsOpen) without borrowing.
func (l *Lane) Transport() transport.Transport { return l.tr }

// InFlight returns a snapshot of the current in-flight count.
func (l *Lane) InFlight() int32 { return l.inFlight.Load() }

// acquire atomically increments inFlight and reports the post-increment
// value to metrics. Never fails, never allocates.
func (l *Lane) acquire() {
	v := l.inFlight.Add(1)
	l.metrics.SetInFlight(l.connName, l.index, v)
}

// release decrements inFlight via a CAS loop that never drives it below
// zero, reporting the post-decrement value. A duplicate release is a
// silent no-op rather than an underflow.
func (l *Lane) release() {
	for {
		cur := l.inFlight.Load()
		if cur <= 0 {
			return
		}
		if l.inFlight.CompareAndSwap(cur, cur-1) {
			l.metrics.SetInFlight(l.connName, l.index, cur-1)
			return
		}
		// CAS lost the race; another goroutine mutated inFlight between
		// the load and the swap attempt. Retry, and report it the same
		// way a strategy's own CAS loop would: this is in-flight
		// accounting contention, not a strategy selection bug, but it
		// shares the same metric per spec.
		l.metrics.CASRetry(l.connName, l.strategyName)
	}
}

// close closes the underlying transport. Idempotent: repeated calls
// return the same (possibly nil) error from the first close.
func (l *Lane) close() error {
	l.closeOnce.Do(func() {
		l.closeErr = l.tr.Close()
	})
	return l.closeErr
}
