package laned

import "time"

// MetricsSink is an opaque, thread-safe recorder of lane activity. Every
// emission is tagged with the owning manager's connection name. A zero
// MetricsSink is never used directly by callers — NewManager installs
// NoopMetricsSink when none is supplied.
//
// Implementations MUST NOT panic; Close MUST be idempotent.
type MetricsSink interface {
	// Selection records that a lane was chosen for an acquisition.
	Selection(connection string, laneIndex int, strategyName string)

	// SetInFlight records the absolute (not delta) in-flight count for a
	// lane immediately after an acquire or release.
	SetInFlight(connection string, laneIndex int, value int32)

	// CASRetry records a failed compare-and-swap attempt inside a
	// strategy's select or a lane's release loop.
	CASRetry(connection string, strategyName string)

	// SlowOperation records a completed operation whose duration exceeded
	// some external threshold. The core never calls this itself; it
	// exists for a CommandListener hook (see Config.CommandListener).
	SlowOperation(connection string, command string, millis int64)

	// Close performs idempotent cleanup, e.g. evicting per-connection
	// gauges. It must never panic.
	Close(connection string)
}

// NoopMetricsSink is the zero-overhead default MetricsSink.
type NoopMetricsSink struct{}

func (NoopMetricsSink) Selection(string, int, string)       {}
func (NoopMetricsSink) SetInFlight(string, int, int32)      {}
func (NoopMetricsSink) CASRetry(string, string)             {}
func (NoopMetricsSink) SlowOperation(string, string, int64) {}
func (NoopMetricsSink) Close(string)                        {}

var _ MetricsSink = NoopMetricsSink{}

// CommandListener is called by a BorrowedHandle after a transport
// operation it proxies completes, purely so callers get slow-operation
// metrics without hand-rolling their own timing wrapper. Its firing
// conditions (what counts as "slow") are the caller's concern; the core
// never calls it itself except through the handle's Do method.
type CommandListener func(command string, duration time.Duration)
