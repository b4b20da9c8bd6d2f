package laned

import "errors"

// Error kinds surfaced by the laned core. Callers should use errors.Is
// against these sentinels (InitializationFailed wraps the first
// underlying transport error and is tested with errors.Is too, since it
// embeds one of these via %w).
var (
	// ErrInvalidLaneCount is returned when NumLanes is outside [1, 64].
	ErrInvalidLaneCount = errors.New("laned: num_lanes must be in [1, 64]")

	// ErrInitializationFailed is returned when a lane's transport could
	// not be opened during construction. Already-opened lanes are closed
	// before this error is returned.
	ErrInitializationFailed = errors.New("laned: lane initialization failed")

	// ErrManagerShutDown is returned by Acquire after Teardown has run.
	ErrManagerShutDown = errors.New("laned: manager is shut down")

	// ErrNotInitialized is the panic value of a stateful strategy's
	// Select when Initialize was never called, or was called with zero
	// lanes. This
	// indicates a construction-order bug, not a recoverable runtime
	// condition.
	ErrNotInitialized = errors.New("laned: strategy not initialized")

	// ErrTransportClosed is surfaced unchanged from a Transport operation
	// performed after the peer closed the connection; the core never
	// raises it itself.
	ErrTransportClosed = errors.New("laned: transport closed")
)
