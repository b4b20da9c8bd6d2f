// Package transport defines the narrow capability surface the laned core
// dispatches against. The real wire client (connection setup, auth,
// protocol framing) is an external collaborator — this package only
// describes the methods laned.Lane and laned.BorrowedHandle need.
package transport

import "context"

// Command is an opaque request sent through a Transport. The core never
// inspects its contents.
type Command struct {
	Name string
	Args []any
}

// Reply is an opaque response returned by a Transport.
type Reply struct {
	Value any
}

// Transport is one long-lived, potentially pipelined connection to the
// logical endpoint. Implementations MUST be safe for concurrent use by
// multiple callers, since a lane's transport is shared by every
// BorrowedHandle bound to it.
type Transport interface {
	// Do executes one request/response operation. Its ordering guarantees
	// relative to other Do calls on the same Transport are whatever the
	// underlying wire protocol provides — typically FIFO.
	Do(ctx context.Context, cmd Command) (Reply, error)

	// IsOpen reports whether the transport still believes it can serve
	// requests. A closed transport returns false.
	IsOpen() bool

	// Close closes the transport. Idempotent.
	Close() error

	// CloseAsync closes the transport without blocking the caller; the
	// returned channel receives exactly one value (nil or the close
	// error) and is then closed.
	CloseAsync(ctx context.Context) <-chan error
}

// Factory opens one new Transport. It may fail, e.g. if the endpoint is
// unreachable at construction time.
type Factory func() (Transport, error)
