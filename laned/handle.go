package laned

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/99souls/laned/transport"
)

// BorrowedHandle is a short-lived, caller-facing proxy over one lane's
// transport. It behaves like a direct transport for every operation
// except Close/CloseAsync: those release the borrow and decrement the
// lane's in-flight counter without ever closing the underlying,
// long-lived transport.
//
// A handle is single-use with respect to release: Close (and CloseAsync)
// may be called any number of times, but only the first call has any
// effect. This holds even if both are called, or called concurrently,
// since the release path is guarded by a single atomic flag.
type BorrowedHandle struct {
	index      int
	lane       *Lane
	strategy   SelectionStrategy
	tr         transport.Transport
	listener   CommandListener
	released   atomic.Bool
}

func newBorrowedHandle(lane *Lane, strategy SelectionStrategy, listener CommandListener) *BorrowedHandle {
	lane.acquire()
	strategy.OnAcquired(lane.index)
	return &BorrowedHandle{
		index:    lane.index,
		lane:     lane,
		strategy: strategy,
		tr:       lane.tr,
		listener: listener,
	}
}

// LaneIndex returns which lane this handle was dispatched to.
func (h *BorrowedHandle) LaneIndex() int { return h.index }

// Do executes a request through the borrowed transport. Failures from the
// underlying transport pass through unchanged; this is not part of the
// release contract.
func (h *BorrowedHandle) Do(ctx context.Context, cmd transport.Command) (transport.Reply, error) {
	start := time.Now()
	reply, err := h.tr.Do(ctx, cmd)
	if h.listener != nil {
		h.listener(cmd.Name, time.Since(start))
	}
	return reply, err
}

// IsOpen reports the underlying transport's open state.
func (h *BorrowedHandle) IsOpen() bool { return h.tr.IsOpen() }

// Close releases the borrow: decrements the lane's in-flight counter and
// notifies the strategy, then returns. It never closes the underlying
// transport. Idempotent — a second call is a no-op.
func (h *BorrowedHandle) Close() error {
	if !h.released.CompareAndSwap(false, true) {
		return nil
	}
	h.lane.release()
	h.strategy.OnReleased(h.index)
	return nil
}

// CloseAsync mirrors Close for hosts that distinguish a non-blocking
// close variant. Release side effects are identical; since release never
// blocks, the returned channel always carries an already-available nil.
func (h *BorrowedHandle) CloseAsync(ctx context.Context) <-chan error {
	ch := make(chan error, 1)
	ch <- h.Close()
	close(ch)
	return ch
}
