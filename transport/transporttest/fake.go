// Package transporttest provides an in-process fake transport.Transport for
// exercising the laned core without a real wire client.
package transporttest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/99souls/laned/transport"
)

// Fake is a transport.Transport backed by a programmable Do function. It
// counts Do calls and Close calls so tests can assert on lifecycle.
type Fake struct {
	// DoFunc, when set, is invoked by Do. Defaults to an immediate
	// success echoing the command name.
	DoFunc func(ctx context.Context, cmd transport.Command) (transport.Reply, error)

	mu     sync.Mutex
	closed bool

	calls     atomic.Int64
	closeCall atomic.Int64
}

// New returns a Fake ready for use.
func New() *Fake { return &Fake{} }

// NewFailing returns a Fake that starts in the closed state, for tests
// exercising a transport that is already unusable at acquisition time.
func NewFailing() *Fake { return &Fake{closed: true} }

func (f *Fake) Do(ctx context.Context, cmd transport.Command) (transport.Reply, error) {
	f.calls.Add(1)
	if f.DoFunc != nil {
		return f.DoFunc(ctx, cmd)
	}
	return transport.Reply{Value: cmd.Name}, nil
}

func (f *Fake) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.closed
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCall.Add(1)
	f.closed = true
	return nil
}

func (f *Fake) CloseAsync(ctx context.Context) <-chan error {
	ch := make(chan error, 1)
	err := f.Close()
	select {
	case <-ctx.Done():
	case <-time.After(0):
	}
	ch <- err
	close(ch)
	return ch
}

// Calls returns the number of Do invocations observed so far.
func (f *Fake) Calls() int64 { return f.calls.Load() }

// CloseCount returns how many times Close was actually invoked.
func (f *Fake) CloseCount() int64 { return f.closeCall.Load() }

// FactoryFailingAfter returns a transport.Factory that yields N-1 healthy
// Fakes before failing on the Nth call (1-indexed) — used to test
// construction rollback (spec scenario S6).
func FactoryFailingAfter(n int) (transport.Factory, *[]*Fake) {
	var produced []*Fake
	var count int
	factory := func() (transport.Transport, error) {
		count++
		if count >= n {
			return nil, errFactoryFailed
		}
		fk := New()
		produced = append(produced, fk)
		return fk, nil
	}
	return factory, &produced
}

var errFactoryFailed = transportFailure{}

type transportFailure struct{}

func (transportFailure) Error() string { return "transporttest: simulated factory failure" }

// Factory returns a transport.Factory that always succeeds, producing a
// fresh Fake each call. The produced transports are appended to *out.
func Factory(out *[]*Fake) transport.Factory {
	return func() (transport.Transport, error) {
		fk := New()
		*out = append(*out, fk)
		return fk, nil
	}
}
