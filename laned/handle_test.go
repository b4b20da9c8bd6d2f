package laned

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/99souls/laned/transport"
)

func TestBorrowedHandleAcquireIncrementsLane(t *testing.T) {
	_, lanes := newTestLanes(t, 1)
	s := NewRoundRobinStrategy()

	h := newBorrowedHandle(lanes[0], s, nil)
	assert.Equal(t, int32(1), lanes[0].InFlight())
	assert.Equal(t, 0, h.LaneIndex())
}

func TestBorrowedHandleCloseIsIdempotent(t *testing.T) {
	_, lanes := newTestLanes(t, 1)
	s := NewRoundRobinStrategy()
	h := newBorrowedHandle(lanes[0], s, nil)

	require.NoError(t, h.Close())
	assert.Equal(t, int32(0), lanes[0].InFlight())

	require.NoError(t, h.Close())
	assert.Equal(t, int32(0), lanes[0].InFlight(), "second close must not double-release")
}

func TestBorrowedHandleCloseNeverClosesTransport(t *testing.T) {
	fakes, lanes := newTestLanes(t, 1)
	s := NewRoundRobinStrategy()
	h := newBorrowedHandle(lanes[0], s, nil)

	require.NoError(t, h.Close())
	assert.Equal(t, int64(0), fakes[0].CloseCount())
	assert.True(t, h.IsOpen())
}

func TestBorrowedHandleDoPassesThroughTransport(t *testing.T) {
	fakes, lanes := newTestLanes(t, 1)
	s := NewRoundRobinStrategy()
	h := newBorrowedHandle(lanes[0], s, nil)

	reply, err := h.Do(context.Background(), transport.Command{Name: "GET", Args: []any{"k"}})
	require.NoError(t, err)
	assert.Equal(t, "GET", reply.Value)
	assert.Equal(t, int64(1), fakes[0].Calls())
}

func TestBorrowedHandleDoInvokesCommandListener(t *testing.T) {
	_, lanes := newTestLanes(t, 1)
	s := NewRoundRobinStrategy()

	var gotCmd string
	var gotDur time.Duration
	listener := CommandListener(func(cmd string, d time.Duration) {
		gotCmd = cmd
		gotDur = d
	})

	h := newBorrowedHandle(lanes[0], s, listener)
	_, err := h.Do(context.Background(), transport.Command{Name: "SET"})
	require.NoError(t, err)

	assert.Equal(t, "SET", gotCmd)
	assert.GreaterOrEqual(t, gotDur, time.Duration(0))
}

func TestBorrowedHandleDoPropagatesTransportError(t *testing.T) {
	fakes, lanes := newTestLanes(t, 1)
	fakes[0].DoFunc = func(ctx context.Context, cmd transport.Command) (transport.Reply, error) {
		return transport.Reply{}, ErrTransportClosed
	}
	s := NewRoundRobinStrategy()
	h := newBorrowedHandle(lanes[0], s, nil)

	_, err := h.Do(context.Background(), transport.Command{Name: "GET"})
	assert.ErrorIs(t, err, ErrTransportClosed)
}

func TestBorrowedHandleCloseAsyncReturnsImmediately(t *testing.T) {
	_, lanes := newTestLanes(t, 1)
	s := NewRoundRobinStrategy()
	h := newBorrowedHandle(lanes[0], s, nil)

	select {
	case err := <-h.CloseAsync(context.Background()):
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("CloseAsync did not deliver a result")
	}
}
