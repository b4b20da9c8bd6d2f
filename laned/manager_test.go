package laned

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/99souls/laned/transport"
	"github.com/99souls/laned/transport/transporttest"
)

func TestNewManagerValidatesConfig(t *testing.T) {
	var produced []*transporttest.Fake
	baseCfg := Config{
		ConnectionName:   "cache",
		NumLanes:         4,
		Strategy:         NewRoundRobinStrategy(),
		TransportFactory: transporttest.Factory(&produced),
	}

	t.Run("zero lanes rejected", func(t *testing.T) {
		cfg := baseCfg
		cfg.NumLanes = 0
		_, err := NewManager(cfg)
		assert.ErrorIs(t, err, ErrInvalidLaneCount)
	})

	t.Run("too many lanes rejected", func(t *testing.T) {
		cfg := baseCfg
		cfg.NumLanes = 65
		_, err := NewManager(cfg)
		assert.ErrorIs(t, err, ErrInvalidLaneCount)
	})

	t.Run("empty connection name rejected", func(t *testing.T) {
		cfg := baseCfg
		cfg.ConnectionName = ""
		_, err := NewManager(cfg)
		assert.Error(t, err)
	})

	t.Run("nil strategy rejected", func(t *testing.T) {
		cfg := baseCfg
		cfg.Strategy = nil
		_, err := NewManager(cfg)
		assert.Error(t, err)
	})

	t.Run("nil factory rejected", func(t *testing.T) {
		cfg := baseCfg
		cfg.TransportFactory = nil
		_, err := NewManager(cfg)
		assert.Error(t, err)
	})

	t.Run("valid config succeeds", func(t *testing.T) {
		m, err := NewManager(baseCfg)
		require.NoError(t, err)
		assert.Equal(t, 4, m.OpenLaneCount())
		assert.Equal(t, "cache", m.ConnectionName())
	})
}

// TestConstructionRollsBackOnFactoryFailure covers scenario S6: with N=2
// lanes requested, a factory that fails on the second call must leave no
// open lanes behind.
func TestConstructionRollsBackOnFactoryFailure(t *testing.T) {
	factory, produced := transporttest.FactoryFailingAfter(2)
	cfg := Config{
		ConnectionName:   "cache",
		NumLanes:         2,
		Strategy:         NewRoundRobinStrategy(),
		TransportFactory: factory,
	}

	m, err := NewManager(cfg)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInitializationFailed)
	require.Nil(t, m)

	require.Len(t, *produced, 1)
	assert.Equal(t, int64(1), (*produced)[0].CloseCount())
}

func TestAcquireRoundRobinDistributesAcrossLanes(t *testing.T) {
	var produced []*transporttest.Fake
	m, err := NewManager(Config{
		ConnectionName:   "cache",
		NumLanes:         4,
		Strategy:         NewRoundRobinStrategy(),
		TransportFactory: transporttest.Factory(&produced),
	})
	require.NoError(t, err)
	defer m.Teardown()

	seen := make(map[int]bool)
	for i := 0; i < 8; i++ {
		h, err := m.Acquire()
		require.NoError(t, err)
		seen[h.LaneIndex()] = true
		require.NoError(t, h.Close())
	}
	assert.Len(t, seen, 4, "round-robin over 8 acquisitions on 4 lanes should visit every lane")
}

func TestWithStrategySwapsSelectionWithoutClosingLanes(t *testing.T) {
	var produced []*transporttest.Fake
	m, err := NewManager(Config{
		ConnectionName:   "cache",
		NumLanes:         4,
		Strategy:         NewRoundRobinStrategy(),
		TransportFactory: transporttest.Factory(&produced),
	})
	require.NoError(t, err)
	defer m.Teardown()

	held, err := m.Acquire()
	require.NoError(t, err)
	heldIdx := held.LaneIndex()

	lif := NewLeastInFlightStrategy()
	m.WithStrategy(lif)

	for i := 0; i < 10; i++ {
		h, err := m.Acquire()
		require.NoError(t, err)
		assert.NotEqual(t, heldIdx, h.LaneIndex())
		require.NoError(t, h.Close())
	}

	for _, fk := range produced {
		assert.False(t, fk.CloseCount() > 0, "swapping strategies must not close any lane's transport")
	}
	require.NoError(t, held.Close())
}

func TestAcquireFailsAfterTeardown(t *testing.T) {
	var produced []*transporttest.Fake
	m, err := NewManager(Config{
		ConnectionName:   "cache",
		NumLanes:         2,
		Strategy:         NewRoundRobinStrategy(),
		TransportFactory: transporttest.Factory(&produced),
	})
	require.NoError(t, err)

	m.Teardown()
	_, err = m.Acquire()
	assert.ErrorIs(t, err, ErrManagerShutDown)
}

func TestTeardownIsIdempotentAndClosesEveryLane(t *testing.T) {
	var produced []*transporttest.Fake
	m, err := NewManager(Config{
		ConnectionName:   "cache",
		NumLanes:         3,
		Strategy:         NewRoundRobinStrategy(),
		TransportFactory: transporttest.Factory(&produced),
	})
	require.NoError(t, err)

	m.Teardown()
	m.Teardown()
	m.Teardown()

	for _, fk := range produced {
		assert.Equal(t, int64(1), fk.CloseCount())
	}
}

// closeErrTransport wraps a Fake so that Close still runs but reports an
// error.
type closeErrTransport struct{ *transporttest.Fake }

func (c closeErrTransport) Close() error {
	_ = c.Fake.Close()
	return errors.New("boom")
}

func TestTeardownDoesNotPanicOnCloseError(t *testing.T) {
	var produced []*transporttest.Fake
	factory := func() (transport.Transport, error) {
		fk := transporttest.New()
		produced = append(produced, fk)
		return closeErrTransport{fk}, nil
	}
	m, err := NewManager(Config{
		ConnectionName:   "cache",
		NumLanes:         2,
		Strategy:         NewRoundRobinStrategy(),
		TransportFactory: factory,
	})
	require.NoError(t, err)
	assert.NotPanics(t, func() { m.Teardown() })
}

// TestLeastInFlightSteersAwayFromHeldLane covers scenario S2: with N=4
// lanes and one lane holding an open borrow, every subsequent acquisition
// under least-in-flight must land on one of the other three.
func TestLeastInFlightSteersAwayFromHeldLane(t *testing.T) {
	var produced []*transporttest.Fake
	m, err := NewManager(Config{
		ConnectionName:   "cache",
		NumLanes:         4,
		Strategy:         NewLeastInFlightStrategy(),
		TransportFactory: transporttest.Factory(&produced),
	})
	require.NoError(t, err)
	defer m.Teardown()

	held, err := m.Acquire()
	require.NoError(t, err)
	heldIdx := held.LaneIndex()

	for i := 0; i < 30; i++ {
		h, err := m.Acquire()
		require.NoError(t, err)
		assert.NotEqual(t, heldIdx, h.LaneIndex())
		require.NoError(t, h.Close())
	}
}

// TestLeastInFlightConcurrentStress covers scenario S4/S5: many goroutines
// acquiring and releasing concurrently must never drive any lane's
// in-flight counter negative nor leave a stale positive count once all
// goroutines finish.
func TestLeastInFlightConcurrentStress(t *testing.T) {
	var produced []*transporttest.Fake
	m, err := NewManager(Config{
		ConnectionName:   "cache",
		NumLanes:         4,
		Strategy:         NewLeastInFlightStrategy(),
		TransportFactory: transporttest.Factory(&produced),
	})
	require.NoError(t, err)
	defer m.Teardown()

	const workers = 50
	const perWorker = 200
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				h, err := m.Acquire()
				if err != nil {
					return
				}
				_, _ = h.Do(context.Background(), transport.Command{Name: "PING"})
				_ = h.Close()
			}
		}()
	}
	wg.Wait()

	for i := 0; i < m.OpenLaneCount(); i++ {
		assert.Equal(t, int32(0), m.LaneInFlight(i), "lane %d should have no residual in-flight count", i)
	}
}

// TestThreadAffinityAcquireStableWithinGoroutine covers scenario S3: a
// fixed goroutine repeatedly acquiring under thread-affinity must always
// land on the same lane.
func TestThreadAffinityAcquireStableWithinGoroutine(t *testing.T) {
	var produced []*transporttest.Fake
	m, err := NewManager(Config{
		ConnectionName:   "cache",
		NumLanes:         4,
		Strategy:         NewThreadAffinityStrategy(),
		TransportFactory: transporttest.Factory(&produced),
	})
	require.NoError(t, err)
	defer m.Teardown()

	const goroutines = 64
	var wg sync.WaitGroup
	results := make(chan bool, goroutines)
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			h1, err := m.Acquire()
			if err != nil {
				results <- false
				return
			}
			first := h1.LaneIndex()
			require.NoError(t, h1.Close())

			stable := true
			for i := 0; i < 20; i++ {
				h, err := m.Acquire()
				if err != nil || h.LaneIndex() != first {
					stable = false
					_ = h
					break
				}
				_ = h.Close()
			}
			results <- stable
		}()
	}
	wg.Wait()
	close(results)
	for ok := range results {
		assert.True(t, ok)
	}
}
