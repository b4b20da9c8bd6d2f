// Command lanedbench drives a laned.LanedManager against an in-memory
// fake transport to demonstrate construction, concurrent acquisition, and
// teardown, and to report basic selection distribution and throughput.
//
// Usage:
//
//	go run ./cmd/lanedbench -lanes 8 -strategy round-robin -workers 16 -ops 20000
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/99souls/laned/laned"
	"github.com/99souls/laned/lanedconfig"
	"github.com/99souls/laned/logging"
	"github.com/99souls/laned/metrics"
	"github.com/99souls/laned/transport"
)

func main() {
	var (
		numLanes      int
		strategyName  string
		workers       int
		opsPerWorker  int
		connName      string
		metricsPrefix string
	)
	flag.IntVar(&numLanes, "lanes", 4, "number of lanes")
	flag.StringVar(&strategyName, "strategy", "round-robin", "round-robin | thread-affinity | least-used")
	flag.IntVar(&workers, "workers", 8, "concurrent workers")
	flag.IntVar(&opsPerWorker, "ops", 5000, "operations per worker")
	flag.StringVar(&connName, "connection", "lanedbench", "connection name tag for metrics")
	flag.StringVar(&metricsPrefix, "metrics-prefix", "", "optional metric namespace prefix")
	flag.Parse()

	logger := logging.New(slog.Default())

	strategy, err := lanedconfig.ResolveStrategy(strategyName)
	if err != nil {
		log.Fatalf("resolve strategy: %v", err)
	}

	provider := metrics.NewPrometheusProvider(metrics.PrometheusProviderOptions{})
	sink := metrics.NewSink(provider, metricsPrefix)

	var opened int64
	manager, err := laned.NewManager(laned.Config{
		ConnectionName: connName,
		NumLanes:       numLanes,
		Strategy:       strategy,
		MetricsSink:    sink,
		TransportFactory: func() (transport.Transport, error) {
			atomic.AddInt64(&opened, 1)
			return newBenchTransport(), nil
		},
	})
	if err != nil {
		log.Fatalf("construct manager: %v", err)
	}
	defer manager.Teardown()

	logger.InfoCtx(context.Background(), "manager constructed",
		"lanes", manager.OpenLaneCount(), "strategy", strategyName, "opened_transports", opened)

	selections := make([]int64, numLanes)
	var selMu sync.Mutex

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			local := make([]int64, numLanes)
			for i := 0; i < opsPerWorker; i++ {
				h, err := manager.Acquire()
				if err != nil {
					return
				}
				local[h.LaneIndex()]++
				_, _ = h.Do(context.Background(), transport.Command{Name: "PING"})
				_ = h.Close()
			}
			selMu.Lock()
			for i := range local {
				selections[i] += local[i]
			}
			selMu.Unlock()
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	total := int64(workers * opsPerWorker)
	fmt.Printf("completed %d operations across %d lanes in %s (%.0f ops/sec)\n",
		total, numLanes, elapsed, float64(total)/elapsed.Seconds())
	for i, c := range selections {
		fmt.Printf("  lane %d: %d selections\n", i, c)
	}
}

// benchTransport is a zero-dependency stand-in for a real wire client,
// sized for this binary only, so the binary does not depend on
// transporttest, the test-support package this module's tests use.
type benchTransport struct {
	mu     sync.Mutex
	closed bool
}

func newBenchTransport() *benchTransport { return &benchTransport{} }

func (t *benchTransport) Do(ctx context.Context, cmd transport.Command) (transport.Reply, error) {
	return transport.Reply{Value: cmd.Name}, nil
}

func (t *benchTransport) IsOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.closed
}

func (t *benchTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *benchTransport) CloseAsync(ctx context.Context) <-chan error {
	ch := make(chan error, 1)
	ch <- t.Close()
	close(ch)
	return ch
}

var _ transport.Transport = (*benchTransport)(nil)
