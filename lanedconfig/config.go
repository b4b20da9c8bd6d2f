// Package lanedconfig loads a laned.Config from YAML and optionally
// watches it for changes, swapping a running LanedManager's strategy
// on reload without closing any lane. It is deliberately outside the
// laned package itself: the core has no idea configuration exists.
package lanedconfig

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/99souls/laned/laned"
)

// Config is the on-disk shape lanedconfig loads and watches. NumLanes and
// ConnectionName map straight onto laned.Config; StrategyName is resolved
// through the package-level strategy registry into a laned.SelectionStrategy
// and MetricsPrefix is reserved for a metrics.Provider wired by the caller.
type Config struct {
	ConnectionName string `yaml:"connection_name"`
	NumLanes       int    `yaml:"num_lanes"`
	StrategyName   string `yaml:"strategy"`
	MetricsPrefix  string `yaml:"metrics_prefix"`
}

// StrategyConstructor builds a fresh laned.SelectionStrategy instance.
// Fresh, because a stateful strategy (least-used) captures a lane slice at
// Initialize time and must not be shared across managers.
type StrategyConstructor func() laned.SelectionStrategy

var registryMu sync.RWMutex
var registry = map[string]StrategyConstructor{
	"round-robin":     func() laned.SelectionStrategy { return laned.NewRoundRobinStrategy() },
	"thread-affinity": func() laned.SelectionStrategy { return laned.NewThreadAffinityStrategy() },
	"least-used":      func() laned.SelectionStrategy { return laned.NewLeastInFlightStrategy() },
}

// RegisterStrategy adds or overrides a name in the lane strategy registry.
// Call it before loading any Config that references name.
func RegisterStrategy(name string, ctor StrategyConstructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = ctor
}

// ResolveStrategy builds a laned.SelectionStrategy from name, or an error
// if name isn't registered.
func ResolveStrategy(name string) (laned.SelectionStrategy, error) {
	registryMu.RLock()
	ctor, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("lanedconfig: unknown strategy %q", name)
	}
	return ctor(), nil
}

// Load reads and parses a Config from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lanedconfig: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("lanedconfig: parse %s: %w", path, err)
	}
	return &cfg, nil
}

func checksum(cfg *Config) string {
	data, _ := yaml.Marshal(cfg)
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum)
}

// Watcher hot-reloads a Config file and swaps a bound LanedManager's
// strategy whenever StrategyName changes. NumLanes and ConnectionName
// changes in the file are ignored after construction — rebuilding the
// lane set means a new manager, outside this package's scope.
type Watcher struct {
	path    string
	manager *laned.LanedManager

	mu           sync.Mutex
	lastSum      string
	lastStrategy string
	watching     bool
	fswatch      *fsnotify.Watcher
}

// NewWatcher returns a Watcher bound to path and manager. It does not
// start watching until Start is called.
func NewWatcher(path string, manager *laned.LanedManager) *Watcher {
	return &Watcher{path: path, manager: manager}
}

// Start begins watching path's parent directory for writes, applying a
// strategy swap on every change whose StrategyName differs from the last
// applied one. It returns once the watcher is established; reload errors
// are delivered on the returned channel rather than surfaced here, since a
// single malformed write shouldn't tear down a long-running watch loop.
func (w *Watcher) Start(ctx context.Context) (<-chan error, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("lanedconfig: create watcher: %w", err)
	}
	dir := filepath.Dir(w.path)
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("lanedconfig: watch %s: %w", dir, err)
	}

	w.mu.Lock()
	w.fswatch = fsw
	w.watching = true
	w.mu.Unlock()

	errs := make(chan error, 8)
	go func() {
		defer close(errs)
		defer fsw.Close()
		for {
			select {
			case ev, ok := <-fsw.Events:
				if !ok {
					return
				}
				if ev.Name != w.path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := w.reload(); err != nil {
					errs <- err
				}
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				errs <- err
			case <-ctx.Done():
				return
			}
		}
	}()
	return errs, nil
}

func (w *Watcher) reload() error {
	cfg, err := Load(w.path)
	if err != nil {
		return err
	}
	sum := checksum(cfg)

	w.mu.Lock()
	unchanged := sum == w.lastSum || cfg.StrategyName == w.lastStrategy
	w.lastSum = sum
	w.mu.Unlock()
	if unchanged {
		return nil
	}

	strategy, err := ResolveStrategy(cfg.StrategyName)
	if err != nil {
		return fmt.Errorf("lanedconfig: reload %s: %w", w.path, err)
	}
	w.manager.WithStrategy(strategy)
	w.mu.Lock()
	w.lastStrategy = cfg.StrategyName
	w.mu.Unlock()
	return nil
}

// Stop closes the underlying file watcher. Idempotent.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.watching {
		return nil
	}
	w.watching = false
	return w.fswatch.Close()
}
