// Package orchestrator implements the reconciliation engine: it diffs
// the desired set a ConfigSource reports against the currently running
// workers and drives start/stop calls to converge, in the
// stop-removed, stop-modified, then start-new order the invariants
// require. Grounded in a supervisory reconcile loop, generalized from
// a single engine to many independently-keyed workers.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/blueenergy/strategy-supervisor/internal/config"
	"github.com/blueenergy/strategy-supervisor/internal/logger"
	"github.com/blueenergy/strategy-supervisor/internal/supervisorerrors"
	"github.com/blueenergy/strategy-supervisor/internal/worker"
	"github.com/blueenergy/strategy-supervisor/internal/workerkey"
	"go.uber.org/zap"
)

// FactoryFn builds a running worker.Contract for cfg. The orchestrator
// never constructs an Engine directly; it hands the whole job to a
// FactoryFn so each engine family can apply its own AdapterOptions.
type FactoryFn func(ctx context.Context, cfg config.StrategyConfig, account config.Account) (worker.Contract, error)

// Orchestrator owns the (engine family) → FactoryFn map, the set of
// currently running workers keyed by WorkerKey, and — when
// reloadInterval is positive — the background hot-reload loop that
// reconciles on that cadence until StopAll cancels it.
type Orchestrator struct {
	source         config.Source
	factories      map[config.Engine]FactoryFn
	log            *logger.Logger
	reloadInterval time.Duration

	mu      sync.Mutex
	workers map[workerkey.Key]worker.Contract
	configs map[workerkey.Key]config.StrategyConfig

	reloadCancel context.CancelFunc
	reloadWG     sync.WaitGroup
}

// New returns an Orchestrator reading its desired set from source and
// dispatching construction to factories, one per engine family.
// reloadInterval is the hot-reload reconciliation cadence StartAll
// begins; 0 disables hot-reload entirely (StartAll only reconciles
// once).
func New(source config.Source, factories map[config.Engine]FactoryFn, log *logger.Logger, reloadInterval time.Duration) *Orchestrator {
	return &Orchestrator{
		source:         source,
		factories:      factories,
		log:            log,
		reloadInterval: reloadInterval,
		workers:        make(map[workerkey.Key]worker.Contract),
		configs:        make(map[workerkey.Key]config.StrategyConfig),
	}
}

// Reconcile loads the desired set and converges running workers to it:
// workers whose config disappeared are stopped, workers whose config
// changed (by content hash) are stopped and restarted in this pass's
// start-new phase, and workers newly present are started.
// Ordering is always stop-removed, stop-modified, start-new, and within
// each phase WorkerKeys are visited in sorted order so a given desired
// set reconciles identically regardless of map iteration order.
func (o *Orchestrator) Reconcile(ctx context.Context) error {
	desired, err := o.source.Load(ctx, config.Filter{})
	if err != nil {
		o.log.Warn("config load failed during reconcile; leaving workers as-is", zap.Error(err))

		return nil
	}

	o.mu.Lock()
	removed, modified, added := o.diffLocked(desired)
	o.mu.Unlock()

	for _, key := range removed {
		o.stopOne(key, true)
	}

	for _, key := range modified {
		o.stopOne(key, true)
	}

	for _, key := range added {
		o.startOne(ctx, key, desired[key])
	}

	return nil
}

// diffLocked must be called with o.mu held. It returns, each in sorted
// key order: keys present in o.workers but absent from desired
// ("removed"), keys present in both whose content hash differs
// ("modified"), and keys present in desired but absent from o.workers,
// OR present among modified and therefore due for a fresh start
// ("added" — includes modified keys, since stopping a modified worker
// leaves it absent until the start-new phase recreates it).
func (o *Orchestrator) diffLocked(desired map[workerkey.Key]config.StrategyConfig) (removed, modified, added []workerkey.Key) {
	for key := range o.workers {
		if _, ok := desired[key]; !ok {
			removed = append(removed, key)
		}
	}

	for key, cfg := range desired {
		if existing, ok := o.configs[key]; ok {
			if existing.ContentHash() != cfg.ContentHash() {
				modified = append(modified, key)
				added = append(added, key)
			}
		} else {
			added = append(added, key)
		}
	}

	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })
	sort.Slice(modified, func(i, j int) bool { return modified[i] < modified[j] })
	sort.Slice(added, func(i, j int) bool { return added[i] < added[j] })

	return removed, modified, added
}

func (o *Orchestrator) stopOne(key workerkey.Key, saveState bool) {
	o.mu.Lock()
	w, ok := o.workers[key]
	if ok {
		delete(o.workers, key)
		delete(o.configs, key)
	}
	o.mu.Unlock()

	if !ok {
		return
	}

	if err := w.Stop(saveState); err != nil {
		o.log.Warn("worker stop reported an error; cleanup proceeded anyway", zap.String("worker_key", string(key)), zap.Error(err))
	}
}

func (o *Orchestrator) startOne(ctx context.Context, key workerkey.Key, cfg config.StrategyConfig) {
	factory, ok := o.factories[cfg.Engine]
	if !ok {
		err := fmt.Errorf("%w: engine %q has no registered factory", supervisorerrors.ErrUnknownEngine, cfg.Engine)
		o.log.Warn("skipping worker", zap.String("worker_key", string(key)), zap.Error(err))

		return
	}

	account, _, err := o.source.ResolveAccount(ctx, cfg.UserID)
	if err != nil {
		o.log.Warn("account resolution failed; starting worker with zero-value account", zap.String("worker_key", string(key)), zap.Error(err))
	}

	w, err := factory(ctx, cfg, account)
	if err != nil {
		o.log.Error("worker construction failed; this worker is skipped until the next reconcile", zap.String("worker_key", string(key)), zap.Error(err))

		return
	}

	if err := w.Start(); err != nil {
		o.log.Error("worker start failed", zap.String("worker_key", string(key)), zap.Error(err))

		return
	}

	o.mu.Lock()
	o.workers[key] = w
	o.configs[key] = cfg
	o.mu.Unlock()
}

// StartAll reconciles once against an empty running set, starting every
// enabled desired config, then — if reloadInterval is positive — begins
// the background hot-reload loop that reconciles on that cadence until
// StopAll cancels it.
func (o *Orchestrator) StartAll(ctx context.Context) error {
	if err := o.Reconcile(ctx); err != nil {
		return err
	}

	if o.reloadInterval <= 0 {
		return nil
	}

	loopCtx, cancel := context.WithCancel(context.Background())

	o.mu.Lock()
	o.reloadCancel = cancel
	o.mu.Unlock()

	o.reloadWG.Add(1)

	go o.reloadLoop(loopCtx)

	return nil
}

// reloadLoop reconciles every reloadInterval until ctx is cancelled by
// StopAll.
func (o *Orchestrator) reloadLoop(ctx context.Context) {
	defer o.reloadWG.Done()

	ticker := time.NewTicker(o.reloadInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := o.Reconcile(ctx); err != nil {
				o.log.Warn("hot-reload reconcile failed", zap.Error(err))
			}
		}
	}
}

// StopAll cancels the hot-reload loop (if running) and stops every
// worker, sorted by key for deterministic shutdown ordering, persisting
// state first iff saveState. PostClose uses saveState=true; Cleanup
// force-stops with saveState=false.
func (o *Orchestrator) StopAll(saveState bool) {
	o.mu.Lock()
	cancel := o.reloadCancel
	o.reloadCancel = nil
	o.mu.Unlock()

	if cancel != nil {
		cancel()
		o.reloadWG.Wait()
	}

	o.mu.Lock()
	keys := make([]workerkey.Key, 0, len(o.workers))
	for key := range o.workers {
		keys = append(keys, key)
	}
	o.mu.Unlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for _, key := range keys {
		o.stopOne(key, saveState)
	}
}

// WorkerStatus is the per-worker slice of GetStatus's result.
type WorkerStatus struct {
	Key   workerkey.Key
	Stats worker.Stats
}

// GetStatus returns every running worker's stats, sorted by key.
func (o *Orchestrator) GetStatus() []WorkerStatus {
	o.mu.Lock()
	defer o.mu.Unlock()

	statuses := make([]WorkerStatus, 0, len(o.workers))
	for key, w := range o.workers {
		statuses = append(statuses, WorkerStatus{Key: key, Stats: w.GetStats()})
	}

	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Key < statuses[j].Key })

	return statuses
}

// Worker returns the running worker for key, if any.
func (o *Orchestrator) Worker(key workerkey.Key) (worker.Contract, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	w, ok := o.workers[key]

	return w, ok
}

// RemoveWithoutStop drops key from the running set without stopping it,
// for a caller that has already stopped that worker itself, so the next
// Reconcile does not stop it a second time.
func (o *Orchestrator) RemoveWithoutStop(key workerkey.Key) {
	o.mu.Lock()
	defer o.mu.Unlock()

	delete(o.workers, key)
	delete(o.configs, key)
}

// FactoryFor returns the FactoryFn registered for engine, so a
// collaborator that needs to reconstruct a worker directly (the
// lifecycle controller's pre-open recreation of a self-terminated
// worker) does not need its own copy of the engine→factory map.
func (o *Orchestrator) FactoryFor(engine config.Engine) (FactoryFn, bool) {
	factory, ok := o.factories[engine]

	return factory, ok
}

// WorkerEntry pairs a currently running worker's key with the config it
// was started from.
type WorkerEntry struct {
	Key    workerkey.Key
	Config config.StrategyConfig
}

// Snapshot returns every currently running worker's key and original
// config, sorted by key, for a collaborator (the lifecycle controller)
// building its own registry of (WorkerKey → factory, original config)
// to check liveness and recreate self-terminated workers outside the
// normal reconcile path.
func (o *Orchestrator) Snapshot() []WorkerEntry {
	o.mu.Lock()
	defer o.mu.Unlock()

	entries := make([]WorkerEntry, 0, len(o.configs))
	for key, cfg := range o.configs {
		entries = append(entries, WorkerEntry{Key: key, Config: cfg})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })

	return entries
}

// ReplaceWorker substitutes the running worker for key with w, keeping
// its original config. Used after the lifecycle controller recreates a
// self-terminated worker so the orchestrator's running set reflects the
// new instance instead of the dead one.
func (o *Orchestrator) ReplaceWorker(key workerkey.Key, w worker.Contract) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.configs[key]; !ok {
		return
	}

	o.workers[key] = w
}
