// Package lifecycle implements the daily edge-event controller:
// PreOpen, PostClose and Cleanup firing once per trading day at their
// configured times, driven by a robfig/cron schedule and guarded
// against re-firing within the same process by in-memory last-fired
// markers. Grounded in a calendar-aware session manager's gating logic
// and the registry's FactoryFn for restart-on-PreOpen.
package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/blueenergy/strategy-supervisor/internal/calendar"
	"github.com/blueenergy/strategy-supervisor/internal/config"
	"github.com/blueenergy/strategy-supervisor/internal/logger"
	"github.com/blueenergy/strategy-supervisor/internal/orchestrator"
	"github.com/blueenergy/strategy-supervisor/internal/workerkey"
)

// EventKind is one of the three daily edge events.
type EventKind int

const (
	PreOpen EventKind = iota
	PostClose
	Cleanup
)

func (k EventKind) String() string {
	switch k {
	case PreOpen:
		return "pre_open"
	case PostClose:
		return "post_close"
	case Cleanup:
		return "cleanup"
	default:
		return "unknown"
	}
}

// Schedule is the cron expression for each event, in the process's
// local time zone.
type Schedule struct {
	PreOpen   string
	PostClose string
	Cleanup   string
}

// DefaultSchedule fires at the typical daily edges: 09:00 pre-open,
// 15:05 post-close, 15:30 cleanup.
func DefaultSchedule() Schedule {
	return Schedule{
		PreOpen:   "0 9 * * *",
		PostClose: "5 15 * * *",
		Cleanup:   "30 15 * * *",
	}
}

// registryEntry is one row of the controller's own (WorkerKey →
// factory, original config) registry: everything needed to recreate a
// worker that has self-terminated without going through the generic
// ConfigSource-diff reconcile path.
type registryEntry struct {
	factory orchestrator.FactoryFn
	config  config.StrategyConfig
}

// Controller fires PreOpen, PostClose and Cleanup at most once per
// trading day each. It keeps its own registry of every worker it has
// observed running — keyed by WorkerKey, each entry pairing the
// worker's factory and original config — refreshed from the
// orchestrator on every PreOpen, so it can tell a self-terminated
// worker (config unchanged, but IsRunning()==false) from one the
// orchestrator's own reconcile already stopped or replaced, and
// recreate only the former. Markers live in memory only: a process
// restart between the event time and the next day's reconcile may
// cause a missed or (if it restarts after firing but state wasn't
// checked) re-fired event. This is a deliberate trade-off, not an
// oversight: persisting markers would require a store this supervisor
// does not otherwise need.
type Controller struct {
	cal    *calendar.Calendar
	orch   *orchestrator.Orchestrator
	source config.Source
	log    *logger.Logger
	cron   *cron.Cron

	mu        sync.Mutex
	lastFired map[EventKind]time.Time
	registry  map[workerkey.Key]registryEntry
}

// New returns a Controller that reconciles through orch and reads
// desired configs through source.
func New(cal *calendar.Calendar, orch *orchestrator.Orchestrator, source config.Source, log *logger.Logger) *Controller {
	return &Controller{
		cal:       cal,
		orch:      orch,
		source:    source,
		log:       log,
		cron:      cron.New(),
		lastFired: make(map[EventKind]time.Time),
		registry:  make(map[workerkey.Key]registryEntry),
	}
}

// Start schedules all three events per schedule and begins the cron
// runner's background goroutine.
func (c *Controller) Start(schedule Schedule) error {
	if _, err := c.cron.AddFunc(schedule.PreOpen, func() { c.fire(context.Background(), PreOpen) }); err != nil {
		return err
	}

	if _, err := c.cron.AddFunc(schedule.PostClose, func() { c.fire(context.Background(), PostClose) }); err != nil {
		return err
	}

	if _, err := c.cron.AddFunc(schedule.Cleanup, func() { c.fire(context.Background(), Cleanup) }); err != nil {
		return err
	}

	c.cron.Start()

	return nil
}

// Stop ends the cron runner, waiting for any in-flight job.
func (c *Controller) Stop() {
	ctx := c.cron.Stop()
	<-ctx.Done()
}

// Fire runs kind's handler directly if today is a trading day and kind
// has not already fired today, then updates the marker; handler failures
// are only logged and still mark the event as fired. Exported
// so tests and an operator CLI can trigger an event out of band without
// waiting for the cron schedule.
func (c *Controller) Fire(ctx context.Context, kind EventKind, now time.Time) {
	if !c.cal.IsTradingDay(now) {
		return
	}

	c.mu.Lock()
	last, fired := c.lastFired[kind]
	alreadyToday := fired && sameDay(last, now)
	c.mu.Unlock()

	if alreadyToday {
		return
	}

	c.runHandler(ctx, kind)

	c.mu.Lock()
	c.lastFired[kind] = now
	c.mu.Unlock()
}

func (c *Controller) fire(ctx context.Context, kind EventKind) {
	c.Fire(ctx, kind, time.Now())
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()

	return ay == by && am == bm && ad == bd
}

func (c *Controller) runHandler(ctx context.Context, kind EventKind) {
	switch kind {
	case PreOpen:
		c.log.Info("pre_open: reconciling to start today's enabled workers")

		if err := c.orch.Reconcile(ctx); err != nil {
			c.log.Warn("pre_open reconcile failed", zap.Error(err))
		}

		c.restartDead(ctx)
	case PostClose:
		c.log.Info("post_close: stopping all workers for the day, saving state")
		c.orch.StopAll(true)
	case Cleanup:
		c.log.Info("cleanup: force-stopping any still-alive workers without saving state")
		c.orch.StopAll(false)
	}
}

// refreshRegistryLocked rebuilds the registry from the orchestrator's
// current running set. Must be called with c.mu held.
func (c *Controller) refreshRegistryLocked() {
	c.registry = make(map[workerkey.Key]registryEntry)

	for _, entry := range c.orch.Snapshot() {
		factory, ok := c.orch.FactoryFor(entry.Config.Engine)
		if !ok {
			continue
		}

		c.registry[entry.Key] = registryEntry{factory: factory, config: entry.Config}
	}
}

// restartDead refreshes the registry, then for every registered
// WorkerKey whose current worker reports IsRunning()==false,
// reconstructs it from its stored factory and original config. Workers
// the orchestrator's own Reconcile has just stopped/replaced (removed
// or modified configs) are excluded, since a fresh Snapshot was taken
// after Reconcile already ran.
func (c *Controller) restartDead(ctx context.Context) {
	c.mu.Lock()
	c.refreshRegistryLocked()
	entries := make(map[workerkey.Key]registryEntry, len(c.registry))

	for key, entry := range c.registry {
		entries[key] = entry
	}
	c.mu.Unlock()

	for key, entry := range entries {
		w, ok := c.orch.Worker(key)
		if !ok || w.IsRunning() {
			continue
		}

		c.log.Warn("pre_open: worker self-terminated; recreating from original config", zap.String("worker_key", string(key)))

		account, _, err := c.source.ResolveAccount(ctx, entry.config.UserID)
		if err != nil {
			c.log.Warn("account resolution failed while recreating self-terminated worker", zap.String("worker_key", string(key)), zap.Error(err))
		}

		fresh, err := entry.factory(ctx, entry.config, account)
		if err != nil {
			c.log.Error("failed to recreate self-terminated worker", zap.String("worker_key", string(key)), zap.Error(err))

			continue
		}

		if err := fresh.Start(); err != nil {
			c.log.Error("failed to start recreated worker", zap.String("worker_key", string(key)), zap.Error(err))

			continue
		}

		c.orch.ReplaceWorker(key, fresh)
	}
}
