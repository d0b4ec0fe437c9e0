package worker

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/blueenergy/strategy-supervisor/internal/config"
	"github.com/blueenergy/strategy-supervisor/internal/logger"
	"github.com/blueenergy/strategy-supervisor/internal/logrouter"
	"github.com/blueenergy/strategy-supervisor/internal/logstream"
	"github.com/blueenergy/strategy-supervisor/internal/supervisorerrors"
	"github.com/blueenergy/strategy-supervisor/internal/version"
	"github.com/blueenergy/strategy-supervisor/internal/workerkey"
)

// StopDeadline bounds how long Stop waits for the engine's Run loop to
// return before declaring a WorkerStopTimeout and proceeding with
// cleanup anyway.
const StopDeadline = 5 * time.Second

// AdapterOptions configures EngineAdapter construction.
type AdapterOptions struct {
	LogDir     string
	PublicHost string
	// Backends lists the log sinks to enable: "file" and/or "stream".
	// A nil or empty slice enables both, matching prior behavior.
	Backends []string
	// StreamHistory overrides logstream.DefaultHistory; 0 keeps the default.
	StreamHistory int
	// DisableStream skips standing up a LogStreamEndpoint, for tests and
	// for workers that failed StreamStartupFailure and must run without
	// one.
	DisableStream bool
}

func (o AdapterOptions) enables(name string) bool {
	if len(o.Backends) == 0 {
		return true
	}

	for _, b := range o.Backends {
		if b == name {
			return true
		}
	}

	return false
}

// EngineAdapter is the concrete WorkerContract: it wraps a strategy
// Engine, builds the worker's LogRouter (file sink + stream sink), and
// attaches the router to both its own component logger and the
// engine's logger.
type EngineAdapter struct {
	cfg        config.StrategyConfig
	engine     Engine
	log        *logger.Logger
	router     *logrouter.Router
	stream     *logstream.Endpoint
	publicHost string

	mu       sync.Mutex
	state    State
	running  bool
	stopOnce sync.Once
	cancel   context.CancelFunc
	done     chan struct{}
}

// New constructs an EngineAdapter for cfg. It builds the file sink at
// LogDir/workers/user_symbol_strategy.log and, unless DisableStream is set, a
// LogStreamEndpoint on an ephemeral port, wires both into a Router, and
// only then invokes ctor so the engine's own logger is the routed one
// from the first log statement it emits. A stream bind failure is
// logged and the adapter continues without a stream (StreamStartupFailure
// policy) rather than failing construction. A log file that cannot be
// opened fails construction with ErrLogSinkFailure; there is no console
// fallback for that case.
func New(cfg config.StrategyConfig, account config.Account, warmupDays int, ctor Constructor, log *logger.Logger, opts AdapterOptions) (*EngineAdapter, error) {
	if required, ok := cfg.Params["min_engine_version"].(string); ok && required != "" {
		if err := version.CheckVersionCompatibility(version.GetVersion(), required); err != nil {
			return nil, fmt.Errorf("%w: %v", supervisorerrors.ErrWorkerStartFailure, err)
		}
	}

	var sinks []logrouter.Sink

	if opts.enables("file") {
		fileName := fmt.Sprintf("%s_%s_%s.log", orEmpty(cfg.UserID), cfg.Symbol, cfg.StrategyKey)
		filePath := filepath.Join(opts.LogDir, "workers", fileName)

		fileSink, err := logrouter.NewFileSink(filePath, logrouter.DefaultMaxBytes, logrouter.DefaultBackups)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", supervisorerrors.ErrLogSinkFailure, err)
		}

		sinks = append(sinks, fileSink)
	}

	var stream *logstream.Endpoint

	if !opts.DisableStream && opts.enables("stream") {
		stream = logstream.New(log, opts.StreamHistory)
		if err := stream.Start(streamHost(opts.PublicHost), 0); err != nil {
			log.Warn("log stream endpoint failed to start; worker runs without a stream")

			stream = nil
		} else {
			sinks = append(sinks, logrouter.NewStreamSink(stream))
		}
	}

	router := logrouter.New(cfg.Symbol, log, sinks...)
	routedLogger := logrouter.NewLogger(router, zapcore.InfoLevel)

	engine, err := ctor(cfg.Symbol, account, cfg.UserID, warmupDays, cfg.Params, routedLogger)
	if err != nil {
		router.Close()

		if stream != nil {
			stream.Stop()
		}

		return nil, fmt.Errorf("%w: %v", supervisorerrors.ErrWorkerStartFailure, err)
	}

	return &EngineAdapter{
		cfg:        cfg,
		engine:     engine,
		log:        &logger.Logger{Logger: zap.New(zapcore.NewTee(log.Core(), routedLogger.Core())).Named(string(cfg.WorkerKey()))},
		router:     router,
		stream:     stream,
		publicHost: opts.PublicHost,
		state:      StateCreated,
	}, nil
}

func orEmpty(s string) string {
	if s == "" {
		return "anon"
	}

	return s
}

func streamHost(publicHost string) string {
	if publicHost == "" {
		return "127.0.0.1"
	}

	return "0.0.0.0"
}

func errField(err error) zap.Field {
	return zap.Error(err)
}

// RoutedLogger returns the worker's Router: the attribution filter and
// sinks behind both the logger New passes to the engine's Constructor
// and the adapter's own logger.
func (a *EngineAdapter) RoutedLogger() *logrouter.Router {
	return a.router
}

// Start implements Contract.
func (a *EngineAdapter) Start() error {
	a.mu.Lock()
	if a.state != StateCreated {
		a.mu.Unlock()

		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.done = make(chan struct{})
	a.state = StateRunning
	a.running = true
	a.mu.Unlock()

	go a.run(ctx)

	return nil
}

func (a *EngineAdapter) run(ctx context.Context) {
	defer close(a.done)

	err := a.engine.Run(ctx)

	a.mu.Lock()
	a.running = false

	if err != nil && ctx.Err() == nil {
		a.state = StateError
		a.log.Error("worker run failure", errField(fmt.Errorf("%w: %v", supervisorerrors.ErrWorkerRunFailure, err)))
	} else if a.state == StateRunning {
		a.state = StateStopped
	}
	a.mu.Unlock()
}

// Stop implements Contract. Idempotent: the second and later calls are
// no-ops.
func (a *EngineAdapter) Stop(saveState bool) error {
	var stopErr error

	a.stopOnce.Do(func() {
		a.mu.Lock()
		cancel := a.cancel
		done := a.done
		a.mu.Unlock()

		if cancel != nil {
			cancel()
		}

		_ = a.engine.Stop()

		if done != nil {
			select {
			case <-done:
			case <-time.After(StopDeadline):
				a.log.Warn("worker stop timeout; proceeding with cleanup")
				stopErr = fmt.Errorf("%w: %s", supervisorerrors.ErrWorkerStopTimeout, a.cfg.WorkerKey())
			}
		}

		if saveState {
			if err := a.engine.SaveState(); err != nil {
				a.log.Warn("best-effort save_state failed on stop", errField(err))
			}
		}

		if a.stream != nil {
			a.stream.Stop()
		}

		a.router.Close()

		a.mu.Lock()
		if a.state != StateError {
			a.state = StateStopped
		}
		a.mu.Unlock()
	})

	return stopErr
}

// IsRunning implements Contract.
func (a *EngineAdapter) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.state == StateRunning && a.running
}

// GetStats implements Contract.
func (a *EngineAdapter) GetStats() Stats {
	snap := a.engine.Snapshot()

	a.mu.Lock()
	state := a.state
	a.mu.Unlock()

	return Stats{
		State:         state,
		Symbol:        a.cfg.Symbol,
		StrategyKey:   a.cfg.StrategyKey,
		Engine:        string(a.cfg.Engine),
		BarsProcessed: snap.BarsProcessed,
		Position:      snap.Position,
		EntryPrice:    snap.EntryPrice,
		Extras:        snap.Extras,
	}
}

// SaveState implements Contract.
func (a *EngineAdapter) SaveState() bool {
	return a.engine.SaveState() == nil
}

// LoadState implements Contract.
func (a *EngineAdapter) LoadState() bool {
	return a.engine.LoadState() == nil
}

// GetLogStreamURL implements Contract. The returned host is substituted
// with the configured public host when set, since the endpoint binds to
// 0.0.0.0/127.0.0.1 but clients need a reachable address.
func (a *EngineAdapter) GetLogStreamURL() string {
	if a.stream == nil {
		return ""
	}

	host, port := a.stream.Address()
	if port == 0 {
		return ""
	}

	if a.publicHost != "" {
		host = a.publicHost
	}

	return fmt.Sprintf("ws://%s:%d", host, port)
}

// WorkerKey implements Contract.
func (a *EngineAdapter) WorkerKey() workerkey.Key { return a.cfg.WorkerKey() }

// Symbol implements Contract.
func (a *EngineAdapter) Symbol() string { return a.cfg.Symbol }

// StrategyKey implements Contract.
func (a *EngineAdapter) StrategyKey() string { return a.cfg.StrategyKey }

// UserID implements Contract.
func (a *EngineAdapter) UserID() string { return a.cfg.UserID }
