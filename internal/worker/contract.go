// Package worker defines the WorkerContract every concrete worker
// satisfies and EngineAdapter, the one concrete implementation this
// supervisor ships: a worker that wraps an out-of-scope strategy
// Engine and wires its logger into a LogRouter and a LogStreamEndpoint.
package worker

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/blueenergy/strategy-supervisor/internal/config"
	"github.com/blueenergy/strategy-supervisor/internal/workerkey"
)

// State is one of the five worker lifecycle states from the data model.
// Only Created→Running→Stopped|Error and Running↔Paused are used by the
// core.
type State int

const (
	StateCreated State = iota
	StateRunning
	StatePaused
	StateStopped
	StateError
)

// String renders the state for logging and HTTP responses.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Stats is the non-blocking, never-failing snapshot GetStats returns.
type Stats struct {
	State         State           `json:"state"`
	Symbol        string          `json:"symbol"`
	StrategyKey   string          `json:"strategy_key"`
	Engine        string          `json:"engine"`
	BarsProcessed int64           `json:"bars_processed"`
	Position      decimal.Decimal `json:"position"`
	EntryPrice    decimal.Decimal `json:"entry_price"`
	Extras        map[string]any  `json:"extras,omitempty"`
}

// Contract is the abstract WorkerContract: the orchestrator drives every
// worker through this interface without knowing strategy internals.
type Contract interface {
	// Start transitions Created→Running and begins background activity.
	// Safe to call exactly once.
	Start() error

	// Stop signals the background activity to cease, waits up to a
	// bounded deadline, best-effort persists state if saveState, and
	// releases the LogStreamEndpoint. Idempotent.
	Stop(saveState bool) error

	// IsRunning reports State==Running AND the background activity is
	// still alive.
	IsRunning() bool

	// GetStats returns a snapshot of worker metrics. Never fails.
	GetStats() Stats

	// SaveState persists strategy state, returning success.
	SaveState() bool

	// LoadState restores strategy state, returning success.
	LoadState() bool

	// GetLogStreamURL returns scheme://host:port, or "" if unavailable.
	GetLogStreamURL() string

	// WorkerKey returns this worker's identity.
	WorkerKey() workerkey.Key

	// Symbol, StrategyKey and UserID return the identity components.
	Symbol() string
	StrategyKey() string
	UserID() string
}

// EngineSnapshot is the strategy-facing metrics Engine.Snapshot reports;
// EngineAdapter folds it into Stats.
type EngineSnapshot struct {
	BarsProcessed int64
	Position      decimal.Decimal
	EntryPrice    decimal.Decimal
	Extras        map[string]any
}

// Constructor instantiates a strategy Engine for one worker, mirroring
// the original vnpy_adapter's constructor signature (symbol, account
// info, user_id, warmup_days, params). It receives the worker's routed
// logger so the engine's own log statements pass through the same
// attribution filter and sinks as EngineAdapter's own logger.
type Constructor func(symbol string, account config.Account, userID string, warmupDays int, params map[string]any, log *zap.Logger) (Engine, error)

// Engine is the out-of-scope collaborator: the actual trading algorithm
// behind a worker. The core only ever sees this contract; strategy
// bodies themselves are supplied externally.
type Engine interface {
	// Run executes the engine's polling loop, blocking until ctx is
	// cancelled or a fatal error occurs.
	Run(ctx context.Context) error

	// Stop asks the engine to end its loop promptly; Run is still
	// expected to return once ctx is cancelled even without Stop.
	Stop() error

	// SaveState persists strategy state; never panics, reports success.
	SaveState() error

	// LoadState restores strategy state; never panics, reports success.
	LoadState() error

	// Snapshot returns the engine's current metrics.
	Snapshot() EngineSnapshot
}
