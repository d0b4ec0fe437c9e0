// Package supervisorerrors defines the error taxonomy from the supervisor's
// error handling design: a small set of named sentinel kinds, each wrapped
// with context via fmt.Errorf("%w: ...", ...) at the call site and checked
// with errors.Is/errors.As. None of these cross a component boundary as a
// process-fatal condition; each is recovered locally per the policy table.
package supervisorerrors

import "errors"

// Kinds mirror the taxonomy table in the supervisor's error handling design.
var (
	// ErrConfigLoadFailure is returned by ConfigSource.Load when the backing
	// store cannot be queried. Policy: log, keep previous desired set.
	ErrConfigLoadFailure = errors.New("config load failure")

	// ErrUnknownEngine is returned when a StrategyConfig names an engine
	// with no registered factory. Policy: log, skip that key.
	ErrUnknownEngine = errors.New("unknown engine")

	// ErrUnknownStrategy is returned when neither an explicit engine_class
	// override nor a registry lookup resolves a strategy implementation.
	// Policy: log, skip that key.
	ErrUnknownStrategy = errors.New("unknown strategy")

	// ErrWorkerStartFailure is returned when a factory or Start() fails.
	// Policy: log per worker, other workers continue.
	ErrWorkerStartFailure = errors.New("worker start failure")

	// ErrWorkerRunFailure marks an exception surfaced from the engine loop.
	// Policy: transition worker to Error, still invoke shutdown.
	ErrWorkerRunFailure = errors.New("worker run failure")

	// ErrWorkerStopTimeout is returned when Stop's bounded join exceeds its
	// deadline. Policy: log warning, proceed with cleanup.
	ErrWorkerStopTimeout = errors.New("worker stop timeout")

	// ErrLogSinkFailure is returned by EngineAdapter construction when the
	// worker's log file cannot be opened; that worker is not constructed.
	// A sink write failure at run time is not returned as an error: the
	// Router writes that record to the console fallback sink instead.
	ErrLogSinkFailure = errors.New("log sink failure")

	// ErrStreamStartupFailure is returned when a LogStreamEndpoint fails to
	// bind. Policy: log, worker runs without a stream.
	ErrStreamStartupFailure = errors.New("log stream startup failure")

	// ErrUnauthenticated maps to HTTP 401.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden maps to HTTP 403.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound maps to HTTP 404.
	ErrNotFound = errors.New("not found")
)
