// Package registry implements the static (engine, strategy_key) →
// engine_class lookup, replacing a runtime dotted-path import
// (vnpy_adapter.py's dynamic class resolution) with a compile-time
// constructor map populated at startup.
package registry

import (
	"fmt"
	"sync"

	"github.com/blueenergy/strategy-supervisor/internal/config"
	"github.com/blueenergy/strategy-supervisor/internal/supervisorerrors"
	"github.com/blueenergy/strategy-supervisor/internal/worker"
)

// Constructor is worker.Constructor: kept as an alias here so callers can
// write registry.Constructor without reaching into the worker package.
type Constructor = worker.Constructor

// Registry holds every registered engine_class constructor plus the
// (engine, strategy_key) → engine_class bindings used when a
// StrategyConfig carries no explicit override.
type Registry struct {
	mu       sync.RWMutex
	classes  map[string]Constructor
	bindings map[string]string // "engine|strategy_key" -> engine_class
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		classes:  make(map[string]Constructor),
		bindings: make(map[string]string),
	}
}

// RegisterClass registers a constructor under its dotted-path-style
// engine_class name.
func (r *Registry) RegisterClass(engineClass string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.classes[engineClass] = ctor
}

// Bind associates (engine, strategyKey) with an already-registered
// engine_class, used to resolve configs with no explicit override.
func (r *Registry) Bind(engine config.Engine, strategyKey, engineClass string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.bindings[bindingKey(engine, strategyKey)] = engineClass
}

func bindingKey(engine config.Engine, strategyKey string) string {
	return fmt.Sprintf("%s|%s", engine, strategyKey)
}

// Resolve picks the Constructor for cfg: an explicit EngineClass
// override wins; otherwise the (Engine, StrategyKey) binding is
// consulted. Returns ErrUnknownStrategy if neither resolves to a
// registered constructor.
func (r *Registry) Resolve(cfg config.StrategyConfig) (Constructor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	class := cfg.EngineClass
	if class == "" {
		class = r.bindings[bindingKey(cfg.Engine, cfg.StrategyKey)]
	}

	if class == "" {
		return nil, fmt.Errorf("%w: no engine_class for engine=%s strategy_key=%s", supervisorerrors.ErrUnknownStrategy, cfg.Engine, cfg.StrategyKey)
	}

	ctor, ok := r.classes[class]
	if !ok {
		return nil, fmt.Errorf("%w: unregistered engine_class %q", supervisorerrors.ErrUnknownStrategy, class)
	}

	return ctor, nil
}
