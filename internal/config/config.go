// Package config models the desired set of strategy configurations and
// the ConfigSource collaborator that reads them, grounded in the
// LiveTradingEngineConfig validation style (struct tags for
// github.com/go-playground/validator/v10 and github.com/invopop/jsonschema).
package config

import (
	"context"

	"github.com/blueenergy/strategy-supervisor/internal/workerkey"
)

// Engine is the strategy engine family a StrategyConfig targets.
type Engine string

const (
	// EngineVNPY mirrors the original system's default engine family.
	EngineVNPY Engine = "vnpy"
	// EngineBacktrader is an alternate engine family.
	EngineBacktrader Engine = "backtrader"
)

// StrategyConfig is the immutable value ConfigSource produces. Two
// StrategyConfig values with the same (UserID, Symbol, StrategyKey) but
// differing in any other field are, by definition, different
// configurations of the same worker identity.
type StrategyConfig struct {
	UserID      string         `json:"user_id" yaml:"user_id"`
	Symbol      string         `json:"symbol" yaml:"symbol" validate:"required"`
	StrategyKey string         `json:"strategy_key" yaml:"strategy_key" validate:"required"`
	Engine      Engine         `json:"engine" yaml:"engine" validate:"required"`
	Params      map[string]any `json:"params" yaml:"params"`
	Enabled     bool           `json:"enabled" yaml:"enabled"`
	EngineClass string         `json:"engine_class,omitempty" yaml:"engine_class,omitempty"`
}

// WorkerKey computes this configuration's WorkerKey.
func (c StrategyConfig) WorkerKey() workerkey.Key {
	return workerkey.Format(c.UserID, c.Symbol, c.StrategyKey)
}

// Account is the secondary lookup ConfigSource.ResolveAccount returns.
type Account struct {
	SecuritiesAccountID string `json:"securities_account_id" yaml:"securities_account_id"`
	Broker              string `json:"broker" yaml:"broker"`
	AccountID           string `json:"account_id" yaml:"account_id"`
}

// Filter narrows ConfigSource.Load to a subset of the desired set.
type Filter struct {
	// UserID, when non-empty, restricts the result to that user's configs.
	UserID string
}

// Source reads the desired set of StrategyConfigs keyed by WorkerKey.
// Implementations must never return an error that aborts the orchestrator:
// on a backing-store failure they return an empty map together with an
// error wrapping ErrConfigLoadFailure, which the orchestrator logs before
// keeping its current workers.
type Source interface {
	// Load returns the desired set matching filter. Documents missing
	// Symbol or StrategyKey are skipped rather than failing the call.
	// Load does not check the engine; the orchestrator skips, with a
	// warning, a config whose engine has no registered factory.
	Load(ctx context.Context, filter Filter) (map[workerkey.Key]StrategyConfig, error)

	// ResolveAccount looks up account routing info for a user. A missing
	// record is not an error: it returns the zero Account.
	ResolveAccount(ctx context.Context, userID string) (Account, bool, error)
}
