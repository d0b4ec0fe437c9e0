package config

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/blueenergy/strategy-supervisor/internal/logger"
	"github.com/blueenergy/strategy-supervisor/internal/supervisorerrors"
	"github.com/blueenergy/strategy-supervisor/internal/workerkey"
	validatorpkg "github.com/go-playground/validator/v10"
)

// SQLSource is the concrete ConfigSource a document-store collection of
// strategy configs is ported to: a single-process relational store
// (grounded in aristath-portfolioManager's mattn/go-sqlite3 usage)
// queried through github.com/Masterminds/squirrel. A SQL table stands
// in for the document collection; that store is still local and
// single-process — no distributed queue, no cross-process
// coordination.
type SQLSource struct {
	db       *sql.DB
	log      *logger.Logger
	validate *validatorpkg.Validate
}

// NewSQLSource opens (or creates) the SQLite-backed configuration store at
// path and ensures its schema exists.
func NewSQLSource(path string, log *logger.Logger) (*SQLSource, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open config store: %w", err)
	}

	s := &SQLSource{db: db, log: log, validate: validatorpkg.New()}

	if err := s.migrate(); err != nil {
		db.Close()

		return nil, fmt.Errorf("migrate config store: %w", err)
	}

	return s, nil
}

func (s *SQLSource) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS strategy_configs (
			user_id TEXT NOT NULL DEFAULT '',
			symbol TEXT NOT NULL,
			strategy_key TEXT NOT NULL,
			engine TEXT NOT NULL,
			engine_class TEXT NOT NULL DEFAULT '',
			params TEXT NOT NULL DEFAULT '{}',
			enabled INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, symbol, strategy_key)
		)
	`)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			user_id TEXT PRIMARY KEY,
			securities_account_id TEXT NOT NULL DEFAULT '',
			broker TEXT NOT NULL DEFAULT '',
			account_id TEXT NOT NULL DEFAULT ''
		)
	`)

	return err
}

// Upsert inserts or replaces one StrategyConfig. Used by tests and by
// any future write-side tooling; the orchestrator only ever reads
// (Load and ResolveAccount).
func (s *SQLSource) Upsert(ctx context.Context, cfg StrategyConfig) error {
	paramsJSON, err := json.Marshal(cfg.Params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}

	enabled := 0
	if cfg.Enabled {
		enabled = 1
	}

	_, err = sq.Replace("strategy_configs").
		Columns("user_id", "symbol", "strategy_key", "engine", "engine_class", "params", "enabled").
		Values(cfg.UserID, cfg.Symbol, cfg.StrategyKey, string(cfg.Engine), cfg.EngineClass, string(paramsJSON), enabled).
		RunWith(s.db).
		ExecContext(ctx)

	return err
}

// Load implements Source.
func (s *SQLSource) Load(ctx context.Context, filter Filter) (map[workerkey.Key]StrategyConfig, error) {
	builder := sq.Select("user_id", "symbol", "strategy_key", "engine", "engine_class", "params", "enabled").
		From("strategy_configs").
		Where(sq.Eq{"enabled": 1})

	if filter.UserID != "" {
		builder = builder.Where(sq.Eq{"user_id": filter.UserID})
	}

	rows, err := builder.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		s.log.Error("config load failure", zap.Error(err))

		return map[workerkey.Key]StrategyConfig{}, fmt.Errorf("%w: %v", supervisorerrors.ErrConfigLoadFailure, err)
	}
	defer rows.Close()

	out := make(map[workerkey.Key]StrategyConfig)

	for rows.Next() {
		var (
			cfg        StrategyConfig
			paramsJSON string
			enabled    int
			engine     string
		)

		if err := rows.Scan(&cfg.UserID, &cfg.Symbol, &cfg.StrategyKey, &engine, &cfg.EngineClass, &paramsJSON, &enabled); err != nil {
			s.log.Warn("skipping unreadable config row", zap.Error(err))

			continue
		}

		cfg.Engine = Engine(engine)
		cfg.Enabled = enabled != 0

		if cfg.Symbol == "" || cfg.StrategyKey == "" {
			s.log.Warn("skipping config with missing symbol or strategy_key")

			continue
		}

		if err := json.Unmarshal([]byte(paramsJSON), &cfg.Params); err != nil {
			s.log.Warn("skipping config with unparsable params", zap.Error(err))

			continue
		}

		if err := s.validate.Struct(cfg); err != nil {
			s.log.Warn("skipping invalid config", zap.Error(err))

			continue
		}

		out[cfg.WorkerKey()] = cfg
	}

	if err := rows.Err(); err != nil {
		return out, fmt.Errorf("%w: %v", supervisorerrors.ErrConfigLoadFailure, err)
	}

	return out, nil
}

// ResolveAccount implements Source.
func (s *SQLSource) ResolveAccount(ctx context.Context, userID string) (Account, bool, error) {
	row := sq.Select("securities_account_id", "broker", "account_id").
		From("accounts").
		Where(sq.Eq{"user_id": userID}).
		RunWith(s.db).
		QueryRowContext(ctx)

	var acc Account

	switch err := row.Scan(&acc.SecuritiesAccountID, &acc.Broker, &acc.AccountID); {
	case err == sql.ErrNoRows:
		return Account{}, false, nil
	case err != nil:
		return Account{}, false, fmt.Errorf("resolve account: %w", err)
	}

	return acc, true, nil
}

// Close releases the underlying database handle.
func (s *SQLSource) Close() error {
	return s.db.Close()
}
