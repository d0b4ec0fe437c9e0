package config

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/blueenergy/strategy-supervisor/internal/supervisorerrors"
	"github.com/blueenergy/strategy-supervisor/internal/workerkey"
)

// yamlDocument mirrors one row of the document-store collection, for
// the static/dev backend.
type yamlDocument struct {
	UserID      string         `yaml:"user_id"`
	Symbol      string         `yaml:"symbol"`
	StrategyKey string         `yaml:"strategy_key"`
	Engine      string         `yaml:"engine"`
	EngineClass string         `yaml:"engine_class"`
	Params      map[string]any `yaml:"params"`
	Enabled     bool           `yaml:"enabled"`
}

type yamlFile struct {
	Strategies []yamlDocument     `yaml:"strategies"`
	Accounts   map[string]Account `yaml:"accounts"`
}

// YAMLSource is a file-backed Source for local development and tests,
// grounded in the original config_loader.py's document-reading contract
// but expressed as a static file the way aristath-portfolioManager loads
// its operator config. It re-reads the file on every Load, so editing it
// on disk and waiting for the next hot-reload tick is enough to observe
// a change.
type YAMLSource struct {
	path string
}

// NewYAMLSource returns a Source backed by the YAML file at path.
func NewYAMLSource(path string) *YAMLSource {
	return &YAMLSource{path: path}
}

func (s *YAMLSource) read() (yamlFile, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return yamlFile{}, fmt.Errorf("%w: %v", supervisorerrors.ErrConfigLoadFailure, err)
	}

	var doc yamlFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return yamlFile{}, fmt.Errorf("%w: %v", supervisorerrors.ErrConfigLoadFailure, err)
	}

	return doc, nil
}

// Load implements Source.
func (s *YAMLSource) Load(_ context.Context, filter Filter) (map[workerkey.Key]StrategyConfig, error) {
	doc, err := s.read()
	if err != nil {
		return map[workerkey.Key]StrategyConfig{}, err
	}

	out := make(map[workerkey.Key]StrategyConfig)

	for _, d := range doc.Strategies {
		if !d.Enabled {
			continue
		}

		if filter.UserID != "" && d.UserID != filter.UserID {
			continue
		}

		if d.Symbol == "" || d.StrategyKey == "" {
			continue
		}

		cfg := StrategyConfig{
			UserID:      d.UserID,
			Symbol:      d.Symbol,
			StrategyKey: d.StrategyKey,
			Engine:      Engine(d.Engine),
			EngineClass: d.EngineClass,
			Params:      d.Params,
			Enabled:     d.Enabled,
		}
		out[cfg.WorkerKey()] = cfg
	}

	return out, nil
}

// ResolveAccount implements Source.
func (s *YAMLSource) ResolveAccount(_ context.Context, userID string) (Account, bool, error) {
	doc, err := s.read()
	if err != nil {
		return Account{}, false, err
	}

	acc, ok := doc.Accounts[userID]

	return acc, ok, nil
}
