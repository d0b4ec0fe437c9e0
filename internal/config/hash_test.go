package config

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type HashTestSuite struct {
	suite.Suite
}

func TestHashSuite(t *testing.T) {
	suite.Run(t, new(HashTestSuite))
}

func (s *HashTestSuite) base() StrategyConfig {
	return StrategyConfig{
		UserID:      "u1",
		Symbol:      "000001.SZ",
		StrategyKey: "hidden_dragon",
		Engine:      EngineVNPY,
		Params:      map[string]any{"threshold": 5},
		Enabled:     true,
	}
}

func (s *HashTestSuite) TestStableForIdenticalConfig() {
	a := s.base()
	b := s.base()
	s.Equal(a.ContentHash(), b.ContentHash())
}

func (s *HashTestSuite) TestChangesOnParamChange() {
	a := s.base()
	b := s.base()
	b.Params["threshold"] = 7

	s.NotEqual(a.ContentHash(), b.ContentHash())
}

func (s *HashTestSuite) TestChangesOnEnabledChange() {
	a := s.base()
	b := s.base()
	b.Enabled = false

	s.NotEqual(a.ContentHash(), b.ContentHash())
}

func (s *HashTestSuite) TestChangesOnEngineChange() {
	a := s.base()
	b := s.base()
	b.Engine = EngineBacktrader

	s.NotEqual(a.ContentHash(), b.ContentHash())
}

func (s *HashTestSuite) TestWorkerKeyFormat() {
	cfg := s.base()
	s.Equal("u1_000001.SZ_hidden_dragon", cfg.WorkerKey().String())
}
