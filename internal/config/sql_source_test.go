package config

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/blueenergy/strategy-supervisor/internal/logger"
)

type SQLSourceTestSuite struct {
	suite.Suite
}

func TestSQLSourceSuite(t *testing.T) {
	suite.Run(t, new(SQLSourceTestSuite))
}

func (s *SQLSourceTestSuite) newSource() *SQLSource {
	path := filepath.Join(s.T().TempDir(), "supervisor.db")

	src, err := NewSQLSource(path, logger.NewNop())
	s.Require().NoError(err)

	s.T().Cleanup(func() { src.Close() })

	return src
}

func (s *SQLSourceTestSuite) TestUpsertAndLoadRoundTrips() {
	src := s.newSource()
	ctx := context.Background()

	cfg := StrategyConfig{
		UserID:      "u1",
		Symbol:      "600000.SH",
		StrategyKey: "turtle",
		Engine:      EngineVNPY,
		Enabled:     true,
		Params:      map[string]any{"threshold": float64(5)},
	}

	s.Require().NoError(src.Upsert(ctx, cfg))

	got, err := src.Load(ctx, Filter{})
	s.Require().NoError(err)
	s.Require().Contains(got, cfg.WorkerKey())
	s.Equal(cfg.Symbol, got[cfg.WorkerKey()].Symbol)
	s.Equal(float64(5), got[cfg.WorkerKey()].Params["threshold"])
}

func (s *SQLSourceTestSuite) TestLoadSkipsDisabled() {
	src := s.newSource()
	ctx := context.Background()

	disabled := StrategyConfig{UserID: "u1", Symbol: "600000.SH", StrategyKey: "turtle", Engine: EngineVNPY, Enabled: false}
	s.Require().NoError(src.Upsert(ctx, disabled))

	got, err := src.Load(ctx, Filter{})
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *SQLSourceTestSuite) TestLoadFiltersByUser() {
	src := s.newSource()
	ctx := context.Background()

	s.Require().NoError(src.Upsert(ctx, StrategyConfig{UserID: "u1", Symbol: "600000.SH", StrategyKey: "turtle", Engine: EngineVNPY, Enabled: true}))
	other := StrategyConfig{UserID: "u2", Symbol: "000001.SZ", StrategyKey: "turtle", Engine: EngineVNPY, Enabled: true}
	s.Require().NoError(src.Upsert(ctx, other))

	got, err := src.Load(ctx, Filter{UserID: "u2"})
	s.Require().NoError(err)
	s.Len(got, 1)
	s.Contains(got, other.WorkerKey())
}

func (s *SQLSourceTestSuite) TestResolveAccountMissingIsNotError() {
	src := s.newSource()

	_, ok, err := src.ResolveAccount(context.Background(), "nobody")
	s.Require().NoError(err)
	s.False(ok)
}
