package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/blueenergy/strategy-supervisor/internal/config"
	"github.com/blueenergy/strategy-supervisor/internal/logger"
)

type fakeEngine struct {
	mu       sync.Mutex
	started  chan struct{}
	stopped  bool
	runErr   error
	bars     int64
	savedErr error
	loadErr  error
	log      *zap.Logger
}

func newFakeEngine(log *zap.Logger) *fakeEngine {
	return &fakeEngine{started: make(chan struct{}, 1), log: log}
}

func (f *fakeEngine) Run(ctx context.Context) error {
	f.log.Info("engine started")
	close(f.started)

	<-ctx.Done()

	return f.runErr
}

func (f *fakeEngine) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stopped = true

	return nil
}

func (f *fakeEngine) SaveState() error { return f.savedErr }
func (f *fakeEngine) LoadState() error { return f.loadErr }

func (f *fakeEngine) Snapshot() EngineSnapshot {
	return EngineSnapshot{
		BarsProcessed: f.bars,
		Position:      decimal.NewFromInt(100),
		EntryPrice:    decimal.NewFromFloat(12.34),
	}
}

type AdapterTestSuite struct {
	suite.Suite
}

func TestAdapterSuite(t *testing.T) {
	suite.Run(t, new(AdapterTestSuite))
}

func (s *AdapterTestSuite) cfg() config.StrategyConfig {
	return config.StrategyConfig{
		UserID:      "u1",
		Symbol:      "600000.SH",
		StrategyKey: "turtle",
		Engine:      config.EngineVNPY,
		Enabled:     true,
	}
}

func (s *AdapterTestSuite) newAdapter(dir string, engine **fakeEngine) *EngineAdapter {
	ctor := func(symbol string, account config.Account, userID string, warmupDays int, params map[string]any, log *zap.Logger) (Engine, error) {
		fe := newFakeEngine(log)
		*engine = fe

		return fe, nil
	}

	adapter, err := New(s.cfg(), config.Account{}, 30, ctor, logger.NewNop(), AdapterOptions{
		LogDir:        dir,
		DisableStream: true,
	})
	s.Require().NoError(err)

	return adapter
}

func (s *AdapterTestSuite) TestStartRunsEngineAndTransitionsRunning() {
	dir := s.T().TempDir()

	var fe *fakeEngine

	adapter := s.newAdapter(dir, &fe)

	s.Require().NoError(adapter.Start())

	select {
	case <-fe.started:
	case <-time.After(time.Second):
		s.Fail("engine never started")
	}

	s.True(adapter.IsRunning())
	s.Equal(StateRunning, adapter.GetStats().State)

	s.Require().NoError(adapter.Stop(false))
	s.False(adapter.IsRunning())
}

func (s *AdapterTestSuite) TestStopIsIdempotent() {
	dir := s.T().TempDir()

	var fe *fakeEngine

	adapter := s.newAdapter(dir, &fe)
	s.Require().NoError(adapter.Start())

	<-fe.started

	s.Require().NoError(adapter.Stop(true))
	s.Require().NoError(adapter.Stop(true))
}

func (s *AdapterTestSuite) TestGetStatsReflectsEngineSnapshot() {
	dir := s.T().TempDir()

	var fe *fakeEngine

	adapter := s.newAdapter(dir, &fe)
	s.Require().NoError(adapter.Start())

	<-fe.started

	stats := adapter.GetStats()
	s.Equal("600000.SH", stats.Symbol)
	s.Equal("turtle", stats.StrategyKey)
	s.True(stats.Position.Equal(decimal.NewFromInt(100)))

	s.Require().NoError(adapter.Stop(false))
}

func (s *AdapterTestSuite) TestLogStreamURLEmptyWhenStreamDisabled() {
	dir := s.T().TempDir()

	var fe *fakeEngine

	adapter := s.newAdapter(dir, &fe)
	s.Empty(adapter.GetLogStreamURL())
}

func (s *AdapterTestSuite) TestLogStreamURLSubstitutesPublicHost() {
	dir := s.T().TempDir()

	ctor := func(symbol string, account config.Account, userID string, warmupDays int, params map[string]any, log *zap.Logger) (Engine, error) {
		return newFakeEngine(log), nil
	}

	adapter, err := New(s.cfg(), config.Account{}, 30, ctor, logger.NewNop(), AdapterOptions{
		LogDir:     dir,
		PublicHost: "203.0.113.10",
	})
	s.Require().NoError(err)

	url := adapter.GetLogStreamURL()
	s.Require().NotEmpty(url)
	s.Contains(url, "203.0.113.10")
}

func (s *AdapterTestSuite) TestBackendsGateSinkConstruction() {
	dir := s.T().TempDir()

	ctor := func(symbol string, account config.Account, userID string, warmupDays int, params map[string]any, log *zap.Logger) (Engine, error) {
		return newFakeEngine(log), nil
	}

	adapter, err := New(s.cfg(), config.Account{}, 30, ctor, logger.NewNop(), AdapterOptions{
		LogDir:   dir,
		Backends: []string{"file"},
	})
	s.Require().NoError(err)
	s.Empty(adapter.GetLogStreamURL(), "stream sink should not be built when Backends excludes it")
}

func (s *AdapterTestSuite) TestIdentityAccessors() {
	dir := s.T().TempDir()

	var fe *fakeEngine

	adapter := s.newAdapter(dir, &fe)
	s.Equal("u1", adapter.UserID())
	s.Equal("600000.SH", adapter.Symbol())
	s.Equal("turtle", adapter.StrategyKey())
	s.Equal(s.cfg().WorkerKey(), adapter.WorkerKey())
}
