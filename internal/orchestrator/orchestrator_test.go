package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/blueenergy/strategy-supervisor/internal/config"
	"github.com/blueenergy/strategy-supervisor/internal/logger"
	"github.com/blueenergy/strategy-supervisor/internal/worker"
	"github.com/blueenergy/strategy-supervisor/internal/workerkey"
)

type fakeSource struct {
	mu      sync.Mutex
	configs map[workerkey.Key]config.StrategyConfig
	loadErr error
}

func newFakeSource() *fakeSource {
	return &fakeSource{configs: make(map[workerkey.Key]config.StrategyConfig)}
}

func (f *fakeSource) set(cfgs ...config.StrategyConfig) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.configs = make(map[workerkey.Key]config.StrategyConfig)
	for _, c := range cfgs {
		f.configs[c.WorkerKey()] = c
	}
}

func (f *fakeSource) Load(ctx context.Context, filter config.Filter) (map[workerkey.Key]config.StrategyConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.loadErr != nil {
		return nil, f.loadErr
	}

	out := make(map[workerkey.Key]config.StrategyConfig, len(f.configs))
	for k, v := range f.configs {
		out[k] = v
	}

	return out, nil
}

func (f *fakeSource) ResolveAccount(ctx context.Context, userID string) (config.Account, bool, error) {
	return config.Account{}, true, nil
}

type fakeWorker struct {
	key         workerkey.Key
	stopped     bool
	savedOnStop bool
}

func (w *fakeWorker) Start() error                  { return nil }
func (w *fakeWorker) Stop(saveState bool) error      { w.stopped = true; w.savedOnStop = saveState; return nil }
func (w *fakeWorker) IsRunning() bool                { return !w.stopped }
func (w *fakeWorker) GetStats() worker.Stats         { return worker.Stats{State: worker.StateRunning} }
func (w *fakeWorker) SaveState() bool                { return true }
func (w *fakeWorker) LoadState() bool                { return true }
func (w *fakeWorker) GetLogStreamURL() string        { return "" }
func (w *fakeWorker) WorkerKey() workerkey.Key       { return w.key }
func (w *fakeWorker) Symbol() string                 { return "" }
func (w *fakeWorker) StrategyKey() string             { return "" }
func (w *fakeWorker) UserID() string                  { return "" }

type OrchestratorTestSuite struct {
	suite.Suite
}

func TestOrchestratorSuite(t *testing.T) {
	suite.Run(t, new(OrchestratorTestSuite))
}

func (s *OrchestratorTestSuite) newOrchestrator(source *fakeSource, created *[]workerkey.Key) *Orchestrator {
	factory := func(ctx context.Context, cfg config.StrategyConfig, account config.Account) (worker.Contract, error) {
		*created = append(*created, cfg.WorkerKey())

		return &fakeWorker{key: cfg.WorkerKey()}, nil
	}

	factories := map[config.Engine]FactoryFn{config.EngineVNPY: factory}

	return New(source, factories, logger.NewNop(), 0)
}

func cfgFor(user, symbol, key string, enabled bool) config.StrategyConfig {
	return config.StrategyConfig{UserID: user, Symbol: symbol, StrategyKey: key, Engine: config.EngineVNPY, Enabled: enabled}
}

func (s *OrchestratorTestSuite) TestStartsAllDesiredWorkers() {
	source := newFakeSource()
	source.set(cfgFor("u1", "600000.SH", "turtle", true), cfgFor("u1", "000001.SZ", "macd", true))

	var created []workerkey.Key
	o := s.newOrchestrator(source, &created)

	s.Require().NoError(o.Reconcile(context.Background()))
	s.Len(o.GetStatus(), 2)
	s.Len(created, 2)
}

func (s *OrchestratorTestSuite) TestRemovedConfigStopsWorker() {
	source := newFakeSource()
	cfg := cfgFor("u1", "600000.SH", "turtle", true)
	source.set(cfg)

	var created []workerkey.Key
	o := s.newOrchestrator(source, &created)
	s.Require().NoError(o.Reconcile(context.Background()))

	w, ok := o.Worker(cfg.WorkerKey())
	s.Require().True(ok)

	source.set()
	s.Require().NoError(o.Reconcile(context.Background()))

	s.Empty(o.GetStatus())
	s.True(w.(*fakeWorker).stopped)
}

func (s *OrchestratorTestSuite) TestModifiedConfigRestartsWorker() {
	source := newFakeSource()
	cfg := cfgFor("u1", "600000.SH", "turtle", true)
	source.set(cfg)

	var created []workerkey.Key
	o := s.newOrchestrator(source, &created)
	s.Require().NoError(o.Reconcile(context.Background()))

	cfg.Params = map[string]any{"fast": 5}
	source.set(cfg)
	s.Require().NoError(o.Reconcile(context.Background()))

	s.Len(created, 2)
	s.Len(o.GetStatus(), 1)
}

func (s *OrchestratorTestSuite) TestUnchangedConfigDoesNotRestart() {
	source := newFakeSource()
	cfg := cfgFor("u1", "600000.SH", "turtle", true)
	source.set(cfg)

	var created []workerkey.Key
	o := s.newOrchestrator(source, &created)
	s.Require().NoError(o.Reconcile(context.Background()))
	s.Require().NoError(o.Reconcile(context.Background()))

	s.Len(created, 1)
}

func (s *OrchestratorTestSuite) TestUnknownEngineFamilySkipped() {
	source := newFakeSource()
	source.set(cfgFor("u1", "600000.SH", "turtle", true))

	o := New(source, map[config.Engine]FactoryFn{}, logger.NewNop(), 0)
	s.Require().NoError(o.Reconcile(context.Background()))
	s.Empty(o.GetStatus())
}

func (s *OrchestratorTestSuite) TestStopAllStopsEveryWorker() {
	source := newFakeSource()
	source.set(cfgFor("u1", "600000.SH", "turtle", true), cfgFor("u1", "000001.SZ", "macd", true))

	var created []workerkey.Key
	o := s.newOrchestrator(source, &created)
	s.Require().NoError(o.Reconcile(context.Background()))

	o.StopAll(true)
	s.Empty(o.GetStatus())
}

func (s *OrchestratorTestSuite) TestStopAllWithoutSaveStateDoesNotSave() {
	source := newFakeSource()
	source.set(cfgFor("u1", "600000.SH", "turtle", true))

	var created []workerkey.Key
	o := s.newOrchestrator(source, &created)
	s.Require().NoError(o.Reconcile(context.Background()))

	w, ok := o.Worker(cfgFor("u1", "600000.SH", "turtle", true).WorkerKey())
	s.Require().True(ok)

	o.StopAll(false)
	s.Empty(o.GetStatus())
	s.True(w.(*fakeWorker).stopped)
	s.False(w.(*fakeWorker).savedOnStop)
}

func (s *OrchestratorTestSuite) TestStartAllBeginsHotReloadLoop() {
	source := newFakeSource()
	cfg := cfgFor("u1", "600000.SH", "turtle", true)
	source.set(cfg)

	factory := func(ctx context.Context, cfg config.StrategyConfig, account config.Account) (worker.Contract, error) {
		return &fakeWorker{key: cfg.WorkerKey()}, nil
	}

	o := New(source, map[config.Engine]FactoryFn{config.EngineVNPY: factory}, logger.NewNop(), 10*time.Millisecond)
	s.Require().NoError(o.StartAll(context.Background()))

	source.set()

	s.Eventually(func() bool {
		return len(o.GetStatus()) == 0
	}, time.Second, 5*time.Millisecond)

	o.StopAll(true)
}
