// Command supervisor runs the multi-strategy trading supervisor: it
// loads StrategyConfigs from a SQLite-backed ConfigSource, reconciles
// workers against the Orchestrator, ticks the LifecycleController on
// schedule, and serves the authenticated HTTP read layer. CLI shape and
// signal handling follow the urfave/cli/v3 run/status/version pattern.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/blueenergy/strategy-supervisor/internal/authz"
	"github.com/blueenergy/strategy-supervisor/internal/calendar"
	"github.com/blueenergy/strategy-supervisor/internal/config"
	"github.com/blueenergy/strategy-supervisor/internal/httpapi"
	"github.com/blueenergy/strategy-supervisor/internal/lifecycle"
	"github.com/blueenergy/strategy-supervisor/internal/logger"
	"github.com/blueenergy/strategy-supervisor/internal/orchestrator"
	"github.com/blueenergy/strategy-supervisor/internal/version"
	"github.com/blueenergy/strategy-supervisor/internal/worker"
)

func main() {
	cmd := &cli.Command{
		Name:  "supervisor",
		Usage: "multi-strategy trading supervisor",
		Commands: []*cli.Command{
			runCommand(),
			statusCommand(),
			versionCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "start the supervisor: reconcile loop, lifecycle ticks, and HTTP surface",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db", Value: "supervisor.db", Usage: "path to the SQLite config store"},
			&cli.StringFlag{Name: "log-dir", Value: "logs", Usage: "directory for per-worker log files"},
			&cli.StringFlag{Name: "addr", Value: ":8080", Usage: "HTTP listen address"},
			&cli.StringFlag{Name: "jwt-secret", Value: "", Usage: "HMAC secret for bearer tokens (or SUPERVISOR_JWT_SECRET env)"},
			&cli.DurationFlag{Name: "reload-interval", Value: 30 * time.Second, Usage: "hot-reload reconciliation interval (or SUPERVISOR_RELOAD_INTERVAL env)", Sources: cli.EnvVars("SUPERVISOR_RELOAD_INTERVAL")},
			&cli.StringFlag{Name: "log-backends", Value: "file,stream", Usage: "comma-separated worker log sinks to enable (or SUPERVISOR_LOG_BACKENDS env)", Sources: cli.EnvVars("SUPERVISOR_LOG_BACKENDS")},
			&cli.StringFlag{Name: "public-host", Value: "", Usage: "public host/IP substituted into log stream URLs returned to clients (or SUPERVISOR_PUBLIC_HOST env)"},
			&cli.StringFlag{Name: "calendar-locale", Value: "Local", Usage: "IANA timezone the trading calendar evaluates against (or SUPERVISOR_CALENDAR_LOCALE env)", Sources: cli.EnvVars("SUPERVISOR_CALENDAR_LOCALE")},
			&cli.BoolFlag{Name: "auth-enabled", Value: true, Usage: "require bearer-token auth on the HTTP surface (or SUPERVISOR_AUTH_ENABLED env)"},
		},
		Action: runAction,
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()

	rt := config.RuntimeFromEnv(config.Runtime{
		ReloadInterval: cmd.Duration("reload-interval"),
		LogBackends:    config.ParseLogBackends(cmd.String("log-backends")),
		LogRoot:        cmd.String("log-dir"),
		PublicHost:     cmd.String("public-host"),
		AuthEnabled:    cmd.Bool("auth-enabled"),
		JWTSecret:      cmd.String("jwt-secret"),
		CalendarLocale: cmd.String("calendar-locale"),
	})

	source, err := config.NewSQLSource(cmd.String("db"), log)
	if err != nil {
		return fmt.Errorf("failed to open config store: %w", err)
	}
	defer source.Close()

	factories := map[config.Engine]orchestrator.FactoryFn{
		config.EngineVNPY: workerFactory(rt, log),
	}

	orch := orchestrator.New(source, factories, log, rt.ReloadInterval)

	loc, err := time.LoadLocation(rt.CalendarLocale)
	if err != nil {
		log.Warn("unknown calendar locale, falling back to Local", zap.String("locale", rt.CalendarLocale), zap.Error(err))

		loc = time.Local
	}

	cal := calendar.NewWithLocale(loc, nil)
	lifecycleCtl := lifecycle.New(cal, orch, source, log)

	if err := lifecycleCtl.Start(lifecycle.DefaultSchedule()); err != nil {
		return fmt.Errorf("failed to start lifecycle controller: %w", err)
	}
	defer lifecycleCtl.Stop()

	var az *authz.Filter
	if rt.AuthEnabled {
		az = authz.New([]byte(rt.JWTSecret))
	} else {
		az = authz.NewDisabled()
	}

	server := httpapi.New(orch, az, log, rt.LogRoot)

	httpServer := &http.Server{Addr: cmd.String("addr"), Handler: server}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", zap.Error(err))
		}
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	if err := orch.StartAll(runCtx); err != nil {
		return fmt.Errorf("initial reconcile failed: %w", err)
	}

	log.Info("supervisor running", zap.String("addr", cmd.String("addr")))

	<-sigCh
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = httpServer.Shutdown(shutdownCtx)
	shutdownCancel()

	orch.StopAll(true)

	return nil
}

// workerFactory builds the FactoryFn the orchestrator uses for the vnpy
// engine family. It resolves engine_class through a registry populated
// by the caller's deployment — here, a process-wide default registry
// with no classes bound, since concrete engine implementations are an
// out-of-scope collaborator.
func workerFactory(rt config.Runtime, log *logger.Logger) orchestrator.FactoryFn {
	return func(ctx context.Context, cfg config.StrategyConfig, account config.Account) (worker.Contract, error) {
		ctor, err := defaultRegistry.Resolve(cfg)
		if err != nil {
			return nil, err
		}

		opts := worker.AdapterOptions{
			LogDir:     rt.LogRoot,
			PublicHost: rt.PublicHost,
			Backends:   rt.LogBackends,
		}

		return worker.New(cfg, account, warmupDaysFromParams(cfg.Params), ctor, log, opts)
	}
}

func warmupDaysFromParams(params map[string]any) int {
	raw, ok := params["warmup_days"]
	if !ok {
		return 0
	}

	switch v := raw.(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "query a running supervisor's /api/status endpoint",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://127.0.0.1:8080/api/status", Usage: "status endpoint URL"},
		},
		Action: statusAction,
	}
}

func statusAction(ctx context.Context, cmd *cli.Command) error {
	resp, err := http.Get(cmd.String("url"))
	if err != nil {
		return fmt.Errorf("failed to reach supervisor: %w", err)
	}
	defer resp.Body.Close()

	fmt.Printf("supervisor responded: %s\n", resp.Status)

	return nil
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "print the supervisor binary version",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			fmt.Println(version.GetVersion())

			return nil
		},
	}
}
