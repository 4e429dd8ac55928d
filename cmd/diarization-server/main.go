// Command diarization-server serves online speaker diarization sessions
// over HTTP and websockets.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/kbukum/streamdiar/bootstrap"
	"github.com/kbukum/streamdiar/config"
	"github.com/kbukum/streamdiar/diarization"
	"github.com/kbukum/streamdiar/diarization/pyannote"
	"github.com/kbukum/streamdiar/logger"
	"github.com/kbukum/streamdiar/observability"
	"github.com/kbukum/streamdiar/server"
)

func main() {
	configFile := flag.String("config", "", "path to the YAML config file")
	envFile := flag.String("env", "", "path to a .env file")
	flag.Parse()

	var opts []config.LoaderOption
	if *configFile != "" {
		opts = append(opts, config.WithConfigFile(*configFile))
	}
	if *envFile != "" {
		opts = append(opts, config.WithEnvFile(*envFile))
	}

	cfg := newAppConfig()
	if err := config.LoadConfig(serviceName, cfg, opts...); err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if err := wire(app); err != nil {
		app.Logger.Fatal("wiring failed", logger.ErrorFields("wire", err))
	}
	if err := app.Run(context.Background()); err != nil {
		app.Logger.Fatal("application failed", logger.ErrorFields("run", err))
	}
}

// wire connects telemetry, oracle backends, sessions and the HTTP server
// to the application lifecycle.
func wire(app *bootstrap.App[*AppConfig]) error {
	cfg := app.Cfg
	log := app.Logger

	if cfg.Telemetry.Enabled {
		wireTelemetry(app)
	}

	regs := diarization.NewRegistries()
	pyannote.Register(regs)
	seg, emb, err := regs.Create(cfg.Oracles, cfg.Diarization)
	if err != nil {
		return err
	}
	// Fail at startup rather than on the first session.
	if _, err := cfg.Diarization.Resolve(seg.Duration(), seg.SampleRate()); err != nil {
		return err
	}
	app.AddReadyCheck(regs.Health)

	metrics, err := observability.NewMetrics(observability.Meter(serviceName))
	if err != nil {
		return err
	}

	factory := func(id string) (*diarization.Pipeline, error) {
		return diarization.New(cfg.Diarization, seg, emb,
			diarization.WithSessionID(id),
			diarization.WithLogger(log.WithComponent("diarization")),
			diarization.WithMetrics(metrics),
		)
	}
	sessions := server.NewSessionManager(cfg.Server.MaxSessions, factory, metrics, log)

	srv := server.New(cfg.Server, log)
	server.NewHandler(cfg.Name, sessions, regs.Health, cfg.Server, log).Register(srv.GinEngine())

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	app.OnStart(func(ctx context.Context) error {
		go sessions.Run(sweepCtx, time.Duration(cfg.Server.SessionTTL)*time.Second)
		return srv.Start(ctx)
	})
	app.OnStop(func(ctx context.Context) error {
		stopSweep()
		sessions.CloseAll(ctx)
		return nil
	})
	app.OnStop(srv.Stop)
	return nil
}

// wireTelemetry installs the OTLP tracer and meter providers. Their stop
// hooks are registered first so they flush after everything else.
func wireTelemetry(app *bootstrap.App[*AppConfig]) {
	tel := app.Cfg.Telemetry
	var shutdowns []func(context.Context) error

	app.OnStart(func(ctx context.Context) error {
		tp, err := observability.InitTracer(ctx, tel.Tracing)
		if err != nil {
			return err
		}
		shutdowns = append(shutdowns, tp.Shutdown)

		mp, err := observability.InitMeter(ctx, tel.Metrics)
		if err != nil {
			return err
		}
		shutdowns = append(shutdowns, mp.Shutdown)

		app.Logger.Info("telemetry enabled", logger.Fields(
			"endpoint", tel.Tracing.Endpoint,
			"sample_rate", tel.Tracing.SampleRate,
		))
		return nil
	})
	app.OnStop(func(ctx context.Context) error {
		var firstErr error
		for _, shutdown := range shutdowns {
			if err := shutdown(ctx); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	})
}
