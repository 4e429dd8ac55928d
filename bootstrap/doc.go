// Package bootstrap orchestrates the lifecycle of the diarization service.
//
// NewApp applies config defaults, validates, and initializes the logger.
// Run then executes the start hooks, consults the ready checks, runs the
// ready hooks, blocks until SIGINT/SIGTERM or context cancellation, and
// finally runs the stop hooks in reverse order.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.OnStart(func(ctx context.Context) error { return srv.Start(ctx) })
//	app.OnStop(srv.Stop)
//	if err := app.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package bootstrap
