// Package bootstrap runs the ssehub process lifecycle.
//
// An App owns the typed configuration, the logger, and an ordered component
// registry. Run starts every registered component, runs the OnStart and
// OnReady hooks, prints a startup summary, blocks until SIGINT or SIGTERM,
// then runs the OnStop hooks and stops components in reverse order.
//
//	app, err := bootstrap.NewApp(cfg)
//	if err != nil {
//	    return err
//	}
//	_ = app.RegisterComponent(dbComponent)
//	_ = app.RegisterComponent(serverComponent)
//	return app.Run(ctx)
package bootstrap
