package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/kbukum/ssehub/api"
	"github.com/kbukum/ssehub/bootstrap"
	"github.com/kbukum/ssehub/config"
	"github.com/kbukum/ssehub/database"
	"github.com/kbukum/ssehub/model"
	"github.com/kbukum/ssehub/observability"
	"github.com/kbukum/ssehub/redis"
	"github.com/kbukum/ssehub/relay"
	"github.com/kbukum/ssehub/server"
	"github.com/kbukum/ssehub/sse"
	"github.com/kbukum/ssehub/validation"
)

type hubApp = bootstrap.App[*config.AppConfig]

// wire registers the storage components and defers everything that needs a
// live connection to the configure phase.
//
// Start order: database, redis, sse, relay, kafka, http-server.
// Components stop in reverse, so the HTTP server drains first.
func wire(app *hubApp) error {
	cfg := app.Cfg

	if cfg.Observability.Enabled {
		app.OnStart(func(ctx context.Context) error {
			return initTelemetry(ctx, app)
		})
	}

	db := database.NewComponent(cfg.Database, app.Logger).WithAutoMigrate(model.Models()...)
	kv := redis.NewComponent(cfg.Redis, app.Logger)
	if err := app.RegisterComponent(db); err != nil {
		return err
	}
	if err := app.RegisterComponent(kv); err != nil {
		return err
	}

	app.OnConfigure(func(_ context.Context, a *hubApp) error {
		return configure(a, db, kv)
	})
	return nil
}

func configure(a *hubApp, db *database.Component, kv *redis.Component) error {
	cfg := a.Cfg
	log := a.Logger
	instance := instanceName()

	tracker := model.NewSessionTracker(
		model.NewBase(db.DB(), kv.Client()),
		model.WithPresenceTTL(cfg.SSE.PresenceTTLDuration()),
		model.WithStorageTimeout(cfg.SSE.StorageTimeoutDuration()),
		model.WithInstance(instance),
		model.WithTrackerLogger(log.WithComponent("tracker")),
	)

	reg := sse.NewRegistry(
		sse.WithObserver(tracker),
		sse.WithMetrics(observability.DefaultMetrics()),
		sse.WithLogger(log.WithComponent("sse")),
		sse.WithEvictSlowConsumers(cfg.SSE.EvictSlowConsumers),
	)
	handlerOpts := append(cfg.SSE.HandlerOptions(),
		sse.WithChannelValidator(validation.ValidateChannel),
		sse.WithKeepAliveHook(tracker.KeepAliveHook),
	)
	stream := sse.NewHandler(reg, handlerOpts...)
	if err := a.RegisterComponent(sse.NewComponent(reg, cfg.SSE.Path)); err != nil {
		return err
	}

	var publisher sse.Publisher = reg
	if cfg.Relay.Enabled {
		client := kv.Client()
		if client == nil {
			return errors.New("relay requires a redis connection")
		}
		publisher = relay.NewRedisPublisher(client, cfg.Relay, instance)
		if err := a.RegisterComponent(relay.NewRedisSubscriber(client, reg, cfg.Relay, log)); err != nil {
			return err
		}
	}

	if cfg.Kafka.Enabled {
		ingest, err := relay.NewKafkaIngest(cfg.Kafka, publisher, log)
		if err != nil {
			return err
		}
		if err := a.RegisterComponent(ingest); err != nil {
			return err
		}
		for _, topic := range cfg.Kafka.Topics {
			a.Summary.TrackConsumer("kafka-ingest", cfg.Kafka.GroupID, topic, "active")
		}
	}

	srv := server.New(cfg.Server, log)
	srv.ApplyDefaults(a.Name, a.Components.HealthAll)
	api.NewHandlers(reg, stream,
		api.WithPublisher(publisher),
		api.WithTracker(tracker),
		api.WithLogger(log.WithComponent("api")),
	).Register(srv.GinEngine(), api.RouteConfig{
		StreamPath:       cfg.SSE.Path,
		PublishRateLimit: cfg.Server.PublishRateLimit,
	})
	// Open streams never finish on their own; close them so Shutdown can drain.
	srv.RegisterOnShutdown(reg.Close)

	return a.RegisterComponent(server.NewComponent(srv))
}

func initTelemetry(ctx context.Context, a *hubApp) error {
	cfg := a.Cfg

	meterCfg := cfg.Observability.MeterConfig(cfg.Name, cfg.Environment)
	mp, err := observability.InitMeter(ctx, &meterCfg)
	if err != nil {
		return fmt.Errorf("init meter: %w", err)
	}
	tracerCfg := cfg.Observability.TracerConfig(cfg.Name, cfg.Environment)
	tp, err := observability.InitTracer(ctx, &tracerCfg)
	if err != nil {
		_ = mp.Shutdown(ctx)
		return fmt.Errorf("init tracer: %w", err)
	}

	a.OnStop(func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	})
	return nil
}

// instanceName identifies this process in presence entries and relay envelopes.
func instanceName() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "ssehub-" + uuid.NewString()[:8]
}
