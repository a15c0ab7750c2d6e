package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/minigames/internal/config"
	"github.com/playperu/minigames/internal/database"
	"github.com/playperu/minigames/internal/events"
	"github.com/playperu/minigames/internal/handler/health"
	"github.com/playperu/minigames/internal/metrics"
	"github.com/playperu/minigames/internal/migrations"
	"github.com/playperu/minigames/internal/minigame"
	"github.com/playperu/minigames/internal/scheduler"
	"github.com/playperu/minigames/internal/seed"
	"github.com/playperu/minigames/internal/server"
	"github.com/playperu/minigames/internal/worldstore"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	version, err := migrations.Run(ctx, db, logger)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath, "schema_version", version)

	store := worldstore.NewStore(db, logger)

	// --- Events ---
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: cfg.EventBuffer,
	}, watermill.NewSlogLogger(logger))
	defer pubsub.Close()

	bus := events.NewBus(logger)
	bus.Subscribe(events.NewForwarder(pubsub, logger).Listener())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}
	bus.Subscribe(m.Listener())
	events.On(bus, recordHistory(store, logger))

	// --- Minigame ---
	mg, err := minigame.New(cfg.MinigameID, minigame.Options{
		World:     store,
		Players:   store,
		Messenger: store,
		Bus:       bus,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("creating minigame: %w", err)
	}

	if cfg.ArenasFile != "" {
		f, err := seed.Load(cfg.ArenasFile)
		if err != nil {
			return fmt.Errorf("loading arenas: %w", err)
		}
		if err := seed.Apply(ctx, mg, f, store); err != nil {
			return fmt.Errorf("applying arenas: %w", err)
		}
		logger.Info("arenas loaded", "file", cfg.ArenasFile, "arenas", len(f.Arenas))
	}

	sched := scheduler.New(mg, cfg.TickInterval, logger)

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, func(r chi.Router) {
		r.Mount("/healthz", health.NewHandler(logger, map[string]health.Checker{
			"sqlite":    database.Checker{DB: db},
			"scheduler": sched,
		}).Routes())
		r.Handle("/metrics", metrics.Handler(reg))
		server.AddRoutes(r, server.Deps{
			Minigame: mg,
			Events:   pubsub,
			History:  store,
			Logger:   logger,
		})
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		logger.Info("starting round scheduler", "interval", cfg.TickInterval)
		return sched.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	err = g.Wait()
	mg.Wait()
	return err
}

// recordHistory stores every finished round.
func recordHistory(store *worldstore.Store, logger *slog.Logger) func(context.Context, *minigame.RoundEnd) {
	return func(ctx context.Context, e *minigame.RoundEnd) {
		rec := worldstore.RoundRecord{
			ID:          e.RoundID(),
			ArenaID:     e.ArenaID(),
			FinalStage:  e.FinalStage.ID,
			Challengers: e.Challengers,
			Natural:     e.Natural,
		}
		if err := store.RecordRound(context.WithoutCancel(ctx), rec); err != nil {
			logger.Error("recording round history", "round", rec.ID, "error", err)
		}
	}
}
