package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quickdraw/internal/config"
	"quickdraw/internal/db"
	"quickdraw/internal/duel"
	"quickdraw/internal/events"
	"quickdraw/internal/leaderboard"
	"quickdraw/internal/metrics"
	"quickdraw/internal/rooms"
	"quickdraw/internal/wshub"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	startupTimeout  = 10 * time.Second
	shutdownTimeout = 10 * time.Second
	publishTimeout  = 5 * time.Second
	publishBuffer   = 256
)

func Run() error {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Warn().Err(err).Msg("could not load .env")
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startCtx, cancelStart := context.WithTimeout(ctx, startupTimeout)
	defer cancelStart()

	// Optional database connection
	var database *db.DB
	var backend leaderboard.Backend = leaderboard.NewFileBackend(cfg.LeaderboardPath)
	if cfg.DatabaseURL != "" {
		database, err = db.Connect(startCtx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer database.Close()
		if err := database.Migrate(startCtx); err != nil {
			return err
		}
		backend = leaderboard.NewDBBackend(database)
		log.Info().Msg("leaderboard stored in PostgreSQL")
	} else {
		log.Info().Str("path", cfg.LeaderboardPath).Msg("DATABASE_URL not set, leaderboard stored on disk")
	}

	board := leaderboard.NewStore(backend)
	if err := board.LoadAndSeed(startCtx, cfg.LeaderboardSeed); err != nil {
		log.Warn().Err(err).Msg("leaderboard not loaded or seeded, starting empty")
	}

	var sinks events.Multi
	if cfg.NATSURL != "" {
		nats, err := events.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			return err
		}
		defer nats.Close()
		sinks = append(sinks, nats)
	}
	if database != nil {
		sinks = append(sinks, archiveRounds(database))
	}
	var publisher events.Publisher = events.NopPublisher{}
	if len(sinks) > 0 {
		async := events.NewAsync(sinks, publishBuffer, publishTimeout)
		defer async.Close()
		publisher = async
	}

	prom := metrics.NewPrometheus()
	roomStore := rooms.NewStore(rooms.Config{
		Timings: duel.Timings{
			Countdown: cfg.Countdown(),
			Ready:     cfg.Ready(),
			SteadyMin: cfg.SteadyMin(),
			SteadyMax: cfg.SteadyMax(),
			Result:    cfg.Result(),
		},
		Leaderboard: board,
		Publisher:   publisher,
		Metrics:     prom,
	})

	srv := &Server{
		Rooms:          roomStore,
		Leaderboard:    board,
		Hub:            wshub.NewHub(),
		Metrics:        prom,
		DB:             database,
		AllowedOrigins: cfg.AllowedOrigins,
	}

	httpSrv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", httpSrv.Addr).Msg("server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	srv.Hub.CloseAll("server shutting down")
	roomStore.Close()
	if err := board.Save(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("final leaderboard save failed")
	}
	log.Info().Msg("shutdown complete")
	return nil
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}
