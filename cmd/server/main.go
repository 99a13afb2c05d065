package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stwalsh4118/rerun/internal/broadcast"
	"github.com/stwalsh4118/rerun/internal/config"
	"github.com/stwalsh4118/rerun/internal/db"
	"github.com/stwalsh4118/rerun/internal/logger"
	"github.com/stwalsh4118/rerun/internal/playlist"
	"github.com/stwalsh4118/rerun/internal/schedule"
	"github.com/stwalsh4118/rerun/internal/server"
	"github.com/stwalsh4118/rerun/internal/timeline"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init("info", false)
		logger.Log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Pretty)
	logger.Log.Info().
		Str("log_level", cfg.Logging.Level).
		Str("timezone", cfg.Schedule.Timezone).
		Msg("Starting rerun")

	loc, err := cfg.Schedule.Location()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to resolve schedule timezone")
	}

	database, err := db.New(cfg.Database.Path, cfg.Database.EnableWAL)
	if err != nil {
		logger.Log.Fatal().Err(err).Str("path", cfg.Database.Path).Msg("Failed to open database")
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Log.Error().Err(err).Msg("Failed to close database")
		}
	}()

	sqlDB, err := database.GetSQLDB()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to access underlying database connection")
	}
	if err := db.RunMigrations(sqlDB, "file://./migrations"); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	repos := db.NewRepositories(database)
	scheduleResolver := schedule.NewBlockResolver(repos, loc)
	resolver := playlist.NewCascadeResolver(repos, scheduleResolver, loc)
	timelineService := timeline.NewTimelineService(repos)

	srv := server.New(cfg, database, repos, resolver, scheduleResolver)
	runner := broadcast.NewRunner(repos, resolver, timelineService, cfg.Broadcast.TickInterval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.Broadcast.Enabled {
		g.Go(func() error {
			if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	} else {
		logger.Log.Info().Msg("Broadcast runner disabled by configuration")
	}

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Log.Fatal().Err(err).Msg("Shutdown with error")
	}
	logger.Log.Info().Msg("Shutdown complete")
}
