package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/srgjo27/fair_ticket/internal/adapter/handler"
	"github.com/srgjo27/fair_ticket/internal/platform/database"
	"github.com/srgjo27/fair_ticket/internal/platform/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and all background workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := logger.New(cfg.App.LogLevel, cfg.App.LogFormat)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := buildApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer func() {
			if err := a.Close(); err != nil {
				log.Warn("close resources", "error", err)
			}
		}()

		server := &http.Server{
			Addr:         ":" + cfg.App.Port,
			Handler:      handler.NewRouter(a.handlers, cfg.App.JWTSecret, a.middleware...),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
		}

		g, ctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			log.Info("server starting", "addr", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-ctx.Done()
			log.Info("shutting down server")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			return server.Shutdown(shutdownCtx)
		})

		g.Go(func() error {
			a.admission.Run(ctx)
			return nil
		})

		g.Go(func() error {
			a.track.Run(ctx)
			return nil
		})

		g.Go(func() error {
			return a.listener.Run(ctx)
		})

		if err := g.Wait(); err != nil {
			return err
		}

		log.Info("server exiting")

		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := logger.New(cfg.App.LogLevel, cfg.App.LogFormat)

		db, err := database.NewPostgresDB(cmd.Context(), databaseConfig(cfg.Database), log)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := database.Migrate(cmd.Context(), db); err != nil {
			return err
		}

		log.Info("schema applied")

		return nil
	},
}

var initPoolSchedule int64

var initPoolCmd = &cobra.Command{
	Use:   "init-pool",
	Short: "Seed the seat pools and stock counters of a schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		if initPoolSchedule <= 0 {
			return errors.New("--schedule must be a positive schedule id")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := logger.New(cfg.App.LogLevel, cfg.App.LogFormat)

		db, rdb, err := openStores(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer db.Close()
		defer rdb.Close()

		n, err := newSeatPool(db, rdb, log).Initialize(cmd.Context(), initPoolSchedule)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "seeded %d seats for schedule %d\n", n, initPoolSchedule)

		return nil
	},
}

func init() {
	initPoolCmd.Flags().Int64Var(&initPoolSchedule, "schedule", 0, "schedule id to seed")
	_ = initPoolCmd.MarkFlagRequired("schedule")
}
