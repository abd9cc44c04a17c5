package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"
	"github.com/sourcegraph/conc"

	"github.com/Khelendrameena/zugu-ludo-backend/internal/broadcast"
	"github.com/Khelendrameena/zugu-ludo-backend/internal/config"
	"github.com/Khelendrameena/zugu-ludo-backend/internal/handlers"
	"github.com/Khelendrameena/zugu-ludo-backend/internal/ledger"
	"github.com/Khelendrameena/zugu-ludo-backend/internal/middleware"
	"github.com/Khelendrameena/zugu-ludo-backend/internal/moves"
	"github.com/Khelendrameena/zugu-ludo-backend/internal/rooms"
	"github.com/Khelendrameena/zugu-ludo-backend/internal/router"
	"github.com/Khelendrameena/zugu-ludo-backend/internal/store"
	"github.com/Khelendrameena/zugu-ludo-backend/internal/store/memory"
	"github.com/Khelendrameena/zugu-ludo-backend/internal/store/postgres"
	"github.com/Khelendrameena/zugu-ludo-backend/internal/wallet"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		st          store.Store
		publisher   broadcast.Publisher = broadcast.NewLogPublisher(logger)
		riverClient *river.Client[pgx.Tx]
	)

	if cfg.DatabaseURL == "" {
		mem, err := memory.New()
		if err != nil {
			slog.Error("Unable to create in-memory store", "error", err)
			os.Exit(1)
		}
		st = mem
		slog.Warn("DATABASE_URL not set, using in-memory store; data is lost on restart")
	} else {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("Unable to create database pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			slog.Error("Cannot reach PostgreSQL", "error", err)
			os.Exit(1)
		}
		slog.Info("Connected to PostgreSQL database successfully!")

		if err := postgres.Migrate(ctx, pool); err != nil {
			slog.Error("Schema migration failed", "error", err)
			os.Exit(1)
		}

		migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
		if err != nil {
			slog.Error("Failed to create River migrator", "error", err)
			os.Exit(1)
		}
		if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
			slog.Error("River migrate up failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Migrations applied")

		st = postgres.New(pool)

		if cfg.BroadcastWebhookURL != "" {
			workers := river.NewWorkers()
			river.AddWorker(workers, broadcast.NewDeliveryWorker())
			riverClient, err = river.NewClient(riverpgxv5.New(pool), &river.Config{
				Queues: map[string]river.QueueConfig{
					river.QueueDefault: {MaxWorkers: cfg.BroadcastWorkers},
				},
				Workers: workers,
				Logger:  logger,
			})
			if err != nil {
				slog.Error("Failed to create River client", "error", err)
				os.Exit(1)
			}
			publisher = broadcast.Fanout{publisher, broadcast.NewRiverPublisher(riverClient, cfg.BroadcastWebhookURL)}
		}
	}

	validator, err := moves.NewValidator()
	if err != nil {
		slog.Error("Move validator init failed", "error", err)
		os.Exit(1)
	}

	ledgerSvc := ledger.NewService(st)
	walletSvc := wallet.NewService(st, ledgerSvc)
	registry := rooms.NewRegistry(st, ledgerSvc, publisher, rooms.Defaults{
		CommissionRate: cfg.DefaultCommissionRate,
		Capacity:       cfg.DefaultRoomCapacity,
		MinStake:       cfg.MinStake,
		MaxStake:       cfg.MaxStake,
	}, logger)

	api := router.New(middleware.NewTokens(cfg.JWTSecret),
		&handlers.RoomHandler{Rooms: registry, Validator: validator, Logger: logger},
		&handlers.WalletHandler{Wallet: walletSvc, Logger: logger},
		&handlers.StatsHandler{Reader: st, Logger: logger},
	)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(middleware.NewStructuredLogger(logger)(api))

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var wg conc.WaitGroup
	if riverClient != nil {
		if err := riverClient.Start(ctx); err != nil {
			slog.Error("River client failed to start", "error", err)
			os.Exit(1)
		}
		wg.Go(func() {
			<-ctx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := riverClient.Stop(stopCtx); err != nil {
				slog.Error("River client stop", "error", err)
			}
		})
	}
	wg.Go(func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP shutdown", "error", err)
		}
	})

	slog.Info("Starting HTTP server", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("HTTP server failed", "error", err)
		stop()
	}
	wg.Wait()
	slog.Info("Server stopped")
}
