package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql
	"github.com/pressly/goose/v3"
	"github.com/spf13/viper"
	"gorm.io/gorm"

	"github.com/pkordes/travel-journal/internal/cache"
	"github.com/pkordes/travel-journal/internal/config"
	"github.com/pkordes/travel-journal/internal/diary"
	"github.com/pkordes/travel-journal/internal/handler"
	"github.com/pkordes/travel-journal/internal/middleware"
	"github.com/pkordes/travel-journal/internal/network"
	"github.com/pkordes/travel-journal/internal/notify"
	"github.com/pkordes/travel-journal/internal/repo"
	"github.com/pkordes/travel-journal/internal/service"
	"github.com/pkordes/travel-journal/internal/storage"
	"github.com/pkordes/travel-journal/internal/tripsync"
	"github.com/pkordes/travel-journal/migrations"
)

const reachabilityTimeout = 5 * time.Second

// app is the wired object graph shared by every command.
type app struct {
	cfg      config.Config
	log      *slog.Logger
	pool     *pgxpool.Pool
	local    *gorm.DB
	kv       *storage.KV
	monitor  *network.Monitor
	platform *notify.LocalPlatform
	trips    *tripsync.Service
}

func loadConfig() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, newLogger(cfg.LogLevel), nil
}

// openApp wires storage, connectivity, reminders and the sync service. An
// unreachable backend is not an error: the app starts offline.
func openApp(ctx context.Context, cfg config.Config, log *slog.Logger) (*app, error) {
	// pgxpool.New does not open connections; the first query does.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("create database pool: %w", err)
	}

	local, err := storage.Open(cfg.CachePath, log)
	if err != nil {
		pool.Close()
		return nil, err
	}

	platform, err := notify.NewLocalPlatform(ctx, local, notify.LogDelivery(log), log)
	if err != nil {
		pool.Close()
		_ = storage.Close(local)
		return nil, err
	}

	online := network.Reachable(ctx, pool, reachabilityTimeout)
	if online {
		log.Info("database connection established")
	} else {
		log.Warn("database unreachable, starting offline")
	}
	monitor := network.NewMonitor(online)

	kv := storage.NewKV(local)
	scheduler := notify.NewScheduler(platform, notify.Config{
		Hour:     cfg.ReminderHour,
		Location: cfg.ReminderLocation,
	}, log)

	trips := tripsync.New(tripsync.Config{
		Trips:      repo.NewTripRepo(pool),
		Places:     repo.NewPlaceRepo(pool),
		TripPlaces: repo.NewTripPlaceRepo(pool),
		Cache:      cache.NewStore(kv, log),
		Network:    monitor,
		Reminders:  scheduler,
		Logger:     log,
	})

	return &app{
		cfg:      cfg,
		log:      log,
		pool:     pool,
		local:    local,
		kv:       kv,
		monitor:  monitor,
		platform: platform,
		trips:    trips,
	}, nil
}

func (a *app) Close() {
	a.platform.Close()
	if err := storage.Close(a.local); err != nil {
		a.log.Warn("close local storage", "error", err)
	}
	a.pool.Close()
}

// runServe starts the HTTP API, the reachability prober and the reconnect
// loop, and blocks until SIGINT or SIGTERM.
func runServe(ctx context.Context) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(signalCtx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	go network.NewProber(a.pool, a.monitor, cfg.ProbeInterval, log).Run(signalCtx)
	go a.trips.Run(signalCtx)

	if a.monitor.Online() {
		if _, err := a.trips.SyncReminders(signalCtx); err != nil {
			log.Warn("initial reminder sync failed", "error", err)
		}
	}

	api := handler.NewServer(handler.Deps{
		Trips:       a.trips,
		Places:      a.trips,
		Maintenance: a.trips,
		Diary:       diary.NewService(a.kv, a.trips),
		Export:      service.NewExportService(a.trips),
		Logger:      log,
	})

	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))
	r.Mount("/", api.Routes())

	// The websocket upgrade clears these deadlines on hijacked connections.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "addr", srv.Addr, "mode", a.monitor.Mode().String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-signalCtx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}

// runMigrate applies every pending migration through goose.
func runMigrate(ctx context.Context) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	// goose needs database/sql, not a pgx pool.
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("create goose provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	for _, res := range results {
		log.Info("migration applied", "version", res.Source.Version, "path", res.Source.Path, "duration", res.Duration)
	}
	log.Info("migrations complete", "applied", len(results))
	return nil
}

func runReminderSync(ctx context.Context) (notify.SyncResult, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return notify.SyncResult{}, err
	}
	a, err := openApp(ctx, cfg, log)
	if err != nil {
		return notify.SyncResult{}, err
	}
	defer a.Close()

	return a.trips.SyncReminders(ctx)
}

func runCacheClear(ctx context.Context) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	local, err := storage.Open(cfg.CachePath, log)
	if err != nil {
		return err
	}
	defer storage.Close(local) //nolint:errcheck

	cache.NewStore(storage.NewKV(local), log).Clear(ctx)
	log.Info("cache cleared", "path", cfg.CachePath)
	return nil
}
