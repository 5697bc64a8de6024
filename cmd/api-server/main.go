package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/telecare/scheduling-engine/internal/api"
	"github.com/telecare/scheduling-engine/internal/availability"
	"github.com/telecare/scheduling-engine/internal/booking"
	"github.com/telecare/scheduling-engine/internal/config"
	"github.com/telecare/scheduling-engine/internal/db"
	"github.com/telecare/scheduling-engine/internal/ledger"
	"github.com/telecare/scheduling-engine/internal/logging"
	redisclient "github.com/telecare/scheduling-engine/internal/redis"
	"github.com/telecare/scheduling-engine/internal/schedule"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.New("api-server", "dev", "info")
		bootLog.Fatal().Err(err).Msg("config load")
	}

	log := logging.New("api-server", cfg.Env, cfg.LogLevel)
	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	templates := availability.NewPgStore(pgPool)
	entries := ledger.NewPgRepository(pgPool)
	repo := booking.NewPgRepository(pgPool)
	generator := schedule.NewGenerator(templates, cfg.MinLeadTime)
	guard := booking.NewGuard(generator, entries)
	locker := redisclient.NewBookingLocker(rdb, cfg.LockTTL)
	svc := booking.NewService(repo, entries, guard, locker, booking.Params{
		HoldSeconds:            cfg.HoldSeconds,
		ConvenienceRatePercent: cfg.ConvenienceRatePercent,
	}, log)

	router := api.NewRouter(api.RouterConfig{
		Service:   svc,
		Guard:     guard,
		Templates: templates,
		PgPool:    pgPool,
		Redis:     rdb,
		Logger:    log,
		Env:       cfg.Env,
		Version:   version,
	})

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("http server listening")
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	case <-rootCtx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown")
	}
	log.Info().Msg("api-server stopped")
}
