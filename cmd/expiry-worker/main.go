package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/telecare/scheduling-engine/internal/availability"
	"github.com/telecare/scheduling-engine/internal/booking"
	"github.com/telecare/scheduling-engine/internal/config"
	"github.com/telecare/scheduling-engine/internal/db"
	"github.com/telecare/scheduling-engine/internal/ledger"
	"github.com/telecare/scheduling-engine/internal/logging"
	"github.com/telecare/scheduling-engine/internal/schedule"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.New("expiry-worker", "dev", "info")
		bootLog.Fatal().Err(err).Msg("config load")
	}

	log := logging.New("expiry-worker", cfg.Env, cfg.LogLevel)
	log.Info().Str("env", cfg.Env).Dur("interval", cfg.WorkerInterval).Msg("starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	templates := availability.NewPgStore(pgPool)
	entries := ledger.NewPgRepository(pgPool)
	repo := booking.NewPgRepository(pgPool)
	generator := schedule.NewGenerator(templates, cfg.MinLeadTime)
	guard := booking.NewGuard(generator, entries)
	// The sweep never books, so it runs without the Redis advisory lock.
	svc := booking.NewService(repo, entries, guard, nil, booking.Params{
		HoldSeconds:            cfg.HoldSeconds,
		ConvenienceRatePercent: cfg.ConvenienceRatePercent,
	}, log)

	// Run once at startup
	runOnce(rootCtx, svc, log)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping expiry worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, log)
		}
	}
}

func runOnce(ctx context.Context, svc *booking.Service, log zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	n, err := svc.ExpireUnpaid(runCtx)
	if err != nil {
		log.Error().Err(err).Msg("expiry run")
		return
	}
	log.Info().Int("expired", n).Dur("took", time.Since(start)).Msg("expiry run complete")
}
