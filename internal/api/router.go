package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/telecare/scheduling-engine/internal/availability"
	"github.com/telecare/scheduling-engine/internal/booking"
)

type RouterConfig struct {
	Service   *booking.Service
	Guard     *booking.Guard
	Templates availability.Store
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	Logger    zerolog.Logger
	Env       string
	Version   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Provider availability and slots
	r.Route("/providers/{id}", func(r chi.Router) {
		r.Get("/slots", slotsHandler(cfg.Guard))
		r.Get("/availability", getAvailabilityHandler(cfg.Templates))
		r.Put("/availability", setAvailabilityHandler(cfg.Templates))
	})

	// Appointment lifecycle
	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", createAppointmentHandler(cfg.Service))
		r.Get("/", listAppointmentsHandler(cfg.Service))
		r.Get("/{id}", getAppointmentHandler(cfg.Service))
		r.Post("/{id}/confirm-payment", confirmPaymentHandler(cfg.Service))
		r.Post("/{id}/cancel", cancelAppointmentHandler(cfg.Service))
		r.Post("/{id}/complete", completeAppointmentHandler(cfg.Service))
	})

	return r
}
