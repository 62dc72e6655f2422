package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/rehabplatform/scheduling-service/internal/observability/metrics"
	"github.com/rehabplatform/scheduling-service/internal/schedule"
)

type RouterConfig struct {
	Service   *schedule.Service
	Metrics   *metrics.SchedulingMetrics
	Logger    zerolog.Logger
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	JWTSecret string
	Env       string
	Version   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger, cfg.Metrics))
	r.Use(RecoveryMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Handle("/metrics", promhttp.Handler())

	// Scheduling endpoints
	r.Route("/admin/doctors", func(r chi.Router) {
		r.Use(RequireAdmin(cfg.JWTSecret))

		r.Post("/", createDoctorHandler(cfg.Service))
		r.Post("/initialize-schedules", initializeSchedulesHandler(cfg.Service))

		r.Route("/{doctorID}", func(r chi.Router) {
			r.Get("/available-dates", availableDatesHandler(cfg.Service))
			r.Get("/time-slots", timeSlotsHandler(cfg.Service, cfg.Metrics))
			r.Post("/appointments", createAppointmentHandler(cfg.Service, cfg.Metrics))
		})
	})

	return r
}
