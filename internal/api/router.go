package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/turnitos/turnitos-backend/internal/auth"
	"github.com/turnitos/turnitos-backend/internal/booking"
	"github.com/turnitos/turnitos-backend/internal/business"
)

// Handlers bundles the services behind the HTTP surface.
type Handlers struct {
	businesses  *business.Manager
	calendar    *booking.Calendar
	catalog     *booking.Catalog
	resolver    *booking.Resolver
	coordinator *booking.Coordinator
	tokens      *auth.Manager
	logger      *zap.Logger
}

func NewHandlers(
	businesses *business.Manager,
	calendar *booking.Calendar,
	catalog *booking.Catalog,
	resolver *booking.Resolver,
	coordinator *booking.Coordinator,
	tokens *auth.Manager,
	logger *zap.Logger,
) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		businesses:  businesses,
		calendar:    calendar,
		catalog:     catalog,
		resolver:    resolver,
		coordinator: coordinator,
		tokens:      tokens,
		logger:      logger,
	}
}

type RouterConfig struct {
	Handlers *Handlers
	PgPool   *pgxpool.Pool
	Redis    *redis.Client
	Logger   *zap.Logger
	Env      string
	Version  string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	h := cfg.Handlers

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(MetricsMiddleware)

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/register", h.register)
		api.Post("/auth/login", h.login)
		api.Post("/webhooks/payments", h.paymentWebhook)

		api.Route("/public/{slug}", func(pub chi.Router) {
			pub.Get("/info", h.publicInfo)
			pub.Get("/available-slots", h.publicSlots)
			pub.Post("/appointments", h.publicBook)
		})

		api.Group(func(priv chi.Router) {
			priv.Use(h.requireAuth)

			priv.Get("/subscription/status", h.subscriptionStatus)

			priv.Group(func(gated chi.Router) {
				gated.Use(h.requireActive)

				gated.Get("/dashboard/stats", h.dashboardStats)

				gated.Get("/business-hours", h.getBusinessHours)
				gated.Put("/business-hours", h.putBusinessHours)

				gated.Get("/closed-dates", h.listClosedDates)
				gated.Post("/closed-dates", h.addClosedDate)
				gated.Delete("/closed-dates/{date}", h.removeClosedDate)

				gated.Get("/services", h.listServices)
				gated.Post("/services", h.createService)
				gated.Put("/services/{id}", h.updateService)
				gated.Delete("/services/{id}", h.deleteService)

				gated.Get("/appointments", h.listAppointments)
				gated.Post("/appointments/admin", h.adminCreateAppointment)
				gated.Post("/appointments/{id}/confirm", h.confirmAppointment)
				gated.Delete("/appointments/{id}", h.cancelAppointment)

				gated.Get("/user/custom-slug", h.getSlug)
				gated.Put("/user/custom-slug", h.setSlug)
			})
		})
	})

	return r
}
