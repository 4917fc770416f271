package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brendonia/brendonia-backend/api/controllers"
	"github.com/brendonia/brendonia-backend/api/middleware"
	"github.com/brendonia/brendonia-backend/internal/ledger"
	"github.com/brendonia/brendonia-backend/internal/payments"
	"github.com/brendonia/brendonia-backend/internal/videos"
	payevosvc "github.com/brendonia/brendonia-backend/internal/webhooks/payevo"
	"github.com/brendonia/brendonia-backend/pkg/config"
	"github.com/brendonia/brendonia-backend/pkg/logger"
)

// RouterParams carries everything the HTTP surface needs. Registry may be
// nil, which falls back to the default Prometheus registry.
type RouterParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Redis    controllers.Pinger
	Registry *prometheus.Registry

	Ledger   ledger.Service
	Videos   videos.Service
	Payments payments.Service
	Webhook  payevosvc.Service
}

// NewRouter assembles the chi router: public health, metrics, webhook and
// checkout routes, plus the bearer-protected dashboard surface.
func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, params.DB, params.Redis, logg))
	})

	r.Method(http.MethodGet, "/metrics", metricsHandler(params.Registry))

	r.Route("/webhooks", func(r chi.Router) {
		r.Get("/payevo", controllers.PayevoWebhookLiveness())
		r.Post("/payevo", controllers.PayevoWebhook(params.Webhook, cfg.Payevo.WebhookSecret, logg))
	})

	r.Route("/payments", func(r chi.Router) {
		r.Post("/create", controllers.PaymentCreate(params.Payments, logg))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/credits", func(r chi.Router) {
			r.Get("/balance", controllers.CreditsBalance(params.Ledger, logg))
			r.Post("/add", controllers.CreditsAdd(params.Ledger, logg))
		})

		r.Route("/videos", func(r chi.Router) {
			r.Post("/submit", controllers.VideoSubmit(params.Videos, logg))
			r.Get("/list", controllers.VideoList(params.Videos, logg))
			r.Get("/{videoID}/moments", controllers.VideoMoments(params.Videos, logg))
		})
	})

	return r
}

func metricsHandler(registry *prometheus.Registry) http.Handler {
	if registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
