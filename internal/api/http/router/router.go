package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/nhangara/identity-server/internal/api/http/handler"
	"github.com/nhangara/identity-server/internal/api/http/middleware"
	"github.com/nhangara/identity-server/internal/config"
	"github.com/nhangara/identity-server/internal/logger"
	"github.com/nhangara/identity-server/internal/metrics"
	"github.com/nhangara/identity-server/internal/model"
	"github.com/nhangara/identity-server/internal/service"
)

// Router wires the identity HTTP API.
type Router struct {
	identity       *service.Identity
	checks         map[string]handler.Check
	metrics        *metrics.Metrics
	contextManager model.ContextManager
	logger         *logger.Logger
	rateLimit      config.RateLimit
	trustProxy     bool
}

// Option configures a Router.
type Option func(*Router)

// WithRateLimit throttles the auth endpoints per client address.
func WithRateLimit(rl config.RateLimit) Option {
	return func(r *Router) { r.rateLimit = rl }
}

// WithTrustedProxy takes client addresses from proxy headers.
func WithTrustedProxy(trust bool) Option {
	return func(r *Router) { r.trustProxy = trust }
}

// New creates new HTTP Router instance. checks are run by the readiness probe.
func New(
	identity *service.Identity,
	checks map[string]handler.Check,
	m *metrics.Metrics,
	contextManager model.ContextManager,
	logger *logger.Logger,
	opts ...Option,
) *Router {
	r := &Router{
		identity:       identity,
		checks:         checks,
		metrics:        m,
		contextManager: contextManager,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register builds the handler tree with request logging, metrics and
// authentication middleware.
func (r *Router) Register() http.Handler {
	logging := middleware.NewLogging(r.logger)
	instrument := middleware.NewInstrument(r.metrics)
	authenticate := middleware.NewAuthenticate(r.identity, r.contextManager, r.logger)
	limiter := middleware.NewRateLimit(r.rateLimit.Requests, r.rateLimit.Window)

	mux := chi.NewRouter()
	if r.trustProxy {
		mux.Use(chimw.RealIP)
	}
	mux.Use(chimw.RequestID, logging.Handle, chimw.Recoverer, instrument.Handle)

	handler.NewHealth(r.checks, r.identity, 0).Register(mux)
	if r.metrics != nil {
		mux.Method(http.MethodGet, "/metrics", r.metrics.Handler())
	}

	mux.Route("/api", func(api chi.Router) {
		api.Group(func(public chi.Router) {
			public.Use(limiter.Handle)
			handler.NewAuth(r.identity, r.logger).Register(public)
		})
		api.Group(func(private chi.Router) {
			private.Use(authenticate.Handle)
			handler.NewAccount(r.identity, r.contextManager, r.logger).Register(private)
			handler.NewWallet(r.identity, r.contextManager, r.logger).Register(private)
			handler.NewProgress(r.identity, r.contextManager, r.logger).Register(private)
		})
	})

	return mux
}
