// Package app assembles the storefront HTTP handler from the domain servers.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"FoodMart/internal/admin"
	"FoodMart/internal/cart"
	"FoodMart/internal/catalog"
	"FoodMart/internal/order"
	"FoodMart/internal/store"
	"FoodMart/pkg/kit"
)

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	MetricsEnabled bool
	MetricsToken   string
}

type Deps struct {
	Store  store.Store
	Orders order.Store
	JWT    *admin.TokenMaker

	AdminCookie      string
	LoginLimitPerMin int
	SessionCookie    string
	SessionMaxAge    time.Duration
	MaxBodyBytes     int64
}

const readyTimeout = 2 * time.Second

func NewHandler(deps Deps, httpDeps HTTPDeps) http.Handler {
	log := httpDeps.Log
	if log == nil {
		log = zap.NewNop()
	}

	sessions := &cart.Sessions{
		CookieName: deps.SessionCookie,
		MaxAge:     deps.SessionMaxAge,
		Log:        log,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer)
	r.Use(kit.Logging(log, sessions.LogField))

	metrics := setupMetrics(r, httpDeps)

	r.Get("/healthz", healthz)
	r.Get("/readyz", readyz(deps.Store, log))

	admins := &admin.Server{
		Log:              log,
		Store:            deps.Store,
		JWT:              deps.JWT,
		Metrics:          metrics,
		CookieName:       deps.AdminCookie,
		LoginLimitPerMin: deps.LoginLimitPerMin,
		MaxBodyBytes:     deps.MaxBodyBytes,
	}
	products := &catalog.Server{
		Log:          log,
		Store:        deps.Store,
		RequireAdmin: admins.RequireAdmin,
		MaxBodyBytes: deps.MaxBodyBytes,
	}
	carts := &cart.Server{
		Log:          log,
		Carts:        deps.Store,
		Products:     deps.Store,
		Metrics:      metrics,
		MaxBodyBytes: deps.MaxBodyBytes,
	}
	orders := &order.Server{
		Log:          log,
		Store:        deps.Orders,
		Carts:        deps.Store,
		Products:     deps.Store,
		Metrics:      metrics,
		RequireAdmin: admins.RequireAdmin,
		MaxBodyBytes: deps.MaxBodyBytes,
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(sessions.Middleware)

		products.Register(api)
		carts.Register(api)
		admins.Register(api)
		orders.Register(api)
	})

	return r
}

func setupMetrics(r *chi.Mux, deps HTTPDeps) *kit.Metrics {
	if deps.Registry == nil {
		return nil
	}

	metrics := kit.NewMetrics(deps.Registry, deps.Service)
	r.Use(metrics.Middleware(kit.RoutePatternOrPath))

	if deps.MetricsEnabled {
		r.With(kit.MetricsAuth(deps.MetricsToken)).
			Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}
	return metrics
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

type pinger interface {
	Ping(ctx context.Context) error
}

func readyz(p pinger, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		if err := p.Ping(ctx); err != nil {
			log.Warn("readyz failed: store", zap.Error(err))
			kit.WriteError(w, r, http.StatusServiceUnavailable, "store not ready", nil)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
