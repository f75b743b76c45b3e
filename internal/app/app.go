package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"MiniCatalog/internal/auth"
	"MiniCatalog/internal/catalog"
	"MiniCatalog/pkg/kit"
)

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	MetricsEnabled bool
	MetricsToken   string
}

type Deps struct {
	Policy catalog.Policy
	Store  *catalog.MemStore

	Users      auth.UserStore
	JWT        *auth.TokenMaker
	TokenTTL   time.Duration
	WriterRole string

	RateStore  kit.RateStore
	RateLimit  int
	RateWindow time.Duration

	// TrustForwarded rewrites RemoteAddr from proxy headers before anything
	// else sees the request.
	TrustForwarded bool
}

const (
	defaultRateLimit  = 5
	defaultRateWindow = 60 * time.Second
)

// NewHandler wires the product API, the token endpoints that back its write
// guard, health checks and metrics into one router. Every error body it
// produces uses deps.Policy.ErrorShape.
func NewHandler(deps Deps, httpDeps HTTPDeps) (http.Handler, error) {
	if deps.Store == nil {
		return nil, errors.New("catalog store is required")
	}
	if deps.Policy.StrictAuth && (deps.JWT == nil || deps.Users == nil) {
		return nil, errors.New("strict auth needs a token maker and a user store")
	}
	if httpDeps.Log == nil {
		httpDeps.Log = zap.NewNop()
	}

	rs := kit.NewResponder(deps.Policy.ErrorShape)

	r := chi.NewRouter()
	setupMiddleware(r, deps, httpDeps, rs)
	setupMetrics(r, deps, httpDeps, rs)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		rs.Error(w, r, http.StatusNotFound, "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		rs.Error(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	products := &catalog.Server{
		Store:  deps.Store,
		Log:    httpDeps.Log,
		Policy: deps.Policy,
	}

	if deps.JWT != nil && deps.Users != nil {
		products.WriteGuard = auth.RequireRole(deps.JWT, deps.WriterRole, rs)
		r.Mount("/auth", authRoutes(deps, httpDeps.Log, rs))
	}

	r.Mount("/", products.Routes())
	return r, nil
}

func authRoutes(deps Deps, log *zap.Logger, rs kit.Responder) http.Handler {
	store := deps.RateStore
	if store == nil {
		store = kit.NewMemoryRateStore()
	}
	limit, window := deps.RateLimit, deps.RateWindow
	if limit <= 0 {
		limit = defaultRateLimit
	}
	if window <= 0 {
		window = defaultRateWindow
	}

	s := &auth.Server{
		Log:           log,
		Store:         deps.Users,
		JWT:           deps.JWT,
		TokenTTL:      deps.TokenTTL,
		Resp:          rs,
		LoginLimit:    kit.NewIPRateLimiter(store, "login", limit, window, rs, log).Middleware,
		RegisterLimit: kit.NewIPRateLimiter(store, "register", limit, window, rs, log).Middleware,
	}
	return s.Routes()
}

func setupMiddleware(r *chi.Mux, deps Deps, httpDeps HTTPDeps, rs kit.Responder) {
	r.Use(chimw.RequestID)
	if deps.TrustForwarded {
		r.Use(chimw.RealIP)
	}
	r.Use(kit.Recoverer(httpDeps.Log, rs))
	r.Use(kit.Logging(httpDeps.Log))
}

func setupMetrics(r *chi.Mux, deps Deps, httpDeps HTTPDeps, rs kit.Responder) {
	if httpDeps.Registry == nil {
		return
	}

	metrics := kit.NewMetrics(httpDeps.Registry, httpDeps.Service)
	httpDeps.Registry.MustRegister(catalog.NewSizeGauge(deps.Store))
	r.Use(metrics.Middleware(httpDeps.Service, kit.ChiRoutePatternOrPath))

	if !httpDeps.MetricsEnabled {
		return
	}

	r.With(kit.MetricsAuth(httpDeps.MetricsToken, rs)).
		Handle("/metrics", promhttp.HandlerFor(httpDeps.Registry, promhttp.HandlerOpts{}))
}
