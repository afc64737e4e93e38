package storefront

import (
	"context"
	"net/http"
	"net/netip"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"FurniStore/internal/cart"
	"FurniStore/internal/catalog"
	"FurniStore/internal/checkout"
	"FurniStore/internal/orders"
	"FurniStore/internal/session"
	"FurniStore/pkg/kit"
)

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	MetricsEnabled bool
	MetricsToken   string
	CORSOrigins    []string
	TrustedProxies []netip.Prefix
}

// Check is a named readiness probe.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

type Deps struct {
	Catalog  *catalog.Store
	Carts    *cart.Registry
	Orders   *orders.Service
	Checkout *checkout.Service
	Tokens   *session.TokenMaker

	OrdersLimiter       *kit.IPRateLimiter
	CustomOrdersLimiter *kit.IPRateLimiter

	// Ready holds probes besides the catalog, such as the cart database.
	Ready []Check
}

const readyTimeout = 2 * time.Second

func NewHandler(deps Deps, httpDeps HTTPDeps) http.Handler {
	r := chi.NewRouter()
	setupMiddleware(r, httpDeps)
	setupMetrics(r, httpDeps)

	checks := append([]Check{{Name: "catalog", Ping: deps.Catalog.Ping}}, deps.Ready...)
	r.Get("/healthz", healthz)
	r.Get("/readyz", readyz(checks, httpDeps.Log))

	catalogSrv := &catalog.Server{Store: deps.Catalog, Log: httpDeps.Log, AdminToken: httpDeps.MetricsToken}
	sessionSrv := &session.Server{Tokens: deps.Tokens, Log: httpDeps.Log}
	cartSrv := &cart.Server{
		Carts:    deps.Carts,
		Catalog:  deps.Catalog,
		Log:      httpDeps.Log,
		Upgrader: websocket.Upgrader{CheckOrigin: originChecker(httpDeps.CORSOrigins)},
	}
	ordersSrv := &orders.Server{Orders: deps.Orders, Limiter: deps.OrdersLimiter, Log: httpDeps.Log}
	checkoutSrv := &checkout.Server{
		Checkout: deps.Checkout,
		Carts:    deps.Carts,
		Limiter:  deps.CustomOrdersLimiter,
		Log:      httpDeps.Log,
	}

	r.Mount("/catalog", catalogSrv.Routes())
	r.Post("/session", sessionSrv.Issue)
	r.Mount("/orders", ordersSrv.Routes())
	r.Mount("/custom-orders", checkoutSrv.CustomOrderRoutes())

	r.Group(func(pr chi.Router) {
		pr.Use(session.Require(deps.Tokens))
		pr.Mount("/cart", cartSrv.Routes())
		pr.Mount("/checkout", checkoutSrv.Routes())
	})

	return r
}

func setupMiddleware(r *chi.Mux, deps HTTPDeps) {
	r.Use(chimw.RequestID)
	r.Use(kit.RealIP(deps.TrustedProxies))
	r.Use(kit.Recoverer)
	r.Use(kit.Logging(deps.Log))
	r.Use(kit.CORS(deps.CORSOrigins))
}

func setupMetrics(r *chi.Mux, deps HTTPDeps) {
	if deps.Registry == nil {
		return
	}

	metrics := kit.NewMetrics(deps.Registry)
	r.Use(metrics.Middleware(deps.Service, kit.ChiRoutePatternOrPath))

	if !deps.MetricsEnabled {
		return
	}

	r.With(kit.MetricsAuth(deps.MetricsToken)).
		Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func readyz(checks []Check, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		for _, c := range checks {
			if err := c.Ping(ctx); err != nil {
				if log != nil {
					log.Warn("readyz failed: "+c.Name, zap.Error(err))
				}
				kit.WriteError(w, r, http.StatusServiceUnavailable, c.Name+" not ready", nil)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
	}
}

// originChecker mirrors the CORS policy for websocket handshakes.
func originChecker(origins []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || len(origins) == 0 || slices.Contains(origins, origin)
	}
}
