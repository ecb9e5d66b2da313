package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/paylite-technologies/payng/internal/auth"
	"github.com/paylite-technologies/payng/internal/authz"
	"github.com/paylite-technologies/payng/internal/billing"
	"github.com/paylite-technologies/payng/internal/guard"
	"github.com/paylite-technologies/payng/internal/observability"
	"github.com/paylite-technologies/payng/internal/shared"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	RuleProvider   *authz.Provider
	RouteTable     *guard.Table
	AuthHandler    *auth.Handler
	BillingHandler *billing.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with Payng defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	ability := authz.Middleware{Provider: params.RuleProvider, Logger: params.Logger}

	guardMW := guard.Middleware{
		Table:         params.RouteTable,
		SignInPath:    params.Config.SignInPath,
		DashboardPath: params.Config.DashboardPath,
		Logger:        params.Logger,
	}
	if params.Metrics != nil {
		guardMW.Observe = params.Metrics.ObserveGuardDecision
	}

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Ability:        ability,
		Guard:          guardMW,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	if params.BillingHandler != nil {
		params.BillingHandler.MountRoutes(r, ability)
	}

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
