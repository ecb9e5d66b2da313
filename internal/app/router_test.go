package app_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paylite-technologies/payng/internal/app"
	"github.com/paylite-technologies/payng/internal/auth"
	"github.com/paylite-technologies/payng/internal/authz"
	"github.com/paylite-technologies/payng/internal/guard"
	"github.com/paylite-technologies/payng/internal/identity"
	"github.com/paylite-technologies/payng/internal/observability"
	"github.com/paylite-technologies/payng/internal/shared"
)

type emptyRepo struct{}

func (emptyRepo) FindByEmail(ctx context.Context, email string) (*auth.Account, error) {
	return nil, shared.ErrNotFound
}

func (emptyRepo) CreateAccount(ctx context.Context, account *auth.Account) error {
	return nil
}

func (emptyRepo) LinkedStudents(ctx context.Context, accountID string, role identity.Role) ([]identity.Student, error) {
	return nil, nil
}

func (emptyRepo) CreateSession(ctx context.Context, id, accountID string, expiresAt time.Time, ip, ua string) error {
	return nil
}

func (emptyRepo) DeleteSession(ctx context.Context, id string) error {
	return nil
}

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(client, "payng_session", "secret", time.Hour, false)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &app.Config{
		AppEnv:            "test",
		AppRequestTimeout: 5 * time.Second,
		SignInPath:        "/login",
		DashboardPath:     "/dashboard",
	}

	return app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessions,
		RuleProvider:   authz.NewProvider(),
		RouteTable:     guard.DefaultTable(),
		AuthHandler:    auth.NewHandler(logger, auth.NewService(emptyRepo{}), sessions),
		Metrics:        observability.NewMetrics(),
	})
}

func TestRouterHealthz(t *testing.T) {
	router := newRouter(t)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `"status":"ok"`)
}

func TestRouterGuardsProtectedRoute(t *testing.T) {
	router := newRouter(t)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	require.Equal(t, http.StatusSeeOther, res.Code)
	location := res.Header().Get("Location")
	assert.True(t, strings.HasPrefix(location, "/login?redirect="), "unexpected location %q", location)
}

func TestRouterServesMetrics(t *testing.T) {
	router := newRouter(t)

	// Warm the request counter with one routed request.
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "payng_http_requests_total")
}