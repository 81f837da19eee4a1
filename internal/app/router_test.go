package app

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/auth"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/rbac"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/shared"
	_ "github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/testing/guard"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/view"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := shared.NewSessionManager(client, "agency_session", "session-secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrf-secret")
	engine, err := view.NewEngineWith(view.Options{Brand: "Cusco Travel"})
	require.NoError(t, err)
	rbacService := rbac.NewService()

	return NewRouter(RouterParams{
		Logger:         logger,
		Config:         &Config{AppEnv: "test", RateLimitPerMinute: 1000, AppRequestTimeout: 5 * time.Second},
		Templates:      engine,
		SessionManager: sessions,
		CSRFManager:    csrf,
		RBAC:           rbacService,
		RBACMiddleware: rbac.Middleware{Service: rbacService, Logger: logger},
		AuthHandler:    auth.NewHandler(logger, nil, engine, sessions, csrf),
	})
}

func TestRouterHealthAndSecurityHeaders(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestRouterRedirectsAnonymousHome(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/auth/login", rec.Header().Get("Location"))
}

func TestRouterServesStaticAssets(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/css/app.css", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))
	require.Contains(t, rec.Body.String(), ".badge")
}

func TestRouterRejectsPostWithoutCSRFToken(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouterRendersLoginPage(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "<form")
	require.NotEmpty(t, rec.Result().Cookies())
}
