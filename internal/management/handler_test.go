package management

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/rbac"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/shared"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/store"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/view"
)

type stubWarmer struct {
	calls int
	err   error
}

func (s *stubWarmer) RequestSummaryRefresh(context.Context) error {
	s.calls++
	return s.err
}

func newSummaryRouter(t *testing.T, m *store.Memory, warmer Warmer, role shared.Role) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine, err := view.NewEngineWith(view.Options{Brand: "Cusco Travel", Currency: "S/"})
	require.NoError(t, err)
	h := NewHandler(logger, newTestService(t, m), engine, shared.NewCSRFManager("secret"), rbac.Middleware{Service: rbac.NewService(), Logger: logger})
	if warmer != nil {
		h.WithWarmer(warmer)
	}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			req = req.WithContext(shared.ContextWithPrincipal(req.Context(), &shared.Principal{UserID: 1, Email: "boss@agency.test", Role: role}))
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/management", h.MountRoutes)
	return r
}

func TestSummaryJSONEndpoint(t *testing.T) {
	m := store.NewMemory()
	seedMonth(m)
	router := newSummaryRouter(t, m, nil, shared.RoleManagement)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/management/summary.json?from=2025-05-01&to=2025-05-31", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.EqualValues(t, 2, body["sales_count"])
	require.EqualValues(t, 1, body["b2b_count"])
	require.Equal(t, "400", body["revenue"])

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/management/summary.json?from=05/01/2025", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestSummaryPageRendersFigures(t *testing.T) {
	m := store.NewMemory()
	seedMonth(m)
	router := newSummaryRouter(t, m, nil, shared.RoleManagement)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/management/summary?from=2025-05-01&to=2025-05-31", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "S/ 400.00")
	require.Contains(t, rec.Body.String(), "/management/summary/refresh")
}

func TestSummaryRequiresManagement(t *testing.T) {
	router := newSummaryRouter(t, store.NewMemory(), nil, shared.RoleSales)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/management/summary", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSummaryRefreshSchedulesWarmup(t *testing.T) {
	warmer := &stubWarmer{}
	router := newSummaryRouter(t, store.NewMemory(), warmer, shared.RoleManagement)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/management/summary/refresh", strings.NewReader("")))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/management/summary", rec.Header().Get("Location"))
	require.Equal(t, 1, warmer.calls)

	warmer.err = errors.New("redis down")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/management/summary/refresh", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, 2, warmer.calls)
}

func TestSummaryRefreshWithoutQueue(t *testing.T) {
	router := newSummaryRouter(t, store.NewMemory(), nil, shared.RoleManagement)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/management/summary/refresh", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
