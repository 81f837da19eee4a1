package itinerary

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/rbac"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/shared"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/store"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/jobs"
)

type fakeQueue struct {
	payloads []jobs.ItineraryRenderPayload
	err      error
}

func (q *fakeQueue) EnqueueItineraryRender(_ context.Context, p jobs.ItineraryRenderPayload) (*asynq.TaskInfo, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.payloads = append(q.payloads, p)
	return &asynq.TaskInfo{ID: "itinerary-" + p.RequestID}, nil
}

func newItineraryRouter(t *testing.T, m *store.Memory, pdf PDFClient, queue Enqueuer, role shared.Role) http.Handler {
	t.Helper()
	renderer, err := NewRenderer(pdf, "S/")
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, NewService(m), renderer, queue, rbac.Middleware{Service: rbac.NewService(), Logger: logger}, "Cusco Travel")

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			req = req.WithContext(shared.ContextWithPrincipal(req.Context(), &shared.Principal{UserID: 9, Email: "sales@agency.test", Role: role}))
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/itineraries", h.MountRoutes)
	return r
}

func TestPreviewRendersNormalizedContent(t *testing.T) {
	m := store.NewMemory()
	seedItinerary(m)
	router := newItineraryRouter(t, m, &stubPDF{}, nil, shared.RoleOperations)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/itineraries/4", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "PENDING", rec.Header().Get("X-Itinerary-Status"))
	body := rec.Body.String()
	require.Contains(t, body, "Inca Trail 4D")
	require.Contains(t, body, "María Quispe")
	require.Contains(t, body, "Cusco Travel")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/itineraries/99", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/itineraries/abc", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownloadPrefersStoredFile(t *testing.T) {
	m := store.NewMemory()
	seedItinerary(m)
	path := filepath.Join(t.TempDir(), "itinerary-4.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF stored"), 0o644))
	_, err := m.Update(context.Background(), store.DigitalItineraries, store.Where(store.Eq("id", int64(4))), store.Record{"status": "READY", "file_path": path})
	require.NoError(t, err)

	pdf := &stubPDF{}
	rec := httptest.NewRecorder()
	newItineraryRouter(t, m, pdf, nil, shared.RoleSales).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/itineraries/4/pdf", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "%PDF stored", rec.Body.String())
	require.Empty(t, pdf.html)
}

func TestDownloadRendersOnDemand(t *testing.T) {
	m := store.NewMemory()
	seedItinerary(m)

	rec := httptest.NewRecorder()
	newItineraryRouter(t, m, &stubPDF{}, nil, shared.RoleSales).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/itineraries/4/pdf", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "itinerary-4.pdf")

	rec = httptest.NewRecorder()
	newItineraryRouter(t, m, &stubPDF{err: errors.New("down")}, nil, shared.RoleSales).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/itineraries/4/pdf", nil))
	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestEnqueueRender(t *testing.T) {
	m := store.NewMemory()
	seedItinerary(m)
	_, err := m.Update(context.Background(), store.DigitalItineraries, store.Where(store.Eq("id", int64(4))), store.Record{"status": "FAILED"})
	require.NoError(t, err)
	queue := &fakeQueue{}

	rec := httptest.NewRecorder()
	newItineraryRouter(t, m, &stubPDF{}, queue, shared.RoleSales).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/itineraries/4/render", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/itineraries/4", rec.Header().Get("Location"))
	require.Len(t, queue.payloads, 1)
	require.Equal(t, int64(4), queue.payloads[0].ItineraryID)
	require.Equal(t, int64(9), queue.payloads[0].RequestedBy)
	require.NotEmpty(t, queue.payloads[0].RequestID)
	require.Equal(t, "PENDING", m.Rows(store.DigitalItineraries)[0].String("status"))

	queue.err = errors.New("redis down")
	rec = httptest.NewRecorder()
	newItineraryRouter(t, m, &stubPDF{}, queue, shared.RoleSales).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/itineraries/4/render", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "FAILED", m.Rows(store.DigitalItineraries)[0].String("status"))

	rec = httptest.NewRecorder()
	newItineraryRouter(t, m, &stubPDF{}, queue, shared.RoleOperations).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/itineraries/4/render", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)
}
