package itinerary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/platform/httpx"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/rbac"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/shared"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/jobs"
)

// Enqueuer schedules background renders.
type Enqueuer interface {
	EnqueueItineraryRender(ctx context.Context, payload jobs.ItineraryRenderPayload) (*asynq.TaskInfo, error)
}

// Handler serves itinerary previews and downloads.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	renderer *Renderer
	queue    Enqueuer
	rbac     rbac.Middleware
	agency   string
	now      func() time.Time
}

// NewHandler constructs a Handler. queue may be nil, in which case render
// requests are refused.
func NewHandler(logger *slog.Logger, service *Service, renderer *Renderer, queue Enqueuer, rbac rbac.Middleware, agency string) *Handler {
	return &Handler{logger: logger, service: service, renderer: renderer, queue: queue, rbac: rbac, agency: agency, now: time.Now}
}

// MountRoutes registers itinerary routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermItineraryView))
		r.Get("/{id}", h.preview)
		r.Get("/{id}/pdf", h.download)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermItineraryRender))
		r.Post("/{id}/render", h.enqueue)
	})
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (Itinerary, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid itinerary id")
		return Itinerary{}, false
	}
	it, err := h.service.Get(r.Context(), id)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			h.logger.Error("load itinerary", slog.Int64("itinerary_id", id), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return Itinerary{}, false
	}
	return it, true
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	it, ok := h.load(w, r)
	if !ok {
		return
	}
	html, err := h.renderer.HTML(NewDocument(it, h.agency, h.now()))
	if err != nil {
		h.logger.Error("render itinerary preview", slog.Int64("itinerary_id", it.ID), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Itinerary-Status", string(it.Status))
	_, _ = w.Write([]byte(html))
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	it, ok := h.load(w, r)
	if !ok {
		return
	}
	filename := fmt.Sprintf("itinerary-%d.pdf", it.ID)
	if it.Status == StatusReady && it.FilePath != "" {
		if data, err := os.ReadFile(it.FilePath); err == nil {
			writePDF(w, filename, data)
			return
		}
	}
	rendered, err := h.renderer.Render(r.Context(), NewDocument(it, h.agency, h.now()))
	if err != nil {
		h.logger.Error("render itinerary pdf", slog.Int64("itinerary_id", it.ID), slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Render Failed", "the PDF service is unavailable")
		return
	}
	writePDF(w, filename, rendered.PDF)
}

func writePDF(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

func (h *Handler) enqueue(w http.ResponseWriter, r *http.Request) {
	it, ok := h.load(w, r)
	if !ok {
		return
	}
	sess := shared.SessionFromContext(r.Context())
	back := fmt.Sprintf("/itineraries/%d", it.ID)
	if h.queue == nil {
		addFlash(sess, "error", "Background rendering is not configured")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	if err := h.service.MarkPending(r.Context(), it.ID); err != nil {
		h.logger.Error("mark itinerary pending", slog.Int64("itinerary_id", it.ID), slog.Any("error", err))
		addFlash(sess, "error", "The itinerary could not be queued")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	payload := jobs.ItineraryRenderPayload{ItineraryID: it.ID, RequestID: uuid.NewString()}
	if p := shared.PrincipalFromContext(r.Context()); p != nil {
		payload.RequestedBy = p.UserID
	}
	if _, err := h.queue.EnqueueItineraryRender(r.Context(), payload); err != nil {
		h.logger.Error("enqueue itinerary render", slog.Int64("itinerary_id", it.ID), slog.Any("error", err))
		_ = h.service.MarkFailed(r.Context(), it.ID, err.Error())
		addFlash(sess, "error", "The itinerary could not be queued")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	addFlash(sess, "success", "Itinerary queued for rendering")
	http.Redirect(w, r, back, http.StatusSeeOther)
}

func addFlash(sess *shared.Session, kind, msg string) {
	if sess == nil {
		return
	}
	sess.AddFlash(shared.FlashMessage{Kind: kind, Message: msg})
}
