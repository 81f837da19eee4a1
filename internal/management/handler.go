package management

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/platform/httpx"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/rbac"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/shared"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/view"
)

// Warmer schedules a background recomputation of the current month.
type Warmer interface {
	RequestSummaryRefresh(ctx context.Context) error
}

// Handler serves the management summary.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
	warmer    Warmer
	now       func() time.Time
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, rbac: rbac, now: time.Now}
}

// WithWarmer enables POST /summary/refresh.
func (h *Handler) WithWarmer(w Warmer) *Handler {
	h.warmer = w
	return h
}

// MountRoutes registers management routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermSummaryView))
		r.Get("/summary", h.showSummary)
		r.Get("/summary.json", h.summaryJSON)
		r.Post("/summary/refresh", h.requestRefresh)
	})
}

type summaryPageData struct {
	Summary Summary
	From    time.Time
	To      time.Time
	Error   string
}

func (h *Handler) parseRange(r *http.Request) (time.Time, time.Time, bool) {
	from, to := MonthRange(h.now())
	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("from")); raw != "" {
		t, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return from, to, false
		}
		from = t
	}
	if raw := strings.TrimSpace(q.Get("to")); raw != "" {
		t, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return from, to, false
		}
		to = t
	}
	return from, to, true
}

func (h *Handler) showSummary(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.parseRange(r)
	if !ok {
		h.render(w, r, summaryPageData{From: from, To: to, Error: "Dates must use the YYYY-MM-DD format"}, http.StatusBadRequest)
		return
	}
	summary, err := h.service.Summary(r.Context(), from, to)
	if err != nil {
		h.logger.Error("management summary", slog.Any("error", err))
		h.render(w, r, summaryPageData{From: from, To: to, Error: "The summary is unavailable right now"}, httpx.StatusFor(err))
		return
	}
	h.render(w, r, summaryPageData{Summary: summary, From: from, To: to}, http.StatusOK)
}

func (h *Handler) summaryJSON(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.parseRange(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "dates must use YYYY-MM-DD")
		return
	}
	summary, err := h.service.Summary(r.Context(), from, to)
	if err != nil {
		h.logger.Error("management summary json", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) requestRefresh(w http.ResponseWriter, r *http.Request) {
	if h.warmer == nil {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	flash := shared.FlashMessage{Kind: "success", Message: "Summary refresh scheduled"}
	if err := h.warmer.RequestSummaryRefresh(r.Context()); err != nil {
		h.logger.Error("schedule summary refresh", slog.Any("error", err))
		flash = shared.FlashMessage{Kind: "error", Message: "Could not schedule the refresh"}
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(flash)
	}
	http.Redirect(w, r, "/management/summary", http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data summaryPageData, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Management summary",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Principal:   shared.PrincipalFromContext(r.Context()),
		Data:        data,
	}
	w.WriteHeader(status)
	if err := h.templates.Render(w, "pages/summary.html", viewData); err != nil {
		h.logger.Error("render summary", slog.Any("error", err))
	}
}
