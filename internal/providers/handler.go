package providers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/rbac"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/shared"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/view"
)

// Handler serves the provider directory.
type Handler struct {
	logger    *slog.Logger
	directory *Directory
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, directory *Directory, templates *view.Engine, csrf *shared.CSRFManager, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, directory: directory, templates: templates, csrf: csrf, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers provider routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermProviderView))
		r.Get("/", h.list)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermProviderCreate))
		r.Post("/", h.create)
	})
}

type listPageData struct {
	Providers []Provider
	Kinds     []Kind
	Filter    Kind
	Form      Input
	Errors    map[string]string
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	h.renderList(w, r, Input{}, nil, http.StatusOK)
}

func (h *Handler) renderList(w http.ResponseWriter, r *http.Request, form Input, errs map[string]string, status int) {
	filter := Kind(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("kind"))))
	switch filter {
	case KindGuide, KindAgency, KindTransport:
	default:
		filter = ""
	}
	items, err := h.directory.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list providers", slog.Any("error", err))
		if errs == nil {
			errs = map[string]string{}
		}
		errs["general"] = "The provider directory is unavailable right now"
		if status == http.StatusOK {
			status = http.StatusServiceUnavailable
		}
	}
	h.render(w, r, "pages/providers.html", listPageData{Providers: items, Kinds: Kinds(), Filter: filter, Form: form, Errors: errs}, status)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := Input{
		Name:  strings.TrimSpace(r.PostFormValue("name")),
		Kind:  strings.ToUpper(strings.TrimSpace(r.PostFormValue("kind"))),
		Phone: strings.TrimSpace(r.PostFormValue("phone")),
		Email: strings.TrimSpace(r.PostFormValue("email")),
	}
	errs := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fieldErr := range verrs {
				errs[fieldErr.Field()] = fieldErr.Error()
			}
		}
	}
	if len(errs) == 0 {
		p, err := h.directory.Create(r.Context(), form)
		if err == nil {
			if sess := shared.SessionFromContext(r.Context()); sess != nil {
				sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Provider " + p.Name + " added"})
			}
			http.Redirect(w, r, "/providers", http.StatusSeeOther)
			return
		}
		if errors.Is(err, shared.ErrValidation) {
			errs["Name"] = "A provider with this name already exists"
		} else {
			h.logger.Error("create provider", slog.Any("error", err))
			errs["general"] = "The provider could not be saved, try again later"
		}
	}
	h.renderList(w, r, form, errs, http.StatusBadRequest)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Providers",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Principal:   shared.PrincipalFromContext(r.Context()),
		Data:        data,
	}
	w.WriteHeader(status)
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.String("template", template), slog.Any("error", err))
	}
}
