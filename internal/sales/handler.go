package sales

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/rbac"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/shared"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/view"
)

// Handler manages sales endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, rbac rbac.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		templates: templates,
		csrf:      csrf,
		rbac:      rbac,
		validator: validator.New(),
	}
}

// MountRoutes registers sales routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermSaleView))
		r.Get("/", h.listSales)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermLeadView))
		r.Get("/leads", h.listLeads)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermLeadCreate))
		r.Post("/leads", h.createLead)
		r.Post("/leads/{id}/status", h.updateLeadStatus)
	})
}

type leadsPageData struct {
	Leads    []Lead
	Statuses []LeadStatus
	Sources  []string
	Filter   LeadStatus
	Page     int
	Form     CreateLeadRequest
	Errors   map[string]string
}

type salesPageData struct {
	Sales []SaleSummary
	Error string
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.ListSales(r.Context(), 100)
	if err != nil {
		h.logger.Error("list sales", slog.Any("error", err))
		h.render(w, r, "pages/sales.html", "Sales", salesPageData{Error: "Sales are unavailable right now"}, http.StatusServiceUnavailable)
		return
	}
	h.render(w, r, "pages/sales.html", "Sales", salesPageData{Sales: rows}, http.StatusOK)
}

func (h *Handler) listLeads(w http.ResponseWriter, r *http.Request) {
	h.renderLeads(w, r, CreateLeadRequest{}, nil, http.StatusOK)
}

func (h *Handler) renderLeads(w http.ResponseWriter, r *http.Request, form CreateLeadRequest, errs map[string]string, status int) {
	filter := LeadStatus(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status"))))
	if !filter.Valid() {
		filter = ""
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}
	leads, err := h.service.ListLeads(r.Context(), ListLeadsRequest{Status: filter, Page: page})
	if err != nil {
		h.logger.Error("list leads", slog.Any("error", err))
		if errs == nil {
			errs = map[string]string{}
		}
		errs["general"] = "Leads are unavailable right now"
		if status == http.StatusOK {
			status = http.StatusServiceUnavailable
		}
	}
	h.render(w, r, "pages/leads.html", "Leads", leadsPageData{
		Leads:    leads,
		Statuses: LeadStatuses(),
		Sources:  LeadSources(),
		Filter:   filter,
		Page:     page,
		Form:     form,
		Errors:   errs,
	}, status)
}

func (h *Handler) createLead(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := CreateLeadRequest{
		Name:   strings.TrimSpace(r.PostFormValue("name")),
		Phone:  strings.TrimSpace(r.PostFormValue("phone")),
		Source: strings.ToUpper(strings.TrimSpace(r.PostFormValue("source"))),
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
		if _, err := h.service.CreateLead(r.Context(), form); err != nil {
			h.logger.Error("create lead", slog.Any("error", err))
			errs["general"] = "The lead could not be saved, try again later"
		} else {
			if sess := shared.SessionFromContext(r.Context()); sess != nil {
				sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Lead " + form.Name + " created"})
			}
			http.Redirect(w, r, "/sales/leads", http.StatusSeeOther)
			return
		}
	}
	h.renderLeads(w, r, form, errs, http.StatusBadRequest)
}

func (h *Handler) updateLeadStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	status := LeadStatus(strings.ToUpper(strings.TrimSpace(r.PostFormValue("status"))))
	flash := shared.FlashMessage{Kind: "success", Message: "Lead updated"}
	if err := h.service.UpdateLeadStatus(r.Context(), id, status); err != nil {
		flash = shared.FlashMessage{Kind: "error", Message: "Lead could not be updated"}
		switch {
		case errors.Is(err, shared.ErrValidation):
			flash.Message = "Unknown lead status"
		case errors.Is(err, shared.ErrNotFound):
			flash.Message = "Lead not found"
		default:
			h.logger.Error("update lead status", slog.Int64("lead_id", id), slog.Any("error", err))
		}
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(flash)
	}
	http.Redirect(w, r, "/sales/leads", http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template, title string, data any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       title,
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
