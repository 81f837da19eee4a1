package accounting

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

// Handler wires accounting endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers HTTP routes for accounting.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermPaymentView))
		r.Get("/receivables", h.listReceivables)
		r.Get("/sales/{id}/payments", h.showPayments)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermPaymentCreate))
		r.Post("/payments", h.registerPayment)
	})
}

type receivablesPageData struct {
	Receivables []Receivable
	ShowAll     bool
	Error       string
}

type paymentsPageData struct {
	SaleID   int64
	Payments []Payment
	Methods  []string
	Form     PaymentInput
	Errors   map[string]string
}

var paymentMethods = []string{"CASH", "TRANSFER", "CARD", "YAPE"}

func (h *Handler) listReceivables(w http.ResponseWriter, r *http.Request) {
	showAll := r.URL.Query().Get("all") == "1"
	rows, err := h.service.Receivables(r.Context(), !showAll)
	if err != nil {
		h.logger.Error("list receivables", slog.Any("error", err))
		h.render(w, r, "pages/receivables.html", "Receivables", receivablesPageData{ShowAll: showAll, Error: "Receivables are unavailable right now"}, http.StatusServiceUnavailable)
		return
	}
	h.render(w, r, "pages/receivables.html", "Receivables", receivablesPageData{Receivables: rows, ShowAll: showAll}, http.StatusOK)
}

func (h *Handler) showPayments(w http.ResponseWriter, r *http.Request) {
	saleID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || saleID <= 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	h.renderPayments(w, r, PaymentInput{SaleID: saleID}, nil, http.StatusOK)
}

func (h *Handler) renderPayments(w http.ResponseWriter, r *http.Request, form PaymentInput, errs map[string]string, status int) {
	payments, err := h.service.Payments(r.Context(), form.SaleID)
	if err != nil {
		h.logger.Error("list payments", slog.Int64("sale_id", form.SaleID), slog.Any("error", err))
		if errs == nil {
			errs = map[string]string{}
		}
		errs["general"] = "Payments are unavailable right now"
		if status == http.StatusOK {
			status = http.StatusServiceUnavailable
		}
	}
	h.render(w, r, "pages/payments.html", "Payments", paymentsPageData{
		SaleID:   form.SaleID,
		Payments: payments,
		Methods:  paymentMethods,
		Form:     form,
		Errors:   errs,
	}, status)
}

func (h *Handler) registerPayment(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	saleID, _ := strconv.ParseInt(strings.TrimSpace(r.PostFormValue("sale_id")), 10, 64)
	form := PaymentInput{
		SaleID:    saleID,
		Amount:    strings.TrimSpace(r.PostFormValue("amount")),
		Method:    strings.ToUpper(strings.TrimSpace(r.PostFormValue("method"))),
		Reference: strings.TrimSpace(r.PostFormValue("reference")),
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
	if form.SaleID <= 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if len(errs) == 0 {
		payment, err := h.service.RegisterPayment(r.Context(), form)
		switch {
		case err == nil:
			if sess := shared.SessionFromContext(r.Context()); sess != nil {
				sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Payment of " + payment.Amount.StringFixed(2) + " registered"})
			}
			http.Redirect(w, r, "/accounting/sales/"+strconv.FormatInt(form.SaleID, 10)+"/payments", http.StatusSeeOther)
			return
		case errors.Is(err, shared.ErrValidation):
			errs["Amount"] = "Amount must be greater than zero"
		case errors.Is(err, shared.ErrNotFound):
			errs["general"] = "Sale not found"
		default:
			h.logger.Error("register payment", slog.Int64("sale_id", form.SaleID), slog.Any("error", err))
			errs["general"] = "The payment could not be saved, try again later"
		}
	}
	h.renderPayments(w, r, form, errs, http.StatusBadRequest)
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
