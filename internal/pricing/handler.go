package pricing

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/rbac"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/shared"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/view"
)

const blankRows = 5

// Handler serves the interactive budget calculator.
type Handler struct {
	logger    *slog.Logger
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, templates *view.Engine, csrf *shared.CSRFManager, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, templates: templates, csrf: csrf, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers pricing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermPricingUse))
		r.Get("/", h.showForm)
		r.Post("/", h.compute)
	})
}

// Row is one editable line of the calculator form.
type Row struct {
	Label string
	Base  string
	Child string
}

type budgetForm struct {
	Adults     int    `validate:"gte=0,lte=500"`
	Children   int    `validate:"gte=0,lte=500"`
	Margin     string `validate:"omitempty,numeric"`
	Adjustment string `validate:"omitempty,numeric"`
}

type pageData struct {
	Form   budgetForm
	Rows   []Row
	Items  []LineItem
	Budget *Budget
	Errors map[string]string
}

func (h *Handler) showForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, pageData{Form: budgetForm{Adults: 1}, Rows: padRows(nil)}, http.StatusOK)
}

func (h *Handler) compute(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	errs := make(map[string]string)
	form := budgetForm{
		Margin:     strings.TrimSpace(r.PostFormValue("margin")),
		Adjustment: strings.TrimSpace(r.PostFormValue("adjustment")),
	}
	form.Adults, errs = intField(r, "adults", "Adults", errs)
	form.Children, errs = intField(r, "children", "Children", errs)
	if err := h.validator.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fieldErr := range verrs {
				errs[fieldErr.Field()] = fieldErr.Error()
			}
		}
	}

	rows := collectRows(r)
	items := make([]LineItem, 0, len(rows))
	for i, row := range rows {
		item, err := ParseLineItem(row.Label, row.Base, row.Child)
		if err != nil {
			errs[fmt.Sprintf("row%d", i)] = "Costs must be numbers"
			continue
		}
		items = append(items, item)
	}

	data := pageData{Form: form, Rows: padRows(rows), Errors: errs}
	if len(errs) > 0 {
		h.render(w, r, data, http.StatusBadRequest)
		return
	}
	cfg := Config{
		AdultCount:      form.Adults,
		ChildCount:      form.Children,
		MarginPercent:   amountOrZero(form.Margin),
		FixedAdjustment: amountOrZero(form.Adjustment),
	}
	if err := cfg.Validate(); err != nil {
		data.Errors = map[string]string{"general": "Head counts must be zero or more"}
		h.render(w, r, data, http.StatusBadRequest)
		return
	}
	budget := ComputeBudget(items, cfg)
	data.Items = items
	data.Budget = &budget
	h.render(w, r, data, http.StatusOK)
}

func intField(r *http.Request, key, field string, errs map[string]string) (int, map[string]string) {
	raw := strings.TrimSpace(r.PostFormValue(key))
	if raw == "" {
		return 0, errs
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		errs[field] = "Must be a whole number"
	}
	return n, errs
}

// collectRows zips the parallel label/base/child inputs, skipping blank rows.
func collectRows(r *http.Request) []Row {
	labels := r.PostForm["label"]
	bases := r.PostForm["base"]
	children := r.PostForm["child"]
	var rows []Row
	for i := range labels {
		row := Row{Label: strings.TrimSpace(labels[i])}
		if i < len(bases) {
			row.Base = strings.TrimSpace(bases[i])
		}
		if i < len(children) {
			row.Child = strings.TrimSpace(children[i])
		}
		if row.Label == "" && row.Base == "" && row.Child == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

func padRows(rows []Row) []Row {
	for len(rows) < blankRows {
		rows = append(rows, Row{})
	}
	return rows
}

func amountOrZero(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data pageData, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Budget calculator",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Principal:   shared.PrincipalFromContext(r.Context()),
		Data:        data,
	}
	w.WriteHeader(status)
	if err := h.templates.Render(w, "pages/pricing.html", viewData); err != nil {
		h.logger.Error("render pricing", slog.Any("error", err))
	}
}
