package view

import (
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/shared"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
	mu        sync.RWMutex
	menu      MenuFunc
	brand     string
}

// NavItem is one link of the sidebar.
type NavItem struct {
	Label string
	Path  string
}

// MenuFunc returns the navigation visible to a principal.
type MenuFunc func(p *shared.Principal) []NavItem

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	Brand       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	CurrentPath string
	Principal   *shared.Principal
	Nav         []NavItem
	Data        any
}

// Options customises formatting used by the templates.
type Options struct {
	Brand    string
	Currency string
	Language language.Tag
}

// NewEngine parses templates at build-time with default options.
func NewEngine() (*Engine, error) {
	return NewEngineWith(Options{})
}

// NewEngineWith parses templates with the given formatting options.
func NewEngineWith(opts Options) (*Engine, error) {
	if opts.Currency == "" {
		opts.Currency = "S/"
	}
	if opts.Language == language.Und {
		opts.Language = language.AmericanEnglish
	}
	printer := message.NewPrinter(opts.Language)
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006 15:04")
		},
		"formatDay": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("Mon 02 Jan 2006")
		},
		"isoDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format(time.DateOnly)
		},
		"money": func(d decimal.Decimal) string {
			return FormatMoney(printer, opts.Currency, d)
		},
		"fixed": func(d decimal.Decimal) string {
			return d.StringFixed(2)
		},
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl, brand: opts.Brand}, nil
}

// FormatMoney renders an amount with two decimals and locale grouping.
func FormatMoney(p *message.Printer, currency string, d decimal.Decimal) string {
	return p.Sprintf("%s %.2f", currency, d.Round(2).InexactFloat64())
}

// SetMenu installs the navigation resolver used when TemplateData has a principal.
func (e *Engine) SetMenu(fn MenuFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.menu = fn
}

// Render executes a named template with TemplateData.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	if data.Brand == "" {
		data.Brand = e.brand
	}
	e.mu.RLock()
	menu := e.menu
	e.mu.RUnlock()
	if data.Nav == nil && menu != nil && data.Principal != nil {
		data.Nav = menu(data.Principal)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return e.templates.ExecuteTemplate(w, name, data)
}
