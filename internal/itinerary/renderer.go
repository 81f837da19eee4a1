package itinerary

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/pricing"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/view"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/web"
)

// PDFClient exposes the subset of the report client used by the renderer.
type PDFClient interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Document is the template input for one itinerary.
type Document struct {
	ItineraryID int64
	SaleID      int64
	Agency      string
	Content     Content
	Budget      pricing.Budget
	GeneratedAt time.Time
}

// NewDocument prices the content and stamps the generation time.
func NewDocument(it Itinerary, agency string, now time.Time) Document {
	return Document{
		ItineraryID: it.ID,
		SaleID:      it.SaleID,
		Agency:      agency,
		Content:     it.Content,
		Budget:      it.Content.Budget(),
		GeneratedAt: now,
	}
}

// RenderResult carries the rendered artefacts.
type RenderResult struct {
	HTML   string
	PDF    []byte
	Length int64
}

// Renderer transforms documents into HTML and PDF via html/template and Gotenberg.
type Renderer struct {
	tpl    *template.Template
	client PDFClient
}

// NewRenderer parses the itinerary template. client may be nil when only HTML
// previews are needed.
func NewRenderer(client PDFClient, currency string) (*Renderer, error) {
	if currency == "" {
		currency = "S/"
	}
	printer := message.NewPrinter(language.AmericanEnglish)
	funcMap := template.FuncMap{
		"formatDay": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("Mon 02 Jan 2006")
		},
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006 15:04")
		},
		"money": func(d decimal.Decimal) string {
			return view.FormatMoney(printer, currency, d)
		},
	}
	tpl, err := template.New("itinerary.html").Funcs(funcMap).ParseFS(web.Templates, "templates/reports/itinerary.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{tpl: tpl, client: client}, nil
}

// HTML executes the template only.
func (r *Renderer) HTML(doc Document) (string, error) {
	if r == nil || r.tpl == nil {
		return "", fmt.Errorf("itinerary renderer not initialised")
	}
	buf := &bytes.Buffer{}
	if err := r.tpl.Execute(buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Render executes the template and converts the HTML to PDF bytes.
func (r *Renderer) Render(ctx context.Context, doc Document) (RenderResult, error) {
	html, err := r.HTML(doc)
	if err != nil {
		return RenderResult{}, err
	}
	if r.client == nil {
		return RenderResult{}, fmt.Errorf("itinerary renderer: pdf client required")
	}
	pdf, err := r.client.RenderHTML(ctx, html)
	if err != nil {
		return RenderResult{}, err
	}
	return RenderResult{HTML: html, PDF: pdf, Length: int64(len(pdf))}, nil
}
