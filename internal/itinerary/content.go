// Package itinerary turns the loosely shaped content stored with a digital
// itinerary into one normalized document and renders it to PDF.
package itinerary

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/operations"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/pricing"
)

// DefaultTitle is used when the content names no trip title.
const DefaultTitle = "Travel itinerary"

// Ordered key fallbacks per field. The first non-empty value wins.
var (
	titleKeys      = []string{"title", "titulo", "trip_name", "tour_name", "nombre_tour"}
	passengerKeys  = []string{"passenger_name", "nombre_pasajero", "pasajero", "client_name", "cliente"}
	startKeys      = []string{"start_date", "fecha_inicio", "travel_date", "fecha_viaje", "fecha"}
	daysKeys       = []string{"days", "itinerary", "itinerario", "dias"}
	notesKeys      = []string{"notes", "notas", "observaciones"}
	itemsKeys      = []string{"items", "services", "servicios", "pricing_items"}
	adultKeys      = []string{"adults", "adult_count", "adultos", "pax_adultos"}
	childKeys      = []string{"children", "child_count", "ninos", "pax_ninos"}
	marginKeys     = []string{"margin", "margin_percent", "margen"}
	adjustmentKeys = []string{"adjustment", "fixed_adjustment", "ajuste"}

	dayIndexKeys    = []string{"day", "index", "dia", "day_index"}
	dayDateKeys     = []string{"date", "fecha", "service_date"}
	dayNoteKeys     = []string{"note", "notes", "nota"}
	dayTourKeys     = []string{"tour_name", "tour", "nombre_tour"}
	dayFallbackKeys = []string{"fallback_tour", "sale_tour_name", "tour_fallback"}
	dayDescKeys     = []string{"description", "descripcion", "detail", "detalle"}

	itemLabelKeys = []string{"label", "name", "nombre", "service", "servicio"}
	itemBaseKeys  = []string{"base_cost", "cost", "costo", "precio", "price"}
	itemChildKeys = []string{"child_cost", "costo_nino", "child_price"}
)

// Day is one day of the itinerary.
type Day struct {
	Index       int
	Date        time.Time
	Title       string
	Description string
}

// Content is the normalized itinerary document body.
type Content struct {
	Title         string
	PassengerName string
	StartDate     time.Time
	Days          []Day
	Items         []pricing.LineItem
	Pricing       pricing.Config
	Notes         string
}

// Budget prices the content items for its party.
func (c Content) Budget() pricing.Budget {
	return pricing.ComputeBudget(c.Items, c.Pricing)
}

// Normalize resolves every field of raw through its key fallback list.
// Unknown keys are ignored and missing values take neutral defaults.
// Negative head counts are read as zero.
func Normalize(raw map[string]any) Content {
	c := Content{
		Title:         operations.FirstNonEmpty(text(raw, titleKeys...), DefaultTitle),
		PassengerName: operations.FirstNonEmpty(text(raw, passengerKeys...), operations.Unknown),
		StartDate:     date(raw, startKeys...),
		Notes:         text(raw, notesKeys...),
	}
	c.Pricing = pricing.Config{
		AdultCount:      max(0, integer(raw, 1, adultKeys...)),
		ChildCount:      max(0, integer(raw, 0, childKeys...)),
		MarginPercent:   amount(raw, marginKeys...),
		FixedAdjustment: amount(raw, adjustmentKeys...),
	}

	for i, entry := range list(raw, daysKeys...) {
		d := Day{
			Index:       integer(entry, i+1, dayIndexKeys...),
			Date:        date(entry, dayDateKeys...),
			Title:       operations.FirstNonEmpty(text(entry, dayNoteKeys...), text(entry, dayTourKeys...), text(entry, dayFallbackKeys...), operations.UnknownTour),
			Description: text(entry, dayDescKeys...),
		}
		if d.Date.IsZero() && !c.StartDate.IsZero() {
			d.Date = c.StartDate.AddDate(0, 0, d.Index-1)
		}
		c.Days = append(c.Days, d)
	}

	for _, entry := range list(raw, itemsKeys...) {
		item := pricing.LineItem{
			Label:    text(entry, itemLabelKeys...),
			BaseCost: amount(entry, itemBaseKeys...),
		}
		if v, ok := lookup(entry, itemChildKeys...); ok {
			if d, ok := toAmount(v); ok {
				item.ChildCost = &d
			}
		}
		c.Items = append(c.Items, item)
	}
	return c
}

// lookup returns the first present, non-blank value for keys.
func lookup(raw map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

func text(raw map[string]any, keys ...string) string {
	v, ok := lookup(raw, keys...)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case json.Number:
		return s.String()
	default:
		return strings.TrimSpace(fmt.Sprint(s))
	}
}

func integer(raw map[string]any, def int, keys ...string) int {
	v, ok := lookup(raw, keys...)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i
		}
	}
	return def
}

func amount(raw map[string]any, keys ...string) decimal.Decimal {
	v, ok := lookup(raw, keys...)
	if !ok {
		return decimal.Zero
	}
	d, _ := toAmount(v)
	return d
}

func toAmount(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(n), ",", ""))
		return d, err == nil
	case decimal.Decimal:
		return n, true
	}
	return decimal.Zero, false
}

func date(raw map[string]any, keys ...string) time.Time {
	v, ok := lookup(raw, keys...)
	if !ok {
		return time.Time{}
	}
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		for _, layout := range []string{time.DateOnly, time.RFC3339, "02/01/2006"} {
			if parsed, err := time.Parse(layout, strings.TrimSpace(t)); err == nil {
				return parsed
			}
		}
	}
	return time.Time{}
}

func list(raw map[string]any, keys ...string) []map[string]any {
	v, ok := lookup(raw, keys...)
	if !ok {
		return nil
	}
	switch items := v.(type) {
	case []map[string]any:
		return items
	case []any:
		out := make([]map[string]any, 0, len(items))
		for _, item := range items {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}
