// Package pricing computes itinerary budgets from line items and a party
// configuration. Every line item applies to the whole party: item costs are
// summed first and the head-count multiplication happens once on the totals.
package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/shared"
)

// DefaultChildFactor is applied to BaseCost when an item has no ChildCost.
var DefaultChildFactor = decimal.RequireFromString("0.7")

var hundred = decimal.NewFromInt(100)

// LineItem is one priced component of an itinerary.
type LineItem struct {
	Label     string
	BaseCost  decimal.Decimal
	ChildCost *decimal.Decimal
}

// ChildPrice returns ChildCost or the default share of BaseCost.
func (li LineItem) ChildPrice() decimal.Decimal {
	if li.ChildCost != nil {
		return *li.ChildCost
	}
	return li.BaseCost.Mul(DefaultChildFactor)
}

// Config describes the travelling party and the commercial terms.
type Config struct {
	AdultCount      int
	ChildCount      int
	MarginPercent   decimal.Decimal
	FixedAdjustment decimal.Decimal
}

// Validate rejects negative head counts. ComputeBudget does not call it.
func (c Config) Validate() error {
	if c.AdultCount < 0 || c.ChildCount < 0 {
		return fmt.Errorf("%w: head counts must be non-negative", shared.ErrValidation)
	}
	return nil
}

// Budget is the outcome of ComputeBudget. Values are exact; round only for display.
type Budget struct {
	SubtotalAdults   decimal.Decimal
	SubtotalChildren decimal.Decimal
	TotalCost        decimal.Decimal
	TotalWithMargin  decimal.Decimal
	FinalTotal       decimal.Decimal
	Profit           decimal.Decimal
}

// ComputeBudget prices items for the party in cfg. Negative margins are allowed.
func ComputeBudget(items []LineItem, cfg Config) Budget {
	var b Budget
	for _, item := range items {
		b.SubtotalAdults = b.SubtotalAdults.Add(item.BaseCost)
		b.SubtotalChildren = b.SubtotalChildren.Add(item.ChildPrice())
	}
	b.TotalCost = b.SubtotalAdults.Mul(decimal.NewFromInt(int64(cfg.AdultCount))).
		Add(b.SubtotalChildren.Mul(decimal.NewFromInt(int64(cfg.ChildCount))))
	b.TotalWithMargin = b.TotalCost.Mul(decimal.NewFromInt(1).Add(cfg.MarginPercent.Div(hundred)))
	b.FinalTotal = b.TotalWithMargin.Add(cfg.FixedAdjustment)
	b.Profit = b.FinalTotal.Sub(b.TotalCost)
	return b
}

// ParseLineItem coerces textual costs. An empty child cost selects the default.
func ParseLineItem(label, base, child string) (LineItem, error) {
	baseCost, err := parseAmount(base)
	if err != nil {
		return LineItem{}, fmt.Errorf("%w: base cost %q", shared.ErrValidation, base)
	}
	item := LineItem{Label: strings.TrimSpace(label), BaseCost: baseCost}
	if strings.TrimSpace(child) != "" {
		childCost, err := parseAmount(child)
		if err != nil {
			return LineItem{}, fmt.Errorf("%w: child cost %q", shared.ErrValidation, child)
		}
		item.ChildCost = &childCost
	}
	return item, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
}
