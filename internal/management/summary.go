// Package management aggregates the sales ledger into the KPIs shown to
// the management role.
package management

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/accounting"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/shared"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/store"
)

// Summary holds the KPIs of sales created within [From, To].
type Summary struct {
	From              time.Time       `json:"from"`
	To                time.Time       `json:"to"`
	SalesCount        int             `json:"sales_count"`
	B2BCount          int             `json:"b2b_count"`
	SettledCount      int             `json:"settled_count"`
	ServicesScheduled int             `json:"services_scheduled"`
	Revenue           decimal.Decimal `json:"revenue"`
	Collected         decimal.Decimal `json:"collected"`
	Outstanding       decimal.Decimal `json:"outstanding"`
	B2BShare          decimal.Decimal `json:"b2b_share"`
}

// Service computes summaries through the versioned cache.
type Service struct {
	store store.Store
	cache *Cache
}

// NewService wires the store with an optional cache.
func NewService(s store.Store, cache *Cache) *Service {
	return &Service{store: s, cache: cache}
}

// MonthRange returns the first and last day of t's month.
func MonthRange(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, -1)
}

// Summary resolves the KPIs for the inclusive date range.
func (s *Service) Summary(ctx context.Context, from, to time.Time) (Summary, error) {
	from, to = day(from), day(to)
	if to.Before(from) {
		return Summary{}, fmt.Errorf("%w: range ends before it starts", shared.ErrValidation)
	}
	if cached, ok, err := s.cache.Lookup(ctx, from, to); err == nil && ok {
		return cached, nil
	}
	out, err := s.compute(ctx, from, to)
	if err != nil {
		return Summary{}, err
	}
	// A cache write failure still serves the computed summary.
	_ = s.cache.Put(ctx, out)
	return out, nil
}

// Refresh drops cached summaries and recomputes the given range.
func (s *Service) Refresh(ctx context.Context, from, to time.Time) (Summary, error) {
	if err := s.cache.Invalidate(ctx); err != nil {
		return Summary{}, fmt.Errorf("invalidate summary cache: %w", err)
	}
	return s.Summary(ctx, from, to)
}

func (s *Service) compute(ctx context.Context, from, to time.Time) (Summary, error) {
	out := Summary{From: from, To: to}
	next := to.AddDate(0, 0, 1)

	sales, err := s.store.Query(ctx, store.Sales, store.Where(store.Gte("created_at", from), store.Lt("created_at", next)))
	if err != nil {
		return Summary{}, err
	}
	lines, err := s.store.Query(ctx, store.ServiceLines, store.Where(store.Gte("service_date", from), store.Lte("service_date", to)))
	if err != nil {
		return Summary{}, err
	}
	out.ServicesScheduled = len(lines)
	if len(sales) == 0 {
		return out, nil
	}

	ids := make([]int64, len(sales))
	for i, rec := range sales {
		ids[i] = rec.Int64("id")
	}
	payments, err := s.store.Query(ctx, store.Payments, store.Where(store.In("sale_id", ids)))
	if err != nil {
		return Summary{}, err
	}
	paid := make(map[int64]decimal.Decimal, len(ids))
	for _, p := range payments {
		id := p.Int64("sale_id")
		paid[id] = paid[id].Add(p.Decimal("amount_paid"))
	}

	b2bRevenue := decimal.Zero
	for _, rec := range sales {
		id := rec.Int64("id")
		closing := rec.Decimal("closing_price")
		out.SalesCount++
		out.Revenue = out.Revenue.Add(closing)
		out.Collected = out.Collected.Add(paid[id])
		if rec.Has("alliance_agency_id") {
			out.B2BCount++
			b2bRevenue = b2bRevenue.Add(closing)
		}
		st := accounting.Settle(closing, paid[id])
		if st.Settled() {
			out.SettledCount++
			continue
		}
		out.Outstanding = out.Outstanding.Add(st.Balance)
	}
	if out.Revenue.IsPositive() {
		out.B2BShare = b2bRevenue.Div(out.Revenue).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return out, nil
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
