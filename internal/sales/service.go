package sales

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/accounting"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/shared"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/store"
)

// Settlements resolves payment state for a set of sales.
type Settlements interface {
	SaleSettlements(ctx context.Context, saleIDs []int64, closing map[int64]decimal.Decimal) (map[int64]accounting.Settlement, error)
}

// Service provides the sales desk operations.
type Service struct {
	store       store.Store
	settlements Settlements
	now         func() time.Time
}

// NewService constructs a sales service.
func NewService(s store.Store, settlements Settlements) *Service {
	return &Service{store: s, settlements: settlements, now: time.Now}
}

// ============================================================================
// LEADS
// ============================================================================

// CreateLead stores a new prospect with status NEW, owned by the current principal.
func (s *Service) CreateLead(ctx context.Context, req CreateLeadRequest) (Lead, error) {
	name := strings.TrimSpace(req.Name)
	phone := strings.TrimSpace(req.Phone)
	if name == "" || phone == "" {
		return Lead{}, fmt.Errorf("%w: name and phone are required", shared.ErrValidation)
	}
	var seller int64
	if p := shared.PrincipalFromContext(ctx); p != nil {
		seller = p.UserID
	}
	rec, err := s.store.Insert(ctx, store.Leads, store.Record{
		"name":       name,
		"phone":      phone,
		"source":     strings.ToUpper(strings.TrimSpace(req.Source)),
		"status":     string(LeadNew),
		"seller_id":  seller,
		"created_at": s.now().UTC(),
	})
	if err != nil {
		return Lead{}, fmt.Errorf("create lead: %w", err)
	}
	return leadFromRecord(rec), nil
}

// ListLeads returns leads newest first.
func (s *Service) ListLeads(ctx context.Context, req ListLeadsRequest) ([]Lead, error) {
	filter := store.All()
	if req.Status != "" {
		filter = store.Where(store.Eq("status", string(req.Status)))
	}
	page := shared.NewPagination(req.Page, req.PerPage, 0)
	recs, err := s.store.Query(ctx, store.Leads, filter.OrderBy("created_at DESC", "id DESC").Limit(uint64(page.PerPage)).Skip(uint64(page.Offset())))
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	out := make([]Lead, len(recs))
	for i, rec := range recs {
		out[i] = leadFromRecord(rec)
	}
	return out, nil
}

// UpdateLeadStatus moves a lead through the funnel.
func (s *Service) UpdateLeadStatus(ctx context.Context, id int64, status LeadStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown lead status %q", shared.ErrValidation, status)
	}
	n, err := s.store.Update(ctx, store.Leads, store.Where(store.Eq("id", id)), store.Record{"status": string(status)})
	if err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: lead %d", shared.ErrNotFound, id)
	}
	return nil
}

// ============================================================================
// SALES
// ============================================================================

// ListSales returns the latest sales with client names and settlement.
func (s *Service) ListSales(ctx context.Context, limit int) ([]SaleSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	recs, err := s.store.Query(ctx, store.Sales, store.All().OrderBy("id DESC").Limit(uint64(limit)))
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	if len(recs) == 0 {
		return nil, nil
	}
	ids := make([]int64, 0, len(recs))
	clientIDs := make([]int64, 0, len(recs))
	closing := make(map[int64]decimal.Decimal, len(recs))
	for _, rec := range recs {
		id := rec.Int64("id")
		ids = append(ids, id)
		clientIDs = append(clientIDs, rec.Int64("client_id"))
		closing[id] = rec.Decimal("closing_price")
	}
	clients, err := s.store.Query(ctx, store.Clients, store.Where(store.In("id", clientIDs)))
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	names := make(map[int64]string, len(clients))
	for _, c := range clients {
		names[c.Int64("id")] = c.String("name")
	}
	settled, err := s.settlements.SaleSettlements(ctx, ids, closing)
	if err != nil {
		return nil, fmt.Errorf("settlements: %w", err)
	}

	out := make([]SaleSummary, 0, len(recs))
	for _, rec := range recs {
		id := rec.Int64("id")
		name := names[rec.Int64("client_id")]
		if name == "" {
			name = "Unknown"
		}
		out = append(out, SaleSummary{
			ID:                id,
			ClientName:        name,
			TourName:          rec.String("tour_name"),
			ClosingPrice:      closing[id],
			B2B:               rec.Has("alliance_agency_id"),
			ItineraryCloudURL: rec.String("itinerary_cloud_url"),
			CreatedAt:         rec.Time("created_at"),
			Settlement:        settled[id],
		})
	}
	return out, nil
}

func leadFromRecord(rec store.Record) Lead {
	return Lead{
		ID:        rec.Int64("id"),
		Name:      rec.String("name"),
		Phone:     rec.String("phone"),
		Source:    rec.String("source"),
		Status:    LeadStatus(rec.String("status")),
		SellerID:  rec.Int64("seller_id"),
		CreatedAt: rec.Time("created_at"),
	}
}
